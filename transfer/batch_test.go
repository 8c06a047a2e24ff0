package transfer_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmbracelet/git-lfs-client/transfer"
)

func TestBatchRequestJSON(t *testing.T) {
	req := transfer.NewBatchRequest(transfer.DownloadOperation, []transfer.Pointer{{Oid: helloOid, Size: 5}})
	req.Ref = &transfer.Ref{Name: "refs/heads/main"}

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"operation": "download",
		"transfers": ["basic"],
		"ref": {"name": "refs/heads/main"},
		"objects": [{"oid": "`+helloOid+`", "size": 5}],
		"hash_algo": "sha256"
	}`, string(b))
}

func TestBatchResponseJSON(t *testing.T) {
	body := `{
		"transfer": "basic",
		"objects": [
			{
				"oid": "` + helloOid + `",
				"size": 5,
				"authenticated": true,
				"actions": {
					"download": {
						"href": "https://lfs.example.com/objects/` + helloOid + `",
						"header": {"Authorization": "Basic xyz"},
						"expires_at": "2016-11-10T15:29:07Z"
					}
				}
			},
			{
				"oid": "` + helloOid + `",
				"size": 5,
				"error": {"code": 404, "message": "Object does not exist"}
			}
		]
	}`

	var res transfer.BatchResponse
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.Equal(t, transfer.HashAlgoSHA256, res.HashAlgo)
	require.Len(t, res.Objects, 2)

	ok := res.Objects[0]
	require.NotNil(t, ok.Actions)
	require.NotNil(t, ok.Actions.Download)
	assert.Nil(t, ok.Actions.Upload)
	assert.Equal(t, "Basic xyz", ok.Actions.Download.Header["Authorization"])
	assert.True(t, ok.Actions.Download.Expired(ok.Actions.Download.ExpiresAt.Add(1)))
	assert.Equal(t, transfer.Pointer{Oid: helloOid, Size: 5}, ok.Pointer())

	failed := res.Objects[1]
	assert.Nil(t, failed.Actions)
	require.NotNil(t, failed.Error)
	assert.Equal(t, 404, failed.Error.Code)
}

func TestOperationText(t *testing.T) {
	var op transfer.Operation
	require.NoError(t, op.UnmarshalText([]byte("upload")))
	assert.Equal(t, transfer.UploadOperation, op)
	assert.Error(t, op.UnmarshalText([]byte("delete")))

	_, err := transfer.Operation(42).MarshalText()
	assert.Error(t, err)
}

func TestObjectErrorIs(t *testing.T) {
	for _, code := range []int{401, 403} {
		err := fmt.Errorf("push: %w", &transfer.ObjectError{Code: code, Message: "no"})
		assert.ErrorIs(t, err, transfer.ErrAccessDenied)
	}
	err := &transfer.ObjectError{Code: 404, Message: "Not Found"}
	assert.False(t, errors.Is(err, transfer.ErrAccessDenied))
	assert.True(t, errors.Is(err, transfer.ErrNotFound))
	assert.Equal(t, "object error: 404 - Not Found", err.Error())
}
