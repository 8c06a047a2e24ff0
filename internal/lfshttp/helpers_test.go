package lfshttp_test

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/git-lfs-client/transfer"
)

func writeObject(lfsPath string, p transfer.Pointer, content string) error {
	path := p.Oid.ExpectedPath(lfsPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func readObject(lfsPath string, p transfer.Pointer) (string, error) {
	b, err := os.ReadFile(p.Oid.ExpectedPath(lfsPath))
	return string(b), err
}
