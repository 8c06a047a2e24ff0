package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/git-lfs-client/cmd"
	"github.com/charmbracelet/git-lfs-client/transfer"
)

func main() {
	if err := cmd.Command(os.Stdout, os.Stderr, os.Args[1:]...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 1 when the remote refused an object or the content doesn't
// match its oid, and 2 for every other failure.
func exitCode(err error) int {
	var objErr *transfer.ObjectError
	switch {
	case transfer.IsIntegrityError(err), errors.As(err, &objErr):
		return 1
	default:
		return 2
	}
}
