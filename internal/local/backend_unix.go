//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build darwin dragonfly freebsd linux netbsd openbsd solaris

package local

import (
	"os"
)

// FixPermissions applies the remote's umask to the file at the given path,
// overriding the process umask the file was created with.
func (r *Remote) FixPermissions(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return os.Chmod(path, 0o666&^r.umask)
}
