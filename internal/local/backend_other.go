//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)
// +build !darwin,!dragonfly,!freebsd,!linux,!netbsd,!openbsd,!solaris

package local

// FixPermissions fixes the permissions of the file at the given path.
func (r *Remote) FixPermissions(path string) error {
	return nil
}
