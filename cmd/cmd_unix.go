//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build darwin dragonfly freebsd linux netbsd openbsd solaris

package cmd

import (
	"os"
	"os/signal"
	"strconv"

	"github.com/git-lfs/git-lfs/v3/git"
	"golang.org/x/sys/unix"
)

// setPermissions returns the umask for objects of the repository at gitDir.
// core.sharedrepository takes precedence over the process umask.
func setPermissions(gitDir string) os.FileMode {
	config := git.NewReadOnlyConfig("", gitDir)
	var val int
	sr := config.Find("core.sharedrepository")
	switch sr {
	case "true", "group":
		val = 0o660
	case "all", "world", "everybody":
		val = 0o664
	case "", "false", "umask":
	default:
		v, _ := strconv.ParseUint(sr, 8, 32)
		val = int(v)
	}
	umask := unix.Umask(0)
	unix.Umask(umask)
	if val != 0 {
		umask = 0o777 &^ val
	}
	return os.FileMode(umask)
}

func setup(c chan os.Signal) {
	signal.Notify(c, os.Interrupt, unix.SIGTERM, unix.SIGPIPE)
}
