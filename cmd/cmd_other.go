//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)
// +build !darwin,!dragonfly,!freebsd,!linux,!netbsd,!openbsd,!solaris

package cmd

import (
	"os"
	"os/signal"
)

func setPermissions(string) os.FileMode {
	return 0o077
}

func setup(c chan os.Signal) {
	signal.Notify(c, os.Interrupt)
}
