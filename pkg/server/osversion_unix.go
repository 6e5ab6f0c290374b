//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package server

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func osVersion() (string, string) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOOS, ""
	}
	return unix.ByteSliceToString(u.Sysname[:]), unix.ByteSliceToString(u.Release[:])
}
