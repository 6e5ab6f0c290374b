//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

package server

import "runtime"

func osVersion() (string, string) {
	return runtime.GOOS, ""
}
