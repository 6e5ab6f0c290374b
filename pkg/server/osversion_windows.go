//go:build windows

package server

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func osVersion() (string, string) {
	v := windows.RtlGetVersion()
	return "Windows", fmt.Sprintf("%d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber)
}
