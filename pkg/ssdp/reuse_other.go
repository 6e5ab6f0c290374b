//go:build !unix && !windows

package ssdp

import "syscall"

func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}

func isAddrInUse(err error) bool {
	return false
}
