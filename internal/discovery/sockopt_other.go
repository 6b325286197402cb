//go:build !unix && !windows

package discovery

import "syscall"

// controlBroadcast is a no-op where socket options are not available
func controlBroadcast(network, address string, c syscall.RawConn) error {
	return nil
}
