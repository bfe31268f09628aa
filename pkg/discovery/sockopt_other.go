//go:build !unix

package discovery

import "syscall"

// broadcastControl leaves socket options at their platform defaults.
func broadcastControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
