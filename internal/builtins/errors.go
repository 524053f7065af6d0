package builtins

import (
	"fmt"
	"net"
)

// errNotBound reports the RuntimeError (§7) for calling a UDP socket
// method before bind().
func errNotBound(method string) error {
	return fmt.Errorf("udp socket: %s called before bind", method)
}

// parseIP parses a dotted/colon IP literal, returning nil (which the
// stream package's JoinGroup/LeaveGroup reject) on malformed input rather
// than panicking.
func parseIP(s string) net.IP {
	return net.ParseIP(s)
}
