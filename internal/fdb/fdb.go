// Package fdb implements the Linux-bridge forwarding-database reader of
// spec component C4, and defines the Reader interface that lets a bond
// session hold either this or an OVS-backed reader (internal/ovsctl)
// interchangeably — the "polymorphic FDB reader" design note of spec
// section 9, expressed the Go way as an interface rather than a tagged
// union.
package fdb

import (
	"fmt"
	"net"

	"github.com/ipilcher/b1b/internal/dest"
	"github.com/ipilcher/b1b/internal/rtnl"
)

// Reader populates a destination set with the MAC/VLAN pairs an upstream
// switch needs to relearn for one bond, after the bond's active slave has
// changed. Implementations: *LinuxReader (this package, C4) and
// *ovsctl.Reader (C5).
type Reader interface {
	Read(set *dest.Set) error
}

// LinuxReader reads the in-kernel bridge forwarding database for a bond
// enslaved to a Linux bridge.
type LinuxReader struct {
	Conn        *rtnl.Conn
	BondIfindex int
	BrIfindex   int
}

// Read dumps the AF_BRIDGE neighbor table restricted to the bridge
// master, discarding the bond's own MAC, statically configured
// (permanent) entries, and all-zero addresses, and inserts every
// surviving (VLAN, MAC) pair into set. Spec section 4.4.
func (r *LinuxReader) Read(set *dest.Set) error {
	entries, err := r.Conn.DumpNeigh(r.BrIfindex)
	if err != nil {
		return fmt.Errorf("fdb: dump neigh for bridge %d: %w", r.BrIfindex, err)
	}

	for _, e := range entries {
		if e.Permanent() {
			continue
		}
		if e.Ifindex == r.BondIfindex {
			continue
		}
		if isZeroMAC(e.MAC) {
			continue
		}
		set.Insert(e.VLAN, e.MAC)
	}

	return nil
}

func isZeroMAC(mac net.HardwareAddr) bool {
	for _, b := range mac {
		if b != 0 {
			return false
		}
	}
	return true
}
