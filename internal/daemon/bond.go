// Package daemon holds b1b's data model (spec section 3) and the two
// components built directly on top of it: bond discovery (C3) and the
// event loop (C7). It is the application layer the rest of the tree
// exists to serve; internal/rtnl, internal/fdb, internal/ovsctl, and
// internal/garp are its collaborators.
package daemon

import (
	"net"

	"github.com/ipilcher/b1b/internal/dest"
	"github.com/ipilcher/b1b/internal/fdb"
	"github.com/ipilcher/b1b/internal/ovsctl"
	"github.com/ipilcher/b1b/internal/rtnl"
)

// garpSender is the minimal capability recover() needs from the GARP
// emitter. *garp.Socket satisfies it; tests substitute a fake to exercise
// the recovery logic without a real raw packet socket.
type garpSender interface {
	Send(ifindex int, vlan uint16, mac net.HardwareAddr) error
	Close() error
}

// BrType classifies a bond's master device.
type BrType int

const (
	BrNone BrType = iota
	BrLinux
	BrOVS
	BrOther
)

func (t BrType) String() string {
	switch t {
	case BrLinux:
		return "Linux-bridge"
	case BrOVS:
		return "openvswitch"
	case BrOther:
		return "other"
	default:
		return "none"
	}
}

// Bond is one monitored bond session (spec section 3, "Bond session").
type Bond struct {
	Ifname  string
	Ifindex int

	Brname  string
	Brindex int
	Brtype  BrType

	Ofport int // OVS only

	Mode uint8

	Reader fdb.Reader

	FailoverFlag bool

	// fdbtree is transient: allocated at the start of a recovery run,
	// drained through the GARP emitter, then discarded. It is nil
	// outside a recovery run, matching the invariant of spec section 3.
	fdbtree *dest.Set
}

// Session is the process-wide global session of spec section 3: every
// handle the daemon owns, plus the bond-session array, sorted by
// ifindex.
type Session struct {
	Conn *rtnl.Conn
	Garp garpSender

	// OVS is lazily created: nil until the first OVS-typed bond is
	// discovered (spec section 9, "lazy OVS socket").
	OVS *ovsctl.Client

	Bonds []*Bond

	scratchMax int
}

// Close releases every handle the session owns.
func (s *Session) Close() error {
	var firstErr error
	if s.Conn != nil {
		if err := s.Conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.Garp != nil {
		if err := s.Garp.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.OVS != nil {
		if err := s.OVS.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// findBond returns the bond session for ifindex via binary search, or
// nil if ifindex is not monitored. The array is kept sorted by ifindex
// at all times (spec section 3 invariant), so this is the hot-path
// lookup C7 performs on every event.
func (s *Session) findBond(ifindex int) *Bond {
	lo, hi := 0, len(s.Bonds)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.Bonds[mid].Ifindex < ifindex {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s.Bonds) && s.Bonds[lo].Ifindex == ifindex {
		return s.Bonds[lo]
	}
	return nil
}
