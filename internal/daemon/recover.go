package daemon

import (
	"net"

	"github.com/ipilcher/b1b/internal/dest"
	"github.com/ipilcher/b1b/internal/dlog"
)

// recover performs one recovery run for b: read its FDB reader into a
// fresh destination set, then drain the set through the GARP emitter in
// key order. This is the state machine of spec section 4.6: idle →
// recovering → idle, with the destination set freed on exit regardless
// of how many entries were emitted.
func (s *Session) recover(b *Bond) {
	b.fdbtree = dest.New()
	defer func() { b.fdbtree = nil }()

	if err := b.Reader.Read(b.fdbtree); err != nil {
		dlog.Error("recovery for %s: %v", b.Ifname, err)
		return
	}

	b.fdbtree.Walk(func(vlan uint16, mac net.HardwareAddr) {
		if err := s.Garp.Send(b.Ifindex, vlan, mac); err != nil {
			dlog.Error("garp send on %s (vlan=%d mac=%s): %v", b.Ifname, vlan, mac, err)
		}
	})
}
