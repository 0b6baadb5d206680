package daemon

import (
	"errors"
	"net"
	"testing"

	"github.com/ipilcher/b1b/internal/dest"
)

type fakeReader struct {
	entries [][2]interface{} // {vlan uint16, mac net.HardwareAddr}
	err     error
}

func (f *fakeReader) Read(set *dest.Set) error {
	if f.err != nil {
		return f.err
	}
	for _, e := range f.entries {
		set.Insert(e[0].(uint16), e[1].(net.HardwareAddr))
	}
	return nil
}

type fakeGarp struct {
	sent     []string
	attempts int
	err      error
}

func (f *fakeGarp) Send(ifindex int, vlan uint16, mac net.HardwareAddr) error {
	f.attempts++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, mac.String())
	return nil
}

func (f *fakeGarp) Close() error { return nil }

func TestRecoverEmitsOnePerDestinationInOrder(t *testing.T) {
	reader := &fakeReader{entries: [][2]interface{}{
		{uint16(10), net.HardwareAddr{2, 0xaa, 0xbb, 0xcc, 0xdd, 2}},
		{uint16(0), net.HardwareAddr{2, 0xaa, 0xbb, 0xcc, 0xdd, 1}},
	}}
	garp := &fakeGarp{}
	s := &Session{Garp: garp}
	b := &Bond{Ifname: "bond0", Ifindex: 4, Reader: reader}

	s.recover(b)

	if len(garp.sent) != 2 {
		t.Fatalf("want 2 frames sent, got %d", len(garp.sent))
	}
	// VLAN 0 packs lowest, so it must be emitted first regardless of
	// reader insertion order.
	if garp.sent[0] != "02:aa:bb:cc:dd:01" {
		t.Fatalf("want vlan-0 entry first, got %v", garp.sent)
	}
	if b.fdbtree != nil {
		t.Fatalf("fdbtree must be nil after recovery completes")
	}
}

func TestRecoverReaderErrorDoesNotPanic(t *testing.T) {
	reader := &fakeReader{err: errors.New("boom")}
	garp := &fakeGarp{}
	s := &Session{Garp: garp}
	b := &Bond{Ifname: "bond0", Ifindex: 4, Reader: reader}

	s.recover(b)

	if len(garp.sent) != 0 {
		t.Fatalf("expected no frames sent when reader fails, got %v", garp.sent)
	}
	if b.fdbtree != nil {
		t.Fatalf("fdbtree must be nil after recovery completes")
	}
}

func TestRecoverGarpSendErrorContinuesToNextEntry(t *testing.T) {
	reader := &fakeReader{entries: [][2]interface{}{
		{uint16(0), net.HardwareAddr{2, 0, 0, 0, 0, 1}},
		{uint16(0), net.HardwareAddr{2, 0, 0, 0, 0, 2}},
	}}
	garp := &fakeGarp{err: errors.New("sendto: network is down")}
	s := &Session{Garp: garp}
	b := &Bond{Ifname: "bond0", Ifindex: 4, Reader: reader}

	s.recover(b) // must not panic despite every send failing

	if garp.attempts != 2 {
		t.Fatalf("want a send attempt for each of 2 entries despite failures, got %d", garp.attempts)
	}
}
