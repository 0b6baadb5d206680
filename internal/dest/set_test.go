package dest

import (
	"net"
	"testing"
)

func mac(s string) net.HardwareAddr {
	m, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

func TestInsertDedupes(t *testing.T) {
	s := New()

	if dup := s.Insert(10, mac("02:aa:bb:cc:dd:01")); dup {
		t.Fatalf("first insert reported as duplicate")
	}
	if dup := s.Insert(10, mac("02:aa:bb:cc:dd:01")); !dup {
		t.Fatalf("repeat insert of identical (vlan, mac) was not reported as duplicate")
	}
	if s.Len() != 1 {
		t.Fatalf("want 1 entry after dedup, got %d", s.Len())
	}
}

func TestSameMACDifferentVLANDistinct(t *testing.T) {
	s := New()
	s.Insert(10, mac("02:aa:bb:cc:dd:01"))
	s.Insert(20, mac("02:aa:bb:cc:dd:01"))

	if s.Len() != 2 {
		t.Fatalf("want 2 entries, got %d", s.Len())
	}
}

func TestWalkOrdersByPackedKey(t *testing.T) {
	s := New()
	// Insert out of order; VLAN 0 (untagged) must sort before any tagged VLAN.
	s.Insert(10, mac("02:aa:bb:cc:dd:01"))
	s.Insert(0, mac("02:aa:bb:cc:dd:02"))
	s.Insert(10, mac("02:aa:bb:cc:dd:00"))

	var got []Key
	s.Walk(func(vlan uint16, mac net.HardwareAddr) {
		got = append(got, Pack(vlan, mac))
	})

	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("entries not in non-decreasing key order: %v", got)
		}
	}
	if got[0].VLAN() != 0 {
		t.Fatalf("expected untagged (vlan 0) entry first, got vlan %d", got[0].VLAN())
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	m := mac("de:ad:be:ef:00:01")
	k := Pack(4094, m)

	if k.VLAN() != 4094 {
		t.Fatalf("want vlan 4094, got %d", k.VLAN())
	}
	if k.MAC().String() != m.String() {
		t.Fatalf("want mac %s, got %s", m, k.MAC())
	}
}
