// Package dest implements the per-bond destination set of spec section
// 4.1: an ordered set keyed by (VLAN, MAC), packed into a single 64-bit
// integer that is both the stored value and the ordering key.
package dest

import (
	"fmt"
	"net"
	"sort"
)

// Key is the packed (VLAN, MAC) ordering key: VLAN in the high 16 bits,
// MAC in the low 48 bits. It is a total order over destinations and a
// plain unsigned integer comparison, per spec section 3.
type Key uint64

// Pack builds a Key from a VLAN ID and a 6-byte hardware address. VLAN 0
// means untagged.
func Pack(vlan uint16, mac net.HardwareAddr) Key {
	var m uint64
	for _, b := range mac[:6] {
		m = m<<8 | uint64(b)
	}
	return Key(uint64(vlan)<<48 | m)
}

// VLAN extracts the VLAN component of a Key.
func (k Key) VLAN() uint16 {
	return uint16(k >> 48)
}

// MAC extracts the MAC component of a Key.
func (k Key) MAC() net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	v := uint64(k)
	for i := 5; i >= 0; i-- {
		mac[i] = byte(v)
		v >>= 8
	}
	return mac
}

func (k Key) String() string {
	return fmt.Sprintf("vlan=%d mac=%s", k.VLAN(), k.MAC())
}

// Set is the per-bond destination set. It is created at the start of a
// recovery run, populated by an fdb.Reader, drained in order by the GARP
// emitter, and then discarded — it is never reused across runs.
//
// The backing store is a sorted slice rather than a balanced tree: sets
// are small (bounded by the number of MACs a bridge has learned behind
// one bond, realistically tens to low hundreds of entries) and live for
// the duration of a single recovery, so the simplicity of binary-search
// insertion into a slice outweighs the asymptotic edge a tree would have
// at set sizes this daemon never reaches.
type Set struct {
	keys []Key
}

// New returns an empty destination set.
func New() *Set {
	return &Set{}
}

// Insert adds (vlan, mac) to the set. It reports whether the entry was
// already present (a duplicate insert is a no-op, per spec section 3 —
// "duplicates are silently ignored at insert time").
func (s *Set) Insert(vlan uint16, mac net.HardwareAddr) (duplicate bool) {
	k := Pack(vlan, mac)
	i := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= k })
	if i < len(s.keys) && s.keys[i] == k {
		return true
	}
	s.keys = append(s.keys, 0)
	copy(s.keys[i+1:], s.keys[i:])
	s.keys[i] = k
	return false
}

// Len reports the number of distinct destinations in the set.
func (s *Set) Len() int {
	return len(s.keys)
}

// Walk visits every destination in non-decreasing key order, matching
// the "Ordering" testable property of spec section 8.
func (s *Set) Walk(fn func(vlan uint16, mac net.HardwareAddr)) {
	for _, k := range s.keys {
		fn(k.VLAN(), k.MAC())
	}
}
