package fdb

import (
	"net"
	"testing"
)

func TestIsZeroMAC(t *testing.T) {
	cases := []struct {
		mac  net.HardwareAddr
		want bool
	}{
		{net.HardwareAddr{0, 0, 0, 0, 0, 0}, true},
		{net.HardwareAddr{0, 0, 0, 0, 0, 1}, false},
		{net.HardwareAddr{2, 0xaa, 0xbb, 0xcc, 0xdd, 1}, false},
	}

	for _, c := range cases {
		if got := isZeroMAC(c.mac); got != c.want {
			t.Fatalf("isZeroMAC(%s) = %v, want %v", c.mac, got, c.want)
		}
	}
}
