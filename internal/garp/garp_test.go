package garp

import (
	"bytes"
	"net"
	"testing"
)

var testMAC = net.HardwareAddr{0x02, 0xaa, 0xbb, 0xcc, 0xdd, 0x01}

func TestBuildFrameUntaggedLength(t *testing.T) {
	frame, err := buildFrame(0, testMAC)
	if err != nil {
		t.Fatalf("buildFrame: %v", err)
	}
	if len(frame) != 42 {
		t.Fatalf("want 42-byte untagged frame, got %d", len(frame))
	}
	if bytes.Contains(frame[12:14], []byte{0x81, 0x00}) {
		t.Fatalf("untagged frame must not carry an 802.1Q TPID")
	}
}

func TestBuildFrameTaggedLength(t *testing.T) {
	frame, err := buildFrame(100, testMAC)
	if err != nil {
		t.Fatalf("buildFrame: %v", err)
	}
	if len(frame) != 46 {
		t.Fatalf("want 46-byte tagged frame, got %d", len(frame))
	}
	if !bytes.Equal(frame[12:14], []byte{0x81, 0x00}) {
		t.Fatalf("want 802.1Q TPID 0x8100 at offset 12, got % x", frame[12:14])
	}
	gotVID := uint16(frame[14])<<8 | uint16(frame[15])
	if gotVID&0x0fff != 100 {
		t.Fatalf("want VID 100, got %d", gotVID&0x0fff)
	}
	if gotVID&0xf000 != 0 {
		t.Fatalf("want priority/DEI bits zero, got %#04x", gotVID)
	}
}

func TestBuildFrameFieldLayoutUntagged(t *testing.T) {
	frame, err := buildFrame(0, testMAC)
	if err != nil {
		t.Fatalf("buildFrame: %v", err)
	}

	broadcast := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if !bytes.Equal(frame[0:6], broadcast) {
		t.Fatalf("Ethernet destination must be broadcast, got % x", frame[0:6])
	}
	if !bytes.Equal(frame[6:12], testMAC) {
		t.Fatalf("Ethernet source must equal announced MAC, got % x", frame[6:12])
	}
	if !bytes.Equal(frame[12:14], []byte{0x08, 0x06}) {
		t.Fatalf("EtherType must be 0x0806 (ARP), got % x", frame[12:14])
	}
	if !bytes.Equal(frame[14:16], []byte{0x00, 0x01}) {
		t.Fatalf("ARP hardware type must be 1, got % x", frame[14:16])
	}
	if !bytes.Equal(frame[16:18], []byte{0x08, 0x00}) {
		t.Fatalf("ARP protocol type must be 0x0800, got % x", frame[16:18])
	}
	if frame[18] != 6 || frame[19] != 4 {
		t.Fatalf("hardware/protocol length must be 6/4, got %d/%d", frame[18], frame[19])
	}
	if !bytes.Equal(frame[20:22], []byte{0x00, 0x02}) {
		t.Fatalf("ARP opcode must be 2 (reply), got % x", frame[20:22])
	}
	if !bytes.Equal(frame[22:28], testMAC) {
		t.Fatalf("ARP sender hardware address must equal announced MAC, got % x", frame[22:28])
	}
	if !bytes.Equal(frame[28:32], []byte{0, 0, 0, 0}) {
		t.Fatalf("ARP sender protocol address must be 0.0.0.0, got % x", frame[28:32])
	}
	if !bytes.Equal(frame[32:38], []byte{0, 0, 0, 0, 0, 0}) {
		t.Fatalf("ARP target hardware address must be all zero, got % x", frame[32:38])
	}
	if !bytes.Equal(frame[38:42], []byte{0, 0, 0, 0}) {
		t.Fatalf("ARP target protocol address must be 0.0.0.0, got % x", frame[38:42])
	}
}
