// Package garp is the GARP emitter of spec component C6. Frame
// construction uses gopacket/layers, the same library
// sandia-minimega/minimega's internal/bridge package uses to decode ARP
// traffic (internal/bridge/ipmac.go) — here run in the serialize
// direction instead of parse. Transmission uses a raw AF_PACKET socket
// via golang.org/x/sys/unix directly rather than gopacket/pcap, because
// pcap binds a handle to one interface at open time and spec section 4.6
// requires choosing the destination interface per send (one shared
// socket, many bond interfaces).
package garp

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/sys/unix"

	"github.com/ipilcher/b1b/internal/nlconst"
)

// Socket is the single shared raw packet socket used to transmit every
// GARP frame, for every monitored bond, over the life of the process.
type Socket struct {
	fd int
}

// Open creates the AF_PACKET/SOCK_RAW socket. It is bound nowhere; the
// destination interface is supplied per send (spec section 6).
func Open() (*Socket, error) {
	fd, err := unix.Socket(nlconst.AF_PACKET, nlconst.SOCK_RAW, int(htons(nlconst.ETH_P_ARP)))
	if err != nil {
		return nil, fmt.Errorf("garp: open raw packet socket: %w", err)
	}
	return &Socket{fd: fd}, nil
}

// Close closes the socket.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}

// htons converts a uint16 protocol number to network byte order, for use
// as a raw socket's protocol argument, which the kernel compares against
// the wire EtherType.
func htons(proto uint16) uint16 {
	return proto<<8 | proto>>8
}

// Send builds and transmits one gratuitous ARP reply announcing mac on
// vlan, out ifindex. VLAN 0 means untagged. Per-send failures are
// returned to the caller, who logs and continues (spec section 7:
// Recoverable/transient).
func (s *Socket) Send(ifindex int, vlan uint16, mac net.HardwareAddr) error {
	frame, err := buildFrame(vlan, mac)
	if err != nil {
		return fmt.Errorf("garp: build frame: %w", err)
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(nlconst.ETH_P_ARP),
		Ifindex:  ifindex,
		Halen:    nlconst.ETH_ALEN,
	}
	copy(addr.Addr[:], mac)

	if err := unix.Sendto(s.fd, frame, 0, &addr); err != nil {
		return fmt.Errorf("garp: sendto ifindex %d: %w", ifindex, err)
	}
	return nil
}

// buildFrame serializes the Ethernet/[802.1Q]/ARP frame of spec section
// 4.6: an untagged frame is 42 bytes, a VLAN-tagged frame is 46 bytes.
func buildFrame(vlan uint16, mac net.HardwareAddr) ([]byte, error) {
	broadcast := net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	zeroMAC := net.HardwareAddr{0, 0, 0, 0, 0, 0}
	zeroIP := net.IPv4zero.To4()

	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     nlconst.ETH_ALEN,
		ProtAddressSize:   4,
		Operation:         layers.ARPReply,
		SourceHwAddress:   mac,
		SourceProtAddress: zeroIP,
		DstHwAddress:      zeroMAC,
		DstProtAddress:    zeroIP,
	}

	eth := &layers.Ethernet{
		SrcMAC:       mac,
		DstMAC:       broadcast,
		EthernetType: layers.EthernetTypeARP,
	}

	buf := gopacket.NewSerializeBuffer()
	// FixLengths is left false: every length-bearing field here
	// (hardware/protocol address sizes, EtherTypes) is set explicitly.
	// gopacket's Ethernet layer pads any frame under 60 bytes up to 60,
	// so the serialized frame is cut back to its exact 42/46-byte length
	// below.
	opts := gopacket.SerializeOptions{}

	var layerStack []gopacket.SerializableLayer
	frameLen := 42

	if vlan == 0 {
		layerStack = []gopacket.SerializableLayer{eth, arp}
	} else {
		frameLen = 46
		eth.EthernetType = layers.EthernetTypeDot1Q
		dot1q := &layers.Dot1Q{
			Priority:       0,
			DropEligible:   false,
			VLANIdentifier: vlan,
			Type:           layers.EthernetTypeARP,
		}
		layerStack = []gopacket.SerializableLayer{eth, dot1q, arp}
	}

	if err := gopacket.SerializeLayers(buf, opts, layerStack...); err != nil {
		return nil, err
	}

	return buf.Bytes()[:frameLen], nil
}
