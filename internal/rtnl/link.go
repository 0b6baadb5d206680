package rtnl

import (
	"encoding/binary"
	"fmt"

	"github.com/mdlayher/netlink"

	"github.com/ipilcher/b1b/internal/nlconst"
)

// nativeEndian is the byte order the kernel uses for fixed-size netlink
// message headers on this machine (effectively always little-endian in
// practice, but expressed properly rather than hardcoded).
var nativeEndian = binary.NativeEndian

// ifinfomsg is the fixed-size header of every RTM_*LINK message: family,
// a pad byte, ARPHRD_* device type, ifindex, device flags, and a change
// mask (left zero on the requests built here). Sixteen bytes, matching the
// kernel's struct ifinfomsg.
const ifinfomsgLen = 16

// LinkInfo is the subset of link attributes b1b's discovery and recovery
// logic needs (spec sections 4.2–4.4): identity, the kernel's notion of
// what kind of device this is, its master (if enslaved), and — for bond
// devices — the bonding mode.
type LinkInfo struct {
	Index      int
	Name       string
	Kind       string // "", "bond", "bridge", "openvswitch", ...
	MasterIdx  int    // IFLA_MASTER, 0 if none
	BondMode   uint8  // valid only when Kind == "bond"
	HasBondMode bool
}

// marshalGetLink builds an RTM_GETLINK request for a link by name. Index
// is left zero; the kernel resolves by the IFLA_IFNAME attribute instead,
// the same lookup-by-name idiom the teacher library uses for its
// NeighMessage family of requests.
func marshalGetLink(name string) ([]byte, error) {
	b := make([]byte, ifinfomsgLen)
	b[0] = byte(nlconst.AF_UNSPEC)

	ae := netlink.NewAttributeEncoder()
	ae.String(uint16(nlconst.IFLA_IFNAME), name)
	attrs, err := ae.Encode()
	if err != nil {
		return nil, fmt.Errorf("rtnl: encode IFLA_IFNAME: %w", err)
	}

	return append(b, attrs...), nil
}

func marshalDumpLinks() []byte {
	b := make([]byte, ifinfomsgLen)
	b[0] = byte(nlconst.AF_UNSPEC)
	return b
}

// decodeLinkMessage parses a single RTM_NEWLINK message body (header +
// attributes) into a LinkInfo.
func decodeLinkMessage(data []byte) (LinkInfo, error) {
	if len(data) < ifinfomsgLen {
		return LinkInfo{}, fmt.Errorf("rtnl: link message too short (%d bytes)", len(data))
	}

	info := LinkInfo{
		Index: int(nativeEndian.Uint32(data[4:8])),
	}

	ad, err := netlink.NewAttributeDecoder(data[ifinfomsgLen:])
	if err != nil {
		return LinkInfo{}, fmt.Errorf("rtnl: new attribute decoder: %w", err)
	}

	for ad.Next() {
		switch ad.Type() {
		case uint16(nlconst.IFLA_IFNAME):
			info.Name = ad.String()
		case uint16(nlconst.IFLA_MASTER):
			info.MasterIdx = int(ad.Uint32())
		case uint16(nlconst.IFLA_LINKINFO):
			decodeLinkInfo(ad, &info)
		}
	}
	if err := ad.Err(); err != nil {
		return LinkInfo{}, fmt.Errorf("rtnl: decode link attributes: %w", err)
	}

	return info, nil
}

// decodeLinkInfo decodes the nested IFLA_LINKINFO attribute. The kernel
// is not guaranteed to emit IFLA_INFO_KIND before IFLA_INFO_DATA within
// the nest (most drivers do, but nothing in the netlink attribute
// contract requires it). Rather than assume an order, this buffers any
// IFLA_INFO_DATA bytes seen before the kind is known and decodes them
// once the kind has been identified; if IFLA_INFO_KIND never appears at
// all, the raw bytes are discarded and the omission is left to the
// caller to notice (an interface with no kind is not a bond, which is
// all b1b cares about).
func decodeLinkInfo(ad *netlink.AttributeDecoder, info *LinkInfo) {
	var kind string
	var rawData []byte

	ad.Nested(func(nad *netlink.AttributeDecoder) error {
		for nad.Next() {
			switch nad.Type() {
			case uint16(nlconst.IFLA_INFO_KIND):
				kind = nad.String()
				if rawData != nil {
					decodeInfoData(kind, rawData, info)
				}
			case uint16(nlconst.IFLA_INFO_DATA):
				if kind == "" {
					rawData = append([]byte(nil), nad.Bytes()...)
				} else {
					decodeInfoData(kind, nad.Bytes(), info)
				}
			}
		}
		return nil
	})

	info.Kind = kind
}

// decodeInfoData decodes IFLA_INFO_DATA once its driver kind is known.
// b1b only needs the bonding mode out of this nest (spec section 4.4:
// "only bonds in active-backup mode are monitored").
func decodeInfoData(kind string, data []byte, info *LinkInfo) {
	if kind != "bond" {
		return
	}

	dad, err := netlink.NewAttributeDecoder(data)
	if err != nil {
		return
	}
	for dad.Next() {
		if dad.Type() == uint16(nlconst.IFLA_BOND_MODE) {
			info.BondMode = dad.Uint8()
			info.HasBondMode = true
		}
	}
}

// GetLink resolves a single link by name.
func (c *Conn) GetLink(name string) (LinkInfo, error) {
	payload, err := marshalGetLink(name)
	if err != nil {
		return LinkInfo{}, err
	}

	msgs, err := c.execute(nlconst.RTM_GETLINK, 0, payload)
	if err != nil {
		return LinkInfo{}, fmt.Errorf("rtnl: get link %q: %w", name, err)
	}
	if len(msgs) == 0 {
		return LinkInfo{}, fmt.Errorf("rtnl: get link %q: no reply", name)
	}

	return decodeLinkMessage(msgs[0].Data)
}

// GetLinkByIndex resolves a single link by ifindex, used to look up a
// bond's master device once the master index is known (spec section
// 4.3).
func (c *Conn) GetLinkByIndex(ifindex int) (LinkInfo, error) {
	b := make([]byte, ifinfomsgLen)
	b[0] = byte(nlconst.AF_UNSPEC)
	nativeEndian.PutUint32(b[4:8], uint32(ifindex))

	msgs, err := c.execute(nlconst.RTM_GETLINK, 0, b)
	if err != nil {
		return LinkInfo{}, fmt.Errorf("rtnl: get link index %d: %w", ifindex, err)
	}
	if len(msgs) == 0 {
		return LinkInfo{}, fmt.Errorf("rtnl: get link index %d: no reply", ifindex)
	}

	return decodeLinkMessage(msgs[0].Data)
}

// DumpLinks returns every link currently known to the kernel, used by
// auto-detect bond discovery (spec section 4.3).
func (c *Conn) DumpLinks() ([]LinkInfo, error) {
	msgs, err := c.execute(nlconst.RTM_GETLINK, netlink.Dump, marshalDumpLinks())
	if err != nil {
		return nil, fmt.Errorf("rtnl: dump links: %w", err)
	}

	links := make([]LinkInfo, 0, len(msgs))
	for _, m := range msgs {
		if m.Header.Type != netlink.HeaderType(nlconst.RTM_NEWLINK) {
			continue
		}
		li, err := decodeLinkMessage(m.Data)
		if err != nil {
			return nil, err
		}
		links = append(links, li)
	}
	return links, nil
}
