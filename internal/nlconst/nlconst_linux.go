//go:build linux
// +build linux

// Package nlconst re-exports the rtnetlink constants b1b needs from
// golang.org/x/sys/unix, and supplies the handful that package doesn't
// carry (bonding failover event codes, rtnetlink multicast group numbers).
//
// Grounded on the same re-export pattern as jsimonetti/rtnetlink's
// internal/unix package: keep one file that binds local names to the
// platform package's constants. Packages that make system calls
// (internal/rtnl, internal/garp, internal/ovsctl, internal/daemon) still
// import golang.org/x/sys/unix directly for those calls.
package nlconst

import "golang.org/x/sys/unix"

const (
	AF_UNSPEC  = unix.AF_UNSPEC
	AF_BRIDGE  = unix.AF_BRIDGE
	AF_PACKET  = unix.AF_PACKET
	AF_INET    = unix.AF_INET

	RTM_NEWLINK  = unix.RTM_NEWLINK
	RTM_GETLINK  = unix.RTM_GETLINK
	RTM_NEWNEIGH = unix.RTM_NEWNEIGH
	RTM_GETNEIGH = unix.RTM_GETNEIGH
	RTM_DELNEIGH = unix.RTM_DELNEIGH

	NLMSG_DONE  = unix.NLMSG_DONE
	NLMSG_ERROR = unix.NLMSG_ERROR

	IFLA_UNSPEC     = unix.IFLA_UNSPEC
	IFLA_ADDRESS    = unix.IFLA_ADDRESS
	IFLA_IFNAME     = unix.IFLA_IFNAME
	IFLA_MASTER     = unix.IFLA_MASTER
	IFLA_LINKINFO   = unix.IFLA_LINKINFO
	IFLA_INFO_KIND  = unix.IFLA_INFO_KIND
	IFLA_INFO_DATA  = unix.IFLA_INFO_DATA

	IFLA_BOND_MODE = unix.IFLA_BOND_MODE

	NDA_UNSPEC    = unix.NDA_UNSPEC
	NDA_DST       = unix.NDA_DST
	NDA_LLADDR    = unix.NDA_LLADDR
	NDA_VLAN      = 5 // not in all golang.org/x/sys/unix builds; stable kernel value
	NDA_MASTER    = 9 // ditto
	NDA_IFINDEX   = unix.NDA_IFINDEX

	NTF_PROXY     = unix.NTF_PROXY
	NUD_PERMANENT = unix.NUD_PERMANENT
	NUD_NOARP     = unix.NUD_NOARP

	ETH_P_ARP = unix.ETH_P_ARP
	ETH_ALEN  = 6

	SOCK_RAW = unix.SOCK_RAW
)

// IFLA_EVENT is not exposed by golang.org/x/sys/unix; it is a fixed
// kernel rtnetlink link attribute number.
const IFLA_EVENT = 44

// Bonding failover event codes, from the kernel's enum in
// include/uapi/linux/if_link.h (IFLA_EVENT attribute payload).
const (
	IFLA_EVENT_NONE uint32 = iota
	IFLA_EVENT_REBOOT
	IFLA_EVENT_FEATURES
	IFLA_EVENT_BONDING_FAILOVER
	IFLA_EVENT_NOTIFY_PEERS
	IFLA_EVENT_IGMP_RESEND
	IFLA_EVENT_BONDING_OPTIONS
)

// rtnetlink multicast group numbers (RTNLGRP_*, include/uapi/linux/rtnetlink.h).
// These are group *numbers*; callers must shift (1 << (group-1)) to build
// the bitmask some APIs expect, or pass the number directly to netlink.Conn.JoinGroup,
// which expects the kernel group number itself.
const (
	RTNLGRP_LINK  = 1
	RTNLGRP_NEIGH = 3
)

// BondModeActiveBackup is bonding mode 1, the only mode this daemon supports.
const BondModeActiveBackup = 1
