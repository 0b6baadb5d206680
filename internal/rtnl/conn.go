// Package rtnl is b1b's kernel link/neighbor channel (spec component C2).
// It opens the two sockets spec section 4.2 calls for — a synchronous
// request/response channel with strict attribute checking, and a
// non-blocking multicast event channel — on top of
// github.com/mdlayher/netlink, the same library jsimonetti/rtnetlink (this
// repo's teacher) builds its own link and neighbor services on.
package rtnl

import (
	"fmt"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"

	"github.com/ipilcher/b1b/internal/nlconst"
)

// Conn holds the two kernel configuration/event sockets described in
// spec section 4.2.
type Conn struct {
	req   *netlink.Conn
	event *netlink.Conn
}

// Dial opens both channels. The request channel enables strict attribute
// checking so malformed requests fail fast; the event channel joins the
// RTNLGRP_LINK and RTNLGRP_NEIGH multicast groups.
func Dial() (*Conn, error) {
	req, err := netlink.Dial(unix.NETLINK_ROUTE, &netlink.Config{Strict: true})
	if err != nil {
		return nil, fmt.Errorf("rtnl: dial request channel: %w", err)
	}

	groups := uint32(1)<<(nlconst.RTNLGRP_LINK-1) | uint32(1)<<(nlconst.RTNLGRP_NEIGH-1)
	event, err := netlink.Dial(unix.NETLINK_ROUTE, &netlink.Config{Groups: groups})
	if err != nil {
		_ = req.Close()
		return nil, fmt.Errorf("rtnl: dial event channel: %w", err)
	}

	return &Conn{req: req, event: event}, nil
}

// Close closes both channels.
func (c *Conn) Close() error {
	err1 := c.req.Close()
	err2 := c.event.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// EventFd returns the underlying file descriptor of the event channel,
// for the poll-equivalent wait of spec section 4.7.
func (c *Conn) EventFd() (int, error) {
	raw, err := c.event.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("rtnl: event channel syscall conn: %w", err)
	}

	var fd int
	var ctrlErr error
	if err := raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		ctrlErr = err
	}
	if ctrlErr != nil {
		return -1, ctrlErr
	}
	return fd, nil
}

// execute performs a single synchronous request and returns every reply
// message; netlink.Conn.Execute drops the NLMSG_DONE terminator of a
// multipart reply, so it is not among them. It
// is the "request channel, used synchronously" mechanism of spec section
// 4.2: header, optional payload, and attributes written; the (possibly
// multi-message) response read back.
func (c *Conn) execute(msgType uint16, flags netlink.HeaderFlags, payload []byte) ([]netlink.Message, error) {
	req := netlink.Message{
		Header: netlink.Header{
			Type:  netlink.HeaderType(msgType),
			Flags: netlink.Request | flags,
		},
		Data: payload,
	}

	msgs, err := c.req.Execute(req)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
