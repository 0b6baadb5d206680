package rtnl

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/mdlayher/netlink"

	"github.com/ipilcher/b1b/internal/nlconst"
)

// Event is a single multicast link notification b1b cares about: a
// RTM_NEWLINK carrying an IFLA_EVENT of IFLA_EVENT_BONDING_FAILOVER for
// some ifindex. Spec section 4.3/4.7: this is what flags a bond session
// for recovery.
type Event struct {
	Ifindex  int
	Failover bool
}

// decodeEvent extracts the ifindex and failover flag from one
// RTM_NEWLINK event message body. Non-failover link events decode with
// Failover == false and are dropped by the caller.
func decodeEvent(data []byte) (Event, error) {
	if len(data) < ifinfomsgLen {
		return Event{}, fmt.Errorf("rtnl: event message too short (%d bytes)", len(data))
	}

	e := Event{Ifindex: int(nativeEndian.Uint32(data[4:8]))}

	ad, err := netlink.NewAttributeDecoder(data[ifinfomsgLen:])
	if err != nil {
		return Event{}, fmt.Errorf("rtnl: new attribute decoder: %w", err)
	}
	for ad.Next() {
		if ad.Type() == uint16(nlconst.IFLA_EVENT) {
			if ad.Uint32() == nlconst.IFLA_EVENT_BONDING_FAILOVER {
				e.Failover = true
			}
		}
	}
	if err := ad.Err(); err != nil {
		return Event{}, fmt.Errorf("rtnl: decode event attributes: %w", err)
	}

	return e, nil
}

// DrainEvents performs the drain-until-no-more-messages pass of spec
// section 4.7: the event loop's poll-equivalent wait has already signaled
// the event channel is readable. mdlayher/netlink's Conn.Receive blocks
// through the runtime poller rather than returning EAGAIN on an empty
// socket, so the drain instead sets an immediate read deadline — every
// Receive call after the buffer is empty then fails with a timeout error,
// which is this loop's "nothing left" signal. The deadline is cleared
// again before returning so the connection behaves normally the next
// time the caller blocks in its own wait.
func (c *Conn) DrainEvents(cb func(Event)) error {
	defer c.event.SetReadDeadline(time.Time{})

	if err := c.event.SetReadDeadline(time.Now()); err != nil {
		return fmt.Errorf("rtnl: set event read deadline: %w", err)
	}

	for {
		msgs, err := c.event.Receive()
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return nil
			}
			return fmt.Errorf("rtnl: receive event: %w", err)
		}

		for _, m := range msgs {
			if m.Header.Type != netlink.HeaderType(nlconst.RTM_NEWLINK) {
				continue
			}
			ev, err := decodeEvent(m.Data)
			if err != nil {
				return err
			}
			if ev.Failover {
				cb(ev)
			}
		}
	}
}
