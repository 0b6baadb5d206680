package daemon

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/ipilcher/b1b/internal/dlog"
	"github.com/ipilcher/b1b/internal/rtnl"
)

// Run is the event loop of spec section 4.7. It blocks on a
// poll-equivalent wait across the kernel event channel and a self-pipe
// fed by SIGTERM/SIGINT — Go has no async-signal-safe handler mechanism
// like the C original's one-shot sigaction, so os/signal's channel
// delivery is bridged onto a pipe file descriptor, giving the same
// "single poll, multiple wakeup sources" shape the spec describes.
func (s *Session) Run() error {
	pipeR, pipeW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("daemon: open signal self-pipe: %w", err)
	}
	defer pipeR.Close()
	defer pipeW.Close()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		for range sigCh {
			_, _ = pipeW.Write([]byte{0})
		}
	}()

	eventFd, err := s.Conn.EventFd()
	if err != nil {
		return fmt.Errorf("daemon: event channel fd: %w", err)
	}
	sigFd := int(pipeR.Fd())

	dlog.Info("ready; monitoring %d bond(s)", len(s.Bonds))

	for {
		fds := []unix.PollFd{
			{Fd: int32(eventFd), Events: unix.POLLIN},
			{Fd: int32(sigFd), Events: unix.POLLIN},
		}

		_, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("daemon: poll: %w", err)
		}

		if fds[1].Revents&unix.POLLIN != 0 {
			dlog.Info("termination signal received, shutting down")
			return nil
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			s.handleEvents()
		}
	}
}

// handleEvents is one readable-event-channel cycle: clear every session's
// failover flag, drain all pending notifications (collapsing duplicates
// within the batch), then recover every flagged bond before the next
// poll (spec section 4.7).
func (s *Session) handleEvents() {
	for _, b := range s.Bonds {
		b.FailoverFlag = false
	}

	err := s.Conn.DrainEvents(func(ev rtnl.Event) {
		b := s.findBond(ev.Ifindex)
		if b == nil {
			return
		}
		if b.FailoverFlag {
			dlog.Debug("duplicate failover event for %s in this batch", b.Ifname)
			return
		}
		b.FailoverFlag = true
	})
	if err != nil {
		dlog.Error("event drain: %v", err)
	}

	for _, b := range s.Bonds {
		if b.FailoverFlag {
			dlog.Info("failover detected on %s, recovering", b.Ifname)
			s.recover(b)
		}
	}
}
