package daemon

import (
	"fmt"
	"sort"

	"github.com/davecgh/go-spew/spew"

	"github.com/ipilcher/b1b/internal/dlog"
	"github.com/ipilcher/b1b/internal/fdb"
	"github.com/ipilcher/b1b/internal/nlconst"
	"github.com/ipilcher/b1b/internal/ovsctl"
	"github.com/ipilcher/b1b/internal/rtnl"
)

// Config carries everything Discover needs from the CLI and the run
// environment.
type Config struct {
	Names      []string // explicit bond names; empty triggers auto-detect
	OVSPidFile string
	ScratchMax int
}

// Discover implements bond discovery (spec section 4.3): explicit mode
// when Config.Names is non-empty, auto-detect otherwise. It returns a
// fully populated Session, ready for the event loop.
func Discover(conn *rtnl.Conn, g garpSender, cfg Config) (*Session, error) {
	sess := &Session{Conn: conn, Garp: g, scratchMax: cfg.ScratchMax}

	var candidates []rtnl.LinkInfo

	if len(cfg.Names) > 0 {
		for _, name := range cfg.Names {
			li, err := conn.GetLink(name)
			if err != nil {
				return nil, fmt.Errorf("daemon: interface %q: %w", name, err)
			}
			candidates = append(candidates, li)
		}
	} else {
		links, err := conn.DumpLinks()
		if err != nil {
			return nil, fmt.Errorf("daemon: dump links: %w", err)
		}
		candidates = links
	}

	explicit := len(cfg.Names) > 0

	for _, li := range candidates {
		bond, err := sess.qualify(li, explicit, cfg.OVSPidFile)
		if err != nil {
			if explicit {
				return nil, err
			}
			dlog.Debug("skipping interface %q: %v", li.Name, err)
			continue
		}
		sess.Bonds = append(sess.Bonds, bond)
	}

	if len(sess.Bonds) == 0 {
		return nil, fmt.Errorf("No usable bonds detected")
	}

	sort.Slice(sess.Bonds, func(i, j int) bool {
		return sess.Bonds[i].Ifindex < sess.Bonds[j].Ifindex
	})

	return sess, nil
}

// qualify validates one candidate interface against spec section 4.3's
// mode gate and, if it qualifies, resolves its master and builds the
// Bond session (including, for OVS masters, the dpif/show lookup of
// spec section 4.5).
func (s *Session) qualify(li rtnl.LinkInfo, explicit bool, ovsPidFile string) (*Bond, error) {
	if dlog.Debugging() {
		dlog.Debug("candidate link:\n%s", spew.Sdump(li))
	}

	if li.Kind != "bond" {
		return nil, fmt.Errorf("Invalid interface type: %q is not a bond (kind=%q)", li.Name, li.Kind)
	}
	if !li.HasBondMode || li.BondMode != nlconst.BondModeActiveBackup {
		return nil, fmt.Errorf("Invalid interface type: %q is not an active-backup (mode 1) bond", li.Name)
	}
	if li.MasterIdx == 0 {
		return nil, fmt.Errorf("Invalid interface type: %q has no bridge master", li.Name)
	}

	master, err := s.Conn.GetLinkByIndex(li.MasterIdx)
	if err != nil {
		return nil, fmt.Errorf("%q: resolve master index %d: %w", li.Name, li.MasterIdx, err)
	}

	bond := &Bond{
		Ifname:  li.Name,
		Ifindex: li.Index,
		Mode:    li.BondMode,
	}

	switch master.Kind {
	case "bridge":
		bond.Brtype = BrLinux
		bond.Brname = master.Name
		bond.Brindex = master.Index
		bond.Reader = &fdb.LinuxReader{Conn: s.Conn, BondIfindex: bond.Ifindex, BrIfindex: bond.Brindex}

	case "openvswitch":
		if err := s.ensureOVS(ovsPidFile); err != nil {
			return nil, fmt.Errorf("%q: %w", li.Name, err)
		}

		text, err := s.OVS.DpifShow()
		if err != nil {
			return nil, fmt.Errorf("%q: dpif/show: %w", li.Name, err)
		}
		bridge, ofport, found := ovsctl.ParseDpifShow(text, li.Name)
		if !found {
			return nil, fmt.Errorf("%q: not found in dpif/show output", li.Name)
		}

		brLink, err := s.Conn.GetLink(bridge)
		if err != nil {
			return nil, fmt.Errorf("%q: resolve OVS bridge %q: %w", li.Name, bridge, err)
		}

		bond.Brtype = BrOVS
		bond.Brname = bridge
		bond.Brindex = brLink.Index
		bond.Ofport = ofport
		bond.Reader = &ovsctl.Reader{Client: s.OVS, Bridge: bridge, Ofport: ofport}

	default:
		return nil, fmt.Errorf("Invalid interface type: %q's master %q is neither a Linux bridge nor an OVS bridge (kind=%q)",
			li.Name, master.Name, master.Kind)
	}

	if explicit {
		dlog.Info("monitoring %s (mode 1, master %s, %s)", bond.Ifname, bond.Brname, bond.Brtype)
	} else {
		dlog.Debug("auto-detected %s (mode 1, master %s, %s)", bond.Ifname, bond.Brname, bond.Brtype)
	}

	return bond, nil
}

// ensureOVS lazily dials the OVS control socket the first time an
// OVS-typed bond is discovered (spec section 9).
func (s *Session) ensureOVS(ovsPidFile string) error {
	if s.OVS != nil {
		return nil
	}
	s.OVS = ovsctl.NewClient(ovsPidFile, s.scratchMax)
	return nil
}
