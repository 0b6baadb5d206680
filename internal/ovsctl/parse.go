package ovsctl

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/ipilcher/b1b/internal/dest"
)

// ParseDpifShow scans a dpif/show text reply for the (datapath, ofport)
// of the given kernel interface name, per spec section 4.5: a line with
// exactly two tokens, the second parsing as a number, names a port
// (name, ofport) under whatever datapath was most recently named; any
// other line names a datapath (its first token, trailing colon
// stripped).
func ParseDpifShow(text string, kernelIfName string) (datapath string, ofport int, found bool) {
	var current string

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		if len(fields) == 2 {
			if port, err := strconv.Atoi(fields[1]); err == nil {
				if fields[0] == kernelIfName {
					return current, port, true
				}
				continue
			}
		}

		current = strings.TrimSuffix(fields[0], ":")
	}

	return "", 0, false
}

// FdbEntry is one parsed fdb/show line.
type FdbEntry struct {
	Ofport int
	VLAN   uint16
	MAC    net.HardwareAddr
}

// parseFdbShow parses an fdb/show text reply into entries, skipping the
// header line, LOCAL port lines, and any line whose first three fields
// fail to parse as "<ofport> <vlan> <mac>" (spec section 4.5). Fields
// after the MAC (such as the age column) are ignored.
func parseFdbShow(text string) []FdbEntry {
	var entries []FdbEntry

	sc := bufio.NewScanner(strings.NewReader(text))
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			continue // header line
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		if fields[0] == "LOCAL" {
			continue
		}

		port, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		vlan, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			continue
		}
		mac, err := net.ParseMAC(fields[2])
		if err != nil {
			continue
		}

		entries = append(entries, FdbEntry{Ofport: port, VLAN: uint16(vlan), MAC: mac})
	}

	return entries
}

// Reader is the C5 implementation of fdb.Reader: an OVS bridge's forwarding
// database, read via fdb/show, with the bond's own ofport excluded.
type Reader struct {
	Client *Client
	Bridge string
	Ofport int
}

// Read issues fdb/show for the bridge and inserts every entry not
// originating on the bond's own ofport into set.
func (r *Reader) Read(set *dest.Set) error {
	text, err := r.Client.FdbShow(r.Bridge)
	if err != nil {
		return fmt.Errorf("ovsctl: fdb/show %s: %w", r.Bridge, err)
	}

	for _, e := range parseFdbShow(text) {
		if e.Ofport == r.Ofport {
			continue
		}
		set.Insert(e.VLAN, e.MAC)
	}

	return nil
}
