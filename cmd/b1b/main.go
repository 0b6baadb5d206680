// Command b1b is the daemon's entrypoint: flag parsing and the startup
// sequence of spec section 4.7, wired with github.com/spf13/cobra the
// way jingkaihe-matchlock's cmd/matchlock wires its own root command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ipilcher/b1b/internal/daemon"
	"github.com/ipilcher/b1b/internal/dlog"
	"github.com/ipilcher/b1b/internal/garp"
	"github.com/ipilcher/b1b/internal/rtnl"
)

// scratchMax bounds the size of a single OVS JSON-RPC reply (spec
// section 3); the netlink channel does not use it. A larger reply makes
// the call return an error: fatal for an explicitly named bond during
// discovery, logged at ERROR during a recovery run, which then goes on.
const scratchMax = 65536

const ovsPidFile = "/run/openvswitch/ovs-vswitchd.pid"

var (
	debug     bool
	syslogTag bool
	stderrTag bool
)

var rootCmd = &cobra.Command{
	Use:   "b1b [ifname ...]",
	Short: "Re-announce bridge-learned MACs after a bond failover",
	Long: "b1b watches active-backup (mode 1) bonds enslaved to a Linux " +
		"bridge or Open vSwitch bridge and, on failover, sends a " +
		"gratuitous ARP for every bridge-learned destination so " +
		"upstream switches relearn it on the newly active slave.",
	RunE: run,
}

func init() {
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.Flags().BoolVarP(&syslogTag, "syslog", "l", false, "prefix log lines with an RFC-3164 <N> priority tag")
	rootCmd.Flags().BoolVarP(&stderrTag, "stderr", "e", false, "never prefix log lines with a priority tag")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if syslogTag && stderrTag {
		return fmt.Errorf("-l/--syslog and -e/--stderr are mutually exclusive")
	}

	tag := !term.IsTerminal(int(os.Stderr.Fd()))
	if syslogTag {
		tag = true
	}
	if stderrTag {
		tag = false
	}
	dlog.Configure(os.Stderr, debug, tag)

	conn, err := rtnl.Dial()
	if err != nil {
		dlog.Crit("open kernel link/neighbor channel: %v", err)
	}

	sock, err := garp.Open()
	if err != nil {
		_ = conn.Close()
		dlog.Crit("open raw packet socket: %v", err)
	}

	sess, err := daemon.Discover(conn, sock, daemon.Config{
		Names:      args,
		OVSPidFile: ovsPidFile,
		ScratchMax: scratchMax,
	})
	if err != nil {
		_ = sock.Close()
		_ = conn.Close()
		dlog.Crit("%v", err)
	}

	if err := sess.Run(); err != nil {
		_ = sess.Close()
		dlog.Crit("%v", err)
	}

	if err := sess.Close(); err != nil {
		dlog.Error("closing session: %v", err)
	}

	return nil
}
