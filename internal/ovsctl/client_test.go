package ovsctl

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
)

// startFakeVswitchd grounds its shape on jingkaihe-matchlock's
// pkg/policy/network_callback_test.go: a throwaway UNIX listener that
// hands each accepted connection to handle on its own goroutine.
func startFakeVswitchd(t *testing.T, handle func(conn net.Conn)) net.Conn {
	t.Helper()

	dir, err := os.MkdirTemp("", "ovsctl-*")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	l, err := net.Listen("unix", filepath.Join(dir, "s.sock"))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		handle(conn)
	}()

	clientConn, err := net.Dial("unix", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = clientConn.Close() })

	return clientConn
}

// newTestClient wires a Client directly to conn, bypassing socketPath's
// pid-file lookup (exercised separately by integration against a real
// ovs-vswitchd, outside this package's unit scope).
func newTestClient(conn net.Conn, scratchMax int) *Client {
	limit := &limitedReader{r: conn, max: scratchMax}
	return &Client{
		conn:       conn,
		scratchMax: scratchMax,
		enc:        json.NewEncoder(conn),
		limit:      limit,
		dec:        json.NewDecoder(limit),
	}
}

func TestCallReturnsResult(t *testing.T) {
	conn := startFakeVswitchd(t, func(server net.Conn) {
		defer server.Close()
		var req request
		if err := json.NewDecoder(server).Decode(&req); err != nil {
			return
		}
		resp := response{ID: req.ID, Result: json.RawMessage(`"datapath output"`)}
		_ = json.NewEncoder(server).Encode(resp)
	})

	c := newTestClient(conn, 65536)
	got, err := c.call("dpif/show", "")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != "datapath output" {
		t.Fatalf("got %q", got)
	}
}

func TestCallPropagatesRPCError(t *testing.T) {
	conn := startFakeVswitchd(t, func(server net.Conn) {
		defer server.Close()
		var req request
		if err := json.NewDecoder(server).Decode(&req); err != nil {
			return
		}
		resp := response{ID: req.ID, Error: json.RawMessage(`"no such bridge"`)}
		_ = json.NewEncoder(server).Encode(resp)
	})

	c := newTestClient(conn, 65536)
	_, err := c.call("fdb/show", "br-int")
	if err == nil {
		t.Fatalf("expected error from rpc error field")
	}
}

func TestCallRejectsOversizedReply(t *testing.T) {
	conn := startFakeVswitchd(t, func(server net.Conn) {
		defer server.Close()
		var req request
		if err := json.NewDecoder(server).Decode(&req); err != nil {
			return
		}
		big := make([]byte, 128)
		for i := range big {
			big[i] = 'a'
		}
		resp := response{ID: req.ID, Result: json.RawMessage(`"` + string(big) + `"`)}
		_ = json.NewEncoder(server).Encode(resp)
	})

	c := newTestClient(conn, 16) // far smaller than the reply line
	_, err := c.call("dpif/show", "")
	if err == nil {
		t.Fatalf("expected scratch-buffer-exceeded error")
	}
}

// TestCallDecodesReplyWithoutTrailingNewline guards against a regression
// to a newline-delimited read: unixctl does not terminate JSON-RPC
// replies with '\n', so the client must decode directly off the wire
// bytes rather than scanning for a line terminator.
func TestCallDecodesReplyWithoutTrailingNewline(t *testing.T) {
	conn := startFakeVswitchd(t, func(server net.Conn) {
		defer server.Close()
		var req request
		if err := json.NewDecoder(server).Decode(&req); err != nil {
			return
		}
		resp := response{ID: req.ID, Result: json.RawMessage(`"no newline here"`)}
		raw, err := json.Marshal(resp)
		if err != nil {
			return
		}
		_, _ = server.Write(raw) // deliberately no trailing '\n'
	})

	c := newTestClient(conn, 65536)
	got, err := c.call("dpif/show", "")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != "no newline here" {
		t.Fatalf("got %q", got)
	}
}

func TestCallRejectsMismatchedID(t *testing.T) {
	conn := startFakeVswitchd(t, func(server net.Conn) {
		defer server.Close()
		var req request
		if err := json.NewDecoder(server).Decode(&req); err != nil {
			return
		}
		resp := response{ID: req.ID + 1, Result: json.RawMessage(`"x"`)}
		_ = json.NewEncoder(server).Encode(resp)
	})

	c := newTestClient(conn, 65536)
	_, err := c.call("dpif/show", "")
	if err == nil {
		t.Fatalf("expected id-mismatch error")
	}
}
