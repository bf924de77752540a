package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"
)

type fakeProver struct {
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (p *fakeProver) VerifyConstraints(ctx context.Context, input string, debug bool) error {
	return nil
}

func (p *fakeProver) Prove(ctx context.Context, input string, aggregation, finalSnark, verifyProofs bool) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.release != nil {
		<-p.release
	}
	return nil
}

func dialAndRoundTrip(t *testing.T, addr string, req Request) Response {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	if err := enc.Encode(req); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("no response received: %v", scanner.Err())
	}
	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return resp
}

func startTestServer(t *testing.T, prover Prover) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	s := New("test-node", "/tmp/fake.elf", prover, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Serve(ctx, ln)
	return ln.Addr().String(), func() { cancel(); ln.Close() }
}

func TestServer_Status_ReportsIdle(t *testing.T) {
	addr, stop := startTestServer(t, &fakeProver{})
	defer stop()

	resp := dialAndRoundTrip(t, addr, Request{Cmd: "status"})
	if resp.Result != ResultOk || resp.Status != "idle" {
		t.Fatalf("got %+v, want idle status ok", resp)
	}
}

// TestServer_BusyInvariant reproduces P5/S3: a prove request in flight must
// cause a concurrent prove request to receive Busy without altering state.
func TestServer_BusyInvariant(t *testing.T) {
	prover := &fakeProver{release: make(chan struct{})}
	addr, stop := startTestServer(t, prover)
	defer stop()

	var first Response
	done := make(chan struct{})
	go func() {
		first = dialAndRoundTrip(t, addr, Request{Cmd: "prove", Input: "in.bin"})
		close(done)
	}()

	// give the first request time to acquire the Working state.
	time.Sleep(50 * time.Millisecond)

	second := dialAndRoundTrip(t, addr, Request{Cmd: "prove", Input: "in2.bin"})
	if second.Result != ResultError || second.Code != CodeBusy {
		t.Fatalf("got %+v, want Busy", second)
	}

	close(prover.release)
	<-done
	if first.Result != ResultOk {
		t.Fatalf("got %+v, want Ok for the first request", first)
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	addr, stop := startTestServer(t, &fakeProver{})
	defer stop()

	resp := dialAndRoundTrip(t, addr, Request{Cmd: "bogus"})
	if resp.Result != ResultError {
		t.Fatalf("got %+v, want error for unknown command", resp)
	}
}
