package mqtt

import (
	"net"
	"testing"
	"time"
)

// closedAddr returns a loopback address nothing is listening on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestRealPublisherBrokerDownAtStartup(t *testing.T) {
	dial := dialTimings{wait: 50 * time.Millisecond, retry: 20 * time.Millisecond}
	p, err := newRealPublisher("tcp://"+closedAddr(t), "tilt-balance-test", dial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected a publisher while the broker is down")
	}
	if p.IsConnected() {
		t.Error("expected not connected")
	}

	if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}
	if err := p.PublishReport(Report{Timestamp: time.Now(), Phase: "RUNNING", Round: 1}); err != nil {
		t.Fatalf("PublishReport: %v", err)
	}
	if err := p.PublishRound(RoundResult{Timestamp: time.Now(), Round: 1, Score: 3}); err != nil {
		t.Fatalf("PublishRound: %v", err)
	}

	p.mu.Lock()
	n := p.buf.len()
	p.mu.Unlock()
	if n != 3 {
		t.Errorf("buffered: got %d, want 3", n)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close must stop the background retries, which completes the connect token.
	if !p.dial.WaitTimeout(2 * time.Second) {
		t.Fatal("connect still retrying after Close")
	}
	if p.dial.Error() == nil {
		t.Error("expected the abandoned connect to report an error")
	}
}
