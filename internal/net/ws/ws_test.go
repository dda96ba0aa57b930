package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"duel-arena/server/internal/controller"
	"duel-arena/server/internal/input"
	"duel-arena/server/internal/sim"
	"duel-arena/server/internal/telemetry"
)

func websocketURL(baseURL string) string {
	return "ws" + strings.TrimPrefix(baseURL, "http")
}

func connectPair(t *testing.T, hostCfg, clientCfg PeerConfig) (*Peer, *Peer) {
	t.Helper()

	handler := NewHandler(HandlerConfig{Peer: hostCfg})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	client, err := Dial(ctx, websocketURL(srv.URL), clientCfg)
	if err != nil {
		t.Fatalf("failed to dial host: %v", err)
	}
	go client.Run(context.Background())
	t.Cleanup(func() { client.Close() })

	host, err := handler.Accept(ctx)
	if err != nil {
		t.Fatalf("host never accepted the peer: %v", err)
	}
	t.Cleanup(func() { host.Close() })
	return host, client
}

func waitForChain(t *testing.T, peer *Peer, want input.EventType) input.Chain {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	var collected input.Chain
	for time.Now().Before(deadline) {
		collected = append(collected, peer.Poll()...)
		for _, event := range collected {
			if event.Type == want {
				return collected
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s event, collected %+v", want, collected)
	return nil
}

func TestPeerForwardsActions(t *testing.T) {
	host, client := connectPair(t, PeerConfig{}, PeerConfig{})

	if host.Kind() != controller.Network {
		t.Fatalf("expected host-side peer to be a network controller")
	}
	if err := client.NotifyAction(42, sim.ActionKick); err != nil {
		t.Fatalf("notify action: %v", err)
	}
	chain := waitForChain(t, host, input.EventAction)
	event := chain[len(chain)-1]
	if event.Tick != 42 || event.Action != sim.ActionKick {
		t.Fatalf("unexpected forwarded action %+v", event)
	}
}

func TestPeerDeliversSnapshots(t *testing.T) {
	host, client := connectPair(t, PeerConfig{}, PeerConfig{})

	snapshot := []byte("ARS1\x00\x00\x00\x01\x80")
	if err := host.Send(7, snapshot); err != nil {
		t.Fatalf("send snapshot: %v", err)
	}
	chain := waitForChain(t, client, input.EventSync)
	event := chain[len(chain)-1]
	if event.Tick != 7 || string(event.Snapshot) != string(snapshot) {
		t.Fatalf("unexpected sync event %+v", event)
	}
}

func TestPeerMeasuresRoundTrip(t *testing.T) {
	counters := telemetry.NewCounters()
	host, _ := connectPair(t, PeerConfig{PingInterval: 10 * time.Millisecond, Metrics: counters}, PeerConfig{})

	deadline := time.Now().Add(3 * time.Second)
	for counters.Get(peerRTTSamplesKey) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least one pong")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if host.RoundTripTicks() != uint32(counters.Get(peerRTTTicksKey)) {
		t.Fatalf("rtt ticks and metric disagree")
	}
}

func TestPeerCloseSurfacesAsCloseEvent(t *testing.T) {
	host, client := connectPair(t, PeerConfig{}, PeerConfig{})

	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitForChain(t, host, input.EventClose)
	if err := client.NotifyAction(1, sim.ActionLeft); err != ErrPeerClosed {
		t.Fatalf("expected ErrPeerClosed after close, got %v", err)
	}
}

func TestHandlerRejectsSecondPeer(t *testing.T) {
	handler := NewHandler(HandlerConfig{})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	first, resp, err := websocket.DefaultDialer.Dial(websocketURL(srv.URL), nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { first.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := handler.Accept(ctx); err != nil {
		t.Fatalf("accept: %v", err)
	}

	second, resp, err := websocket.DefaultDialer.Dial(websocketURL(srv.URL), nil)
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer second.Close()
	_, _, err = second.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestRoundTripTicksRoundsUp(t *testing.T) {
	tick := time.Second / 60
	cases := []struct {
		rtt  time.Duration
		want uint32
	}{
		{rtt: 0, want: 0},
		{rtt: time.Millisecond, want: 1},
		{rtt: tick, want: 1},
		{rtt: tick + 1, want: 2},
		{rtt: 5 * tick, want: 5},
	}
	for _, tc := range cases {
		if got := RoundTripTicks(tc.rtt, tick); got != tc.want {
			t.Fatalf("RoundTripTicks(%v) = %d, want %d", tc.rtt, got, tc.want)
		}
	}
}

var _ http.Handler = (*Handler)(nil)
