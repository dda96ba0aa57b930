// Package ws carries a match between two machines over a websocket. The host
// serves Handler; the joining side calls Dial. Either end is a Peer.
package ws

import (
	"context"
	"errors"
	nethttp "net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"duel-arena/server/internal/telemetry"
)

// ErrPeerTaken is reported when a second peer tries to join a match.
var ErrPeerTaken = errors.New("match already has a peer")

// HandlerConfig configures the host side.
type HandlerConfig struct {
	Peer   PeerConfig
	Logger telemetry.Logger
}

// Handler upgrades exactly one incoming connection into the match peer.
type Handler struct {
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	claimed  atomic.Bool
	peers    chan *Peer
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}
	return &Handler{
		cfg:      cfg,
		upgrader: upgrader,
		peers:    make(chan *Peer, 1),
	}
}

// Accept blocks until a peer has joined or ctx is done.
func (h *Handler) Accept(ctx context.Context) (*Peer, error) {
	select {
	case peer := <-h.peers:
		return peer, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	if !h.claimed.CompareAndSwap(false, true) {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ErrPeerTaken.Error())
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	peer := NewPeer(conn, h.cfg.Peer)
	h.peers <- peer
	if err := peer.Run(context.Background()); err != nil {
		h.cfg.Logger.Printf("peer %s disconnected: %v", r.RemoteAddr, err)
	}
}

// Dial connects to a host at url. The caller must Run the returned peer.
func Dial(ctx context.Context, url string, cfg PeerConfig) (*Peer, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return NewPeer(conn, cfg), nil
}
