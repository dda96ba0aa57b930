package ws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"duel-arena/server/internal/controller"
	"duel-arena/server/internal/input"
	"duel-arena/server/internal/net/intake"
	"duel-arena/server/internal/net/proto"
	"duel-arena/server/internal/sim"
	"duel-arena/server/internal/telemetry"
)

const (
	peerRejectedMetricKey = "peer_messages_rejected_total"
	peerRTTSamplesKey     = "peer_rtt_samples_total"
	peerRTTTicksKey       = "peer_rtt_ticks"

	writeWait = 2 * time.Second
)

// ErrPeerClosed is returned when writing to a peer after it closed.
var ErrPeerClosed = errors.New("peer closed")

// PeerConfig tunes a websocket peer.
type PeerConfig struct {
	TickDuration  time.Duration
	PingInterval  time.Duration
	QueueCapacity int
	Logger        telemetry.Logger
	Metrics       telemetry.Metrics
	Now           func() time.Time
}

func (c PeerConfig) withDefaults() PeerConfig {
	if c.TickDuration <= 0 {
		c.TickDuration = time.Second / 60
	}
	if c.PingInterval <= 0 {
		c.PingInterval = time.Second
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 256
	}
	if c.Logger == nil {
		c.Logger = telemetry.LoggerFunc(nil)
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NopMetrics()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Peer is the NETWORK controller for the remote player. A read loop and a
// ping loop feed its queue; the tick thread drains it with Poll.
type Peer struct {
	conn    *websocket.Conn
	cfg     PeerConfig
	queue   *input.Queue
	writeMu sync.Mutex

	rttTicks atomic.Uint32
	closed   atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

var (
	_ controller.Controller     = (*Peer)(nil)
	_ controller.ActionNotifier = (*Peer)(nil)
)

// NewPeer wraps an established connection. Call Run to start its loops.
func NewPeer(conn *websocket.Conn, cfg PeerConfig) *Peer {
	cfg = cfg.withDefaults()
	return &Peer{
		conn:  conn,
		cfg:   cfg,
		queue: input.NewQueue(cfg.QueueCapacity, cfg.Metrics),
		done:  make(chan struct{}),
	}
}

// Run services the connection until the remote side disconnects, Close is
// called or ctx is cancelled.
func (p *Peer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(p.readLoop)
	g.Go(func() error { return p.pingLoop(ctx) })
	g.Go(func() error {
		select {
		case <-ctx.Done():
			p.Close()
		case <-p.done:
		}
		return nil
	})
	return g.Wait()
}

// Done is closed once the read loop has exited.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

func (p *Peer) Kind() controller.Kind { return controller.Network }

func (p *Peer) Poll() input.Chain { return p.queue.Poll() }

func (p *Peer) RoundTripTicks() uint32 { return p.rttTicks.Load() }

// Send pushes an encoded snapshot to the remote side.
func (p *Peer) Send(tick uint32, snapshot []byte) error {
	return p.write(proto.SyncMessage(tick, snapshot))
}

// NotifyAction forwards a local action performed at tick.
func (p *Peer) NotifyAction(tick uint32, action sim.Action) error {
	return p.write(proto.ActionMessage(tick, action.String()))
}

// Close sends a close frame and tears down the connection. It is safe to
// call more than once.
func (p *Peer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.writeMu.Lock()
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = p.conn.WriteControl(websocket.CloseMessage, message, p.cfg.Now().Add(writeWait))
	p.writeMu.Unlock()
	return p.conn.Close()
}

func (p *Peer) write(msg proto.Message) error {
	if p.closed.Load() {
		return ErrPeerClosed
	}
	data, err := proto.Encode(msg)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(p.cfg.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *Peer) readLoop() error {
	defer p.doneOnce.Do(func() { close(p.done) })
	for {
		_, payload, err := p.conn.ReadMessage()
		if err != nil {
			// A vanished peer ends the session like an explicit close.
			_ = p.queue.Push(input.Close())
			if p.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		msg, err := proto.Decode(payload)
		if err != nil {
			p.cfg.Logger.Printf("discarding malformed peer message: %v", err)
			p.cfg.Metrics.Add(peerRejectedMetricKey, 1)
			continue
		}

		switch msg.Type {
		case proto.TypePing:
			if err := p.write(proto.PongMessage(msg.SentAt)); err != nil {
				p.cfg.Logger.Printf("failed to answer ping: %v", err)
			}
		case proto.TypePong:
			rtt := p.cfg.Now().Sub(time.Unix(0, msg.SentAt))
			ticks := RoundTripTicks(rtt, p.cfg.TickDuration)
			p.rttTicks.Store(ticks)
			p.cfg.Metrics.Add(peerRTTSamplesKey, 1)
			p.cfg.Metrics.Store(peerRTTTicksKey, uint64(ticks))
		default:
			event, ok, reason := intake.Event(msg)
			if !ok {
				p.cfg.Logger.Printf("rejected peer %s message: %s", msg.Type, reason)
				p.cfg.Metrics.Add(peerRejectedMetricKey, 1)
				continue
			}
			if err := p.queue.Push(event); err != nil {
				p.cfg.Logger.Printf("dropping peer %s at tick %d: %v", msg.Type, msg.Tick, err)
			}
		}
	}
}

func (p *Peer) pingLoop(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PingInterval)
	defer ticker.Stop()
	for {
		if err := p.write(proto.PingMessage(p.cfg.Now().UnixNano())); err != nil {
			if p.closed.Load() {
				return nil
			}
			p.cfg.Logger.Printf("ping failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil
		case <-ticker.C:
		}
	}
}

// RoundTripTicks converts a measured round trip into whole simulation ticks,
// rounding up.
func RoundTripTicks(rtt, tick time.Duration) uint32 {
	if rtt <= 0 || tick <= 0 {
		return 0
	}
	return uint32((rtt + tick - 1) / tick)
}
