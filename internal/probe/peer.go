package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/JaykaiDos/signaling-server/internal/relay"
	"github.com/JaykaiDos/signaling-server/internal/signaling"
)

// ChannelLabel names the data channel both sides agree on.
const ChannelLabel = "probe"

var (
	ErrTimeout          = errors.New("timeout")
	ErrUnexpectedSignal = errors.New("unexpected signal type")
	ErrChannelClosed    = errors.New("channel closed")
	ErrConnectionFailed = errors.New("connection failed")
)

// Signaler carries negotiation data to the other side. *client.Client
// satisfies it.
type Signaler interface {
	Emit(typ, roomID string, v any) error
	Codec() signaling.Codec
}

// SignalPayload is the negotiation data relayed inside signal events.
type SignalPayload struct {
	Type      string                 `json:"type,omitempty" msgpack:"type,omitempty"`
	SDP       string                 `json:"sdp,omitempty" msgpack:"sdp,omitempty"`
	Candidate *pion.ICECandidateInit `json:"candidate,omitempty" msgpack:"candidate,omitempty"`
}

// Config selects ICE servers for the peer connection.
type Config struct {
	STUN     []string
	TURN     []string
	TURNUser string
	TURNPass string

	// Loopback gathers 127.0.0.1 candidates, for peers on one host.
	Loopback bool
}

// Peer is one end of a probe data channel negotiated through the relay.
type Peer struct {
	pc     *pion.PeerConnection
	sig    Signaler
	roomID string
	log    *slog.Logger

	mu        sync.Mutex
	remoteSet bool
	pending   []pion.ICECandidateInit
	dc        *pion.DataChannel

	open     chan struct{}
	openOnce sync.Once
	failed   chan struct{}
	failOnce sync.Once
	pongs    chan frame
}

// NewPeer creates the peer connection and starts trickling candidates to
// the room through sig.
func NewPeer(cfg Config, sig Signaler, roomID string, log *slog.Logger) (*Peer, error) {
	if log == nil {
		log = slog.Default()
	}

	var iceServers []pion.ICEServer
	if len(cfg.STUN) > 0 {
		iceServers = append(iceServers, pion.ICEServer{URLs: cfg.STUN})
	}
	if len(cfg.TURN) > 0 {
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       cfg.TURN,
			Username:   cfg.TURNUser,
			Credential: cfg.TURNPass,
		})
	}

	var se pion.SettingEngine
	if cfg.Loopback {
		se.SetIncludeLoopbackCandidate(true)
	}
	api := pion.NewAPI(pion.WithSettingEngine(se))

	pc, err := api.NewPeerConnection(pion.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{
		pc:     pc,
		sig:    sig,
		roomID: roomID,
		log:    log,
		open:   make(chan struct{}),
		failed: make(chan struct{}),
		pongs:  make(chan frame, 16),
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		if err := sig.Emit(relay.EventSignal, roomID, SignalPayload{Candidate: &init}); err != nil {
			log.Debug("send candidate failed", "err", err)
		}
	})

	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		log.Debug("ice state changed", "state", state.String())
		if state == pion.ICEConnectionStateFailed || state == pion.ICEConnectionStateClosed {
			p.failOnce.Do(func() { close(p.failed) })
		}
	})

	// The answering side receives the channel from the offerer.
	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() == ChannelLabel {
			p.attach(dc)
		}
	})

	return p, nil
}

// Offer opens the probe channel and sends an SDP offer to the room.
func (p *Peer) Offer() error {
	ordered := true
	dc, err := p.pc.CreateDataChannel(ChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}
	p.attach(dc)

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	return p.sig.Emit(relay.EventSignal, p.roomID, SignalPayload{Type: offer.Type.String(), SDP: offer.SDP})
}

// HandleSignal applies one relayed payload: an offer, an answer or an ICE
// candidate. Candidates that arrive before the remote description are queued.
func (p *Peer) HandleSignal(data []byte) error {
	var payload SignalPayload
	if err := p.sig.Codec().UnmarshalPayload(data, &payload); err != nil {
		return fmt.Errorf("parse signal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if payload.SDP != "" {
		if err := p.handleSDP(payload); err != nil {
			return err
		}
	}
	if payload.Candidate != nil {
		if !p.remoteSet {
			p.pending = append(p.pending, *payload.Candidate)
			return nil
		}
		if err := p.pc.AddICECandidate(*payload.Candidate); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
	}
	return nil
}

func (p *Peer) handleSDP(payload SignalPayload) error {
	switch pion.NewSDPType(payload.Type) {
	case pion.SDPTypeOffer:
		if err := p.pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: payload.SDP}); err != nil {
			return fmt.Errorf("set remote description: %w", err)
		}
		answer, err := p.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := p.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local description: %w", err)
		}
		if err := p.sig.Emit(relay.EventSignal, p.roomID, SignalPayload{Type: answer.Type.String(), SDP: answer.SDP}); err != nil {
			return err
		}

	case pion.SDPTypeAnswer:
		if err := p.pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: payload.SDP}); err != nil {
			return fmt.Errorf("set remote description: %w", err)
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnexpectedSignal, payload.Type)
	}

	p.remoteSet = true
	return p.flushPending()
}

// flushPending adds queued candidates. Callers hold p.mu.
func (p *Peer) flushPending() error {
	pending := p.pending
	p.pending = nil
	for _, c := range pending {
		if err := p.pc.AddICECandidate(c); err != nil {
			return fmt.Errorf("add ICE candidate: %w", err)
		}
	}
	return nil
}

// Pending reports how many candidates wait for the remote description.
func (p *Peer) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Peer) attach(dc *pion.DataChannel) {
	p.mu.Lock()
	p.dc = dc
	p.mu.Unlock()

	dc.OnOpen(func() {
		p.log.Debug("probe channel open")
		p.openOnce.Do(func() { close(p.open) })
	})

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		f, err := decodeFrame(msg.Data)
		if err != nil {
			p.log.Debug("bad probe frame", "err", err)
			return
		}
		switch f.Kind {
		case kindPing:
			reply, err := encodeFrame(frame{Kind: kindPong, Seq: f.Seq, Sent: f.Sent})
			if err == nil {
				err = dc.Send(reply)
			}
			if err != nil {
				p.log.Debug("echo failed", "err", err)
			}
		case kindPong:
			select {
			case p.pongs <- f:
			default:
			}
		}
	})
}

// WaitOpen blocks until the data channel is open.
func (p *Peer) WaitOpen(ctx context.Context) error {
	select {
	case <-p.open:
		return nil
	case <-p.failed:
		return ErrConnectionFailed
	case <-ctx.Done():
		return fmt.Errorf("wait for data channel: %w", ErrTimeout)
	}
}

// Measure sends count pings over the open channel and returns each round
// trip time. The other side echoes automatically.
func (p *Peer) Measure(ctx context.Context, count int) ([]time.Duration, error) {
	if err := p.WaitOpen(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	dc := p.dc
	p.mu.Unlock()

	rtts := make([]time.Duration, 0, count)
	for seq := range uint32(count) {
		sent := time.Now()
		data, err := encodeFrame(frame{Kind: kindPing, Seq: seq, Sent: sent.UnixNano()})
		if err != nil {
			return rtts, err
		}
		if err := dc.Send(data); err != nil {
			return rtts, fmt.Errorf("send ping: %w", err)
		}

	wait:
		for {
			select {
			case f := <-p.pongs:
				if f.Seq != seq {
					continue
				}
				rtts = append(rtts, time.Since(sent))
				break wait
			case <-p.failed:
				return rtts, ErrChannelClosed
			case <-ctx.Done():
				return rtts, fmt.Errorf("wait for echo %d: %w", seq, ErrTimeout)
			}
		}
	}
	return rtts, nil
}

// Close tears down the peer connection.
func (p *Peer) Close() error {
	return p.pc.Close()
}
