package commands

import (
	"context"
	"log/slog"

	"github.com/JaykaiDos/signaling-server/internal/client"
	"github.com/JaykaiDos/signaling-server/internal/config"
	"github.com/JaykaiDos/signaling-server/internal/signaling"
	"github.com/JaykaiDos/signaling-server/internal/ui"
)

// Session is a live relay connection with its event router.
type Session struct {
	Client  *client.Client
	Handler *client.Handler
	Config  *config.Client
}

// NewSession dials the relay and starts routing events.
func NewSession(ctx context.Context, cfg *config.Client) (*Session, error) {
	codec, err := signaling.CodecByName(cfg.Codec)
	if err != nil {
		return nil, NewError("select codec", err)
	}

	stop := ui.RunConnectionSpinner("Connecting to relay...")
	defer stop()

	c := client.New(cfg.RelayURL, codec, slog.Default())
	if err := c.Connect(ctx); err != nil {
		return nil, NewError("connect to relay", err)
	}

	h := client.NewHandler(c)
	go h.Start()

	return &Session{Client: c, Handler: h, Config: cfg}, nil
}

// Join enters roomID and waits for the acknowledgement.
func (s *Session) Join(ctx context.Context, roomID string) (client.Joined, error) {
	if err := s.Client.Join(roomID); err != nil {
		return client.Joined{}, NewError("join room", err)
	}

	for {
		select {
		case joined := <-s.Handler.RoomJoined:
			if joined.RoomID == roomID {
				return joined, nil
			}
		case reason := <-s.Handler.Error:
			return client.Joined{}, WrapError("join room", ErrSignalingError, reason)
		case <-s.Handler.Done:
			return client.Joined{}, NewError("join room", ErrDisconnected)
		case <-ctx.Done():
			return client.Joined{}, NewError("join room", ErrTimeout)
		}
	}
}

func (s *Session) Close() {
	s.Client.Close()
}

// connect loads config and opens a session bounded by --timeout.
func connect(parent context.Context) (*Session, context.Context, context.CancelFunc, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(parent, flagTimeout)
	s, err := NewSession(ctx, cfg)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return s, ctx, cancel, nil
}
