package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JaykaiDos/signaling-server/internal/client"
	"github.com/JaykaiDos/signaling-server/internal/relay"
	"github.com/JaykaiDos/signaling-server/internal/signaling"
	"github.com/JaykaiDos/signaling-server/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <room>",
	Short: "Join a room and show its traffic live",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		codec, err := signaling.CodecByName(cfg.Codec)
		if err != nil {
			return NewError("select codec", err)
		}

		// The watch view consumes raw events, so no Handler here.
		c := client.New(cfg.RelayURL, codec, slog.Default())
		if err := c.Connect(cmd.Context()); err != nil {
			return NewError("connect to relay", err)
		}
		defer c.Close()

		if err := c.Join(roomID); err != nil {
			return NewError("join room", err)
		}

		model := ui.NewWatchModel(roomID, c.Incoming(), describer(codec))
		if err := ui.RunWatch(model); err != nil {
			return NewError("watch", err)
		}
		return nil
	},
}

// describer renders the interesting part of an event on one line.
func describer(codec signaling.Codec) func(*signaling.Message) string {
	return func(msg *signaling.Message) string {
		switch msg.Type {
		case relay.EventRoomJoined:
			return fmt.Sprintf("players=%d", msg.PlayerCount)
		case relay.EventUserJoined, relay.EventUserLeft:
			return "user=" + msg.UserID
		case relay.EventError:
			return msg.Error
		case relay.EventSignal, relay.EventGameState, relay.EventPlayerInput:
			return fmt.Sprintf("from=%s %s", msg.UserID, summarize(codec, msg))
		}
		return ""
	}
}

// summarize decodes an opaque payload for display only.
func summarize(codec signaling.Codec, msg *signaling.Message) string {
	var raw []byte
	switch msg.Type {
	case relay.EventSignal:
		raw = msg.SignalData
	case relay.EventGameState:
		raw = msg.State
	case relay.EventPlayerInput:
		raw = msg.Input
	}
	if len(raw) == 0 {
		return ""
	}

	var v any
	if err := codec.UnmarshalPayload(raw, &v); err != nil {
		return fmt.Sprintf("<%d bytes>", len(raw))
	}
	text, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%d bytes>", len(raw))
	}
	return ui.TruncateString(string(text), 60)
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
