package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JaykaiDos/signaling-server/internal/relay"
	"github.com/JaykaiDos/signaling-server/internal/ui"
)

var (
	flagSendType string
	flagSendData string
)

var sendCmd = &cobra.Command{
	Use:   "send <room>",
	Short: "Join a room and push one payload into it",
	Long: `Join a room, emit one signal, game-state or player-input event, and leave.

Examples:
  relayctl send lobby --data '{"type":"offer","sdp":"v=0"}'
  relayctl send lobby --type player-input --data '{"key":"left"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := args[0]

		payload, err := parsePayload(flagSendType, flagSendData)
		if err != nil {
			return err
		}

		s, ctx, cancel, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer cancel()
		defer s.Close()

		joined, err := s.Join(ctx, roomID)
		if err != nil {
			return err
		}

		if err := s.Client.Emit(flagSendType, roomID, payload); err != nil {
			return NewError("send "+flagSendType, err)
		}

		// The relay handles one connection's events in order, so the pong
		// proves the payload was processed.
		if err := s.Client.Ping(); err != nil {
			return NewError("confirm delivery", err)
		}
		select {
		case <-s.Handler.Pong:
		case reason := <-s.Handler.Error:
			return WrapError("send "+flagSendType, ErrSignalingError, reason)
		case <-s.Handler.Done:
			return NewError("confirm delivery", ErrDisconnected)
		case <-ctx.Done():
			return NewError("confirm delivery", ErrTimeout)
		}

		ui.PrintSuccessf("%s relayed to %s (%d in room)", flagSendType, roomID, joined.PlayerCount)
		return nil
	},
}

// parsePayload validates the event type and decodes the JSON payload so the
// connection codec can re-encode it.
func parsePayload(typ, data string) (any, error) {
	switch typ {
	case relay.EventSignal, relay.EventGameState, relay.EventPlayerInput:
	default:
		return nil, WrapError("send", ErrBadPayload, fmt.Sprintf("type %q carries no payload", typ))
	}

	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, WrapError("send", ErrBadPayload, err.Error())
	}
	return v, nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&flagSendType, "type", "t", relay.EventSignal, "Event type: signal, game-state or player-input")
	sendCmd.Flags().StringVarP(&flagSendData, "data", "d", "{}", "JSON payload")
}
