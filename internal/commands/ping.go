package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaykaiDos/signaling-server/internal/ui"
)

var flagPingCount int

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure heartbeat round trips to the relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPingCount < 1 {
			return WrapError("ping", ErrInvalidFlag, "--count must be at least 1")
		}

		s, ctx, cancel, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer cancel()
		defer s.Close()

		var total time.Duration
		for i := range flagPingCount {
			sent := time.Now()
			if err := s.Client.Ping(); err != nil {
				return NewError("ping", err)
			}

			select {
			case serverTime := <-s.Handler.Pong:
				rtt := time.Since(sent)
				total += rtt
				ui.PrintSuccessf("pong %d from %s  rtt=%s  server=%s",
					i+1, s.Config.RelayURL, rtt.Round(time.Microsecond), serverTime.Format(time.RFC3339Nano))
			case <-s.Handler.Done:
				return NewError("ping", ErrDisconnected)
			case <-ctx.Done():
				return NewError("ping", ErrTimeout)
			}
		}

		if flagPingCount > 1 {
			ui.PrintInfo(fmt.Sprintf("avg rtt %s over %d pings", (total / time.Duration(flagPingCount)).Round(time.Microsecond), flagPingCount))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVarP(&flagPingCount, "count", "n", 1, "Number of pings")
}
