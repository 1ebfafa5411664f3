package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaykaiDos/signaling-server/internal/probe"
	"github.com/JaykaiDos/signaling-server/internal/ui"
)

var flagProbeCount int

var probeCmd = &cobra.Command{
	Use:   "probe [room]",
	Short: "Negotiate a WebRTC data channel through the relay and time it",
	Long: `Run probe in two terminals with the same room. The first to join waits
for the second, sends an SDP offer through the relay, trickles ICE candidates,
then times round trips over the resulting data channel. The second answers
and echoes until the first leaves.

Without a room name a fresh one is generated and printed for the other side.

Examples:
  relayctl probe
  relayctl probe lab-1
  relayctl probe lab-1 --count 10 --stun stun:stun.example.org:3478`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var roomID string
		if len(args) == 1 {
			roomID = args[0]
		} else {
			roomID = roomName()
			ui.PrintInfof("%s room %s, run: relayctl probe %s", ui.IconRoom, roomID, roomID)
		}
		if flagProbeCount < 1 {
			return WrapError("probe", ErrInvalidFlag, "--count must be at least 1")
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

		stun, turn := s.Config.ICEServers()
		peer, err := probe.NewPeer(probe.Config{
			STUN:     stun,
			TURN:     turn,
			TURNUser: s.Config.TURNUser,
			TURNPass: s.Config.TURNPass,
		}, s.Client, roomID, slog.Default())
		if err != nil {
			return NewError("create peer", err)
		}
		defer peer.Close()

		go forwardSignals(s, peer)

		if joined.PlayerCount == 1 {
			return runOfferer(ctx, s, peer)
		}
		if joined.PlayerCount > 2 {
			ui.PrintWarning(fmt.Sprintf("%s already holds %d occupants, signals reach all of them", roomID, joined.PlayerCount-1))
		}
		return runAnswerer(cmd.Context(), ctx, s, peer)
	},
}

func forwardSignals(s *Session, peer *probe.Peer) {
	for {
		select {
		case sig := <-s.Handler.Signal:
			if err := peer.HandleSignal(sig.Data); err != nil {
				slog.Warn("signal rejected", "from", sig.From, "err", err)
			}
		case <-s.Handler.Done:
			return
		}
	}
}

func runOfferer(ctx context.Context, s *Session, peer *probe.Peer) error {
	stop := ui.RunWaitingSpinner("Waiting for a second prober to join...")
	select {
	case p := <-s.Handler.UserJoined:
		stop()
		ui.PrintInfof("%s peer %s joined, offering", ui.IconPeer, p.UserID)
	case <-s.Handler.Done:
		stop()
		return NewError("wait for peer", ErrDisconnected)
	case <-ctx.Done():
		stop()
		return NewError("wait for peer", ErrTimeout)
	}

	if err := peer.Offer(); err != nil {
		return NewError("offer", err)
	}

	stop = ui.RunConnectionSpinner("Negotiating data channel...")
	rtts, err := peer.Measure(ctx, flagProbeCount)
	stop()
	if err != nil {
		return NewError("measure", err)
	}

	for i, rtt := range rtts {
		ui.PrintSuccessf("echo %d  rtt=%s", i+1, rtt.Round(time.Microsecond))
	}
	ui.PrintInfof("%s min %s  max %s  avg %s", ui.IconTime,
		slices.Min(rtts).Round(time.Microsecond),
		slices.Max(rtts).Round(time.Microsecond),
		average(rtts).Round(time.Microsecond))
	return nil
}

// runAnswerer echoes until the offerer leaves. Only negotiation is bounded
// by the timeout.
func runAnswerer(parent, ctx context.Context, s *Session, peer *probe.Peer) error {
	stop := ui.RunConnectionSpinner("Waiting for an offer...")
	err := peer.WaitOpen(ctx)
	stop()
	if err != nil {
		return NewError("open data channel", err)
	}
	ui.PrintSuccess("data channel open, echoing probes")

	select {
	case <-s.Handler.HostDisconnected:
		ui.PrintInfo("prober finished and left")
		return nil
	case <-s.Handler.RoomClosed:
		return NewError("echo", ErrRoomGone)
	case <-s.Handler.Done:
		return NewError("echo", ErrDisconnected)
	case <-parent.Done():
		return nil
	}
}

func average(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum / time.Duration(len(ds))
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVarP(&flagProbeCount, "count", "n", 5, "Number of data channel round trips")
}
