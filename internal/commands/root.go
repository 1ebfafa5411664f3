package commands

import (
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaykaiDos/signaling-server/internal/config"
	"github.com/JaykaiDos/signaling-server/internal/ui"
	"github.com/JaykaiDos/signaling-server/internal/version"
)

var (
	flagServer   string
	flagCodec    string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagAdmin    string
	flagTimeout  time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "Talk to a signaling relay from the terminal",
	Long: `relayctl connects to a signaling relay over websocket. It can join rooms,
watch their traffic live, push payloads, list and close rooms through the
admin API, and negotiate a real WebRTC data channel through the relay to
prove two peers can find each other.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

// loadConfig resolves flags > env > defaults.
func loadConfig() (*config.Client, error) {
	cfg, err := config.LoadClient(config.Options{
		RelayURL:   flagServer,
		Codec:      flagCodec,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		AdminToken: flagAdmin,
	})
	if err != nil {
		return nil, NewError("load config", err)
	}
	return cfg, nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagServer, "server", "S", "", "Relay websocket URL (env RELAY_URL)")
	pf.StringVarP(&flagCodec, "codec", "c", "", "Wire codec: json or msgpack (env RELAY_CODEC)")
	pf.StringVar(&flagSTUN, "stun", "", "Custom STUN server (env STUN_SERVER)")
	pf.StringVar(&flagTURN, "turn", "", "Custom TURN server")
	pf.StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	pf.StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	pf.StringVar(&flagAdmin, "admin-token", "", "Bearer token for closing rooms (env ADMIN_TOKEN)")
	pf.DurationVarP(&flagTimeout, "timeout", "T", 30*time.Second, "How long to wait for the relay or a peer")
}
