package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/JaykaiDos/signaling-server/internal/ui"
	"github.com/JaykaiDos/signaling-server/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the relayctl version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(ui.Output, "relayctl %s (%s %s/%s)\n", version.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
