package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "glowstreamd",
		Short: "Network receiver for timestamped LED pixel frames",
		Long: `glowstreamd receives a stream of timestamped RGB frames over TCP and
presents each frame to a display sink at the moment its timestamp
becomes due. Frames may arrive plain or DEFLATE-compressed; a fixed
64-byte telemetry reply is sent back after every accepted packet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
