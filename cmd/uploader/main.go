package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// softwareType identifies this uploader to the weather services.
func softwareType() string {
	return "Seed Studio SenseCAP S1000 Adapter v" + version
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "weather-uploader",
		Short: "Forward Telegraf weather samples to Weather Underground and PWSWeather",
		Long: `weather-uploader receives weather metrics from Telegraf over HTTP (or MQTT),
keeps the latest sample, and reports it to Weather Underground and PWSWeather.
Running without a subcommand starts the server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCmd(), newPushCmd(), newDewpointCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
