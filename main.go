package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "studyhelper",
		Short:         "Turn PDF lecture notes into a summary, flashcards and a quiz",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default $STUDYHELPER_CONFIG or ./config.json)")

	serve := serveCmd(&configPath)
	root.AddCommand(
		serve,
		tuiCmd(&configPath),
		generateCmd(&configPath),
		historyCmd(&configPath),
		mcpCmd(&configPath),
	)
	// Running without a sub-command starts the web server.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
