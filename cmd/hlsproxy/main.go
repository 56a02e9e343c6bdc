// Command hlsproxy runs the transcoding-aware HLS reverse proxy, or an
// interactive console against a running one.
//
// Grounded on the teacher's cmd/proxy/main.go: a cobra root command, an
// optional .env load via godotenv before configuration is read, and
// subcommands registered in init().
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hlsproxy",
	Short: "A transcoding-aware HLS reverse proxy",
	Long:  "hlsproxy rewrites and caches HLS manifests and segments in front of one or more origins.",
}

func init() {
	// Best-effort: a missing .env file is not an error, matching the
	// teacher's main.go behavior of tolerating its absence in production.
	_ = godotenv.Load()

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
