package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "notaria",
	Short: "notaria - notarial document lifecycle service",
	Long: `Tracks notarial documents from reception to delivery: bulk status changes,
client grouping with shared retrieval codes, consolidated client notifications,
and a confirm/undo gate for customer-facing transitions.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file; NOTARIA_* variables override it")
	rootCmd.AddCommand(serveCmd, relayCmd, tokenCmd)
}

// main wires high-level dependencies and keeps the process lifecycle small.
// Business logic lives in internal service packages.
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
