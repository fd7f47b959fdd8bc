// The arena command runs a demo battle simulation and exposes it through
// the monitoring server.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A .env file can pre-set the flag defaults; missing files are fine.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// rootCmd represents the base command when called without any
// subcommands.
var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "Arena runs agent battle simulations.",
	Long: `Arena runs a phase-scheduled battle simulation of autonomous ` +
		`agents. The run can be observed and controlled through the ` +
		`monitoring HTTP server, and traces can be recorded to SQLite.`,
}
