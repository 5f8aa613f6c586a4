package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "longshot",
	Short: "NBA longshot calibration paper trader",
	Long: `Paper-trades NBA longshot markets against their historical calibration.

The pipeline subscribes to the public trade feed, keeps only trades at
extreme YES prices, compares the implied probability against the
historical win rate at that price level, and opens paper positions
when the calibration gap survives an adversarial review.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadEnv loads a .env file when present. Missing files are fine:
// configuration falls back to real environment variables.
func loadEnv() {
	_ = godotenv.Load()
}
