package cmd

import (
	"fmt"

	"github.com/quantfade/longshot/internal/app"
	"github.com/quantfade/longshot/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the paper trader",
	Long: `Starts the paper trader, which will:
1. Subscribe to the public trade feed over WebSocket
2. Keep trades priced at or beyond the longshot/favorite bands
3. Evaluate the calibration gap at that price level
4. Open paper positions that survive the risk review
5. Settle open positions against the league scoreboard`,
	RunE: runTrader,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runTrader(cmd *cobra.Command, args []string) error {
	loadEnv()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
