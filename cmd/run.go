package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kestrel-trading/xvenue-arb/internal/orchestrator"
	"github.com/kestrel-trading/xvenue-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage engine",
	Long: `Starts the cross-venue arbitrage engine, which will:
1. Refresh wallet balances on both venues (fatal if any is zero)
2. Connect to both venues' order-book streams for the configured pairs
3. Detect buy-both arbitrage on every top-of-book change
4. Execute both legs concurrently and unwind on partial failure

Runs in dry-run mode unless DRY_RUN=false; dry-run short-circuits order
placement with synthetic results while keeping the full pipeline live.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("dry-run", false, "Force dry-run mode regardless of DRY_RUN")
}

func runEngine(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Println("Warning: .env file not loaded")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if forced, _ := cmd.Flags().GetBool("dry-run"); forced {
		cfg.DryRun = true
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	engine, err := orchestrator.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	err = engine.Run()
	if err != nil {
		return fmt.Errorf("run orchestrator: %w", err)
	}

	return nil
}
