package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kestrel-trading/xvenue-arb/pkg/balances"
	"github.com/kestrel-trading/xvenue-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Check wallet balances on both venues",
	Long: `Display the balances the trade sizer depends on:
- USD balance on the single-book venue
- USDC.e balance on the two-book venue (for trading)
- POL balance on the two-book venue (for gas)`,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Println("Warning: .env file not loaded")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	oracle := balances.New(balances.Config{
		PolygonRPCURL:        cfg.PolygonRPCURL,
		USDCeTokenAddress:    cfg.USDCeTokenAddress,
		WalletAddress:        cfg.WalletAddress,
		SingleBookBalanceURL: cfg.SingleBookHTTPURL + "/portfolio/balance",
		Logger:               zap.NewNop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := oracle.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh balances: %w", err)
	}

	wallets := oracle.Snapshot()
	fmt.Printf("Single-book USD:   %s\n", wallets.SingleBookUSD.String())
	fmt.Printf("Two-book USDC.e:   %s\n", wallets.TwoBookUSDCe.String())
	fmt.Printf("Two-book POL:      %s\n", wallets.TwoBookPOL.String())

	return nil
}
