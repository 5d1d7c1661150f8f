package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MartinezAgullo/copforge/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "copforge",
	Short: "Entity-fusion engine for the Common Operational Picture",
	Long:  "Maintains a deduplicated picture of multi-sensor track entities, fuses duplicate observations, and synchronizes with the mapa-puntos-interes system-of-record.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
