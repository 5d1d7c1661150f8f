package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push every local entity to mapa-puntos-interes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		e := initEngine(ctx, cfg)

		result := e.Engine.SyncToMapa(ctx)
		zap.L().Info("sync complete",
			zap.Int("pushed", result.Pushed),
			zap.Int("failed", result.Failed),
		)
		for _, msg := range result.Errors {
			zap.L().Warn("sync error", zap.String("detail", msg))
		}
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Pull every entity from mapa-puntos-interes into the local picture",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		e := initEngine(ctx, cfg)

		result := e.Engine.LoadFromMapa(ctx)
		zap.L().Info("load complete",
			zap.Int("pulled", result.Pulled),
			zap.Int("errors", len(result.Errors)),
		)
		for _, msg := range result.Errors {
			zap.L().Warn("load error", zap.String("detail", msg))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(loadCmd)
}
