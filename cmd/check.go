package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the connection to mapa-puntos-interes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		e := initEngine(ctx, cfg)

		health := e.Engine.CheckMapaConnection(ctx)
		zap.L().Info("mapa connection check",
			zap.Bool("reachable", health.Reachable),
			zap.Int64("latency_ms", health.LatencyMS),
			zap.String("message", health.Message),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
