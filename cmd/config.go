package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MartinezAgullo/copforge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config.yaml with default values",
	RunE: func(_ *cobra.Command, _ []string) error {
		if _, err := os.Stat("config.yaml"); err == nil {
			return eris.New("config.yaml already exists, refusing to overwrite")
		}

		defaults := config.Config{
			Mapa: config.MapaConfig{
				BaseURL:                 "http://localhost:3000",
				TimeoutSecs:             5,
				RateLimitRPS:            20,
				RateBurst:               20,
				BreakerFailureThreshold: 5,
				BreakerResetSecs:        30,
			},
			COP: config.COPConfig{
				AutoSync:           true,
				AutoLoad:           false,
				DistanceThresholdM: 500,
				TimeWindowSecs:     300,
				SyncParallelism:    4,
			},
			Server: config.ServerConfig{Port: 8011},
			Log:    config.LogConfig{Level: "info", Format: "json"},
		}

		out, err := yaml.Marshal(defaults)
		if err != nil {
			return eris.Wrap(err, "marshal default config")
		}
		if err := os.WriteFile("config.yaml", out, 0o644); err != nil {
			return eris.Wrap(err, "write config.yaml")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
