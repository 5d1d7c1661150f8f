package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MartinezAgullo/copforge/internal/cop"
	"github.com/MartinezAgullo/copforge/internal/engine"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import entities from a JSON file into the COP",
	Long:  "Reads a JSON array of entities, upserts them into the picture, and (with auto-sync enabled) pushes them to mapa-puntos-interes. Invalid entities are reported and skipped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(importFilePath)
		if err != nil {
			return eris.Wrap(err, "read entities file")
		}
		var entities []cop.Entity
		if err := json.Unmarshal(raw, &entities); err != nil {
			return eris.Wrap(err, "parse entities file")
		}

		e := initEngine(ctx, cfg)
		result := e.Engine.UpdateCOP(ctx, engine.UpdateRequest{Entities: entities})

		zap.L().Info("import complete",
			zap.Int("added", result.Added),
			zap.Int("updated", result.Updated),
			zap.Int("errors", len(result.Errors)),
			zap.String("sync_status", string(result.SyncStatus)),
			zap.String("file", importFilePath),
		)
		for _, ie := range result.Errors {
			zap.L().Warn("rejected entity",
				zap.Int("index", ie.Index),
				zap.String("entity_id", ie.EntityID),
				zap.String("reason", ie.Reason),
			)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to JSON entities file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
