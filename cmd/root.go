package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/camera-db/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "camdb",
	Short: "Camera POI database builder",
	Long:  "Queries OpenStreetMap and POI Factory for ALPR, red light and speed cameras and writes compact NDJSON databases for a dashcam SD card.",
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
