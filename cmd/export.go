package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/camera-db/internal/dbfile"
	"github.com/sells-group/camera-db/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <database.json>",
	Short: "Convert a camera database to GeoJSON, Shapefile or CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(args[0], exportFormat, exportOut, os.Stdout)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "geojson", "output format (geojson, shapefile, csv)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default: input path with the format's extension)")
	rootCmd.AddCommand(exportCmd)
}

// runExport reads a database and writes it in the requested format.
func runExport(in, formatName, outPath string, out io.Writer) error {
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	records, stats, err := dbfile.ReadFile(in)
	if err != nil {
		return err
	}
	if stats.Skipped > 0 {
		zap.L().Warn("skipped unreadable database lines",
			zap.String("path", in),
			zap.Int("skipped", stats.Skipped),
		)
	}

	if outPath == "" {
		outPath = exportPath(in, format)
	}
	if err := export.ToFile(outPath, records, format); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "exported %d records to %s\n", len(records), outPath)
	return nil
}

// exportPath swaps the input's extension for the format's.
func exportPath(in string, format export.Format) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + format.Ext()
}
