// Package export converts a camera database into GIS formats for review in
// desktop tools.
package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/camera-db/internal/model"
)

// Format is an export target.
type Format string

const (
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shapefile"
	FormatCSV       Format = "csv"
)

// ParseFormat converts a CLI string into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "shapefile", "shp":
		return FormatShapefile, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", eris.Errorf("unknown export format: %q (valid: geojson, shapefile, csv)", s)
	}
}

// Ext is the default file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatShapefile:
		return ".shp"
	case FormatCSV:
		return ".csv"
	default:
		return ".geojson"
	}
}

// ToFile exports records to path in the given format.
func ToFile(path string, records []model.Camera, format Format) error {
	if len(records) == 0 {
		return eris.New("export: no records")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: mkdir for %s", path)
	}

	if format == FormatShapefile {
		return WriteShapefile(path, records)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	switch format {
	case FormatCSV:
		err = WriteCSV(f, records)
	default:
		err = WriteGeoJSON(f, records)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = eris.Wrapf(cerr, "export: close %s", path)
	}
	return err
}
