package export

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/camera-db/internal/model"
)

// WriteGeoJSON writes records as a FeatureCollection of points.
func WriteGeoJSON(w io.Writer, records []model.Camera) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(records))}
	for i, c := range records {
		props := map[string]any{
			"flg":  int(c.Flags),
			"type": c.Flags.String(),
		}
		if c.SpeedLimit != nil {
			props["spd"] = *c.SpeedLimit
			unit := "mph"
			if c.Unit != "" {
				unit = c.Unit
			}
			props["unt"] = unit
		}
		if len(c.Headings) > 0 {
			props["dir"] = c.Headings
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.Itoa(i + 1),
			Geometry:   geom.NewPointFlat(geom.XY, []float64{c.Lon, c.Lat}),
			Properties: props,
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
