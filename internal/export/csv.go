package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/camera-db/internal/model"
)

// WriteCSV writes POI-style rows: longitude, latitude, then a name that
// carries the type and speed limit, which is what GPS POI loaders import.
func WriteCSV(w io.Writer, records []model.Camera) error {
	cw := csv.NewWriter(w)
	for _, c := range records {
		name := c.Flags.String()
		if c.SpeedLimit != nil {
			unit := "mph"
			if c.Unit == model.UnitKMH {
				unit = "km/h"
			}
			name += " " + strconv.Itoa(*c.SpeedLimit) + " " + unit
		}
		row := []string{
			strconv.FormatFloat(c.Lon, 'f', -1, 64),
			strconv.FormatFloat(c.Lat, 'f', -1, 64),
			name,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "export: write csv")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}
