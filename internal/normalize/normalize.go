// Package normalize maps raw source payloads into canonical camera records.
// Incomplete upstream rows are skipped and counted, never treated as errors.
package normalize

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/camera-db/internal/model"
)

// ErrIncomplete marks a payload the server itself flagged as partial (for
// example an Overpass runtime timeout). Its elements are never used.
var ErrIncomplete = eris.New("normalize: incomplete upstream result")

// Normalizer converts one payload shape into camera candidates.
type Normalizer interface {
	Normalize(body []byte, cat model.Category) ([]model.Camera, Stats, error)
}

// Stats counts what a normalizer read and dropped.
type Stats struct {
	Elements      int `json:"elements"`
	Accepted      int `json:"accepted"`
	MissingCoords int `json:"missing_coords"`
	OutOfBounds   int `json:"out_of_bounds"`
	Malformed     int `json:"malformed"`
	NoFlags       int `json:"no_flags"`
}

// Skipped is the total number of elements dropped.
func (s Stats) Skipped() int {
	return s.MissingCoords + s.OutOfBounds + s.Malformed + s.NoFlags
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Elements += o.Elements
	s.Accepted += o.Accepted
	s.MissingCoords += o.MissingCoords
	s.OutOfBounds += o.OutOfBounds
	s.Malformed += o.Malformed
	s.NoFlags += o.NoFlags
}

// accept applies the bounds and flag invariants, rounds coordinates and
// appends the record when it passes.
func accept(out []model.Camera, st *Stats, c model.Camera) []model.Camera {
	if !model.InBounds(c.Lat, c.Lon) {
		st.OutOfBounds++
		return out
	}
	if c.Flags == 0 {
		st.NoFlags++
		return out
	}
	c.Lat = model.Round6(c.Lat)
	c.Lon = model.Round6(c.Lon)
	st.Accepted++
	return append(out, c)
}
