// Package dedup collapses near-duplicate camera records from different
// sources onto a quantized coordinate key.
package dedup

import (
	"math"

	"github.com/sells-group/camera-db/internal/model"
)

// keyScale quantizes coordinates to 4 decimal places (about 11 m).
const keyScale = 1e4

// Options configures deduplication.
type Options struct {
	// ByFlags adds the flag value to the key so co-located cameras of
	// different types survive. Used for combined multi-category output.
	ByFlags bool
}

// Key is the quantized identity of a record.
type Key struct {
	Lat   int64
	Lon   int64
	Flags model.Flags
}

// KeyOf returns the dedup key for c.
func KeyOf(c model.Camera, opts Options) Key {
	k := Key{
		Lat: int64(math.Round(c.Lat * keyScale)),
		Lon: int64(math.Round(c.Lon * keyScale)),
	}
	if opts.ByFlags {
		k.Flags = c.Flags
	}
	return k
}

// Stats reports what deduplication kept and dropped.
type Stats struct {
	Input    int            `json:"input"`
	Kept     int            `json:"kept"`
	Dropped  int            `json:"dropped"`
	BySource map[string]int `json:"dropped_by_source,omitempty"`
}

// Dedupe keeps the first record seen for each key, preserving input order.
// Later duplicates are dropped whole; no fields are merged.
func Dedupe(records []model.Camera, opts Options) ([]model.Camera, Stats) {
	st := Stats{Input: len(records)}
	seen := make(map[Key]struct{}, len(records))
	out := make([]model.Camera, 0, len(records))

	for _, c := range records {
		k := KeyOf(c, opts)
		if _, dup := seen[k]; dup {
			st.Dropped++
			if c.Provenance != "" {
				if st.BySource == nil {
					st.BySource = make(map[string]int)
				}
				st.BySource[c.Provenance]++
			}
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	st.Kept = len(out)
	return out, st
}
