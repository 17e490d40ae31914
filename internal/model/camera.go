// Package model defines the canonical camera record shared by every stage of
// the database build.
package model

import "math"

// Unit values persisted in "unt". Miles per hour is implied when absent.
const (
	UnitKMH = "kmh"
)

// MaxHeadings is the number of bearings the device record can hold.
const MaxHeadings = 2

// Camera is the canonical, source-agnostic record written to the database.
// Field order is the serialization order.
type Camera struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Flags      Flags   `json:"flg"`
	SpeedLimit *int    `json:"spd,omitempty"`
	Unit       string  `json:"unt,omitempty"`
	Headings   []int   `json:"dir,omitempty"`

	// Provenance names the source that produced the record. Never persisted.
	Provenance string `json:"-"`
}

// InBounds reports whether lat/lon are valid WGS84 decimal degrees.
func InBounds(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Valid reports whether the record may be persisted.
func (c Camera) Valid() bool {
	return InBounds(c.Lat, c.Lon) && c.Flags != 0
}

// Round6 rounds a coordinate to 6 decimal places (~0.1 m). Negative zero is
// normalized so serialization never emits "-0".
func Round6(v float64) float64 {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		return 0
	}
	return r
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
