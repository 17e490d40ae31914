package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/camera-db/internal/model"
)

// Speed is an extracted speed limit. Unit is empty for mph.
type Speed struct {
	Value int
	Unit  string
}

// maxPlausibleSpeed rejects digit runs that are not speed limits (house
// numbers, route refs).
const maxPlausibleSpeed = 200

// Extractor pulls one optional value out of a tag set. Extractors never fail;
// an unusable field yields ok=false.
type Extractor[T any] func(tags map[string]string) (T, bool)

// First runs the chain in order and returns the first value found.
func First[T any](tags map[string]string, chain ...Extractor[T]) (T, bool) {
	for _, ex := range chain {
		if v, ok := ex(tags); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

var (
	digitRun  = regexp.MustCompile(`\d+`)
	nameSpeed = regexp.MustCompile(`(?i)\b(\d{2,3})\s*(mph|km/h|kmh|kph)\b`)
)

// ParseSpeedTag reads a unit-bearing speed value such as "35 mph", "50" or
// "80 km/h". The first digit run is the value; a km marker sets the kmh unit.
func ParseSpeedTag(s string) (Speed, bool) {
	s = strings.TrimSpace(s)
	m := digitRun.FindString(s)
	if m == "" {
		return Speed{}, false
	}
	v, err := strconv.Atoi(m)
	if err != nil || v <= 0 || v > maxPlausibleSpeed {
		return Speed{}, false
	}
	sp := Speed{Value: v}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "km") || strings.Contains(lower, "kph") {
		sp.Unit = model.UnitKMH
	}
	return sp, true
}

// ParseSpeedText finds a speed embedded in free text, e.g. "Main St - 35 MPH".
// Only numbers followed by a unit marker count.
func ParseSpeedText(s string) (Speed, bool) {
	m := nameSpeed.FindStringSubmatch(s)
	if m == nil {
		return Speed{}, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v <= 0 || v > maxPlausibleSpeed {
		return Speed{}, false
	}
	sp := Speed{Value: v}
	if !strings.EqualFold(m[2], "mph") {
		sp.Unit = model.UnitKMH
	}
	return sp, true
}

// SpeedTag extracts a speed from a unit-bearing tag.
func SpeedTag(key string) Extractor[Speed] {
	return func(tags map[string]string) (Speed, bool) {
		return ParseSpeedTag(tags[key])
	}
}

// SpeedText extracts a speed from a free-text tag.
func SpeedText(key string) Extractor[Speed] {
	return func(tags map[string]string) (Speed, bool) {
		return ParseSpeedText(tags[key])
	}
}

var cardinals = map[string]int{
	"N": 0, "NNE": 23, "NE": 45, "ENE": 68,
	"E": 90, "ESE": 113, "SE": 135, "SSE": 158,
	"S": 180, "SSW": 203, "SW": 225, "WSW": 248,
	"W": 270, "WNW": 293, "NW": 315, "NNW": 338,
}

// ParseHeading reads a single bearing: a number in [0, 360] or a compass
// point. 360 folds to 0; fractions are truncated.
func ParseHeading(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 360 {
			return 0, false
		}
		return int(f) % 360, true
	}
	if v, ok := cardinals[strings.ToUpper(s)]; ok {
		return v, true
	}
	return 0, false
}

// ParseHeadings reads a ";"-separated bearing list, dropping unusable parts
// and keeping at most model.MaxHeadings distinct values in order.
func ParseHeadings(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ";") {
		h, ok := ParseHeading(part)
		if !ok || containsInt(out, h) {
			continue
		}
		out = append(out, h)
		if len(out) == model.MaxHeadings {
			break
		}
	}
	return out
}

// HeadingTag extracts bearings from a direction tag.
func HeadingTag(key string) Extractor[[]int] {
	return func(tags map[string]string) ([]int, bool) {
		h := ParseHeadings(tags[key])
		return h, len(h) > 0
	}
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
