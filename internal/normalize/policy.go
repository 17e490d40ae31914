package normalize

import (
	"strings"

	"github.com/sells-group/camera-db/internal/model"
)

// FlagPolicy maps a source's raw classification tags to canonical flags.
// Each source carries its own policy so its bit conventions stay isolated.
type FlagPolicy interface {
	Flags(tags map[string]string, cat model.Category) model.Flags
}

// PolicyFunc adapts a function to FlagPolicy.
type PolicyFunc func(tags map[string]string, cat model.Category) model.Flags

// Flags calls f.
func (f PolicyFunc) Flags(tags map[string]string, cat model.Category) model.Flags {
	return f(tags, cat)
}

// CategoryPolicy assigns the queried category's default flags. Used for
// sources without classification columns.
type CategoryPolicy struct{}

// Flags returns cat.DefaultFlags().
func (CategoryPolicy) Flags(_ map[string]string, cat model.Category) model.Flags {
	return cat.DefaultFlags()
}

// OSMPolicy classifies OpenStreetMap tags. Precedence, first match wins:
// explicit surveillance type, then the enforcement relationship, then the
// queried category's default.
type OSMPolicy struct{}

// Flags implements FlagPolicy.
func (OSMPolicy) Flags(tags map[string]string, cat model.Category) model.Flags {
	if isALPR(tags["surveillance:type"]) || isALPR(tags["surveillance"]) {
		return model.FlagALPR
	}
	if f := enforcementFlags(tags); f != 0 {
		return f
	}
	return cat.DefaultFlags()
}

func isALPR(v string) bool {
	v = strings.ToUpper(strings.TrimSpace(v))
	return v == "ALPR" || v == "ANPR"
}

// enforcementFlags reads the enforcement relationship tags. A
// "traffic_signals" enforcement alone is a red light camera; red light and
// speed enforcement together are the union.
func enforcementFlags(tags map[string]string) model.Flags {
	enforcement := strings.ToLower(tags["enforcement"])
	speedCamera := tags["highway"] == "speed_camera"

	hasRed := strings.Contains(enforcement, "traffic_signals") || strings.Contains(enforcement, "red_light")
	hasSpeed := strings.Contains(enforcement, "maxspeed") || strings.Contains(enforcement, "average_speed")

	switch {
	case hasRed && (hasSpeed || (speedCamera && strings.Contains(enforcement, "red_light"))):
		return model.FlagRedLightSpeed
	case hasRed:
		return model.FlagRedLight
	case tags["highway"] == "traffic_signals" && tags["camera"] == "yes":
		return model.FlagRedLight
	case hasSpeed || speedCamera:
		return model.FlagSpeed
	default:
		return 0
	}
}
