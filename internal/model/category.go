package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Category is one camera enforcement type queried as its own database.
type Category string

const (
	CategoryALPR     Category = "alpr"
	CategoryRedLight Category = "redlight"
	CategorySpeed    Category = "speed"
)

// All returns every category in canonical order.
func All() []Category {
	return []Category{CategoryALPR, CategoryRedLight, CategorySpeed}
}

// ParseCategory converts a CLI or config string into a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alpr", "lpr":
		return CategoryALPR, nil
	case "redlight", "red_light", "red-light":
		return CategoryRedLight, nil
	case "speed":
		return CategorySpeed, nil
	default:
		return "", eris.Errorf("unknown category: %q (valid: alpr, redlight, speed)", s)
	}
}

// ParseSelector expands "all" (or an empty selector) into every category.
func ParseSelector(s string) ([]Category, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return All(), nil
	}
	c, err := ParseCategory(s)
	if err != nil {
		return nil, err
	}
	return []Category{c}, nil
}

// DefaultFlags is the flag value assigned when a source carries no
// classification tags for a record queried under this category.
func (c Category) DefaultFlags() Flags {
	switch c {
	case CategoryALPR:
		return FlagALPR
	case CategoryRedLight:
		return FlagRedLight
	case CategorySpeed:
		return FlagSpeed
	default:
		return 0
	}
}

// FileName is the on-card database file name for the category.
func (c Category) FileName() string {
	switch c {
	case CategoryALPR:
		return "alpr.json"
	case CategoryRedLight:
		return "redlight_cam.json"
	case CategorySpeed:
		return "speed_cam.json"
	default:
		return string(c) + ".json"
	}
}

// Label is the human-readable name used in summaries and metadata.
func (c Category) Label() string {
	switch c {
	case CategoryALPR:
		return "ALPR"
	case CategoryRedLight:
		return "Red Light"
	case CategorySpeed:
		return "Speed"
	default:
		return string(c)
	}
}

// Flags is the canonical camera type bitmask persisted as "flg".
type Flags int

const (
	FlagSpeed         Flags = 1
	FlagRedLight      Flags = 2
	FlagRedLightSpeed       = FlagSpeed | FlagRedLight
	// FlagALPR is bit 13, the value the firmware maps to its ALPR type.
	FlagALPR Flags = 1 << 13
)

// Has reports whether every bit of o is set in f.
func (f Flags) Has(o Flags) bool {
	return o != 0 && f&o == o
}

// String returns a short label for summaries.
func (f Flags) String() string {
	switch f {
	case FlagSpeed:
		return "speed"
	case FlagRedLight:
		return "redlight"
	case FlagRedLightSpeed:
		return "redlight+speed"
	case FlagALPR:
		return "alpr"
	case 0:
		return "none"
	}
	var parts []string
	if f.Has(FlagRedLight) {
		parts = append(parts, "redlight")
	}
	if f.Has(FlagSpeed) {
		parts = append(parts, "speed")
	}
	if f.Has(FlagALPR) {
		parts = append(parts, "alpr")
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "+")
}
