package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/camera-db/internal/model"
)

// predicate is a single Overpass element filter.
type predicate struct {
	element string // node, way, relation
	filter  string
}

var categoryPredicates = map[model.Category][]predicate{
	model.CategoryALPR: {
		{"node", `["surveillance:type"="ALPR"]`},
		{"node", `["man_made"="surveillance"]["surveillance"="ALPR"]`},
		{"way", `["surveillance:type"="ALPR"]`},
	},
	model.CategoryRedLight: {
		{"relation", `["type"="enforcement"]["enforcement"="traffic_signals"]`},
		{"node", `["highway"="speed_camera"]["enforcement"="traffic_signals"]`},
	},
	model.CategorySpeed: {
		{"node", `["highway"="speed_camera"]`},
		{"node", `["enforcement"="maxspeed"]`},
		{"way", `["highway"="speed_camera"]`},
	},
}

// OverpassQuery builds the Overpass QL for the given categories and scope.
// Nodes are printed with their coordinates and tags; ways and relations only
// with their tags and center point, which is all normalization reads.
func OverpassQuery(cats []model.Category, scope Scope, serverTimeout time.Duration) string {
	secs := int(serverTimeout / time.Second)
	if secs <= 0 {
		secs = 180
	}

	var nodes, areas []string
	for _, c := range ordered(cats) {
		for _, p := range categoryPredicates[c] {
			line := fmt.Sprintf("  %s%s(area.searchArea);", p.element, p.filter)
			if p.element == "node" {
				nodes = appendUnique(nodes, line)
			} else {
				areas = appendUnique(areas, line)
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", secs)
	fmt.Fprintf(&b, "%s->.searchArea;\n", scope.AreaFilter())
	if len(nodes) > 0 {
		b.WriteString("(\n")
		b.WriteString(strings.Join(nodes, "\n"))
		b.WriteString("\n)->.nodes;\n")
	}
	if len(areas) > 0 {
		b.WriteString("(\n")
		b.WriteString(strings.Join(areas, "\n"))
		b.WriteString("\n)->.areas;\n")
	}
	if len(nodes) > 0 {
		b.WriteString(".nodes out body qt;\n")
	}
	if len(areas) > 0 {
		b.WriteString(".areas out tags center qt;\n")
	}
	return b.String()
}

// ordered returns cats in canonical order without duplicates.
func ordered(cats []model.Category) []model.Category {
	want := make(map[model.Category]bool, len(cats))
	for _, c := range cats {
		want[c] = true
	}
	var out []model.Category
	for _, c := range model.All() {
		if want[c] {
			out = append(out, c)
		}
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// FlatFileURL returns the configured resource URL for a category.
func FlatFileURL(cat model.Category, urls map[string]string) (string, bool) {
	u := strings.TrimSpace(urls[string(cat)])
	return u, u != ""
}
