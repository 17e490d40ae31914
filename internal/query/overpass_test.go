package query

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/camera-db/internal/model"
)

func TestOverpassQuery_ALPR(t *testing.T) {
	scope := Scope{Country: "US", Name: "US"}
	q := OverpassQuery([]model.Category{model.CategoryALPR}, scope, 180*time.Second)

	assert.True(t, strings.HasPrefix(q, "[out:json][timeout:180];\n"))
	assert.Contains(t, q, `area["ISO3166-1"="US"][admin_level=2]->.searchArea;`)
	assert.Contains(t, q, `node["surveillance:type"="ALPR"](area.searchArea);`)
	assert.Contains(t, q, `way["surveillance:type"="ALPR"](area.searchArea);`)
	assert.Contains(t, q, ".nodes out body qt;")
	assert.Contains(t, q, ".areas out tags center qt;")
	assert.NotContains(t, q, "speed_camera")
}

func TestOverpassQuery_RedLightRegional(t *testing.T) {
	scope := Scope{Country: "US", Region: "TX", Name: "Texas"}
	q := OverpassQuery([]model.Category{model.CategoryRedLight}, scope, 5*time.Minute)

	assert.Contains(t, q, "[timeout:300]")
	assert.Contains(t, q, `area["ISO3166-2"="US-TX"]->.searchArea;`)
	assert.Contains(t, q, `relation["type"="enforcement"]["enforcement"="traffic_signals"](area.searchArea);`)
}

func TestOverpassQuery_DeterministicAndDeduplicated(t *testing.T) {
	scope := Scope{Country: "US"}
	a := OverpassQuery([]model.Category{model.CategorySpeed, model.CategoryALPR, model.CategorySpeed}, scope, 0)
	b := OverpassQuery([]model.Category{model.CategoryALPR, model.CategorySpeed}, scope, 0)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, strings.Count(a, `node["highway"="speed_camera"](area.searchArea);`))
	assert.Contains(t, a, "[timeout:180]")
	assert.Less(t, strings.Index(a, "ALPR"), strings.Index(a, "speed_camera"))
}

func TestOverpassQuery_NodesOnly(t *testing.T) {
	q := OverpassQuery(nil, Scope{Country: "US"}, time.Minute)
	assert.NotContains(t, q, ".nodes out")
	assert.NotContains(t, q, ".areas out")
}

func TestFlatFileURL(t *testing.T) {
	urls := map[string]string{"speed": " http://example.com/speed.csv "}

	u, ok := FlatFileURL(model.CategorySpeed, urls)
	assert.True(t, ok)
	assert.Equal(t, "http://example.com/speed.csv", u)

	_, ok = FlatFileURL(model.CategoryALPR, urls)
	assert.False(t, ok)
}
