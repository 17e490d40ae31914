package normalize

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/camera-db/internal/model"
)

// ErrMalformedPayload means the body is not the expected document shape.
var ErrMalformedPayload = eris.New("normalize: malformed payload")

// Overpass normalizes Overpass API JSON ("elements" with tag sets).
type Overpass struct {
	source   string
	policy   FlagPolicy
	speeds   []Extractor[Speed]
	headings []Extractor[[]int]
}

// NewOverpass returns a normalizer tagging records with source. A nil policy
// defaults to OSMPolicy.
func NewOverpass(source string, policy FlagPolicy) *Overpass {
	if policy == nil {
		policy = OSMPolicy{}
	}
	return &Overpass{
		source: source,
		policy: policy,
		speeds: []Extractor[Speed]{
			SpeedTag("maxspeed"),
			SpeedTag("maxspeed:forward"),
			SpeedTag("maxspeed:backward"),
			SpeedText("name"),
		},
		headings: []Extractor[[]int]{
			HeadingTag("direction"),
			HeadingTag("camera:direction"),
		},
	}
}

type overpassResponse struct {
	Remark   string            `json:"remark"`
	Elements []json.RawMessage `json:"elements"`
}

type latLon struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *latLon           `json:"center"`
	Tags   map[string]string `json:"tags"`
}

// coords returns the element position: node lat/lon, otherwise the center
// computed by "out center".
func (e overpassElement) coords() (lat, lon float64, ok bool) {
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}
	if e.Center != nil && e.Center.Lat != nil && e.Center.Lon != nil {
		return *e.Center.Lat, *e.Center.Lon, true
	}
	return 0, 0, false
}

// Normalize implements Normalizer.
func (o *Overpass) Normalize(body []byte, cat model.Category) ([]model.Camera, Stats, error) {
	var st Stats

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, st, eris.Wrapf(ErrMalformedPayload, "overpass json: %v", err)
	}
	if strings.Contains(strings.ToLower(resp.Remark), "runtime error") {
		return nil, st, eris.Wrap(ErrIncomplete, resp.Remark)
	}

	out := make([]model.Camera, 0, len(resp.Elements))
	for _, raw := range resp.Elements {
		st.Elements++

		var el overpassElement
		if err := json.Unmarshal(raw, &el); err != nil {
			st.Malformed++
			continue
		}

		lat, lon, ok := el.coords()
		if !ok {
			st.MissingCoords++
			continue
		}

		tags := el.Tags
		if tags == nil {
			tags = map[string]string{}
		}

		c := model.Camera{
			Lat:        lat,
			Lon:        lon,
			Flags:      o.policy.Flags(tags, cat),
			Provenance: o.source,
		}
		if sp, ok := First(tags, o.speeds...); ok {
			c.SpeedLimit = model.IntPtr(sp.Value)
			c.Unit = sp.Unit
		}
		if h, ok := First(tags, o.headings...); ok {
			c.Headings = h
		}
		out = accept(out, &st, c)
	}
	return out, st, nil
}
