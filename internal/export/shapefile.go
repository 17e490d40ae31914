package export

import (
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/camera-db/internal/model"
)

// Attribute columns. dBASE field names are limited to 10 characters.
var shapeFields = []shp.Field{
	shp.NumberField("FLG", 6),
	shp.StringField("TYPE", 16),
	shp.NumberField("SPD", 4),
	shp.StringField("UNT", 4),
	shp.NumberField("DIR1", 4),
	shp.NumberField("DIR2", 4),
}

// WriteShapefile writes records as a point shapefile (.shp, .shx, .dbf).
func WriteShapefile(path string, records []model.Camera) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}

	writeErr := writeShapes(w, records)
	// Close flushes the shp, shx and dbf headers.
	w.Close()
	if writeErr != nil {
		return writeErr
	}

	// go-shp names the attribute table base+"dbf" without the dot.
	base := shapeBase(path)
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "export: place dbf for %s", path)
	}
	return nil
}

// shapeBase strips a .shp extension the way shp.Create does.
func shapeBase(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		return path[:len(path)-4]
	}
	return path
}

func writeShapes(w *shp.Writer, records []model.Camera) error {
	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}

	for _, c := range records {
		row := int(w.Write(&shp.Point{X: c.Lon, Y: c.Lat}))
		values := []any{int(c.Flags), c.Flags.String(), "", c.Unit, "", ""}
		if c.SpeedLimit != nil {
			values[2] = *c.SpeedLimit
			if c.Unit == "" {
				values[3] = "mph"
			}
		}
		for i, h := range c.Headings {
			if i >= 2 {
				break
			}
			values[4+i] = h
		}
		for field, v := range values {
			if s, ok := v.(string); ok && s == "" {
				continue
			}
			if err := w.WriteAttribute(row, field, v); err != nil {
				return eris.Wrapf(err, "export: write attribute %d of row %d", field, row)
			}
		}
	}
	return nil
}

// ReadShapefile reads a point shapefile written by WriteShapefile.
func ReadShapefile(path string) ([]model.Camera, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open shapefile %s", path)
	}
	defer func() { _ = r.Close() }()

	idx := make(map[string]int)
	for i, f := range r.Fields() {
		idx[strings.TrimRight(f.String(), "\x00")] = i
	}
	attr := func(name string) string {
		i, ok := idx[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(r.Attribute(i), "\x00"))
	}

	var out []model.Camera
	for r.Next() {
		_, shape := r.Shape()
		p, ok := shape.(*shp.Point)
		if !ok {
			continue
		}
		c := model.Camera{Lat: p.Y, Lon: p.X}
		if v, err := strconv.Atoi(attr("FLG")); err == nil {
			c.Flags = model.Flags(v)
		}
		if v, err := strconv.Atoi(attr("SPD")); err == nil {
			c.SpeedLimit = model.IntPtr(v)
			if u := attr("UNT"); u == model.UnitKMH {
				c.Unit = u
			}
		}
		for _, name := range []string{"DIR1", "DIR2"} {
			if v, err := strconv.Atoi(attr(name)); err == nil {
				c.Headings = append(c.Headings, v)
			}
		}
		out = append(out, c)
	}
	return out, nil
}
