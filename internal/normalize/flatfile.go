package normalize

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/camera-db/internal/model"
)

// DefaultCharset is assumed for flat files that are not valid UTF-8.
const DefaultCharset = "windows-1252"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FlatFile normalizes delimited POI text: longitude, latitude, then an
// optional free-text name that may embed the speed limit.
type FlatFile struct {
	source  string
	charset string
	policy  FlagPolicy
}

// NewFlatFile returns a flat-file normalizer. A nil policy defaults to
// CategoryPolicy; an empty charset to DefaultCharset.
func NewFlatFile(source, charset string, policy FlagPolicy) *FlatFile {
	if policy == nil {
		policy = CategoryPolicy{}
	}
	if charset == "" {
		charset = DefaultCharset
	}
	return &FlatFile{source: source, charset: charset, policy: policy}
}

// decode returns body as UTF-8. Valid UTF-8 passes through unchanged.
func (f *FlatFile) decode(body []byte) ([]byte, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	if utf8.Valid(body) {
		return body, nil
	}
	enc, err := htmlindex.Get(f.charset)
	if err != nil {
		return nil, eris.Wrapf(err, "flatfile: unsupported charset %q", f.charset)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedPayload, "flatfile: decode %s: %v", f.charset, err)
	}
	return out, nil
}

// Normalize implements Normalizer.
func (f *FlatFile) Normalize(body []byte, cat model.Category) ([]model.Camera, Stats, error) {
	var st Stats

	text, err := f.decode(body)
	if err != nil {
		return nil, st, err
	}

	var out []model.Camera
	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		st.Elements++

		fields, err := splitRow(line)
		if err != nil {
			st.Malformed++
			continue
		}
		if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
			st.MissingCoords++
			continue
		}

		lon, errLon := strconv.ParseFloat(fields[0], 64)
		lat, errLat := strconv.ParseFloat(fields[1], 64)
		if errLon != nil || errLat != nil {
			st.Malformed++
			continue
		}

		name := ""
		if len(fields) > 2 {
			name = strings.TrimSpace(strings.Join(fields[2:], ","))
		}
		tags := map[string]string{"name": name}

		c := model.Camera{
			Lat:        lat,
			Lon:        lon,
			Flags:      f.policy.Flags(tags, cat),
			Provenance: f.source,
		}
		if sp, ok := ParseSpeedText(name); ok {
			c.SpeedLimit = model.IntPtr(sp.Value)
			c.Unit = sp.Unit
		}
		out = accept(out, &st, c)
	}
	if err := sc.Err(); err != nil {
		return nil, st, eris.Wrapf(ErrMalformedPayload, "flatfile: scan: %v", err)
	}
	return out, st, nil
}

// splitRow parses one delimited line, tolerating stray quotes and a name
// column that contains unquoted commas.
func splitRow(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return nil, err
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}
