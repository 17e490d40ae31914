// Package dbfile writes and reads the line-oriented camera database the
// firmware streams: one minified JSON object per line, optionally led by a
// "_meta" line.
package dbfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/camera-db/internal/model"
)

// ErrEmpty is returned when there are no records to write. No file is
// created or replaced.
var ErrEmpty = eris.New("dbfile: no records to write")

// MetaKey is the key of the optional leading metadata object.
const MetaKey = "_meta"

// WriteError is a failure creating, writing or committing a database file.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("dbfile: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Meta is the leading metadata line.
type Meta struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	Count  int    `json:"count"`
	Source string `json:"source"`
}

// Options configures Write.
type Options struct {
	Meta   bool   // emit the _meta line
	Name   string // _meta name
	Source string // _meta source
	Now    func() time.Time
}

// Summary describes a written database.
type Summary struct {
	Path    string              `json:"path"`
	Records int                 `json:"records"`
	ByFlags map[model.Flags]int `json:"by_flags"`
	Bytes   int64               `json:"bytes"`
}

// Write serializes records to path atomically: the file is staged in the
// same directory and renamed into place, so readers see either the previous
// database or the complete new one.
func Write(path string, records []model.Camera, opts Options) (*Summary, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	body, byFlags, err := Encode(records, opts)
	if err != nil {
		return nil, &WriteError{Path: path, Op: "encode", Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &WriteError{Path: path, Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, &WriteError{Path: path, Op: "create", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return nil, &WriteError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, &WriteError{Path: path, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &WriteError{Path: path, Op: "close", Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return nil, &WriteError{Path: path, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, &WriteError{Path: path, Op: "rename", Err: err}
	}

	return &Summary{
		Path:    path,
		Records: len(records),
		ByFlags: byFlags,
		Bytes:   int64(len(body)),
	}, nil
}

// Encode renders the database body and the per-flag record counts.
func Encode(records []model.Camera, opts Options) ([]byte, map[model.Flags]int, error) {
	var buf bytes.Buffer
	if opts.Meta {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		line, err := json.Marshal(map[string]Meta{MetaKey: {
			Name:   opts.Name,
			Date:   now().Format("2006-01-02"),
			Count:  len(records),
			Source: opts.Source,
		}})
		if err != nil {
			return nil, nil, eris.Wrap(err, "marshal meta")
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	byFlags := make(map[model.Flags]int)
	for i, c := range records {
		line, err := json.Marshal(c)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "marshal record %d", i)
		}
		buf.Write(line)
		buf.WriteByte('\n')
		byFlags[c.Flags]++
	}
	return buf.Bytes(), byFlags, nil
}

// ReadStats counts lines Read could not use.
type ReadStats struct {
	Lines   int
	Meta    int
	Skipped int
}

// Read parses a database the way the firmware does: the _meta line and
// any unparseable or invalid line are skipped.
func Read(r io.Reader) ([]model.Camera, ReadStats, error) {
	var (
		out []model.Camera
		st  ReadStats
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		st.Lines++
		if bytes.Contains(line, []byte(`"`+MetaKey+`"`)) {
			st.Meta++
			continue
		}
		var c model.Camera
		if err := json.Unmarshal(line, &c); err != nil || !c.Valid() {
			st.Skipped++
			continue
		}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, st, eris.Wrap(err, "dbfile: read")
	}
	return out, st, nil
}

// ReadFile opens and reads the database at path.
func ReadFile(path string) ([]model.Camera, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, eris.Wrapf(err, "dbfile: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return Read(f)
}
