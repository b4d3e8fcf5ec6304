package artifacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ErrMissingColumn is returned when a required column is absent from a header
var ErrMissingColumn = errors.New("missing column")

// WriteTable writes header and rows to path atomically (temp file + rename)
func WriteTable(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Record is one CSV row addressed by column name
type Record struct {
	index  map[string]int
	fields []string
	line   int
}

// ReadTable reads a header-first CSV file and requires the given columns
func ReadTable(path string, required ...string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file: %w", path, ErrMissingColumn)
		}
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: %q: %w", path, col, ErrMissingColumn)
		}
	}

	var out []Record
	for line := 2; ; line++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, Record{index: index, fields: fields, line: line})
	}
	return out, nil
}

// Has reports whether the column is present and non-empty
func (r Record) Has(col string) bool {
	return r.Str(col) != ""
}

// Str returns the trimmed value of col ("" when absent)
func (r Record) Str(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// Int parses col as an integer code. "123.0" is accepted.
func (r Record) Int(col string) (int64, error) {
	v := r.Str(col)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s=%q: %w", r.line, col, v, err)
	}
	return int64(f), nil
}

// Float parses col ("" is 0)
func (r Record) Float(col string) (float64, error) {
	v := r.Str(col)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s=%q: %w", r.line, col, v, err)
	}
	return f, nil
}

// Date parses col as a calendar date; a trailing time part is dropped
func (r Record) Date(col string) (time.Time, error) {
	v := r.Str(col)
	if len(v) >= len(dateLayout) {
		v = v[:len(dateLayout)]
	}
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("line %d: %s=%q: %w", r.line, col, v, err)
	}
	return d, nil
}

// OptDate parses col, returning nil for an empty value
func (r Record) OptDate(col string) (*time.Time, error) {
	if !r.Has(col) {
		return nil, nil
	}
	d, err := r.Date(col)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// decoder accumulates the first parse error so row decoders stay linear
type decoder struct {
	rec Record
	err error
}

func (d *decoder) int(col string) int64 {
	v, err := d.rec.Int(col)
	if d.err == nil {
		d.err = err
	}
	return v
}

func (d *decoder) float(col string) float64 {
	v, err := d.rec.Float(col)
	if d.err == nil {
		d.err = err
	}
	return v
}

func (d *decoder) date(col string) time.Time {
	v, err := d.rec.Date(col)
	if d.err == nil {
		d.err = err
	}
	return v
}

func (d *decoder) optDate(col string) *time.Time {
	v, err := d.rec.OptDate(col)
	if d.err == nil {
		d.err = err
	}
	return v
}

func (d *decoder) str(col string) string {
	return d.rec.Str(col)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatOptDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}
