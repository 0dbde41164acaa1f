// Package smrycsv reads summary data exported to CSV: a DATE column followed
// by one column per vector, one row per report step.
package smrycsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/asnyv/fmu-ensemble/ensemble"
)

// dateLayouts are tried in order when parsing the DATE column.
var dateLayouts = []string{"2006-01-02", time.RFC3339Nano, "2006-01-02 15:04:05"}

// Reader holds a fully decoded summary CSV.
type Reader struct {
	dates   []time.Time
	keys    []string
	vectors map[string][]float64
}

// Open reads and decodes the CSV at path.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary csv: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Parse(file)
}

// Parse decodes summary CSV from r.
func Parse(r io.Reader) (*Reader, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) == 0 || !strings.EqualFold(header[0], "DATE") {
		return nil, fmt.Errorf("first CSV column must be DATE, got %v", header)
	}
	keys := header[1:]

	out := &Reader{keys: keys, vectors: make(map[string][]float64, len(keys))}
	for rowIdx := 1; ; rowIdx++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", rowIdx, err)
		}
		d, err := parseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowIdx, err)
		}
		out.dates = append(out.dates, d)
		for j, key := range keys {
			f, err := strconv.ParseFloat(strings.TrimSpace(row[j+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, vector %s: %w", rowIdx, key, err)
			}
			out.vectors[key] = append(out.vectors[key], f)
		}
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// Keys lists vector names matching a wildcard pattern ("" = all), sorted.
func (r *Reader) Keys(pattern string) []string {
	var out []string
	for _, k := range r.keys {
		if ensemble.MatchVector(pattern, k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// ReportValues returns a copy of a vector's values.
func (r *Reader) ReportValues(key string) ([]float64, error) {
	v, ok := r.vectors[key]
	if !ok {
		return nil, fmt.Errorf("unknown summary vector %s", key)
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out, nil
}

// ReportDates returns a copy of the report dates.
func (r *Reader) ReportDates() []time.Time {
	out := make([]time.Time, len(r.dates))
	copy(out, r.dates)
	return out
}
