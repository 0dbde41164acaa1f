// Package testutil provides shared test infrastructure for the ensemble
// packages: realization directory builders, an instrumented in-memory
// summary reader and float assertion helpers.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// WriteFiles creates each file (slash-separated path relative to dir) with
// the given content, creating parent directories as needed.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
}

// RealizationDir creates root/realization-<index>/iter-0 with a STATUS file
// plus files, and returns its path.
func RealizationDir(t *testing.T, root string, index int, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, fmt.Sprintf("realization-%d", index), "iter-0")
	all := map[string]string{"STATUS": "FORWARD_MODEL OK\n"}
	for k, v := range files {
		all[k] = v
	}
	WriteFiles(t, dir, all)
	return dir
}

// FakeSummary is an in-memory summary file.
type FakeSummary struct {
	Dates   []time.Time
	Vectors map[string][]float64
}

// Keys lists vectors matching pattern ("" = all), sorted.
func (f *FakeSummary) Keys(pattern string) []string {
	var out []string
	for k := range f.Vectors {
		if pattern == "" {
			out = append(out, k)
			continue
		}
		if ok, _ := doublestar.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (f *FakeSummary) ReportValues(key string) ([]float64, error) {
	v, ok := f.Vectors[key]
	if !ok {
		return nil, fmt.Errorf("no vector %s", key)
	}
	return v, nil
}

func (f *FakeSummary) ReportDates() []time.Time { return f.Dates }

// SummaryOpener hands out Summary for every path and counts the calls.
type SummaryOpener struct {
	Summary *FakeSummary
	Err     error
	calls   atomic.Int64
	lastArg atomic.Value
}

// Open records the call and returns the configured summary or error.
func (o *SummaryOpener) Open(path string) (*FakeSummary, error) {
	o.calls.Add(1)
	o.lastArg.Store(path)
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Summary, nil
}

// Calls is the number of Open invocations so far.
func (o *SummaryOpener) Calls() int { return int(o.calls.Load()) }

// LastPath is the path passed to the latest Open call.
func (o *SummaryOpener) LastPath() string {
	s, _ := o.lastArg.Load().(string)
	return s
}

// Dates parses "2006-01-02" strings, failing the test on bad input.
func Dates(t *testing.T, days ...string) []time.Time {
	t.Helper()
	out := make([]time.Time, len(days))
	for i, d := range days {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			t.Fatalf("Failed to parse date %q: %v", d, err)
		}
		out[i] = parsed
	}
	return out
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
