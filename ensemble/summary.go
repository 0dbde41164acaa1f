package ensemble

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// SummaryReader is a decoded binary summary file. Implementations live
// outside this package; the realization only asks for keys, report-step
// values and report dates.
type SummaryReader interface {
	// Keys lists vector names matching a wildcard pattern ("" = all vectors).
	Keys(pattern string) []string
	// ReportValues returns a vector's values at report steps only.
	ReportValues(key string) ([]float64, error)
	// ReportDates returns the dates of the report steps.
	ReportDates() []time.Time
}

// RateClassifier is implemented by summary readers that know which vectors
// are rates. Readers without it fall back to IsRateVector.
type RateClassifier interface {
	IsRate(key string) bool
}

// rateVariables are the variable names (without the leading F/G/W/C/R/B
// category letter) reported as rates over the preceding interval.
var rateVariables = map[string]bool{
	"OPR": true, "GPR": true, "WPR": true, "LPR": true, "NPR": true, "VPR": true, "CPR": true,
	"OIR": true, "GIR": true, "WIR": true, "LIR": true, "VIR": true, "CIR": true,
	"OPRF": true, "OPRS": true, "GPRF": true, "GPRS": true, "GLIR": true,
	"WCT": true, "GOR": true, "OGR": true, "WGR": true, "GLR": true,
}

// IsRateVector guesses from its name whether a summary vector is a rate,
// e.g. FOPR, WWIR:OP_1 or GWCT:G1. Totals such as FOPT are not.
func IsRateVector(key string) bool {
	name, _, _ := strings.Cut(key, ":")
	if len(name) < 2 {
		return false
	}
	v := name[1:]
	if rateVariables[v] {
		return true
	}
	// Bare "PR" is pressure (FPR, RPR), not a rate.
	return len(v) > 2 && (strings.HasSuffix(v, "PR") || strings.HasSuffix(v, "IR"))
}

// rateFunc returns the reader's rate classification, or nil for the default.
func rateFunc(r SummaryReader) func(string) bool {
	if rc, ok := r.(RateClassifier); ok {
		return rc.IsRate
	}
	return nil
}

// SummaryOpener decodes the summary file at path.
type SummaryOpener func(path string) (SummaryReader, error)

// NewSummaryReaderFunc is the fallback decoder used when a RealizationConfig
// carries no OpenSummary. Decoder packages set it from an init() function.
var NewSummaryReaderFunc SummaryOpener

// MatchVector reports whether a vector name matches a wildcard pattern.
// The empty pattern and "*" match everything. Malformed patterns match nothing.
func MatchVector(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

// resolveVectors returns the sorted union of keys matching any pattern.
func resolveVectors(r SummaryReader, patterns []string) []string {
	if len(patterns) == 0 {
		patterns = []string{""}
	}
	seen := make(map[string]bool)
	var keys []string
	for _, p := range patterns {
		for _, k := range r.Keys(p) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// summaryTable assembles report-step values for keys into a date-indexed table.
func summaryTable(r SummaryReader, keys []string) (*Table, error) {
	if len(keys) == 0 {
		return NewTable(nil), nil
	}
	t := NewTable(r.ReportDates())
	for _, k := range keys {
		vals, err := r.ReportValues(k)
		if err != nil {
			return nil, fmt.Errorf("reading summary vector %s: %w", k, err)
		}
		if err := t.AddColumn(k, vals); err != nil {
			return nil, err
		}
	}
	return t, nil
}
