package ensemble

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistic names a cross-realization aggregation.
type Statistic string

const (
	StatMean Statistic = "mean"
	StatStd  Statistic = "std"
	StatMin  Statistic = "min"
	StatMax  Statistic = "max"
	StatP10  Statistic = "p10" // 10th percentile
	StatP50  Statistic = "p50"
	StatP90  Statistic = "p90" // 90th percentile
)

// statFuncs take a sorted, non-empty sample.
var statFuncs = map[Statistic]func([]float64) float64{
	StatMean: func(x []float64) float64 { return stat.Mean(x, nil) },
	StatStd: func(x []float64) float64 {
		if len(x) < 2 {
			return 0
		}
		return stat.StdDev(x, nil)
	},
	StatMin: floats.Min,
	StatMax: floats.Max,
	StatP10: func(x []float64) float64 { return stat.Quantile(0.10, stat.Empirical, x, nil) },
	StatP50: func(x []float64) float64 { return stat.Quantile(0.50, stat.Empirical, x, nil) },
	StatP90: func(x []float64) float64 { return stat.Quantile(0.90, stat.Empirical, x, nil) },
}

// Aggregate computes s per date and column across tables. Rows are the union
// of all dates, columns the union of all columns. Cells no realization
// provides are NaN.
func Aggregate(tables map[int]*Table, s Statistic) (*Table, error) {
	fn, ok := statFuncs[s]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatistic, s)
	}

	dates, columns := unionIndex(tables)
	out := NewTable(dates)
	sample := make([]float64, 0, len(tables))
	for _, col := range columns {
		vals := make([]float64, len(dates))
		for i, d := range dates {
			sample = sample[:0]
			for _, t := range tables {
				src, ok := t.Column(col)
				if !ok {
					continue
				}
				if row := t.RowIndex(d); row >= 0 && !math.IsNaN(src[row]) {
					sample = append(sample, src[row])
				}
			}
			if len(sample) == 0 {
				vals[i] = math.NaN()
				continue
			}
			sort.Float64s(sample)
			vals[i] = fn(sample)
		}
		if err := out.AddColumn(col, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// dateKey normalizes d for use as a map key: UTC, no monotonic reading.
func dateKey(d time.Time) time.Time { return d.UTC() }

func unionIndex(tables map[int]*Table) ([]time.Time, []string) {
	seenDate := make(map[time.Time]time.Time)
	seenCol := make(map[string]bool)
	for _, t := range tables {
		for _, d := range t.Dates {
			seenDate[dateKey(d)] = d
		}
		for _, c := range t.Columns {
			seenCol[c] = true
		}
	}
	dates := make([]time.Time, 0, len(seenDate))
	for _, d := range seenDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	columns := make([]string, 0, len(seenCol))
	for c := range seenCol {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return dates, columns
}
