package ensemble

import (
	"fmt"
	"sort"
	"time"
)

// TimeIndex selects the dates a summary table is reported on.
type TimeIndex string

const (
	TimeIndexRaw     TimeIndex = "raw" // every report step
	TimeIndexFirst   TimeIndex = "first"
	TimeIndexLast    TimeIndex = "last"
	TimeIndexDaily   TimeIndex = "daily"
	TimeIndexWeekly  TimeIndex = "weekly"
	TimeIndexMonthly TimeIndex = "monthly"
	TimeIndexYearly  TimeIndex = "yearly"
)

var validTimeIndices = map[TimeIndex]bool{
	TimeIndexRaw:     true,
	TimeIndexFirst:   true,
	TimeIndexLast:    true,
	TimeIndexDaily:   true,
	TimeIndexWeekly:  true,
	TimeIndexMonthly: true,
	TimeIndexYearly:  true,
	"":               true, // empty defaults to raw
}

// ParseTimeIndex validates a time index name.
func ParseTimeIndex(s string) (TimeIndex, error) {
	idx := TimeIndex(s)
	if !validTimeIndices[idx] {
		return "", fmt.Errorf("%w: %q", ErrUnknownTimeIndex, s)
	}
	if idx == "" {
		return TimeIndexRaw, nil
	}
	return idx, nil
}

// DateRange returns calendar-aligned dates covering [start, end]. The first
// date is start floored to the period, the last is the first period boundary
// at or after end. Raw returns nil.
func DateRange(start, end time.Time, idx TimeIndex) []time.Time {
	if end.Before(start) {
		start, end = end, start
	}
	switch idx {
	case TimeIndexFirst:
		return []time.Time{start}
	case TimeIndexLast:
		return []time.Time{end}
	case TimeIndexDaily, TimeIndexWeekly, TimeIndexMonthly, TimeIndexYearly:
	default:
		return nil
	}

	loc := start.Location()
	var cur time.Time
	var step func(time.Time) time.Time
	switch idx {
	case TimeIndexDaily:
		cur = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case TimeIndexWeekly:
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		offset := (int(day.Weekday()) + 6) % 7 // days since Monday
		cur = day.AddDate(0, 0, -offset)
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case TimeIndexMonthly:
		cur = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	case TimeIndexYearly:
		cur = time.Date(start.Year(), time.January, 1, 0, 0, 0, 0, loc)
		step = func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
	}

	dates := []time.Time{cur}
	for cur.Before(end) {
		cur = step(cur)
		dates = append(dates, cur)
	}
	return dates
}

// Resample returns t evaluated at dates. Cumulative vectors are interpolated
// linearly between the surrounding report steps. Rate vectors (isRate true)
// hold the value of the next report step at or after the date, since a rate
// is reported for the interval ending at its report step. Dates outside the
// reported range take the nearest report. A nil isRate means IsRateVector.
func Resample(t *Table, dates []time.Time, isRate func(string) bool) *Table {
	out := NewTable(dates)
	if t.Len() == 0 {
		return out
	}
	if isRate == nil {
		isRate = IsRateVector
	}

	// For each date: the first report at or after it, and, when the date
	// falls strictly between two reports, its fraction of the way from the
	// previous one.
	next := make([]int, len(dates))
	frac := make([]float64, len(dates))
	between := make([]bool, len(dates))
	last := len(t.Dates) - 1
	for i, d := range dates {
		j := sort.Search(len(t.Dates), func(k int) bool { return !t.Dates[k].Before(d) })
		switch {
		case j > last:
			j = last
		case j > 0 && !t.Dates[j].Equal(d):
			between[i] = true
			frac[i] = float64(d.Sub(t.Dates[j-1])) / float64(t.Dates[j].Sub(t.Dates[j-1]))
		}
		next[i] = j
	}

	for _, name := range t.Columns {
		src := t.values[name]
		rate := isRate(name)
		vals := make([]float64, len(dates))
		for i, j := range next {
			if rate || !between[i] {
				vals[i] = src[j]
				continue
			}
			vals[i] = src[j-1] + frac[i]*(src[j]-src[j-1])
		}
		_ = out.AddColumn(name, vals)
	}
	return out
}

// ResampleTo applies a time index to a raw report-step table. isRate is
// passed on to Resample.
func ResampleTo(t *Table, idx TimeIndex, isRate func(string) bool) *Table {
	if idx == TimeIndexRaw || idx == "" || t.Len() == 0 {
		return t
	}
	return Resample(t, DateRange(t.Dates[0], t.Dates[len(t.Dates)-1], idx), isRate)
}
