package ensemble

import (
	"fmt"
	"sort"
	"time"
)

// Table is a set of float columns sharing one ascending date index.
type Table struct {
	Dates   []time.Time
	Columns []string
	values  map[string][]float64
}

// NewTable returns a table with the given date index and no columns.
func NewTable(dates []time.Time) *Table {
	d := make([]time.Time, len(dates))
	copy(d, dates)
	return &Table{Dates: d, values: make(map[string][]float64)}
}

// AddColumn adds or replaces a column. The column length must match the index.
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) != len(t.Dates) {
		return fmt.Errorf("column %s has %d values, index has %d dates", name, len(values), len(t.Dates))
	}
	if _, ok := t.values[name]; !ok {
		t.Columns = append(t.Columns, name)
	}
	v := make([]float64, len(values))
	copy(v, values)
	t.values[name] = v
	return nil
}

// DropColumn removes a column if present.
func (t *Table) DropColumn(name string) {
	if _, ok := t.values[name]; !ok {
		return
	}
	delete(t.values, name)
	for i, c := range t.Columns {
		if c == name {
			t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
			break
		}
	}
}

// Column returns the values of a column.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.values[name]
	return v, ok
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.values[name]
	return ok
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.Dates) }

// Empty reports whether the table has no rows or no columns.
func (t *Table) Empty() bool { return t == nil || len(t.Dates) == 0 || len(t.Columns) == 0 }

// RowIndex returns the row holding date, or -1.
func (t *Table) RowIndex(date time.Time) int {
	i := sort.Search(len(t.Dates), func(i int) bool { return !t.Dates[i].Before(date) })
	if i < len(t.Dates) && t.Dates[i].Equal(date) {
		return i
	}
	return -1
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := NewTable(t.Dates)
	for _, name := range t.Columns {
		_ = c.AddColumn(name, t.values[name])
	}
	return c
}
