package ensemble

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// EnsembleData is the read side shared by scratch, virtual and combined
// ensembles.
type EnsembleData interface {
	Indices() []int
	Keys() []string
	Table(name string) map[int]*Table
	Scalars(name string) map[int]Value
	Parameters() map[int]map[string]Value
}

var (
	_ EnsembleData = (*ScratchEnsemble)(nil)
	_ EnsembleData = (*VirtualEnsemble)(nil)
	_ EnsembleData = (*Combination)(nil)
)

// Term is one scaled ensemble in a Combination.
type Term struct {
	Scale    float64
	Ensemble EnsembleData
}

// Combination is a lazily evaluated linear combination of ensembles, e.g.
// ref - sub or 0.5 * ens. Realizations are matched by index and only those
// present in every term survive; within a table only the dates and columns
// shared by every term survive. Text values drop out.
//
// A Combination is itself EnsembleData, so combinations nest.
type Combination struct {
	terms []Term
}

// LinearCombination returns the sum of the scaled terms.
func LinearCombination(terms ...Term) *Combination {
	return &Combination{terms: append([]Term(nil), terms...)}
}

// Diff returns ref - sub.
func Diff(ref, sub EnsembleData) *Combination {
	return LinearCombination(Term{Scale: 1, Ensemble: ref}, Term{Scale: -1, Ensemble: sub})
}

// Scaled returns scale * e.
func Scaled(scale float64, e EnsembleData) *Combination {
	return LinearCombination(Term{Scale: scale, Ensemble: e})
}

// Plus returns c + scale * e, leaving c unchanged.
func (c *Combination) Plus(scale float64, e EnsembleData) *Combination {
	terms := append(append([]Term(nil), c.terms...), Term{Scale: scale, Ensemble: e})
	return &Combination{terms: terms}
}

// Indices returns the realization indices present in every term.
func (c *Combination) Indices() []int {
	var sets []map[int]bool
	for _, t := range c.terms {
		set := make(map[int]bool)
		for _, i := range t.Ensemble.Indices() {
			set[i] = true
		}
		sets = append(sets, set)
	}
	return sortedIntersection(sets)
}

// Keys lists the tables and scalars every term can combine.
func (c *Combination) Keys() []string {
	if len(c.terms) == 0 {
		return nil
	}
	count := make(map[string]int)
	for _, t := range c.terms {
		for _, k := range t.Ensemble.Keys() {
			count[k]++
		}
	}
	var keys []string
	for k, n := range count {
		if n == len(c.terms) && (len(c.Table(k)) > 0 || len(c.Scalars(k)) > 0) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Table combines a named table realization by realization.
func (c *Combination) Table(name string) map[int]*Table {
	if len(c.terms) == 0 {
		return map[int]*Table{}
	}
	perTerm := make([]map[int]*Table, len(c.terms))
	sets := make([]map[int]bool, len(c.terms))
	for i, t := range c.terms {
		perTerm[i] = t.Ensemble.Table(name)
		sets[i] = make(map[int]bool, len(perTerm[i]))
		for idx := range perTerm[i] {
			sets[i][idx] = true
		}
	}

	out := make(map[int]*Table)
	for _, idx := range sortedIntersection(sets) {
		tables := make([]*Table, len(c.terms))
		for i := range c.terms {
			tables[i] = perTerm[i][idx]
		}
		if combined := c.combineTables(tables); !combined.Empty() {
			out[idx] = combined
		}
	}
	return out
}

// combineTables sums the scaled tables over their shared dates and columns,
// in the order of the first table.
func (c *Combination) combineTables(tables []*Table) *Table {
	first := tables[0]
	rows := make([][]int, 0, first.Len())
	var dates = first.Dates[:0:0]
	for r, d := range first.Dates {
		row := []int{r}
		for _, t := range tables[1:] {
			j := t.RowIndex(d)
			if j < 0 {
				break
			}
			row = append(row, j)
		}
		if len(row) == len(tables) {
			rows = append(rows, row)
			dates = append(dates, d)
		}
	}

	out := NewTable(dates)
	for _, col := range first.Columns {
		cols := make([][]float64, len(tables))
		shared := true
		for i, t := range tables {
			v, ok := t.Column(col)
			if !ok {
				shared = false
				break
			}
			cols[i] = v
		}
		if !shared {
			continue
		}
		vals := make([]float64, len(rows))
		aligned := make([]float64, len(rows))
		for i := range tables {
			for r, row := range rows {
				aligned[r] = cols[i][row[i]]
			}
			floats.AddScaled(vals, c.terms[i].Scale, aligned)
		}
		_ = out.AddColumn(col, vals)
	}
	return out
}

// Scalars combines a named numeric scalar realization by realization.
func (c *Combination) Scalars(name string) map[int]Value {
	perTerm := make([]map[int]Value, len(c.terms))
	for i, t := range c.terms {
		perTerm[i] = t.Ensemble.Scalars(name)
	}
	out := make(map[int]Value)
	for _, idx := range c.Indices() {
		vals := make([]Value, len(c.terms))
		complete := true
		for i := range c.terms {
			v, ok := perTerm[i][idx]
			if !ok {
				complete = false
				break
			}
			vals[i] = v
		}
		if !complete {
			continue
		}
		if sum, ok := c.combineValues(vals); ok {
			out[idx] = sum
		}
	}
	return out
}

// Parameters combines the numeric parameters shared by every term.
func (c *Combination) Parameters() map[int]map[string]Value {
	perTerm := make([]map[int]map[string]Value, len(c.terms))
	for i, t := range c.terms {
		perTerm[i] = t.Ensemble.Parameters()
	}
	out := make(map[int]map[string]Value)
	for _, idx := range c.Indices() {
		params := make([]map[string]Value, len(c.terms))
		complete := true
		for i := range c.terms {
			p, ok := perTerm[i][idx]
			if !ok {
				complete = false
				break
			}
			params[i] = p
		}
		if !complete {
			continue
		}
		combined := make(map[string]Value)
		for key := range params[0] {
			vals := make([]Value, len(params))
			for i, p := range params {
				v, ok := p[key]
				if !ok {
					vals = nil
					break
				}
				vals[i] = v
			}
			if vals == nil {
				continue
			}
			if sum, ok := c.combineValues(vals); ok {
				combined[key] = sum
			}
		}
		out[idx] = combined
	}
	return out
}

// combineValues returns the scaled sum of vals, coerced so whole results
// are integers. Any text value makes the combination undefined.
func (c *Combination) combineValues(vals []Value) (Value, bool) {
	var sum float64
	for i, v := range vals {
		f, ok := v.Float64()
		if !ok {
			return Value{}, false
		}
		sum += c.terms[i].Scale * f
	}
	return Coerce(sum), true
}

// ToVirtual evaluates the combination once and freezes the result.
func (c *Combination) ToVirtual(name string) *VirtualEnsemble {
	indices := c.Indices()
	opts := make(map[int][]VirtualOption, len(indices))
	for _, idx := range indices {
		opts[idx] = []VirtualOption{WithIndex(idx), WithDescription("linear combination")}
	}
	for idx, params := range c.Parameters() {
		opts[idx] = append(opts[idx], WithParameters(params))
	}
	for _, key := range c.Keys() {
		for idx, t := range c.Table(key) {
			opts[idx] = append(opts[idx], WithTable(key, t))
		}
		for idx, v := range c.Scalars(key) {
			opts[idx] = append(opts[idx], WithScalar(key, v))
		}
	}

	reals := make([]*VirtualRealization, 0, len(indices))
	for _, idx := range indices {
		reals = append(reals, NewVirtualRealization(opts[idx]...))
	}
	return NewVirtualEnsemble(name, reals...)
}

// sortedIntersection returns the ascending keys present in every set.
func sortedIntersection(sets []map[int]bool) []int {
	if len(sets) == 0 {
		return nil
	}
	var out []int
	for k := range sets[0] {
		all := true
		for _, s := range sets[1:] {
			if !s[k] {
				all = false
				break
			}
		}
		if all {
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}
