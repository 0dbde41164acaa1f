package ensemble

import "sort"

// VirtualEnsemble is a named set of VirtualRealizations keyed by index.
type VirtualEnsemble struct {
	name  string
	reals map[int]*VirtualRealization
}

// NewVirtualEnsemble groups reals by their index. A later realization with
// an index already seen replaces the earlier one.
func NewVirtualEnsemble(name string, reals ...*VirtualRealization) *VirtualEnsemble {
	e := &VirtualEnsemble{name: name, reals: make(map[int]*VirtualRealization, len(reals))}
	for _, v := range reals {
		e.reals[v.Index()] = v
	}
	return e
}

func (e *VirtualEnsemble) Name() string { return e.name }

func (e *VirtualEnsemble) Len() int { return len(e.reals) }

// Indices returns the realization indices in ascending order.
func (e *VirtualEnsemble) Indices() []int {
	out := make([]int, 0, len(e.reals))
	for i := range e.reals {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (e *VirtualEnsemble) Realization(index int) (*VirtualRealization, bool) {
	v, ok := e.reals[index]
	return v, ok
}

// RemoveRealizations drops realizations by index. Unknown indices are ignored.
func (e *VirtualEnsemble) RemoveRealizations(indices ...int) {
	for _, i := range indices {
		delete(e.reals, i)
	}
}

// Parameters returns each realization's parameters. Realizations frozen
// without a parameters file are left out.
func (e *VirtualEnsemble) Parameters() map[int]map[string]Value {
	out := make(map[int]map[string]Value, len(e.reals))
	for idx, v := range e.reals {
		if _, ok := v.dicts[ParametersFile]; ok {
			out[idx] = v.Parameters()
		}
	}
	return out
}

// Table collects a copy of a table from every realization that has it.
func (e *VirtualEnsemble) Table(name string) map[int]*Table {
	out := make(map[int]*Table)
	for idx, v := range e.reals {
		if t, ok := v.Table(name); ok {
			out[idx] = t
		}
	}
	return out
}

// Scalars collects a scalar from every realization that has it.
func (e *VirtualEnsemble) Scalars(name string) map[int]Value {
	out := make(map[int]Value)
	for idx, v := range e.reals {
		if val, ok := v.Scalar(name); ok {
			out[idx] = val
		}
	}
	return out
}

// Keys lists every data name held by at least one realization.
func (e *VirtualEnsemble) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, v := range e.reals {
		for _, k := range v.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// Aggregate computes a per-date statistic across realizations for a table.
func (e *VirtualEnsemble) Aggregate(name string, s Statistic) (*Table, error) {
	return Aggregate(e.Table(name), s)
}
