package ensemble

import (
	"maps"
	"sort"
)

// VirtualRealization is a computed or archived realization. It holds its
// tables outright and never reads the filesystem on its own; the source path
// is provenance only.
type VirtualRealization struct {
	description string
	sourcePath  string
	index       int
	files       *FileRegistry

	scalars map[string]Value
	dicts   map[string]map[string]Value
	tables  map[string]*Table
}

// VirtualOption configures NewVirtualRealization.
type VirtualOption func(*VirtualRealization)

// WithDescription sets the free-text description.
func WithDescription(desc string) VirtualOption {
	return func(v *VirtualRealization) { v.description = desc }
}

// WithSourcePath records where the data originally came from.
func WithSourcePath(path string) VirtualOption {
	return func(v *VirtualRealization) { v.sourcePath = path }
}

func WithIndex(index int) VirtualOption {
	return func(v *VirtualRealization) { v.index = index }
}

// WithFiles registers copies of recs, e.g. the registry of the realization
// the data was frozen from.
func WithFiles(recs []FileRecord) VirtualOption {
	return func(v *VirtualRealization) {
		for _, rec := range recs {
			v.files.Add(rec.clone())
		}
	}
}

// WithParameters sets the parameter mapping (the parameters.txt dict).
func WithParameters(params map[string]Value) VirtualOption {
	return WithDict(ParametersFile, params)
}

// WithDict adds a key-value mapping under name.
func WithDict(name string, d map[string]Value) VirtualOption {
	return func(v *VirtualRealization) { v.dicts[name] = maps.Clone(d) }
}

// WithScalar adds a scalar under name.
func WithScalar(name string, val Value) VirtualOption {
	return func(v *VirtualRealization) { v.scalars[name] = val }
}

// WithTable adds a copy of t under name. A nil table is ignored.
func WithTable(name string, t *Table) VirtualOption {
	return func(v *VirtualRealization) {
		if t != nil {
			v.tables[name] = t.Clone()
		}
	}
}

// NewVirtualRealization builds a detached realization. The description
// defaults to the empty string and the index to 0.
func NewVirtualRealization(opts ...VirtualOption) *VirtualRealization {
	v := &VirtualRealization{
		files:   NewFileRegistry(),
		scalars: make(map[string]Value),
		dicts:   make(map[string]map[string]Value),
		tables:  make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *VirtualRealization) Description() string { return v.description }
func (v *VirtualRealization) SourcePath() string  { return v.sourcePath }
func (v *VirtualRealization) Index() int          { return v.index }

// Files returns the file registry carried over from disk. The paths are
// provenance only. Callers must not modify it.
func (v *VirtualRealization) Files() *FileRegistry { return v.files }

// Parameters returns a copy of the parameter mapping, empty if none was set.
func (v *VirtualRealization) Parameters() map[string]Value {
	if p, ok := v.dicts[ParametersFile]; ok {
		return maps.Clone(p)
	}
	return make(map[string]Value)
}

// Table returns a copy of a held table.
func (v *VirtualRealization) Table(name string) (*Table, bool) {
	t, ok := v.tables[name]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

func (v *VirtualRealization) Scalar(name string) (Value, bool) {
	val, ok := v.scalars[name]
	return val, ok
}

func (v *VirtualRealization) Dict(name string) (map[string]Value, bool) {
	d, ok := v.dicts[name]
	if !ok {
		return nil, false
	}
	return maps.Clone(d), true
}

// SetTable adds or replaces a table with a copy of t. A nil table removes it.
func (v *VirtualRealization) SetTable(name string, t *Table) {
	if t == nil {
		delete(v.tables, name)
		return
	}
	v.tables[name] = t.Clone()
}

// SetScalar adds or replaces a scalar.
func (v *VirtualRealization) SetScalar(name string, val Value) { v.scalars[name] = val }

// Keys lists the names of all held data, sorted.
func (v *VirtualRealization) Keys() []string {
	return sortedKeys(v.scalars, v.dicts, v.tables)
}

func sortedKeys(scalars map[string]Value, dicts map[string]map[string]Value, tables map[string]*Table) []string {
	seen := make(map[string]bool, len(scalars)+len(dicts)+len(tables))
	for k := range scalars {
		seen[k] = true
	}
	for k := range dicts {
		seen[k] = true
	}
	for k := range tables {
		seen[k] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
