package ensemble

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ScratchEnsemble is a named set of ScratchRealizations keyed by index.
type ScratchEnsemble struct {
	name  string
	cfg   EnsembleConfig
	log   logrus.FieldLogger
	reals map[int]*ScratchRealization
}

// NewScratchEnsemble builds an ensemble from every directory matching
// pathGlob (e.g. "/scratch/case/realization-*/iter-0"). Directories that are
// not valid realizations are logged and skipped. Fails with ErrNoRealizations
// if nothing valid remains.
func NewScratchEnsemble(name, pathGlob string, cfg EnsembleConfig) (*ScratchEnsemble, error) {
	cfg.Realization = cfg.Realization.withDefaults()
	e := &ScratchEnsemble{
		name:  name,
		cfg:   cfg,
		log:   cfg.Realization.Logger.WithField("ensemble", name),
		reals: make(map[int]*ScratchRealization),
	}
	if err := e.AddRealizations(pathGlob); err != nil {
		return nil, err
	}
	if len(e.reals) == 0 {
		return nil, fmt.Errorf("ensemble %s from %s: %w", name, pathGlob, ErrNoRealizations)
	}
	return e, nil
}

// AddRealizations adds every valid realization directory matching pathGlob.
// A realization index already present is kept and the newcomer skipped.
func (e *ScratchEnsemble) AddRealizations(pathGlob string) error {
	matches, err := doublestar.FilepathGlob(pathGlob)
	if err != nil {
		return fmt.Errorf("globbing %s: %w", pathGlob, err)
	}
	sort.Strings(matches)

	added := 0
	for _, path := range matches {
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			continue
		}
		rz, err := NewScratchRealization(path, e.cfg.Realization)
		if err != nil {
			e.log.WithError(err).Warn("skipping realization")
			continue
		}
		if _, dup := e.reals[rz.Index()]; dup {
			e.log.Warnf("realization %d already loaded, skipping %s", rz.Index(), path)
			continue
		}
		e.reals[rz.Index()] = rz
		added++
	}
	e.log.Infof("loaded %d realizations from %s", added, pathGlob)
	return nil
}

func (e *ScratchEnsemble) Name() string { return e.name }

func (e *ScratchEnsemble) Len() int { return len(e.reals) }

// Indices returns the realization indices in ascending order.
func (e *ScratchEnsemble) Indices() []int {
	out := make([]int, 0, len(e.reals))
	for i := range e.reals {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Realization returns the realization with the given index.
func (e *ScratchEnsemble) Realization(index int) (*ScratchRealization, bool) {
	r, ok := e.reals[index]
	return r, ok
}

// RemoveRealizations drops realizations by index. Unknown indices are ignored.
func (e *ScratchEnsemble) RemoveRealizations(indices ...int) {
	for _, i := range indices {
		delete(e.reals, i)
	}
}

// forEach runs fn on every realization, at most cfg.Concurrency at a time.
// Each realization is touched by exactly one goroutine.
func (e *ScratchEnsemble) forEach(ctx context.Context, fn func(*ScratchRealization) error) error {
	g, gctx := errgroup.WithContext(ctx)
	limit := e.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for _, idx := range e.Indices() {
		r := e.reals[idx]
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(r)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Parameters returns each realization's parameters. Realizations without a
// parameters file are left out.
func (e *ScratchEnsemble) Parameters() map[int]map[string]Value {
	out := make(map[int]map[string]Value, len(e.reals))
	for idx, r := range e.reals {
		params, err := r.Parameters()
		if err != nil {
			e.log.WithField("real", idx).WithError(err).Debug("no parameters")
			continue
		}
		out[idx] = params
	}
	return out
}

// Table collects an internalized table from every realization that has it.
func (e *ScratchEnsemble) Table(name string) map[int]*Table {
	out := make(map[int]*Table)
	for idx, r := range e.reals {
		if t, ok := r.Table(name); ok {
			out[idx] = t
		}
	}
	return out
}

// Scalars collects an internalized scalar from every realization that has it.
func (e *ScratchEnsemble) Scalars(name string) map[int]Value {
	out := make(map[int]Value)
	for idx, r := range e.reals {
		if v, ok := r.Scalar(name); ok {
			out[idx] = v
		}
	}
	return out
}

// Keys lists every data name internalized in at least one realization.
func (e *ScratchEnsemble) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range e.reals {
		for _, k := range r.Keys() {
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
func (e *ScratchEnsemble) Aggregate(name string, s Statistic) (*Table, error) {
	return Aggregate(e.Table(name), s)
}

// ToVirtual freezes every realization into a VirtualEnsemble of the same name.
func (e *ScratchEnsemble) ToVirtual() (*VirtualEnsemble, error) {
	reals := make([]*VirtualRealization, 0, len(e.reals))
	for _, idx := range e.Indices() {
		v, err := e.reals[idx].ToVirtual()
		if err != nil {
			return nil, fmt.Errorf("freezing realization %d: %w", idx, err)
		}
		reals = append(reals, v)
	}
	return NewVirtualEnsemble(e.name, reals...), nil
}
