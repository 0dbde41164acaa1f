package ensemble

import (
	"context"
	"fmt"
	"sort"
)

// BatchStep names one realization operation and its keyword arguments, e.g.
//
//	BatchStep{Op: "load_smry", Args: map[string]any{"column_keys": "FOPT", "time_index": "yearly"}}
type BatchStep struct {
	Op   string
	Args map[string]any
}

// batchOp parses a step's arguments once and returns the per-realization work.
type batchOp func(args map[string]any) (func(*ScratchRealization) error, error)

var batchOps = map[string]batchOp{
	"load_scalar": func(args map[string]any) (func(*ScratchRealization) error, error) {
		localPath, err := stringArg(args, "localpath")
		if err != nil {
			return nil, err
		}
		return func(r *ScratchRealization) error {
			_, err := r.LoadScalar(localPath)
			return err
		}, nil
	},
	"load_txt": func(args map[string]any) (func(*ScratchRealization) error, error) {
		localPath, err := stringArg(args, "localpath")
		if err != nil {
			return nil, err
		}
		return func(r *ScratchRealization) error {
			_, err := r.LoadTxt(localPath)
			return err
		}, nil
	},
	"load_smry": func(args map[string]any) (func(*ScratchRealization) error, error) {
		keys, err := stringsArg(args, "column_keys")
		if err != nil {
			return nil, err
		}
		name, _ := args["time_index"].(string)
		idx, err := ParseTimeIndex(name)
		if err != nil {
			return nil, err
		}
		opts := LoadSummaryOptions{ColumnKeys: keys, TimeIndex: idx}
		return func(r *ScratchRealization) error {
			_, err := r.LoadSummary(opts)
			return err
		}, nil
	},
	"find_files": func(args map[string]any) (func(*ScratchRealization) error, error) {
		pattern, err := stringArg(args, "pattern")
		if err != nil {
			return nil, err
		}
		var meta map[string]string
		if m, ok := args["metadata"].(map[string]string); ok {
			meta = m
		}
		return func(r *ScratchRealization) error {
			_, err := r.FindFiles(pattern, meta)
			return err
		}, nil
	},
}

// BatchOps lists the operation names ProcessBatch accepts.
func BatchOps() []string {
	names := make([]string, 0, len(batchOps))
	for name := range batchOps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProcessBatch runs steps in order over every realization. All steps are
// validated before any runs. A step failing on one realization is logged and
// the realization skipped; only cancellation of ctx aborts the batch.
func (e *ScratchEnsemble) ProcessBatch(ctx context.Context, steps []BatchStep) error {
	work := make([]func(*ScratchRealization) error, len(steps))
	for i, step := range steps {
		op, ok := batchOps[step.Op]
		if !ok {
			return fmt.Errorf("step %d: %w: %q", i, ErrUnknownBatchOp, step.Op)
		}
		fn, err := op(step.Args)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		work[i] = fn
	}

	for i, step := range steps {
		log := e.log.WithField("op", step.Op)
		log.Debug("running batch step")
		fn := work[i]
		err := e.forEach(ctx, func(r *ScratchRealization) error {
			if err := fn(r); err != nil {
				entry := log.WithField("real", r.Index()).WithError(err)
				if notExist(err) {
					entry.Debug("optional data missing, skipping")
				} else {
					entry.Warn("batch step failed, skipping")
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("batch step %s: %w", step.Op, err)
		}
	}
	return nil
}

// Apply runs fn over every realization with the ensemble's concurrency.
// The first error cancels the remaining work and is returned.
func (e *ScratchEnsemble) Apply(ctx context.Context, fn func(*ScratchRealization) error) error {
	return e.forEach(ctx, fn)
}

func stringArg(args map[string]any, key string) (string, error) {
	s, ok := args[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidBatchArgs, key)
	}
	return s, nil
}

// stringsArg accepts a string, []string or []any of strings. Missing means nil.
func stringsArg(args map[string]any, key string) ([]string, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must hold strings, got %T", ErrInvalidBatchArgs, key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a string or list, got %T", ErrInvalidBatchArgs, key, v)
	}
}
