package ensemble

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

// FindFiles walks the realization and registers every file whose path
// relative to the root matches pattern (doublestar syntax, slash separated).
// meta is attached to each new record. Returns the newly registered records
// sorted by local path.
func (r *ScratchRealization) FindFiles(pattern string, meta map[string]string) ([]FileRecord, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	var (
		mu      sync.Mutex
		matched []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, r.absPath, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.absPath, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := doublestar.Match(pattern, rel); ok {
			mu.Lock()
			matched = append(matched, rel)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", r.absPath, err)
	}

	sort.Strings(matched)
	var added []FileRecord
	for _, rel := range matched {
		rec := newFileRecord(r.absPath, rel, "")
		if len(meta) > 0 {
			rec.Meta = maps.Clone(meta)
		}
		if r.files.Add(rec) {
			added = append(added, rec)
		}
	}
	r.log.WithField("pattern", pattern).Debugf("registered %d files", len(added))
	return added, nil
}

// LoadScalar reads a file holding a single value, coerces it and keeps it
// under localPath.
func (r *ScratchRealization) LoadScalar(localPath string) (Value, error) {
	full := filepath.Join(r.absPath, filepath.FromSlash(localPath))
	data, err := os.ReadFile(full)
	if err != nil {
		return Value{}, fmt.Errorf("reading scalar %s: %w", localPath, err)
	}
	v := CoerceString(strings.TrimSpace(string(data)))
	r.files.Add(newFileRecord(r.absPath, localPath, ""))
	r.scalars[localPath] = v
	return v, nil
}

// LoadTxt reads a "key value" text file, coerces each value and keeps the
// mapping under localPath.
func (r *ScratchRealization) LoadTxt(localPath string) (map[string]Value, error) {
	full := filepath.Join(r.absPath, filepath.FromSlash(localPath))
	d, err := parseKeyValueFile(full, true)
	if err != nil {
		return nil, err
	}
	r.files.Add(newFileRecord(r.absPath, localPath, ""))
	r.dicts[localPath] = d
	return maps.Clone(d), nil
}
