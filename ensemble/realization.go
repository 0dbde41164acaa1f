package ensemble

import (
	"bufio"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
)

// ScratchRealization is a realization whose results are still on disk.
//
// Construction only discovers files; contents are read on demand and the
// decoded summary is cached for the lifetime of the instance. A realization
// is owned by one worker at a time and is not safe for concurrent use.
type ScratchRealization struct {
	index   int
	absPath string
	files   *FileRegistry
	cfg     RealizationConfig
	log     logrus.FieldLogger

	parameters map[string]Value // Parameters() cache
	summary    SummaryReader    // nil until the first successful decode

	// Data loaded through LoadScalar, LoadTxt and LoadSummary, keyed by name.
	scalars map[string]Value
	dicts   map[string]map[string]Value
	tables  map[string]*Table
}

// NewScratchRealization binds to the realization directory at path.
// It fails with ErrUnidentifiableIndex if cfg.IndexPattern does not yield an
// integer from the absolute path, and with ErrMissingStatus if the directory
// has no STATUS file. jobs.json and parameters.txt are registered when present.
func NewScratchRealization(path string, cfg RealizationConfig) (*ScratchRealization, error) {
	cfg = cfg.withDefaults()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving realization path %s: %w", path, err)
	}
	log := cfg.Logger.WithField("path", absPath)

	m := cfg.IndexPattern.FindStringSubmatch(absPath)
	if len(m) < 2 {
		log.Warn("realization not valid, skipping")
		return nil, fmt.Errorf("%s: %w", absPath, ErrUnidentifiableIndex)
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		log.Warnf("realization index %q is not an integer", m[1])
		return nil, fmt.Errorf("%s: %w", absPath, ErrUnidentifiableIndex)
	}

	r := &ScratchRealization{
		index:   index,
		absPath: absPath,
		files:   NewFileRegistry(),
		cfg:     cfg,
		log:     log.WithField("real", index),
		scalars: make(map[string]Value),
		dicts:   make(map[string]map[string]Value),
		tables:  make(map[string]*Table),
	}

	if !isFile(filepath.Join(absPath, StatusFile)) {
		log.Warn("invalid realization, no STATUS file")
		return nil, fmt.Errorf("%s: %w", absPath, ErrMissingStatus)
	}
	r.files.Add(newFileRecord(absPath, StatusFile, FileTypeStatus))

	for _, name := range []string{JobsFile, ParametersFile} {
		if isFile(filepath.Join(absPath, name)) {
			r.files.Add(newFileRecord(absPath, name, ""))
		}
	}
	r.log.Debugf("discovered %d files", r.files.Len())
	return r, nil
}

func (r *ScratchRealization) Index() int { return r.index }

// Path returns the absolute realization root.
func (r *ScratchRealization) Path() string { return r.absPath }

// Files returns the file registry. Callers must not modify it.
func (r *ScratchRealization) Files() *FileRegistry { return r.files }

// GetParameters reads parameters.txt into a map. With coerce set, each value
// goes through CoerceString; otherwise all values are text.
func (r *ScratchRealization) GetParameters(coerce bool) (map[string]Value, error) {
	rec, ok := r.files.ByLocalPath(ParametersFile)
	if !ok {
		return nil, fmt.Errorf("realization %d: %w", r.index, ErrNoParametersFile)
	}
	return parseKeyValueFile(rec.FullPath, coerce)
}

// Parameters is GetParameters(true), cached after the first successful read.
func (r *ScratchRealization) Parameters() (map[string]Value, error) {
	if r.parameters == nil {
		params, err := r.GetParameters(true)
		if err != nil {
			return nil, err
		}
		r.parameters = params
	}
	return maps.Clone(r.parameters), nil
}

// SummaryHandle returns the decoded summary file, decoding it on first use.
//
// A single registered UNSMRY file is preferred; otherwise the first match of
// the summary glob wins, even when several files match. When no file is found
// it returns (nil, nil) and caches nothing, so a later call may succeed.
func (r *ScratchRealization) SummaryHandle() (SummaryReader, error) {
	if r.summary != nil {
		return r.summary, nil
	}

	path, err := r.summaryPath()
	if err != nil {
		return nil, err
	}
	if path == "" || !isFile(path) {
		r.log.Debug("no summary file")
		return nil, nil
	}

	open := r.cfg.opener()
	if open == nil {
		return nil, fmt.Errorf("decoding %s: %w", path, ErrNoSummaryReader)
	}
	reader, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if reader == nil {
		return nil, nil
	}
	r.summary = reader
	return reader, nil
}

func (r *ScratchRealization) summaryPath() (string, error) {
	if recs := r.files.ByType(FileTypeSummary); len(recs) == 1 {
		return recs[0].FullPath, nil
	}
	matches, err := doublestar.Glob(os.DirFS(r.absPath), r.cfg.SummaryGlob, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("globbing %s: %w", r.cfg.SummaryGlob, err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	return filepath.Join(r.absPath, filepath.FromSlash(matches[0])), nil
}

// GetSummaryValues returns report-step values of every vector matching any
// of patterns (none = all vectors), indexed by report date. A realization
// without summary data yields an empty table.
func (r *ScratchRealization) GetSummaryValues(patterns ...string) (*Table, error) {
	reader, err := r.SummaryHandle()
	if err != nil {
		return nil, err
	}
	if reader == nil {
		return NewTable(nil), nil
	}
	return summaryTable(reader, resolveVectors(reader, patterns))
}

// LoadSummaryOptions selects vectors and dates for LoadSummary.
type LoadSummaryOptions struct {
	ColumnKeys []string  // wildcard patterns (empty = all vectors)
	TimeIndex  TimeIndex // "" = raw report steps
}

// SummaryTableName is the key LoadSummary stores its table under.
func SummaryTableName(idx TimeIndex) string {
	if idx == "" {
		idx = TimeIndexRaw
	}
	return "unsmry--" + string(idx)
}

// LoadSummary fetches summary vectors, resamples them to opts.TimeIndex and
// keeps the result as an internalized table. No summary data yields an empty
// table that is not stored.
func (r *ScratchRealization) LoadSummary(opts LoadSummaryOptions) (*Table, error) {
	idx, err := ParseTimeIndex(string(opts.TimeIndex))
	if err != nil {
		return nil, err
	}
	raw, err := r.GetSummaryValues(opts.ColumnKeys...)
	if err != nil {
		return nil, err
	}
	if raw.Empty() {
		return raw, nil
	}
	// GetSummaryValues returned data, so the handle is cached.
	t := ResampleTo(raw, idx, rateFunc(r.summary))
	r.tables[SummaryTableName(idx)] = t
	return t, nil
}

// Table returns an internalized table by name.
func (r *ScratchRealization) Table(name string) (*Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Scalar returns an internalized scalar by local path.
func (r *ScratchRealization) Scalar(name string) (Value, bool) {
	v, ok := r.scalars[name]
	return v, ok
}

// Dict returns an internalized key-value file by local path.
func (r *ScratchRealization) Dict(name string) (map[string]Value, bool) {
	d, ok := r.dicts[name]
	return d, ok
}

// Keys lists the names of all internalized data, sorted.
func (r *ScratchRealization) Keys() []string {
	return sortedKeys(r.scalars, r.dicts, r.tables)
}

// ToVirtual freezes the file registry, the parameters and everything loaded
// so far into a VirtualRealization that no longer touches the filesystem.
func (r *ScratchRealization) ToVirtual() (*VirtualRealization, error) {
	opts := []VirtualOption{
		WithSourcePath(r.absPath),
		WithIndex(r.index),
		WithFiles(r.files.Records()),
	}
	if _, ok := r.files.ByLocalPath(ParametersFile); ok {
		params, err := r.Parameters()
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithParameters(params))
	}
	for name, v := range r.scalars {
		opts = append(opts, WithScalar(name, v))
	}
	for name, d := range r.dicts {
		opts = append(opts, WithDict(name, d))
	}
	for name, t := range r.tables {
		opts = append(opts, WithTable(name, t))
	}
	return NewVirtualRealization(opts...), nil
}

// parseKeyValueFile reads whitespace-separated "key value" lines. The key is
// the first field and the value is the rest of the line. Later duplicates win.
func parseKeyValueFile(path string, coerce bool) (map[string]Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	out := make(map[string]Value)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key := strings.Fields(line)[0]
		raw := strings.TrimSpace(line[len(key):])
		if coerce {
			out[key] = CoerceString(raw)
		} else {
			out[key] = TextValue(raw)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// notExist reports whether err stems from a missing optional file.
func notExist(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, ErrNoParametersFile)
}
