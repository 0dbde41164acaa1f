package ensemble

import (
	"maps"
	"path/filepath"
	"strings"
)

// Fixed file names and types every realization knows about.
const (
	StatusFile     = "STATUS"
	JobsFile       = "jobs.json"
	ParametersFile = "parameters.txt"

	FileTypeStatus  = "STATUS"
	FileTypeSummary = "UNSMRY"
)

// FileRecord points at one discovered file inside a realization.
type FileRecord struct {
	FullPath  string            `yaml:"full_path"`      // absolute path
	FileType  string            `yaml:"filetype"`       // extension after the last dot, or STATUS
	LocalPath string            `yaml:"local_path"`     // path relative to the realization root
	Basename  string            `yaml:"basename"`       // file name only, extension included
	Meta      map[string]string `yaml:"meta,omitempty"` // free-form metadata attached at discovery
}

// clone copies rec with its own Meta map.
func (rec FileRecord) clone() FileRecord {
	rec.Meta = maps.Clone(rec.Meta)
	return rec
}

// FileRegistry is an ordered set of FileRecords keyed by FullPath.
type FileRegistry struct {
	records []FileRecord
	byPath  map[string]int
}

// NewFileRegistry returns an empty registry.
func NewFileRegistry() *FileRegistry {
	return &FileRegistry{byPath: make(map[string]int)}
}

// Add appends rec unless a record with the same FullPath exists.
// Returns true if the record was added.
func (r *FileRegistry) Add(rec FileRecord) bool {
	if _, ok := r.byPath[rec.FullPath]; ok {
		return false
	}
	r.byPath[rec.FullPath] = len(r.records)
	r.records = append(r.records, rec)
	return true
}

func (r *FileRegistry) Len() int { return len(r.records) }

// Records returns a copy of all records in insertion order.
func (r *FileRegistry) Records() []FileRecord {
	out := make([]FileRecord, len(r.records))
	copy(out, r.records)
	return out
}

// ByLocalPath returns the first record registered under localPath.
func (r *FileRegistry) ByLocalPath(localPath string) (FileRecord, bool) {
	for _, rec := range r.records {
		if rec.LocalPath == localPath {
			return rec, true
		}
	}
	return FileRecord{}, false
}

// ByType returns all records with the given file type, in insertion order.
func (r *FileRegistry) ByType(fileType string) []FileRecord {
	var out []FileRecord
	for _, rec := range r.records {
		if rec.FileType == fileType {
			out = append(out, rec)
		}
	}
	return out
}

// newFileRecord builds a record for localPath (slash separated) under root.
// An empty fileType is derived from the extension.
func newFileRecord(root, localPath, fileType string) FileRecord {
	if fileType == "" {
		fileType = fileTypeOf(localPath)
	}
	full := filepath.Join(root, filepath.FromSlash(localPath))
	return FileRecord{
		FullPath:  full,
		FileType:  fileType,
		LocalPath: localPath,
		Basename:  filepath.Base(full),
	}
}

func fileTypeOf(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}
