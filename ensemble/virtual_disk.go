package ensemble

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the YAML file describing a dumped virtual realization.
const ManifestFile = "manifest.yaml"

// virtualManifest is the YAML side of a dump; tables live in CSV files next to it.
type virtualManifest struct {
	Description string                      `yaml:"description,omitempty"`
	SourcePath  string                      `yaml:"source_path,omitempty"`
	Index       int                         `yaml:"index"`
	Files       []FileRecord                `yaml:"files,omitempty"`
	Scalars     map[string]Value            `yaml:"scalars,omitempty"`
	Dicts       map[string]map[string]Value `yaml:"dicts,omitempty"`
	Tables      []manifestTable             `yaml:"tables,omitempty"`
}

type manifestTable struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

const dateColumn = "DATE"

// MarshalYAML writes the underlying int, float or string. Reals are tagged
// !!float so integral ones such as 4.0 read back as reals.
func (v Value) MarshalYAML() (interface{}, error) {
	if v.kind != KindReal {
		return v.Any(), nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: yamlFloat(v.f)}, nil
}

// yamlFloat formats f in a form YAML resolves as a float.
func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// UnmarshalYAML restores a Value from the node's resolved tag.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.ShortTag() {
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return err
		}
		*v = IntValue(i)
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = RealValue(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Coerce(b)
	case "!!null":
		*v = TextValue("")
	default:
		*v = TextValue(node.Value)
	}
	return nil
}

// ToDisk writes the realization to dir as manifest.yaml plus one CSV file
// per table. dir is created if needed.
func (v *VirtualRealization) ToDisk(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	names := make([]string, 0, len(v.tables))
	for name := range v.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	manifest := virtualManifest{
		Description: v.description,
		SourcePath:  v.sourcePath,
		Index:       v.index,
		Files:       v.files.Records(),
		Scalars:     v.scalars,
		Dicts:       v.dicts,
	}
	for i, name := range names {
		file := fmt.Sprintf("table-%03d.csv", i)
		if err := writeTableCSV(filepath.Join(dir, file), v.tables[name]); err != nil {
			return fmt.Errorf("writing table %s: %w", name, err)
		}
		manifest.Tables = append(manifest.Tables, manifestTable{Name: name, File: file})
	}

	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// LoadVirtualRealization reads a realization written by ToDisk.
func LoadVirtualRealization(dir string) (*VirtualRealization, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var manifest virtualManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	opts := []VirtualOption{
		WithDescription(manifest.Description),
		WithSourcePath(manifest.SourcePath),
		WithIndex(manifest.Index),
		WithFiles(manifest.Files),
	}
	for name, val := range manifest.Scalars {
		opts = append(opts, WithScalar(name, val))
	}
	for name, d := range manifest.Dicts {
		opts = append(opts, WithDict(name, d))
	}
	v := NewVirtualRealization(opts...)

	for _, mt := range manifest.Tables {
		t, err := readTableCSV(filepath.Join(dir, mt.File))
		if err != nil {
			return nil, fmt.Errorf("reading table %s: %w", mt.Name, err)
		}
		v.tables[mt.Name] = t
	}
	return v, nil
}

func writeTableCSV(path string, t *Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write(append([]string{dateColumn}, t.Columns...)); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	row := make([]string, len(t.Columns)+1)
	for i, d := range t.Dates {
		row[0] = d.Format(time.RFC3339Nano)
		for j, name := range t.Columns {
			row[j+1] = strconv.FormatFloat(t.values[name][i], 'g', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

func readTableCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) == 0 || header[0] != dateColumn {
		return nil, fmt.Errorf("CSV header must start with %s", dateColumn)
	}
	columns := header[1:]

	var dates []time.Time
	cols := make([][]float64, len(columns))
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		d, err := time.Parse(time.RFC3339Nano, row[0])
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", row[0], err)
		}
		dates = append(dates, d)
		for j := range columns {
			f, err := strconv.ParseFloat(row[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q in column %s: %w", row[j+1], columns[j], err)
			}
			cols[j] = append(cols[j], f)
		}
	}

	t := NewTable(dates)
	for j, name := range columns {
		vals := cols[j]
		if vals == nil {
			vals = []float64{}
		}
		if err := t.AddColumn(name, vals); err != nil {
			return nil, err
		}
	}
	return t, nil
}
