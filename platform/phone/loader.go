package phone

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var embeddedCountries []byte

// Loader supplies country entries from some source (bundled resource, file,
// database). Implementations must be safe to call more than once.
type Loader interface {
	Name() string
	Load(ctx context.Context) ([]CountryEntry, error)
}

// DataLoadError reports that the country table could not be read or parsed.
// The table returned alongside it is empty, so formatting degrades to fallbacks.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load country table from %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// Load reads entries through the loader and builds a table. On failure it
// returns an empty table together with a *DataLoadError; it never panics.
func Load(ctx context.Context, loader Loader) (table *Table, err error) {
	source := "none"
	if loader != nil {
		source = loader.Name()
	}

	defer func() {
		if r := recover(); r != nil {
			table = emptyFrom(source)
			err = &DataLoadError{Source: source, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if loader == nil {
		return emptyFrom(source), &DataLoadError{Source: source, Err: errors.New("no loader configured")}
	}

	entries, err := loader.Load(ctx)
	if err != nil {
		return emptyFrom(source), &DataLoadError{Source: source, Err: err}
	}

	t, err := NewTable(entries)
	if err != nil {
		return emptyFrom(source), &DataLoadError{Source: source, Err: err}
	}
	t.source = source
	return t, nil
}

func emptyFrom(source string) *Table {
	t := EmptyTable()
	t.source = source
	return t
}

type tableDocument struct {
	Countries []CountryEntry `yaml:"countries" json:"countries"`
}

// ParseYAML decodes a country table document in YAML form.
func ParseYAML(data []byte) ([]CountryEntry, error) {
	var doc tableDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if len(doc.Countries) == 0 {
		return nil, errors.New("document contains no countries")
	}
	return doc.Countries, nil
}

// ParseJSON decodes a country table document in JSON form.
func ParseJSON(data []byte) ([]CountryEntry, error) {
	var doc tableDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if len(doc.Countries) == 0 {
		return nil, errors.New("document contains no countries")
	}
	return doc.Countries, nil
}

// EmbeddedLoader reads the table bundled into the binary.
type EmbeddedLoader struct{}

func (EmbeddedLoader) Name() string { return "embedded" }

func (EmbeddedLoader) Load(_ context.Context) ([]CountryEntry, error) {
	return ParseYAML(embeddedCountries)
}

// FileLoader reads a YAML (.yaml, .yml) or JSON (.json) table from disk.
type FileLoader struct {
	Path string
}

func (l FileLoader) Name() string { return "file:" + l.Path }

func (l FileLoader) Load(ctx context.Context) ([]CountryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(l.Path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported table format %q", filepath.Ext(l.Path))
	}
}

// StaticLoader serves a fixed slice, mostly for tests and tools.
type StaticLoader struct {
	Label   string
	Entries []CountryEntry
}

func (l StaticLoader) Name() string {
	if l.Label == "" {
		return "static"
	}
	return l.Label
}

func (l StaticLoader) Load(_ context.Context) ([]CountryEntry, error) {
	return append([]CountryEntry(nil), l.Entries...), nil
}
