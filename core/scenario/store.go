// Package scenario loads, saves and synthesises the time series a dispatch
// run is evaluated against.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/vpp/core/model"
)

// ErrNotFound is returned when a requested scenario is not in a file.
var ErrNotFound = errors.New("scenario not found")

// Store persists named scenario series.
type Store interface {
	Load(path string) ([]model.Series, error)
	Save(path string, series []model.Series) error
}

type document struct {
	Scenarios []model.Series `json:"scenarios" yaml:"scenarios" validate:"required,min=1,dive"`
}

// FileStore reads and writes scenario files. The format is chosen by
// extension: .json, or .yaml/.yml.
type FileStore struct {
	validate *validator.Validate
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore.
func NewFileStore() *FileStore {
	return &FileStore{validate: validator.New(validator.WithRequiredStructEnabled())}
}

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("%w: unsupported scenario file extension %q", model.ErrConfig, filepath.Ext(path))
	}
}

// Load reads every scenario in path.
func (s *FileStore) Load(path string) ([]model.Series, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	var doc document
	switch f {
	case formatJSON:
		err = json.Unmarshal(data, &doc)
	case formatYAML:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", model.ErrConfig, path, err)
	}
	if err := s.check(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc.Scenarios, nil
}

// Save writes series to path, creating its directory when needed.
func (s *FileStore) Save(path string, series []model.Series) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	doc := document{Scenarios: series}
	if err := s.check(doc); err != nil {
		return err
	}
	var data []byte
	switch f {
	case formatJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
	case formatYAML:
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encode scenarios: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *FileStore) check(doc document) error {
	if err := s.validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	seen := make(map[string]bool, len(doc.Scenarios))
	for _, sc := range doc.Scenarios {
		if seen[sc.Name] {
			return fmt.Errorf("%w: duplicate scenario %q", model.ErrConfig, sc.Name)
		}
		seen[sc.Name] = true
	}
	return nil
}

// Select picks a scenario by name, or by index when name is empty.
func Select(series []model.Series, name string, index int) (model.Series, error) {
	if name != "" {
		for _, s := range series {
			if s.Name == name {
				return s, nil
			}
		}
		return model.Series{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if index < 0 || index >= len(series) {
		return model.Series{}, fmt.Errorf("%w: index %d of %d", ErrNotFound, index, len(series))
	}
	return series[index], nil
}
