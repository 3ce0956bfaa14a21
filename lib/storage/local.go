package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Local struct {
	dataDir   string
	locations Locations
}

func NewLocal(dataDir string, locations Locations) *Local {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &Local{dataDir: dataDir, locations: locations}
}

func (s *Local) path(kind Kind) string {
	return filepath.Join(s.dataDir, s.locations[kind].Filename)
}

func (s *Local) Save(ctx context.Context, kind Kind, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	err = os.MkdirAll(s.dataDir, 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(kind), data, 0644)
}

func (s *Local) Load(ctx context.Context, kind Kind, out any) error {
	data, err := os.ReadFile(s.path(kind))
	if os.IsNotExist(err) {
		return ErrNotExist
	}
	if err != nil {
		return err
	}
	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

func (s *Local) PutBytes(ctx context.Context, kind Kind, name string, data []byte, contentType string) error {
	path := filepath.Join(s.dataDir, name)
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
