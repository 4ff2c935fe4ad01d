package schema

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadRegistry reads a JSON array of type definitions and builds a registry.
func LoadRegistry(r io.Reader) (*Registry, error) {
	var defs []Definition
	if err := json.NewDecoder(r).Decode(&defs); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return NewRegistry(defs...)
}

// LoadRegistryFile loads a registry from a JSON file on disk.
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()
	return LoadRegistry(f)
}
