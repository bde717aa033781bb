package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Write stores cfg as YAML at path. The file is written to a temporary
// sibling and renamed into place, so readers never see a partial file.
// An existing file is left untouched unless overwrite is set.
func Write(path string, cfg Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config:\n%w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode config:\n%w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config directory:\n%w", err)
	}

	tmp, err := os.CreateTemp(dir, ".atelier.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file:\n%w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file:\n%w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file:\n%w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config file:\n%w", err)
	}

	return nil
}
