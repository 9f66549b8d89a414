package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/image-sweep/internal/factory"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default returns the configuration generated for new users: a sensor sweep
// over focal length and aperture.
func Default() map[string]any {
	f, err := factory.NewGrid("sensor",
		map[string]any{
			"name":       "L32511x",
			"altitude":   75.0,
			"px":         2e-05,
			"wavelength": 5.5e-07,
		},
		[]string{"f", "D"},
		[][]any{{0.014, 0.012}, {0.001, 0.003}},
	)
	if err != nil {
		// the built-in grid is static
		panic(errors.Wrap(err, "config: default factory"))
	}
	return map[string]any{RootKey: f.Config()}
}

// Encode renders cfg as YAML when path ends in .yaml or .yml and as indented
// JSON otherwise.
func Encode(cfg map[string]any, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(cfg)
		return data, errors.WithStack(err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return append(data, '\n'), nil
}

// WriteDefault writes Default to path, refusing to overwrite an existing
// file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("%s already exists", path)
	}
	data, err := Encode(Default(), path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	return errors.WithStack(os.WriteFile(path, data, 0o644))
}
