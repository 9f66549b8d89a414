// Package config loads sweep configuration files and process settings.
//
// A configuration file is JSON or YAML with a single root key,
// "PerturberFactory", holding a factory description understood by
// factory.FromConfig.
package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/image-sweep/internal/factory"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RootKey is the top-level key of every configuration file.
const RootKey = "PerturberFactory"

// MaxFileSize bounds configuration files.
const MaxFileSize = 1 << 20

// Read parses a JSON or YAML configuration file into a plain map. The format
// follows the extension; anything other than .yaml or .yml is read as JSON.
func Read(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &factory.ConfigurationError{Detail: "Config file at " + path + " was not found"}
		}
		return nil, errors.Wrapf(err, "opening config file %s", path)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}
	if len(data) > MaxFileSize {
		return nil, &factory.ConfigurationError{Detail: "Config file at " + path + " exceeds 1 MiB"}
	}

	var cfg map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, &factory.ConfigurationError{Detail: "Config file at " + path + " could not be parsed", Err: err}
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	return cfg, nil
}

// FactorySection returns the "PerturberFactory" mapping of a parsed file.
func FactorySection(cfg map[string]any, path string) (map[string]any, error) {
	raw, ok := cfg[RootKey]
	if !ok {
		return nil, &factory.ConfigurationError{Detail: "Config file at " + path + ` does not have "` + RootKey + `" key`}
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return nil, &factory.ConfigurationError{Detail: "Config file at " + path + ` has a "` + RootKey + `" key that is not a mapping`}
	}
	return section, nil
}

// LoadFactory reads path and builds the factory it describes.
func LoadFactory(path string) (factory.Factory, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	section, err := FactorySection(cfg, path)
	if err != nil {
		return nil, err
	}
	return factory.FromConfig(section)
}
