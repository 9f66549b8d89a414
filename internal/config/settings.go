package config

import (
	"os"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
)

// Environment variables read by FromEnv.
const (
	EnvAddr    = "IMAGE_SWEEP_ADDR"
	EnvDB      = "IMAGE_SWEEP_DB"
	EnvWorkers = "IMAGE_SWEEP_WORKERS"
)

// Settings are process-wide options shared by the CLI and the servers.
type Settings struct {
	Addr    string
	DBPath  string
	Workers int
}

// DefaultSettings returns the settings used when nothing is configured.
// An empty DBPath disables the run ledger.
func DefaultSettings() Settings {
	return Settings{
		Addr:    ":8080",
		Workers: runtime.NumCPU(),
	}
}

// FromEnv overlays environment variables on DefaultSettings.
func FromEnv() (Settings, error) {
	s := DefaultSettings()
	if v := os.Getenv(EnvAddr); v != "" {
		s.Addr = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		s.DBPath = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, errors.Wrapf(err, "%s", EnvWorkers)
		}
		s.Workers = n
	}
	return s, s.Validate()
}

// Validate checks the settings for values no command can use.
func (s Settings) Validate() error {
	if s.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", s.Workers)
	}
	if s.Addr == "" {
		return errors.New("listen address is empty")
	}
	return nil
}
