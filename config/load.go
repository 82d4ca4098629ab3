package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment variables read by the command line tool.
const (
	EnvConfig   = "CACHESIM_CONFIG"
	EnvLogLevel = "CACHESIM_LOG_LEVEL"
)

// LoadDotEnv loads the given .env files into the environment. Variables that
// are already set are kept. Files that do not exist are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}

		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "loading %s", f)
		}
	}

	return nil
}

// Load reads a configuration file. Files ending in .ini are INI files. Other
// files are read as legacy trace.config files when they contain a
// "configuration" section header and as INI files otherwise. The result is
// validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading configuration")
	}

	var cfg Config

	if isLegacy(path, data) {
		cfg, err = ParseLegacy(bytes.NewReader(data))
	} else {
		cfg, err = ParseINI(bytes.NewReader(data))
	}

	if err != nil {
		return Config{}, errors.Wrapf(err, "loading %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "loading %s", path)
	}

	return cfg, nil
}

func isLegacy(path string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".ini") {
		return false
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if _, ok := legacyHeader(line); ok {
			return true
		}
	}

	return false
}
