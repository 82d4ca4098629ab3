package config

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/sarchlab/cachesim/mem/cache"
)

// ParseINI reads a configuration in INI format. Sections [dc] and [l2] hold
// the keys sets (or size), ways, block_size, write_policy, allocate_policy and
// replacement; [l2] also accepts enabled. Missing keys keep their default.
func ParseINI(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading configuration")
	}

	f, err := ini.Load(data)
	if err != nil {
		return Config{}, errors.Wrap(err, "parsing configuration")
	}

	cfg := Default()

	if section, err := f.GetSection("dc"); err == nil {
		if err := parseLevelSection(section, "DC", &cfg.DC); err != nil {
			return Config{}, err
		}
	}

	if section, err := f.GetSection("l2"); err == nil {
		if err := parseLevelSection(section, "L2", &cfg.L2); err != nil {
			return Config{}, err
		}

		if section.HasKey("enabled") {
			enabled, err := section.Key("enabled").Bool()
			if err != nil {
				return Config{}, invalidKey("L2", "enabled", err)
			}

			cfg.L2Enabled = enabled
		}
	}

	return cfg, nil
}

func parseLevelSection(
	section *ini.Section,
	name string,
	l *LevelConfig,
) error {
	if section.HasKey("ways") {
		ways, err := section.Key("ways").Int()
		if err != nil {
			return invalidKey(name, "ways", err)
		}

		l.Ways = ways
	}

	if section.HasKey("block_size") {
		blockSize, err := section.Key("block_size").Uint64()
		if err != nil {
			return invalidKey(name, "block size", err)
		}

		l.BlockSize = blockSize
	}

	switch {
	case section.HasKey("sets"):
		sets, err := section.Key("sets").Uint64()
		if err != nil {
			return invalidKey(name, "number of sets", err)
		}

		l.NumSets = sets
	case section.HasKey("size"):
		size, err := section.Key("size").Uint64()
		if err != nil {
			return invalidKey(name, "size", err)
		}

		g, err := cache.NewGeometry(size, l.BlockSize, l.Ways)
		if err != nil {
			return withLevel(err, name)
		}

		l.NumSets = g.NumSets
	}

	return parsePolicies(section, name, l)
}

func parsePolicies(section *ini.Section, name string, l *LevelConfig) error {
	if section.HasKey("write_policy") {
		p, err := cache.ParseWritePolicy(section.Key("write_policy").String())
		if err != nil {
			return withLevel(err, name)
		}

		l.WritePolicy = p
	}

	if section.HasKey("allocate_policy") {
		p, err := cache.ParseAllocatePolicy(
			section.Key("allocate_policy").String())
		if err != nil {
			return withLevel(err, name)
		}

		l.AllocatePolicy = p
	}

	if section.HasKey("replacement") {
		p, err := cache.ParseReplacementPolicy(
			section.Key("replacement").String())
		if err != nil {
			return withLevel(err, name)
		}

		l.ReplacementPolicy = p
	}

	return nil
}

func invalidKey(level, field string, err error) error {
	return &cache.ConfigurationError{
		Level:  level,
		Field:  field,
		Reason: err.Error(),
	}
}

func withLevel(err error, level string) error {
	if cerr, ok := err.(*cache.ConfigurationError); ok {
		cerr.Level = level
	}

	return err
}
