package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/cachesim/mem/cache"
)

// Section headers of the legacy trace.config format.
const (
	legacyTLBHeader       = "Data TLB configuration"
	legacyPageTableHeader = "Page Table configuration"
	legacyDCHeader        = "Data Cache configuration"
	legacyL2Header        = "L2 Cache configuration"
)

type legacySection int

const (
	legacyNone legacySection = iota
	legacyTLB
	legacyPageTable
	legacyDC
	legacyL2
)

// ParseLegacy reads the trace.config format: one "Name: value" line per
// parameter, grouped under section headers, followed by the "Virtual
// addresses", "TLB" and "L2 cache" switches. TLB and page table parameters
// are read and ignored; enabling virtual addresses or the TLB is an error.
// "Write through/no write allocate: y" selects write-through and
// no-write-allocate, "n" selects write-back and write-allocate.
func ParseLegacy(r io.Reader) (Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	section := legacyNone
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())

		if text == "" {
			continue
		}

		if s, ok := legacyHeader(text); ok {
			section = s
			continue
		}

		name, value, ok := strings.Cut(text, ":")
		if !ok {
			return Config{}, errors.Errorf(
				"line %d: expected \"name: value\", got %q", line, text)
		}

		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if err := cfg.setLegacy(section, name, value); err != nil {
			return Config{}, errors.Wrapf(err, "line %d", line)
		}
	}

	if err := scanner.Err(); err != nil {
		return Config{}, errors.Wrap(err, "reading configuration")
	}

	return cfg, nil
}

func legacyHeader(text string) (legacySection, bool) {
	switch {
	case strings.EqualFold(text, legacyTLBHeader):
		return legacyTLB, true
	case strings.EqualFold(text, legacyPageTableHeader):
		return legacyPageTable, true
	case strings.EqualFold(text, legacyDCHeader):
		return legacyDC, true
	case strings.EqualFold(text, legacyL2Header):
		return legacyL2, true
	}

	return legacyNone, false
}

func isLegacySwitch(name string) bool {
	switch strings.ToLower(name) {
	case "virtual addresses", "tlb", "l2 cache":
		return true
	}

	return false
}

// setLegacy applies one line. The switches follow the last section without a
// header of their own, so they are recognized in any section.
func (c *Config) setLegacy(section legacySection, name, value string) error {
	if isLegacySwitch(name) {
		return c.setLegacySwitch(name, value)
	}

	switch section {
	case legacyDC:
		return setLegacyLevel(&c.DC, "DC", name, value)
	case legacyL2:
		return setLegacyLevel(&c.L2, "L2", name, value)
	case legacyTLB, legacyPageTable:
		return nil
	}

	return c.setLegacySwitch(name, value)
}

func (c *Config) setLegacySwitch(name, value string) error {
	on, err := parseYesNo(value)
	if err != nil {
		return invalidKey("", name, err)
	}

	switch strings.ToLower(name) {
	case "virtual addresses":
		if on {
			return &cache.ConfigurationError{
				Field:  "virtual addresses",
				Reason: "address translation is not simulated",
			}
		}
	case "tlb":
		if on {
			return &cache.ConfigurationError{
				Field:  "TLB",
				Reason: "the TLB is not simulated",
			}
		}
	case "l2 cache":
		c.L2Enabled = on
	default:
		return errors.Errorf("unknown setting %q", name)
	}

	return nil
}

func setLegacyLevel(l *LevelConfig, level, name, value string) error {
	switch strings.ToLower(name) {
	case "number of sets":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return invalidKey(level, "number of sets", err)
		}

		l.NumSets = n
	case "set size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalidKey(level, "ways", err)
		}

		l.Ways = n
	case "line size":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return invalidKey(level, "block size", err)
		}

		l.BlockSize = n
	case "write through/no write allocate":
		through, err := parseYesNo(value)
		if err != nil {
			return invalidKey(level, "write policy", err)
		}

		l.WritePolicy = cache.WriteBack
		l.AllocatePolicy = cache.WriteAllocate

		if through {
			l.WritePolicy = cache.WriteThrough
			l.AllocatePolicy = cache.NoWriteAllocate
		}
	default:
		return errors.Errorf("unknown %s setting %q", level, name)
	}

	return nil
}

func parseYesNo(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}

	return false, fmt.Errorf("%q is neither y nor n", value)
}
