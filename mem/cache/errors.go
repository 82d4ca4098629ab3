package cache

import "fmt"

// ConfigurationError reports a cache parameter that cannot be simulated.
type ConfigurationError struct {
	Level  string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Level == "" {
		return fmt.Sprintf("invalid cache configuration: %s: %s",
			e.Field, e.Reason)
	}

	return fmt.Sprintf("invalid cache configuration for %s: %s: %s",
		e.Level, e.Field, e.Reason)
}
