// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseEnvMap loads configuration from an explicit variable map instead of
// the process environment. Commands use it to keep config parsing testable.
func ParseEnvMap(target any, vars map[string]string) error {
	if err := env.ParseWithOptions(target, env.Options{Environment: vars}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// TrimList removes blank entries from a separator-split env value.
func TrimList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
