// Package config loads service configuration from RANKARENA_* environment
// variables and provides the fatal-exit helper for command entry points.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from environment variables according to its `env`
// struct tags. Target must be a non-nil struct pointer; `envDefault` tags
// apply when a variable is unset.
func ParseEnv(target any) error {
	if target == nil {
		return errors.New("parse env: nil config target")
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
