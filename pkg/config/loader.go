package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load reads the process environment into a fresh T. Fields opt in through
// `env` tags; `envDefault` supplies fallbacks and the `required` option marks
// variables the service cannot start without.
func Load[T any]() (*T, error) {
	cfg := new(T)
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}
