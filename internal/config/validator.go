// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d config validation error(s):", len(e.Errors)))
	for _, fe := range e.Errors {
		b.WriteString(fmt.Sprintf("\n  %s: %s", fe.Field, fe.Message))
	}
	return b.String()
}

// Validate checks a loaded Config for required fields and sane ranges.
func (v *Validator) Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.Network.Host == "" {
		errs = append(errs, FieldError{"network.host", "must not be empty"})
	}
	if cfg.Network.Port <= 0 || cfg.Network.Port > 65535 {
		errs = append(errs, FieldError{"network.port", "must be between 1 and 65535"})
	}

	if cfg.Threading.ThreadLimit <= 0 {
		errs = append(errs, FieldError{"threading.thread-limit", "must be positive"})
	}

	if cfg.Redis.URL == "" {
		errs = append(errs, FieldError{"redis.url", "must not be empty"})
	} else if _, err := url.Parse(cfg.Redis.URL); err != nil {
		errs = append(errs, FieldError{"redis.url", fmt.Sprintf("invalid url: %v", err)})
	}
	if cfg.Redis.MaxConnections <= 0 {
		errs = append(errs, FieldError{"redis.max-connections", "must be positive"})
	}

	if cfg.Gatehouse.ThreadCount <= 0 {
		errs = append(errs, FieldError{"gatehouse.thread-count", "must be positive"})
	}

	if cfg.Caching.Size <= 0 {
		errs = append(errs, FieldError{"caching.size", "must be positive"})
	}

	hb := cfg.Heartbeat
	if hb.HBMinInterval <= 0 {
		errs = append(errs, FieldError{"heartbeat.hb-min-interval", "must be positive"})
	}
	if hb.HBMaxInterval < hb.HBMinInterval {
		errs = append(errs, FieldError{"heartbeat.hb-max-interval", "must be >= hb-min-interval"})
	}
	if hb.HBInitInterval < hb.HBMinInterval || hb.HBInitInterval > hb.HBMaxInterval {
		errs = append(errs, FieldError{"heartbeat.hb-init-interval", "must be within [hb-min-interval, hb-max-interval]"})
	}
	if hb.HBTimeout <= 0 {
		errs = append(errs, FieldError{"heartbeat.hb-timeout", "must be positive"})
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
