package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates cache engine configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *EngineConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateL1(config)
	v.validateL2(config)
	v.validateTTL(config)
	v.validateCompression(config)
	v.validatePrefetch(config)
	v.validateBreaker(config)
	v.validateLogging(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *EngineConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateL1(config *EngineConfig) {
	if config.L1.Capacity < 0 {
		v.addError("l1.capacity", "capacity must not be negative")
	}
	if config.L1.Shards < 0 {
		v.addError("l1.shards", "shards must not be negative")
	}
}

func (v *Validator) validateL2(config *EngineConfig) {
	if config.L2.Enabled && config.L2.Address == "" {
		v.addError("l2.address", "address is required when l2 is enabled")
	}
	if config.L2.DB < 0 {
		v.addError("l2.db", "db must not be negative")
	}
}

func (v *Validator) validateTTL(config *EngineConfig) {
	if config.TTL.Short < 0 {
		v.addError("ttl.short", "ttl must not be negative")
	}
	if config.TTL.Medium < 0 {
		v.addError("ttl.medium", "ttl must not be negative")
	}
	if config.TTL.Long < 0 {
		v.addError("ttl.long", "ttl must not be negative")
	}
	if config.TTL.StaleWindow < 0 {
		v.addError("ttl.stale_window", "stale window must not be negative")
	}
	for ns, category := range config.TTL.Categories {
		if ns == "" {
			v.addError("ttl.categories", "namespace must not be empty")
		}
		switch category {
		case "short", "medium", "long":
		default:
			v.addError("ttl.categories."+ns, fmt.Sprintf("unknown category %q", category))
		}
	}
}

func (v *Validator) validateCompression(config *EngineConfig) {
	if config.Compression.ThresholdBytes < 0 {
		v.addError("compression.threshold_bytes", "threshold must not be negative")
	}
	ratio := config.Compression.MinSavingsRatio
	if ratio < 0 || ratio >= 1 {
		v.addError("compression.min_savings_ratio", "ratio must be in [0, 1)")
	}
}

func (v *Validator) validatePrefetch(config *EngineConfig) {
	if !config.Prefetch.Enabled {
		return
	}
	if config.Prefetch.TriggerCount < 0 {
		v.addError("prefetch.trigger_count", "trigger count must not be negative")
	}
	if config.Prefetch.Workers < 0 {
		v.addError("prefetch.workers", "workers must not be negative")
	}
	for ns, targets := range config.Prefetch.CoAccess {
		if ns == "" {
			v.addError("prefetch.co_access", "namespace must not be empty")
		}
		for _, target := range targets {
			if !strings.Contains(target, ":") {
				v.addError("prefetch.co_access."+ns, fmt.Sprintf("target %q must be namespace:id", target))
			}
		}
	}
}

func (v *Validator) validateBreaker(config *EngineConfig) {
	if config.Breaker.FailureThreshold < 0 {
		v.addError("breaker.failure_threshold", "threshold must not be negative")
	}
	if config.Breaker.MaxProbes < 0 {
		v.addError("breaker.max_probes", "max probes must not be negative")
	}
}

func (v *Validator) validateLogging(config *EngineConfig) {
	switch config.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("unknown level %q", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "", "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("unknown format %q", config.Logging.Format))
	}
}
