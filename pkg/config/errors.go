package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound indicates the configuration file was not found. A
	// missing config file is not itself fatal: Load falls back to defaults.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidYAML indicates YAML parsing failed.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrUnknownKey indicates a config file or environment variable named a
	// key outside the recognized closed set.
	ErrUnknownKey = errors.New("unrecognized configuration key")
)

// LoadError wraps configuration loading errors with file context, matching
// the teacher's pkg/config/errors.go LoadError.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a new load error.
func NewLoadError(file string, err error) *LoadError {
	return &LoadError{File: file, Err: err}
}

// FieldError reports a single invalid configuration key, the unit the
// validator collects many of before failing.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}
