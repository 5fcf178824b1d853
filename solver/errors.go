package solver

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/yee/lattice"
)

var (
	// ErrConfig is wrapped by every configuration failure reported by New.
	ErrConfig = errors.New("invalid solver configuration")

	// ErrSourceRange is wrapped when a source touches a cell outside the lattice.
	ErrSourceRange = errors.New("source outside lattice")
)

// ConfigError describes a rejected configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SourceError reports a source sample point that cannot be installed.
type SourceError struct {
	Source string
	Point  lattice.Point
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%v: source %q at %v", ErrSourceRange, e.Source, e.Point)
}

func (e *SourceError) Unwrap() error { return ErrSourceRange }
