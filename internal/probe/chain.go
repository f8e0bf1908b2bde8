package probe

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrEmpty is returned by a source that ran without error but produced nothing usable
var ErrEmpty = errors.New("empty result")

// ProbeError records which source of a fallback chain failed and why
type ProbeError struct {
	Source string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// source is one entry in a fallback chain
type source[T any] struct {
	name string
	read func() (T, error)
}

// firstOf tries each source in order and returns the first successful value.
// A source succeeds when it returns a nil error. If every source fails the
// zero value is returned together with the last ProbeError.
func firstOf[T any](logger *zap.Logger, field string, sources ...source[T]) (T, error) {
	var zero T
	var lastErr error = &ProbeError{Source: field, Err: ErrEmpty}

	for _, src := range sources {
		v, err := src.read()
		if err == nil {
			logger.Debug("Probe source resolved",
				zap.String("field", field),
				zap.String("source", src.name))
			return v, nil
		}
		lastErr = &ProbeError{Source: src.name, Err: err}
		logger.Debug("Probe source failed",
			zap.String("field", field),
			zap.String("source", src.name),
			zap.Error(err))
	}

	return zero, lastErr
}

// firstString runs a string chain and falls back to sentinel when all sources fail
func firstString(logger *zap.Logger, field, sentinel string, sources ...source[string]) string {
	v, err := firstOf(logger, field, sources...)
	if err != nil {
		logger.Warn("Probe fell back to sentinel",
			zap.String("field", field),
			zap.String("sentinel", sentinel),
			zap.Error(err))
		return sentinel
	}
	return v
}

// nonEmpty adapts a string producer so that blank output counts as a failure
func nonEmpty(read func() (string, error)) func() (string, error) {
	return func() (string, error) {
		v, err := read()
		if err != nil {
			return "", err
		}
		if v == "" {
			return "", ErrEmpty
		}
		return v, nil
	}
}
