package notebook

import (
	"errors"
	"fmt"
)

// LoadError reports a notebook that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

// Error implements the error interface for LoadError.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load notebook %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying read or parse error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError checks if the error is or wraps a LoadError.
func IsLoadError(err error) bool {
	if err == nil {
		return false
	}
	var le *LoadError
	return errors.As(err, &le)
}
