// Package service holds the dashboard's use cases. Each service owns one
// board area and talks to the store through a narrow interface, so handlers
// stay thin and tests run against fakes.
package service

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks caller mistakes. Handlers map it to 400.
var ErrInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
