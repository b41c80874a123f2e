package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidState       = errors.New("operation is not valid in the current state")
	ErrNoSession          = errors.New("no active payment session")
	ErrProviderRequired   = errors.New("a provider must be selected first")
	ErrMethodUnsupported  = errors.New("method is not supported by the provider")
	ErrRedirectBlocked    = errors.New("the payment page could not be opened")
	ErrInitializationFail = errors.New("payment initialization failed")
)

// ValidationError reports field-level problems found before initialization.
// The session state is left untouched when one is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, field := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
