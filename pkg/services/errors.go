package services

import (
	"fmt"
	"sort"
	"strings"

	"walrusweb/pkg/store"
)

// ErrPitchNotFound is returned when no pitch has the requested id
var ErrPitchNotFound = fmt.Errorf("pitch %w", store.ErrNotFound)

// ValidationError reports rejected input. Fields maps the JSON field name
// to a short description of the problem.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}
