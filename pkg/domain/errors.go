package domain

import "fmt"

// ConfigError reports a missing or unusable required option. It is fatal for
// the construction it guards.
type ConfigError struct {
	Option string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config option %s: %s", e.Option, e.Reason)
}

// FormatError reports an unparseable record or a structural mismatch against
// the declared format. Loads abort on the first such error rather than
// skipping the record.
type FormatError struct {
	Line   int
	Reason string
}

func (e FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("format error at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("format error: %s", e.Reason)
}

// ConstraintError reports a simulation parameter violation that cannot be
// recovered by default substitution.
type ConstraintError struct {
	Param  string
	Reason string
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("constraint on %s: %s", e.Param, e.Reason)
}

// ResourceError wraps a failure to reach a file or external collaborator.
type ResourceError struct {
	Path string
	Err  error
}

func (e ResourceError) Error() string {
	return fmt.Sprintf("resource %s: %v", e.Path, e.Err)
}

func (e ResourceError) Unwrap() error { return e.Err }

// ConsistencyError reports a merge reload failure or an attribute the match
// rule could not resolve.
type ConsistencyError struct {
	Op     string
	Reason string
}

func (e ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ErrNotFound is returned when a registry lookup misses.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}
