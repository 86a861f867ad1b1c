// Package simerr holds the error taxonomy shared by the topology model, the
// malware configuration and both simulation engines.
package simerr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Match with errors.Is.
var (
	// ErrConfiguration marks a rejected configuration: unknown topology kind,
	// unknown malware kind, out-of-range parameters. Never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnknownDevice marks a reference to a device id absent from the topology.
	ErrUnknownDevice = errors.New("unknown device")
)

// Error carries structured context for a failed engine operation.
type Error struct {
	Op      string // Operation that failed (e.g. "AddConnection", "Initialize")
	Entity  string // Entity kind (e.g. "device", "topology", "malware")
	ID      string // Entity identifier, if any
	Context string // Free-form detail
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.ID != "" && e.Context != "":
		return fmt.Sprintf("%s %s %q (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
	case e.ID != "":
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.ID, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches the cause chain.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// Builder assembles an *Error fluently.
type Builder struct {
	err Error
}

// New starts a builder for the given operation.
func New(op string) *Builder {
	return &Builder{err: Error{Op: op}}
}

// Device sets the entity to "device" with the given id.
func (b *Builder) Device(id string) *Builder {
	b.err.Entity = "device"
	b.err.ID = id
	return b
}

// Topology sets the entity to "topology" with the given kind label.
func (b *Builder) Topology(kind string) *Builder {
	b.err.Entity = "topology"
	b.err.ID = kind
	return b
}

// Malware sets the entity to "malware" with the given kind label.
func (b *Builder) Malware(kind string) *Builder {
	b.err.Entity = "malware"
	b.err.ID = kind
	return b
}

// Entity sets an arbitrary entity kind.
func (b *Builder) Entity(entity string) *Builder {
	b.err.Entity = entity
	return b
}

// Context sets additional detail.
func (b *Builder) Context(ctx string) *Builder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Err returns the constructed error.
func (b *Builder) Err() error {
	return &b.err
}

// UnknownDevice builds an ErrUnknownDevice error for op.
func UnknownDevice(op, id string) error {
	return New(op).Device(id).Cause(ErrUnknownDevice).Err()
}

// Configuration builds an ErrConfiguration error for op on entity.
func Configuration(op, entity, detail string) error {
	return New(op).Entity(entity).Context(detail).Cause(ErrConfiguration).Err()
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsUnknownDevice reports whether err references a missing device.
func IsUnknownDevice(err error) bool {
	return errors.Is(err, ErrUnknownDevice)
}
