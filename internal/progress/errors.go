package progress

import (
	"errors"
	"fmt"
)

// Error kinds for errors.Is checks.
var (
	ErrNotFound        = errors.New("not found")
	ErrLockedUnit      = errors.New("unit is locked")
	ErrInvalidArgument = errors.New("invalid argument")
)

// NotFoundError reports that a student has no progress record.
type NotFoundError struct {
	StudentID string
	Err       error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("student %q: %v", e.StudentID, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return e.Err }

// LockedUnitError reports an attempt to complete a unit whose prerequisite
// is incomplete.
type LockedUnitError struct {
	UnitID       string
	Prerequisite string // empty when the unit is unknown to the curriculum
}

func (e *LockedUnitError) Error() string {
	if e.Prerequisite == "" {
		return fmt.Sprintf("unit %q: %v", e.UnitID, ErrLockedUnit)
	}
	return fmt.Sprintf("unit %q: %v until %q is complete", e.UnitID, ErrLockedUnit, e.Prerequisite)
}

func (e *LockedUnitError) Is(target error) bool { return target == ErrLockedUnit }

// InvalidArgumentError reports malformed caller input.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidArgument, e.Field, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// InvalidArgument is a shorthand constructor.
func InvalidArgument(field, reason string) error {
	return &InvalidArgumentError{Field: field, Reason: reason}
}
