package ecs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Domain errors. These are returned for bad requests and never indicate a
// corrupted graph. Borrow violations are reported with *borrow.Error.
var (
	ErrDuplicateElement = errors.New("element type already present on entity")
	ErrElementNotFound  = errors.New("element type not present on entity")
	ErrInvalidAddress   = errors.New("address is not valid")
	ErrTypeMismatch     = errors.New("element has a different runtime type")
	ErrCycle            = errors.New("reparent would create a cycle")
)

// CycleError is returned by Reparent when the new parent is the child itself
// or one of its descendants. The tree is left untouched.
type CycleError struct {
	Child    string
	ChildID  uuid.UUID
	Parent   string
	ParentID uuid.UUID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("making %q a child of %q would create a cycle", e.Child, e.Parent)
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}
