package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zeusync/citrus/internal/core/ecs"
)

var (
	ErrNameTaken         = errors.New("scene: creator name already registered for another type")
	ErrTypeRegistered    = errors.New("scene: element type already registered under another name")
	ErrUnregistered      = errors.New("scene: element type not registered")
	ErrNotDeserializing  = errors.New("scene: no deserialization in progress")
	ErrDeserializeActive = errors.New("scene: a deserialization is already in progress")
	ErrDuplicateID       = errors.New("scene: duplicate entity id in document")
)

// CycleError aborts a whole load: the document's parent links contain at least
// one cycle. Every failing child/parent pair is listed.
type CycleError struct {
	Pairs []*ecs.CycleError
}

func (e *CycleError) Error() string {
	lines := make([]string, len(e.Pairs))
	for i, p := range e.Pairs {
		lines[i] = p.Error()
	}
	return "scene: load aborted: " + strings.Join(lines, "; ")
}

func (e *CycleError) Unwrap() error {
	return ecs.ErrCycle
}

// ElementError is a recoverable failure on a single element record.
type ElementError struct {
	// Op is "create" or "decode".
	Op      string
	Entity  string
	Element string
	Err     error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("scene: %s element %q on %q: %v", e.Op, e.Element, e.Entity, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}
