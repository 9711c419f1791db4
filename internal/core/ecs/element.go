package ecs

import (
	"reflect"

	"github.com/zeusync/citrus/internal/core/borrow"
)

// Element is a unit of behavior and data attached to an entity. An entity holds
// at most one element of each concrete type.
//
// Update runs once per Manager.Update pass while the element is exclusively
// borrowed. It may create, destroy and query entities and elements through m;
// destruction takes effect at the next Resolve.
type Element interface {
	Update(m *Manager, owner EntityAddr) error
}

// BaseElement provides a no-op Update for embedding.
type BaseElement struct{}

func (BaseElement) Update(*Manager, EntityAddr) error { return nil }

// Inspector is implemented by elements that can describe themselves to an editor.
type Inspector interface {
	Inspect(m *Manager) string
}

const unimplementedInspector = "Unimplemented ui"

// Inspect returns the element's editor description, or a placeholder when the
// element does not implement Inspector.
func Inspect(a ErasedElementAddr, m *Manager) (string, error) {
	out := unimplementedInspector
	err := a.Read(func(el Element) error {
		if in, ok := el.(Inspector); ok {
			out = in.Inspect(m)
		}
		return nil
	})
	return out, err
}

// elementPtr constrains PT to be *T implementing Element.
type elementPtr[T any] interface {
	*T
	Element
}

type elementHolder struct {
	// data is the *T stored as any so typed addresses can assert it back.
	data    any
	element Element
	cell    *borrow.Cell
	typ     reflect.Type
	owner   EntityAddr
}

func newElementHolder[T any, PT elementPtr[T]](value T, owner EntityAddr) *elementHolder {
	p := new(T)
	*p = value
	return &elementHolder{
		data:    p,
		element: PT(p),
		cell:    borrow.NewCell(),
		typ:     reflect.TypeFor[T](),
		owner:   owner,
	}
}

func (h *elementHolder) subject() string {
	return "element " + h.typ.String()
}

// TypeName returns the diagnostic name of a Go type.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
