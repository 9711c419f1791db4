package ecs

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"github.com/zeusync/citrus/internal/core/borrow"
)

// Entity is a named node of the hierarchy owning an ordered list of elements.
// An *Entity is only reachable through an EntityAddr borrow; do not retain it
// past the borrow.
type Entity struct {
	name     string
	elements []*elementHolder
	self     EntityAddr
	parent   EntityAddr
	children []EntityAddr
}

type entityHolder struct {
	ent  *Entity
	cell *borrow.Cell
	id   uuid.UUID
	// seq orders holders by creation; Manager.entities is sorted by it.
	seq uint64
	m   *Manager
}

func (h *entityHolder) subject() string {
	return fmt.Sprintf("entity %q", h.ent.name)
}

func (e *Entity) Name() string { return e.name }

func (e *Entity) SetName(name string) { e.name = name }

// ID returns the stable identity assigned at creation.
func (e *Entity) ID() uuid.UUID { return e.self.ID() }

// Self returns the entity's own address.
func (e *Entity) Self() EntityAddr { return e.self }

// Parent returns the parent address; invalid for a root entity.
func (e *Entity) Parent() EntityAddr { return e.parent }

// Children returns a snapshot of the children addresses.
func (e *Entity) Children() []EntityAddr { return slices.Clone(e.children) }

// Len returns the number of attached elements.
func (e *Entity) Len() int { return len(e.elements) }

// Elements returns a snapshot of every attached element in attachment order.
func (e *Entity) Elements() []ErasedElementAddr {
	out := make([]ErasedElementAddr, len(e.elements))
	for i, h := range e.elements {
		out[i] = ErasedElementAddr{h: h}
	}
	return out
}

// QueryElementByType returns the element with runtime type t, or the invalid
// address.
func (e *Entity) QueryElementByType(t reflect.Type) ErasedElementAddr {
	if h := e.holderOf(t); h != nil {
		return ErasedElementAddr{h: h}
	}
	return ErasedElementAddr{}
}

func (e *Entity) holderOf(t reflect.Type) *elementHolder {
	for _, h := range e.elements {
		if h.typ == t {
			return h
		}
	}
	return nil
}

// removeElement detaches h and kills its cell. It reports whether h was found.
func (e *Entity) removeElement(h *elementHolder) (bool, error) {
	i := slices.Index(e.elements, h)
	if i < 0 {
		return false, nil
	}
	e.elements = slices.Delete(e.elements, i, i+1)
	return true, h.cell.Kill(h.subject())
}

// AddElement attaches value to e, which must come from an exclusive borrow
// (EntityAddr.Write or BorrowMut). Under a shared borrow it fails with
// borrow.ErrBorrowConflict. It fails with ErrDuplicateElement when an element
// of the same type is already attached.
func AddElement[T any, PT elementPtr[T]](e *Entity, value T) (ElementAddr[T], error) {
	typ := reflect.TypeFor[T]()
	if e.self.Valid() && e.self.h.cell.Count() >= 0 {
		return ElementAddr[T]{}, &borrow.Error{
			Op:      "add element",
			Kind:    borrow.KindBorrowConflict,
			Subject: e.self.h.subject(),
			Detail:  "entity must be borrowed exclusively",
		}
	}
	if e.holderOf(typ) != nil {
		return ElementAddr[T]{}, fmt.Errorf("%w: %s on %q", ErrDuplicateElement, typ, e.name)
	}
	h := newElementHolder[T, PT](value, e.self)
	e.elements = append(e.elements, h)

	if m := e.self.manager(); m != nil {
		m.publish(EventElementAdded, e.self, TypeName(typ))
	}
	return ElementAddr[T]{h: h}, nil
}

// QueryElement returns the element of type T attached to e, or the invalid address.
func QueryElement[T any](e *Entity) ElementAddr[T] {
	if h := e.holderOf(reflect.TypeFor[T]()); h != nil {
		return ElementAddr[T]{h: h}
	}
	return ElementAddr[T]{}
}

// HasElement reports whether an element of type T is attached to e.
func HasElement[T any](e *Entity) bool {
	return e.holderOf(reflect.TypeFor[T]()) != nil
}
