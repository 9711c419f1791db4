package ecs

import (
	"encoding/json"
	"errors"
	"reflect"

	"github.com/zeusync/citrus/internal/core/borrow"
)

// ElementAddr is a non-owning, typed handle to an element. The zero value is
// the always-invalid address. It becomes permanently invalid once the element
// is removed by Manager.Resolve.
//
// In JSON an ElementAddr is the persisted id of the owning entity.
type ElementAddr[T any] struct {
	h   *elementHolder
	ref pendingRef
}

var (
	_ Linkable = (*ElementAddr[BaseElement])(nil)
	_ Linkable = (*EntityAddr)(nil)
)

// Valid reports whether the element still exists.
func (a ElementAddr[T]) Valid() bool {
	if a.h == nil || !a.h.cell.Alive() {
		return false
	}
	_, ok := a.h.data.(*T)
	return ok
}

func (a ElementAddr[T]) value() (*T, error) {
	if a.h == nil || !a.h.cell.Alive() {
		return nil, borrow.ErrAbsent
	}
	p, ok := a.h.data.(*T)
	if !ok {
		return nil, ErrTypeMismatch
	}
	return p, nil
}

// Borrow takes a shared borrow of the element.
func (a ElementAddr[T]) Borrow() (*borrow.Ref[*T], error) {
	p, err := a.value()
	if err != nil {
		return nil, err
	}
	return borrow.Shared(a.h.cell, p, a.h.subject())
}

// BorrowMut takes the exclusive borrow of the element.
func (a ElementAddr[T]) BorrowMut() (*borrow.Ref[*T], error) {
	p, err := a.value()
	if err != nil {
		return nil, err
	}
	return borrow.Exclusive(a.h.cell, p, a.h.subject())
}

// Read runs fn under a shared borrow.
func (a ElementAddr[T]) Read(fn func(*T) error) error {
	r, err := a.Borrow()
	if err != nil {
		return err
	}
	err = fn(r.Value())
	return errors.Join(err, r.Release())
}

// Write runs fn under the exclusive borrow.
func (a ElementAddr[T]) Write(fn func(*T) error) error {
	r, err := a.BorrowMut()
	if err != nil {
		return err
	}
	err = fn(r.Value())
	return errors.Join(err, r.Release())
}

// Owner returns the owning entity, or the invalid address.
func (a ElementAddr[T]) Owner() EntityAddr {
	if !a.Valid() {
		return EntityAddr{}
	}
	return a.h.owner
}

// Erase drops the static type.
func (a ElementAddr[T]) Erase() ErasedElementAddr {
	if !a.Valid() {
		return ErasedElementAddr{}
	}
	return ErasedElementAddr{h: a.h}
}

// Equal reports whether both addresses name the same element. Two invalid
// addresses are equal.
func (a ElementAddr[T]) Equal(other ElementAddr[T]) bool {
	if !a.Valid() || !other.Valid() {
		return a.Valid() == other.Valid()
	}
	return a.h == other.h
}

func (a ElementAddr[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Owner().PersistentID())
}

func (a *ElementAddr[T]) UnmarshalJSON(data []byte) error {
	ref, err := decodeRef(data)
	if err != nil {
		return err
	}
	*a = ElementAddr[T]{ref: ref}
	return nil
}

// Link resolves a decoded address: the owning entity through r, then the
// element of type T on it.
func (a *ElementAddr[T]) Link(r Resolver) error {
	if !a.ref.set {
		return nil
	}
	ent, err := r.ResolveEntity(a.ref.id)
	if err != nil {
		return err
	}
	*a = ElementAddr[T]{}
	if !ent.Valid() {
		return nil
	}
	return ent.Read(func(e *Entity) error {
		*a = QueryElement[T](e)
		return nil
	})
}

// ErasedElementAddr is an ElementAddr with the static type dropped. It is
// comparable; equal values name the same holder.
type ErasedElementAddr struct {
	h *elementHolder
}

// Valid reports whether the element still exists.
func (a ErasedElementAddr) Valid() bool {
	return a.h != nil && a.h.cell.Alive()
}

// Type returns the element's runtime type, or nil for an invalid address.
func (a ErasedElementAddr) Type() reflect.Type {
	if !a.Valid() {
		return nil
	}
	return a.h.typ
}

// TypeName returns the diagnostic name of the element type.
func (a ErasedElementAddr) TypeName() string {
	return TypeName(a.Type())
}

// Owner returns the owning entity, or the invalid address.
func (a ErasedElementAddr) Owner() EntityAddr {
	if !a.Valid() {
		return EntityAddr{}
	}
	return a.h.owner
}

// Borrow takes a shared borrow of the element.
func (a ErasedElementAddr) Borrow() (*borrow.Ref[Element], error) {
	if !a.Valid() {
		return nil, borrow.ErrAbsent
	}
	return borrow.Shared(a.h.cell, a.h.element, a.h.subject())
}

// BorrowMut takes the exclusive borrow of the element.
func (a ErasedElementAddr) BorrowMut() (*borrow.Ref[Element], error) {
	if !a.Valid() {
		return nil, borrow.ErrAbsent
	}
	return borrow.Exclusive(a.h.cell, a.h.element, a.h.subject())
}

// Read runs fn under a shared borrow.
func (a ErasedElementAddr) Read(fn func(Element) error) error {
	r, err := a.Borrow()
	if err != nil {
		return err
	}
	err = fn(r.Value())
	return errors.Join(err, r.Release())
}

// Write runs fn under the exclusive borrow.
func (a ErasedElementAddr) Write(fn func(Element) error) error {
	r, err := a.BorrowMut()
	if err != nil {
		return err
	}
	err = fn(r.Value())
	return errors.Join(err, r.Release())
}

// Equal reports whether both addresses name the same element.
func (a ErasedElementAddr) Equal(other ErasedElementAddr) bool {
	if !a.Valid() || !other.Valid() {
		return a.Valid() == other.Valid()
	}
	return a.h == other.h
}

// Typed recovers a typed address. The result is invalid when the element is
// not a T.
func Typed[T any](a ErasedElementAddr) ElementAddr[T] {
	if !a.Valid() {
		return ElementAddr[T]{}
	}
	if _, ok := a.h.data.(*T); !ok {
		return ElementAddr[T]{}
	}
	return ElementAddr[T]{h: a.h}
}
