package ecs

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/zeusync/citrus/internal/core/borrow"
)

// EntityAddr is a non-owning handle to an entity. The zero value is the
// always-invalid address, which also stands for "no parent".
//
// In JSON an EntityAddr is the entity's persisted id, 0 for invalid.
type EntityAddr struct {
	h   *entityHolder
	ref pendingRef
}

// Valid reports whether the entity still exists.
func (a EntityAddr) Valid() bool {
	return a.h != nil && a.h.cell.Alive()
}

// ID returns the stable identity, or uuid.Nil for an invalid address. It does
// not borrow: the identity is immutable.
func (a EntityAddr) ID() uuid.UUID {
	if !a.Valid() {
		return uuid.Nil
	}
	return a.h.id
}

// PersistentID returns the id written to scene documents: the low 64 bits of
// the identity. 0 is reserved for null.
func (a EntityAddr) PersistentID() int64 {
	if !a.Valid() {
		return 0
	}
	return PersistentID(a.h.id)
}

// PersistentID folds a stable identity into its persisted form.
func PersistentID(id uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(id[8:]))
}

// Borrow takes a shared borrow of the entity.
func (a EntityAddr) Borrow() (*borrow.Ref[*Entity], error) {
	if !a.Valid() {
		return nil, borrow.ErrAbsent
	}
	return borrow.Shared(a.h.cell, a.h.ent, a.h.subject())
}

// BorrowMut takes the exclusive borrow of the entity.
func (a EntityAddr) BorrowMut() (*borrow.Ref[*Entity], error) {
	if !a.Valid() {
		return nil, borrow.ErrAbsent
	}
	return borrow.Exclusive(a.h.cell, a.h.ent, a.h.subject())
}

// Read runs fn under a shared borrow.
func (a EntityAddr) Read(fn func(*Entity) error) error {
	r, err := a.Borrow()
	if err != nil {
		return err
	}
	err = fn(r.Value())
	return errors.Join(err, r.Release())
}

// Write runs fn under the exclusive borrow.
func (a EntityAddr) Write(fn func(*Entity) error) error {
	r, err := a.BorrowMut()
	if err != nil {
		return err
	}
	err = fn(r.Value())
	return errors.Join(err, r.Release())
}

// Name reads the entity name under a shared borrow.
func (a EntityAddr) Name() (string, error) {
	var name string
	err := a.Read(func(e *Entity) error {
		name = e.name
		return nil
	})
	return name, err
}

// Equal reports whether both addresses name the same entity. Two invalid
// addresses are equal.
func (a EntityAddr) Equal(other EntityAddr) bool {
	if !a.Valid() || !other.Valid() {
		return a.Valid() == other.Valid()
	}
	return a.h == other.h
}

// String is used in diagnostics only.
func (a EntityAddr) String() string {
	if !a.Valid() {
		return "entity(null)"
	}
	return "entity(" + a.h.ent.name + "," + a.h.id.String()[:8] + ")"
}

func (a EntityAddr) manager() *Manager {
	if !a.Valid() {
		return nil
	}
	return a.h.m
}

func (a EntityAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.PersistentID())
}

func (a *EntityAddr) UnmarshalJSON(data []byte) error {
	ref, err := decodeRef(data)
	if err != nil {
		return err
	}
	*a = EntityAddr{ref: ref}
	return nil
}

// Link resolves a decoded address through r.
func (a *EntityAddr) Link(r Resolver) error {
	if !a.ref.set {
		return nil
	}
	ent, err := r.ResolveEntity(a.ref.id)
	if err != nil {
		return err
	}
	*a = ent
	return nil
}
