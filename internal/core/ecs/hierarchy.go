package ecs

import (
	"errors"
	"slices"

	"github.com/zeusync/citrus/internal/core/borrow"
	"github.com/zeusync/citrus/internal/core/observability/log"
)

// Reparent moves child under parent; an invalid parent makes child a root.
//
// The ancestors of parent are walked first. If child is among them, or is
// parent itself, a *CycleError is returned and nothing changes. Reparenting
// to the current parent is a no-op. Otherwise child is detached from its old
// parent (or the root list) and appended to the new parent's children (or the
// root list).
func (m *Manager) Reparent(child, parent EntityAddr) error {
	if !child.Valid() || child.h.m != m {
		return ErrInvalidAddress
	}
	if !parent.Valid() {
		parent = EntityAddr{}
	}

	for cur := parent; cur.Valid(); {
		if cur.h == child.h {
			return &CycleError{
				Child:    child.h.ent.name,
				ChildID:  child.h.id,
				Parent:   parent.h.ent.name,
				ParentID: parent.h.id,
			}
		}
		next, err := parentOf(cur)
		if err != nil {
			return err
		}
		cur = next
	}

	old, err := parentOf(child)
	if err != nil {
		return err
	}
	if old.Equal(parent) {
		return nil
	}

	// Every exclusive borrow is taken before anything is mutated so a conflict
	// leaves the tree as it was.
	var guards []*borrow.Ref[*Entity]
	release := func() error {
		var errs []error
		for _, g := range guards {
			errs = append(errs, g.Release())
		}
		return errors.Join(errs...)
	}
	for _, a := range []EntityAddr{child, old, parent} {
		if !a.Valid() {
			guards = append(guards, nil)
			continue
		}
		g, err := a.BorrowMut()
		if err != nil {
			return errors.Join(err, release())
		}
		guards = append(guards, g)
	}
	childEnt := guards[0].Value()

	if guards[1] != nil {
		oldEnt := guards[1].Value()
		oldEnt.children = slices.DeleteFunc(oldEnt.children, child.Equal)
	} else {
		m.roots = slices.DeleteFunc(m.roots, child.Equal)
	}

	if guards[2] != nil {
		newEnt := guards[2].Value()
		newEnt.children = append(newEnt.children, child)
	} else {
		m.roots = append(m.roots, child)
	}
	childEnt.parent = parent

	if err := release(); err != nil {
		return err
	}

	m.logger.Debug("entity reparented",
		log.String("entity", child.h.ent.name),
		log.String("from", old.String()),
		log.String("to", parent.String()),
	)
	m.publish(EventEntityReparented, child, "")
	return nil
}

func parentOf(a EntityAddr) (EntityAddr, error) {
	var parent EntityAddr
	err := a.Read(func(e *Entity) error {
		parent = e.parent
		return nil
	})
	return parent, err
}

// Descendants returns every entity below root, depth first, parents before
// their children.
func (m *Manager) Descendants(root EntityAddr) ([]EntityAddr, error) {
	var out []EntityAddr
	var walk func(a EntityAddr) error
	walk = func(a EntityAddr) error {
		var children []EntityAddr
		if err := a.Read(func(e *Entity) error {
			children = e.Children()
			return nil
		}); err != nil {
			return err
		}
		for _, c := range children {
			out = append(out, c)
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}
