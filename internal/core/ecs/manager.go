// Package ecs holds the entity/element graph: elements attached to entities,
// entities arranged in a tree, and the Manager that owns them all.
//
// Nothing outside the Manager owns an entity or element. Everything else holds
// addresses and goes through shared/exclusive borrows to reach the data.
// Destruction is deferred: DestroyEntity and DestroyElement only queue, and
// Resolve applies the queue at a well-defined point.
package ecs

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/zeusync/citrus/internal/core/borrow"
	"github.com/zeusync/citrus/internal/core/events/bus"
	"github.com/zeusync/citrus/internal/core/observability/log"
)

// ResolvePolicy selects when Update flushes the destroy queues.
type ResolvePolicy int

const (
	// ResolveEachEntity resolves after every entity visited, so destruction
	// requested by one entity's elements is applied before the next entity.
	ResolveEachEntity ResolvePolicy = iota
	// ResolveAtEnd resolves only once, after the whole pass.
	ResolveAtEnd
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger; the default drops everything.
func WithLogger(l log.Log) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithBus publishes lifecycle events on b.
func WithBus(b bus.EventBus) Option {
	return func(m *Manager) { m.bus = b }
}

// WithResolvePolicy sets the Update flush policy.
func WithResolvePolicy(p ResolvePolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// Manager owns every entity, the root list and the destroy queues. It is not
// safe for concurrent use.
type Manager struct {
	entities []*entityHolder
	roots    []EntityAddr
	nextSeq  uint64

	entityQueue  pendingSet[*entityHolder]
	elementQueue pendingSet[*elementHolder]

	logger log.Log
	bus    bus.EventBus
	policy ResolvePolicy
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{logger: log.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateEntity creates a root entity and returns its address.
func (m *Manager) CreateEntity(name string) EntityAddr {
	m.nextSeq++
	h := &entityHolder{
		ent:  &Entity{name: name},
		cell: borrow.NewCell(),
		id:   uuid.New(),
		seq:  m.nextSeq,
		m:    m,
	}
	addr := EntityAddr{h: h}
	h.ent.self = addr

	m.entities = append(m.entities, h)
	m.roots = append(m.roots, addr)

	m.logger.Debug("entity created", log.String("name", name), log.String("id", h.id.String()))
	m.publish(EventEntityCreated, addr, "")
	return addr
}

// DestroyEntity queues the entity and its whole subtree for destruction at the
// next Resolve. Invalid addresses are ignored.
func (m *Manager) DestroyEntity(addr EntityAddr) {
	if addr.Valid() && addr.h.m == m {
		m.entityQueue.add(addr.h)
	}
}

// DestroyElement queues the element for removal at the next Resolve.
func (m *Manager) DestroyElement(addr ErasedElementAddr) {
	if addr.Valid() {
		m.elementQueue.add(addr.h)
	}
}

// DestroyElementOf queues the element of type T attached to ent. It fails with
// ErrElementNotFound when ent carries no T.
func DestroyElementOf[T any](m *Manager, ent EntityAddr) error {
	var target ElementAddr[T]
	if err := ent.Read(func(e *Entity) error {
		target = QueryElement[T](e)
		return nil
	}); err != nil {
		return err
	}
	if !target.Valid() {
		var zero T
		return fmt.Errorf("%w: %T", ErrElementNotFound, zero)
	}
	m.DestroyElement(target.Erase())
	return nil
}

// Pending returns the number of queued entities and elements.
func (m *Manager) Pending() (entities, elements int) {
	return m.entityQueue.len(), m.elementQueue.len()
}

// Resolve applies the destroy queues.
//
// Entities are processed as a stack: each is detached from its parent, its
// children are detached and pushed, then its storage is dropped. Elements are
// then removed from their owners; elements whose owner is already gone are
// skipped. An entity is destroyed only when nothing in its subtree is
// borrowed; otherwise the whole subtree is left untouched, the entity is
// re-queued for the next Resolve and the conflict is returned. A borrowed
// element is handled the same way.
func (m *Manager) Resolve() error {
	var errs []error

	stack := m.entityQueue.drain()
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !h.cell.Alive() {
			continue
		}
		addr := EntityAddr{h: h}

		if err := h.subtreeIdle(); err != nil {
			errs = append(errs, err)
			m.entityQueue.add(h)
			continue
		}
		if err := m.Reparent(addr, EntityAddr{}); err != nil {
			errs = append(errs, err)
			m.entityQueue.add(h)
			continue
		}
		for _, child := range h.ent.Children() {
			if err := m.Reparent(child, EntityAddr{}); err != nil {
				errs = append(errs, err)
			}
			stack = append(stack, child.h)
		}

		if err := m.drop(h); err != nil {
			errs = append(errs, err)
		}
	}

	for _, h := range m.elementQueue.drain() {
		if !h.cell.Alive() || !h.owner.Valid() {
			continue
		}
		if h.cell.Count() != 0 {
			errs = append(errs, heldError(h.subject()))
			m.elementQueue.add(h)
			continue
		}
		var removed bool
		err := h.owner.Write(func(e *Entity) error {
			var err error
			removed, err = e.removeElement(h)
			return err
		})
		if err != nil && !removed {
			errs = append(errs, err)
			m.elementQueue.add(h)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
		if removed {
			m.logger.Debug("element removed", log.String("type", TypeName(h.typ)), log.String("entity", h.owner.h.ent.name))
			m.publish(EventElementRemoved, h.owner, TypeName(h.typ))
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		m.logger.Warn("resolve incomplete", log.Int("failures", len(errs)), log.Error(err))
		return err
	}
	return nil
}

// idle fails when the entity or any of its elements is still borrowed.
func (h *entityHolder) idle() error {
	if h.cell.Count() != 0 {
		return heldError(h.subject())
	}
	for _, el := range h.ent.elements {
		if el.cell.Count() != 0 {
			return heldError(el.subject())
		}
	}
	return nil
}

// subtreeIdle is idle applied to h and every descendant.
func (h *entityHolder) subtreeIdle() error {
	if err := h.idle(); err != nil {
		return err
	}
	for _, c := range h.ent.children {
		if !c.Valid() {
			continue
		}
		if err := c.h.subtreeIdle(); err != nil {
			return err
		}
	}
	return nil
}

func heldError(subject string) error {
	return &borrow.Error{Op: "destroy", Kind: borrow.KindHeldOnDestroy, Subject: subject, Detail: "still borrowed, retried at next resolve"}
}

// drop removes a detached root entity from storage and kills every cell it owns.
func (m *Manager) drop(h *entityHolder) error {
	addr := EntityAddr{h: h}
	if i := slices.IndexFunc(m.roots, addr.Equal); i >= 0 {
		m.roots = slices.Delete(m.roots, i, i+1)
	}
	if i, ok := m.indexOf(h.seq); ok {
		m.entities = slices.Delete(m.entities, i, i+1)
	}

	m.logger.Debug("entity destroyed", log.String("name", h.ent.name), log.String("id", h.id.String()))

	var errs []error
	for _, el := range h.ent.elements {
		if err := el.cell.Kill(el.subject()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := h.cell.Kill(h.subject()); err != nil {
		errs = append(errs, err)
	}
	m.publish(EventEntityDestroyed, addr, "")
	return errors.Join(errs...)
}

// indexOf finds the first holder with a sequence >= seq; entities stay sorted
// by seq.
func (m *Manager) indexOf(seq uint64) (int, bool) {
	return slices.BinarySearchFunc(m.entities, seq, func(e *entityHolder, seq uint64) int {
		switch {
		case e.seq < seq:
			return -1
		case e.seq > seq:
			return 1
		}
		return 0
	})
}

// Update runs one pass: every entity in storage order, every element of that
// entity in attachment order. Entities created during the pass are visited in
// the same pass; entities and elements destroyed before their turn are not.
// Hook errors are joined and returned; they do not stop the pass.
func (m *Manager) Update() error {
	var errs []error

	var cursor uint64
	for {
		i, _ := m.indexOf(cursor + 1)
		if i >= len(m.entities) {
			break
		}
		h := m.entities[i]
		cursor = h.seq
		owner := EntityAddr{h: h}

		var elements []ErasedElementAddr
		if err := owner.Read(func(e *Entity) error {
			elements = e.Elements()
			return nil
		}); err != nil {
			errs = append(errs, err)
			continue
		}

		for _, el := range elements {
			if !el.Valid() {
				continue
			}
			if err := el.Write(func(v Element) error {
				return v.Update(m, owner)
			}); err != nil {
				errs = append(errs, fmt.Errorf("update %s on %s: %w", el.TypeName(), owner, err))
			}
		}

		if m.policy == ResolveEachEntity {
			if err := m.Resolve(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := m.Resolve(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Len returns the number of live entities.
func (m *Manager) Len() int {
	return len(m.entities)
}

// Entities returns every live entity in creation order.
func (m *Manager) Entities() []EntityAddr {
	out := make([]EntityAddr, len(m.entities))
	for i, h := range m.entities {
		out[i] = EntityAddr{h: h}
	}
	return out
}

// Roots returns a snapshot of the entities without a parent.
func (m *Manager) Roots() []EntityAddr {
	return slices.Clone(m.roots)
}
