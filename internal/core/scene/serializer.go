// Package scene persists entity graphs as JSON documents and loads them back
// into an ecs.Manager, remapping persisted ids to fresh entities.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/zeusync/citrus/internal/core/ecs"
	"github.com/zeusync/citrus/internal/core/observability/log"
)

type Option func(*Serializer)

func WithLogger(l log.Log) Option {
	return func(s *Serializer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIndent makes Marshal and Write indent output with indent.
func WithIndent(indent string) Option {
	return func(s *Serializer) { s.indent = indent }
}

// Serializer converts entities to and from Documents using a Registry. Only
// one load may be in flight at a time.
type Serializer struct {
	registry *Registry
	logger   log.Log
	indent   string
	loading  atomic.Bool
}

func NewSerializer(reg *Registry, opts ...Option) *Serializer {
	s := &Serializer{registry: reg, logger: log.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Serializer) Registry() *Registry {
	return s.registry
}

// Result is the outcome of a load that was not aborted.
type Result struct {
	// Entities holds one entity per document record, in document order.
	Entities []ecs.EntityAddr
	// Unresolved lists, sorted, the referenced ids no record defined. Those
	// references were loaded as invalid addresses.
	Unresolved []int64
	// Errors collects every *ElementError.
	Errors []error
}

// Err joins Errors.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

// SerializeScene writes one record per entity. Elements whose type is not
// registered are skipped.
func (s *Serializer) SerializeScene(entities []ecs.EntityAddr) (Document, error) {
	doc := make(Document, 0, len(entities))
	for _, addr := range entities {
		rec := EntityRecord{ID: addr.PersistentID(), Elements: []ElementRecord{}}
		var elements []ecs.ErasedElementAddr
		err := addr.Read(func(e *ecs.Entity) error {
			rec.Name = e.Name()
			elements = e.Elements()
			parent, err := json.Marshal(e.Parent())
			rec.Parent = parent
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", addr, err)
		}

		for _, el := range elements {
			entry := s.registry.FindByType(el.Type())
			if entry == nil {
				s.logger.Debug("skipping unregistered element",
					log.String("entity", rec.Name),
					log.String("type", el.TypeName()),
				)
				continue
			}
			var payload json.RawMessage
			if err := el.Read(func(v ecs.Element) error {
				var err error
				payload, err = encodePayload(v)
				return err
			}); err != nil {
				return nil, fmt.Errorf("serialize %s on %s: %w", entry.Name, addr, err)
			}
			rec.Elements = append(rec.Elements, ElementRecord{Name: entry.Name, Payload: payload})
		}
		doc = append(doc, rec)
	}
	return doc, nil
}

// Marshal serializes entities straight to JSON.
func (s *Serializer) Marshal(entities []ecs.EntityAddr) ([]byte, error) {
	doc, err := s.SerializeScene(entities)
	if err != nil {
		return nil, err
	}
	if s.indent != "" {
		return json.MarshalIndent(doc, "", s.indent)
	}
	return json.Marshal(doc)
}

// Unmarshal decodes data and loads it into m.
func (s *Serializer) Unmarshal(m *ecs.Manager, data []byte) (*Result, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scene: decode document: %w", err)
	}
	return s.DeserializeScene(m, doc)
}

type pendingElement struct {
	el      ecs.ErasedElementAddr
	entity  string
	name    string
	payload json.RawMessage
}

// DeserializeScene loads doc into m.
//
// Entities are created first, then parent links are applied, then every
// element is attached with its registered default, and only then are payloads
// decoded, so references in a payload may point at any record. A parent cycle
// aborts the load and destroys everything it created; element failures are
// collected into Result.Errors.
func (s *Serializer) DeserializeScene(m *ecs.Manager, doc Document) (*Result, error) {
	if !s.loading.CompareAndSwap(false, true) {
		return nil, ErrDeserializeActive
	}
	defer s.loading.Store(false)

	if err := checkIDs(doc); err != nil {
		return nil, err
	}

	ctx := newDecodeContext(m, s.logger)
	defer ctx.close()

	created := make([]ecs.EntityAddr, 0, len(doc))
	for _, rec := range doc {
		addr, err := ctx.MapEntity(rec.ID, rec.Name)
		if err != nil {
			return nil, s.rollback(ctx, created, err)
		}
		created = append(created, addr)
	}
	s.logger.Debug("scene entities created", log.Int("count", len(created)))

	var cycles []*ecs.CycleError
	for i, rec := range doc {
		parent, err := decodeParent(ctx, rec.Parent)
		if err != nil {
			return nil, s.rollback(ctx, created, fmt.Errorf("scene: parent of %q: %w", rec.Name, err))
		}
		err = m.Reparent(created[i], parent)
		var ce *ecs.CycleError
		switch {
		case errors.As(err, &ce):
			cycles = append(cycles, ce)
		case err != nil:
			return nil, s.rollback(ctx, created, fmt.Errorf("scene: reparent %q: %w", rec.Name, err))
		}
	}
	if len(cycles) > 0 {
		return nil, s.rollback(ctx, created, &CycleError{Pairs: cycles})
	}

	res := &Result{Entities: created}

	var pending []pendingElement
	for i, rec := range doc {
		for _, er := range rec.Elements {
			entry := s.registry.FindExact(er.Name)
			if entry == nil {
				res.Errors = append(res.Errors, &ElementError{Op: "create", Entity: rec.Name, Element: er.Name, Err: ErrUnregistered})
				continue
			}
			var el ecs.ErasedElementAddr
			err := created[i].Write(func(e *ecs.Entity) error {
				var err error
				el, err = entry.Create(e)
				return err
			})
			if err != nil {
				res.Errors = append(res.Errors, &ElementError{Op: "create", Entity: rec.Name, Element: er.Name, Err: err})
				continue
			}
			pending = append(pending, pendingElement{el: el, entity: rec.Name, name: er.Name, payload: er.Payload})
		}
	}

	for _, p := range pending {
		if err := p.el.Write(func(v ecs.Element) error {
			return decodePayload(ctx, v, p.payload)
		}); err != nil {
			res.Errors = append(res.Errors, &ElementError{Op: "decode", Entity: p.entity, Element: p.name, Err: err})
		}
	}

	res.Unresolved = ctx.unresolvedIDs()
	if len(res.Errors) > 0 {
		s.logger.Warn("scene loaded with element errors",
			log.Int("entities", len(created)),
			log.Int("failures", len(res.Errors)),
			log.Error(res.Err()),
		)
	} else {
		s.logger.Debug("scene loaded",
			log.Int("entities", len(created)),
			log.Int("elements", len(pending)),
		)
	}
	return res, nil
}

// rollback destroys everything the load created and returns cause, joined
// with any failure to flush the destruction.
func (s *Serializer) rollback(ctx *DecodeContext, created []ecs.EntityAddr, cause error) error {
	m := ctx.Manager()
	for _, addr := range created {
		m.DestroyEntity(addr)
	}
	err := m.Resolve()
	s.logger.Warn("scene load aborted", log.Int("entities", len(created)), log.Error(cause))
	return errors.Join(cause, err)
}

func decodeParent(ctx *DecodeContext, raw json.RawMessage) (ecs.EntityAddr, error) {
	if len(raw) == 0 {
		return ecs.EntityAddr{}, nil
	}
	var parent ecs.EntityAddr
	if err := json.Unmarshal(raw, &parent); err != nil {
		return ecs.EntityAddr{}, err
	}
	if err := parent.Link(ctx); err != nil {
		return ecs.EntityAddr{}, err
	}
	return parent, nil
}

func checkIDs(doc Document) error {
	seen := make(map[int64]string, len(doc))
	for _, rec := range doc {
		if rec.ID == 0 {
			continue
		}
		if prev, ok := seen[rec.ID]; ok {
			return fmt.Errorf("%w: %d used by %q and %q", ErrDuplicateID, rec.ID, prev, rec.Name)
		}
		seen[rec.ID] = rec.Name
	}
	return nil
}
