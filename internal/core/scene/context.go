package scene

import (
	"fmt"
	"maps"
	"slices"

	"github.com/zeusync/citrus/internal/core/ecs"
	"github.com/zeusync/citrus/internal/core/observability/log"
)

// DecodeContext maps persisted entity ids to live entities for the duration of
// one load. It stops resolving once the load ends.
type DecodeContext struct {
	m      *ecs.Manager
	logger log.Log
	ids    map[int64]ecs.EntityAddr
	// unresolved records ids referenced but defined by no record.
	unresolved map[int64]struct{}
	active     bool
}

var _ ecs.Resolver = (*DecodeContext)(nil)

func newDecodeContext(m *ecs.Manager, logger log.Log) *DecodeContext {
	return &DecodeContext{
		m:          m,
		logger:     logger,
		ids:        make(map[int64]ecs.EntityAddr),
		unresolved: make(map[int64]struct{}),
		active:     true,
	}
}

// Manager returns the manager entities are loaded into.
func (c *DecodeContext) Manager() *ecs.Manager {
	return c.m
}

// MapEntity creates a live entity named name and binds id to it. Id 0 yields
// an unmapped entity.
func (c *DecodeContext) MapEntity(id int64, name string) (ecs.EntityAddr, error) {
	if !c.active {
		return ecs.EntityAddr{}, ErrNotDeserializing
	}
	if id == 0 {
		return c.m.CreateEntity(name), nil
	}
	if _, ok := c.ids[id]; ok {
		return ecs.EntityAddr{}, fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	addr := c.m.CreateEntity(name)
	c.ids[id] = addr
	return addr, nil
}

// ResolveEntity returns the entity mapped to id. Id 0, and any id no record in
// the document defines, resolve to the invalid address.
func (c *DecodeContext) ResolveEntity(id int64) (ecs.EntityAddr, error) {
	if !c.active {
		return ecs.EntityAddr{}, ErrNotDeserializing
	}
	if id == 0 {
		return ecs.EntityAddr{}, nil
	}
	if addr, ok := c.ids[id]; ok {
		return addr, nil
	}
	if _, ok := c.unresolved[id]; !ok {
		c.unresolved[id] = struct{}{}
		c.logger.Debug("reference outside document", log.Int64("id", id))
	}
	return ecs.EntityAddr{}, nil
}

// Link resolves every ecs.Linkable reachable from v, which must be a pointer.
func (c *DecodeContext) Link(v any) error {
	if !c.active {
		return ErrNotDeserializing
	}
	return link(v, c)
}

func (c *DecodeContext) unresolvedIDs() []int64 {
	return slices.Sorted(maps.Keys(c.unresolved))
}

func (c *DecodeContext) close() {
	c.active = false
	c.ids = nil
	c.unresolved = nil
}
