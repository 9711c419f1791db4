package ecs

import (
	"github.com/google/uuid"

	"github.com/zeusync/citrus/internal/core/events/bus"
	"github.com/zeusync/citrus/internal/core/observability/log"
)

// Lifecycle event types published on the Manager's bus.
const (
	EventEntityCreated    = "entity.created"
	EventEntityDestroyed  = "entity.destroyed"
	EventEntityReparented = "entity.reparented"
	EventElementAdded     = "element.added"
	EventElementRemoved   = "element.removed"
)

const eventSource = "ecs.manager"

// Lifecycle is the Data() payload of every lifecycle event. Addresses are not
// carried because destroyed entities no longer have a valid one.
type Lifecycle struct {
	Entity   uuid.UUID
	Name     string
	Element  string
	ParentID uuid.UUID
}

func (m *Manager) publish(kind string, ent EntityAddr, element string) {
	if m.bus == nil {
		return
	}
	data := Lifecycle{Element: element}
	if ent.h != nil {
		data.Entity = ent.h.id
		data.Name = ent.h.ent.name
		data.ParentID = ent.h.ent.parent.ID()
	}
	if err := m.bus.Publish(bus.NewEvent(kind, eventSource, data)); err != nil {
		m.logger.Warn("lifecycle handler failed",
			log.String("event", kind),
			log.String("entity", data.Name),
			log.Error(err),
		)
	}
}
