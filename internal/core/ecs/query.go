package ecs

import (
	"reflect"
	"strings"

	"github.com/zeusync/citrus/internal/core/observability/log"
)

// OfType returns every live element of type T in entity creation order.
// Entities that are exclusively borrowed are skipped and reported at warn
// level.
func OfType[T any](m *Manager) []ElementAddr[T] {
	typ := reflect.TypeFor[T]()
	var out []ElementAddr[T]
	var skipped int
	for _, h := range m.entities {
		if !h.cell.Alive() {
			continue
		}
		if h.cell.Count() < 0 {
			skipped++
			continue
		}
		if el := h.ent.holderOf(typ); el != nil {
			out = append(out, ElementAddr[T]{h: el})
		}
	}
	m.warnSkipped("of type", TypeName(typ), skipped)
	return out
}

// FindEntities returns the live entities whose name contains substr, in
// creation order. An empty substr matches everything. Exclusively borrowed
// entities are skipped as in OfType.
func (m *Manager) FindEntities(substr string) []EntityAddr {
	var out []EntityAddr
	var skipped int
	for _, h := range m.entities {
		if !h.cell.Alive() {
			continue
		}
		if h.cell.Count() < 0 {
			skipped++
			continue
		}
		if strings.Contains(h.ent.name, substr) {
			out = append(out, EntityAddr{h: h})
		}
	}
	m.warnSkipped("find entities", substr, skipped)
	return out
}

func (m *Manager) warnSkipped(query, arg string, n int) {
	if n == 0 {
		return
	}
	m.logger.Warn("query skipped exclusively borrowed entities",
		log.String("query", query),
		log.String("arg", arg),
		log.Int("skipped", n),
	)
}
