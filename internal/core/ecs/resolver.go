package ecs

import (
	"bytes"
	"encoding/json"
)

// Resolver maps persisted entity ids to live entities while a scene is being
// decoded. Id 0 always resolves to the invalid address.
type Resolver interface {
	ResolveEntity(persistentID int64) (EntityAddr, error)
}

// Linkable is implemented by references that decode into a pending persisted
// id and must be linked against a Resolver before they point at anything.
type Linkable interface {
	Link(r Resolver) error
}

// pendingRef is the persisted id carried by a freshly decoded address.
type pendingRef struct {
	id  int64
	set bool
}

func decodeRef(data []byte) (pendingRef, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return pendingRef{set: true}, nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return pendingRef{}, err
	}
	return pendingRef{id: id, set: true}, nil
}
