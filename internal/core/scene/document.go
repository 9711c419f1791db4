package scene

import "encoding/json"

// Document is the persisted form of a scene: one record per entity.
type Document []EntityRecord

type EntityRecord struct {
	Name string `json:"name"`
	// Parent is the parent address as written by ecs.EntityAddr: a persisted
	// id, 0 for a root.
	Parent   json.RawMessage `json:"parent_payload,omitempty"`
	ID       int64           `json:"id"`
	Elements []ElementRecord `json:"eles"`
}

type ElementRecord struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}
