package graph

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/ericfisherdev/reqbridge/internal/domain/model"
)

// entityShape is one known way the graph store encodes an entity reference.
type entityShape struct {
	name    string
	extract func(ref entityRef) (string, bool)
}

// entityShapes are tried in order; the first match wins.
var entityShapes = []entityShape{
	{name: "entityId", extract: func(ref entityRef) (string, bool) { return asString(ref.EntityID) }},
	{name: "entityId.id", extract: func(ref entityRef) (string, bool) { return idField(ref.EntityID) }},
	{name: "key.entityId", extract: func(ref entityRef) (string, bool) {
		if ref.Key == nil {
			return "", false
		}
		if id, ok := asString(ref.Key.EntityID); ok {
			return id, true
		}
		return idField(ref.Key.EntityID)
	}},
}

type entityRef struct {
	EntityType string          `json:"entityType"`
	EntityID   json.RawMessage `json:"entityId"`
	Key        *struct {
		EntityType string          `json:"entityType"`
		EntityID   json.RawMessage `json:"entityId"`
	} `json:"key"`
}

// entityKeyOf decodes an entity reference from one accepted or rejected
// item. The boolean is false when no known shape matched.
func entityKeyOf(raw json.RawMessage) (model.EntityKey, bool) {
	var ref entityRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		slog.Warn("graph: entity reference is not an object", "error", err)
		return model.EntityKey{}, false
	}

	entityType := ref.EntityType
	if entityType == "" && ref.Key != nil {
		entityType = ref.Key.EntityType
	}

	for _, shape := range entityShapes {
		if id, ok := shape.extract(ref); ok {
			return model.EntityKey{EntityType: entityType, EntityID: id}, true
		}
	}

	slog.Warn("graph: no shape matched entity reference", "raw", string(raw))
	return model.EntityKey{EntityType: entityType}, false
}

func asString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

func idField(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var obj struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", false
	}
	return asString(obj.ID)
}
