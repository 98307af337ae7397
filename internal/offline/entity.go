// Package offline keeps a local, always-readable copy of server
// collections and queues writes made while the server is unreachable,
// replaying them in order once connectivity returns.
package offline

import (
	"fmt"
	"strings"
	"time"
)

// Entity is a task or knowledge entry as exchanged with the API.
type Entity = map[string]interface{}

const (
	// IDKey holds the entity identifier.
	IDKey = "id"
	// OfflineFlag marks entities whose latest state exists only locally.
	OfflineFlag = "_isOffline"
	// LocalIDPrefix prefixes identifiers minted while offline.
	LocalIDPrefix = "temp_"
)

func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

func newLocalID(now time.Time, seq uint64) string {
	return fmt.Sprintf("%s%d_%d", LocalIDPrefix, now.UnixMilli(), seq)
}

// EntityID returns the identifier of e, or "" when it has none.
func EntityID(e Entity) string {
	switch v := e[IDKey].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// IsOffline reports whether e carries the offline marker.
func IsOffline(e Entity) bool {
	v, _ := e[OfflineFlag].(bool)
	return v
}

func cloneEntity(e Entity) Entity {
	if e == nil {
		return nil
	}
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

func cloneEntities(list []Entity) []Entity {
	out := make([]Entity, len(list))
	for i, e := range list {
		out[i] = cloneEntity(e)
	}
	return out
}

// merge overlays patch onto base without touching either.
func merge(base, patch Entity) Entity {
	out := cloneEntity(base)
	if out == nil {
		out = Entity{}
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// wirePayload strips the fields the server must never see.
func wirePayload(e Entity, keepID bool) Entity {
	out := cloneEntity(e)
	if out == nil {
		out = Entity{}
	}
	delete(out, OfflineFlag)
	if !keepID {
		delete(out, IDKey)
	}
	return out
}

func indexOfEntity(list []Entity, id string) int {
	for i, e := range list {
		if EntityID(e) == id {
			return i
		}
	}
	return -1
}

// upsertEntity returns a new slice with e replacing the entity under id
// (or appended). Entities in the input slice are never mutated.
func upsertEntity(list []Entity, id string, e Entity) []Entity {
	out := make([]Entity, len(list), len(list)+1)
	copy(out, list)
	if i := indexOfEntity(out, id); i >= 0 {
		out[i] = e
		return out
	}
	return append(out, e)
}

func removeEntity(list []Entity, id string) []Entity {
	out := make([]Entity, 0, len(list))
	for _, e := range list {
		if EntityID(e) != id {
			out = append(out, e)
		}
	}
	return out
}
