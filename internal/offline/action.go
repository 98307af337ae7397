package offline

import (
	"time"

	"github.com/google/uuid"
)

type ActionType string

const (
	ActionCreate ActionType = "CREATE"
	ActionUpdate ActionType = "UPDATE"
	ActionDelete ActionType = "DELETE"
)

// Action is one queued write. ID is stable for the lifetime of the
// action and is the only handle used to remove it from the queue.
type Action struct {
	ID         string     `json:"id"`
	Type       ActionType `json:"type"`
	EntityID   string     `json:"entity_id"`
	Payload    Entity     `json:"payload"`
	Revision   int        `json:"revision"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	Attempts   int        `json:"attempts"`
	LastError  string     `json:"last_error,omitempty"`
}

func newAction(t ActionType, entityID string, payload Entity, now time.Time) *Action {
	return &Action{
		ID:         uuid.New().String(),
		Type:       t,
		EntityID:   entityID,
		Payload:    payload,
		EnqueuedAt: now,
	}
}

func (a *Action) clone() *Action {
	c := *a
	c.Payload = cloneEntity(a.Payload)
	return &c
}

func cloneActions(list []*Action) []*Action {
	out := make([]*Action, len(list))
	for i, a := range list {
		out[i] = a.clone()
	}
	return out
}

func indexOfAction(list []*Action, id string) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func removeAction(list []*Action, id string) []*Action {
	out := make([]*Action, 0, len(list))
	for _, a := range list {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func replaceAction(list []*Action, id string, repl *Action) []*Action {
	out := make([]*Action, len(list))
	copy(out, list)
	if i := indexOfAction(out, id); i >= 0 {
		out[i] = repl
	}
	return out
}

// pendingCreate returns the queued CREATE for a local id.
func pendingCreate(list []*Action, entityID string) *Action {
	for _, a := range list {
		if a.Type == ActionCreate && a.EntityID == entityID {
			return a
		}
	}
	return nil
}

func hasActionFor(list []*Action, entityID string) bool {
	for _, a := range list {
		if a.EntityID == entityID {
			return true
		}
	}
	return false
}

// pendingPatch merges the payloads of the queued UPDATEs for entityID in
// queue order.
func pendingPatch(list []*Action, entityID string) Entity {
	patch := Entity{}
	for _, a := range list {
		if a.Type == ActionUpdate && a.EntityID == entityID {
			patch = merge(patch, a.Payload)
		}
	}
	return patch
}

// lastActionTypes maps each entity to the type of its newest action.
func lastActionTypes(list []*Action) map[string]ActionType {
	out := make(map[string]ActionType, len(list))
	for _, a := range list {
		out[a.EntityID] = a.Type
	}
	return out
}
