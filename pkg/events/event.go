package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Kind names what happened to which entity
type Kind string

const (
	PlayerCreated  Kind = "player.created"
	PlayerRenamed  Kind = "player.renamed"
	PlayerDeleted  Kind = "player.deleted"
	SessionCreated Kind = "session.created"
	SessionUpdated Kind = "session.updated"
	SessionDeleted Kind = "session.deleted"
	ResultSet      Kind = "result.set"
)

// ChangeEvent announces a successful mutation of the store
type ChangeEvent struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	EntityID   string    `json:"entity_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	PlayerID   string    `json:"player_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps a fresh event of the given kind
func New(kind Kind, entityID string) ChangeEvent {
	return ChangeEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
}

// Key partitions events of one session together, everything else by entity
func (e ChangeEvent) Key() []byte {
	if e.SessionID != "" {
		return []byte(e.SessionID)
	}
	return []byte(e.EntityID)
}

// Encode serializes the event for the wire
func Encode(e ChangeEvent) ([]byte, error) {
	return json.Marshal(e)
}

// Parse deserializes and validates an event read from the wire
func Parse(data []byte) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ChangeEvent{}, fmt.Errorf("failed to unmarshal change event: %w", err)
	}
	if e.ID == "" {
		return ChangeEvent{}, fmt.Errorf("missing event ID")
	}
	if e.Kind == "" {
		return ChangeEvent{}, fmt.Errorf("missing event kind")
	}
	return e, nil
}
