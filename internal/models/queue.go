package models

import "encoding/json"

// QueueMethod is the HTTP verb recorded for a deferred mutation.
type QueueMethod string

const (
	MethodPost   QueueMethod = "POST"
	MethodPut    QueueMethod = "PUT"
	MethodPatch  QueueMethod = "PATCH"
	MethodDelete QueueMethod = "DELETE"
)

// QueueItem is one not-yet-confirmed outbound mutation. Items are replayed
// strictly in ascending Seq order: an update must never be sent before the
// create it depends on. For creates, EntityID holds the locally assigned
// temp id so the confirmed replay can retire the optimistic copy; action
// POSTs whose record must survive confirmation leave it empty.
type QueueItem struct {
	Seq        int64           `json:"seq"`
	CreatedAt  string          `json:"created_at"`
	Method     QueueMethod     `json:"method"`
	Endpoint   string          `json:"endpoint"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id,omitempty"`
	Synced     bool            `json:"synced"`
	Attempts   int             `json:"attempts"`
	Abandoned  bool            `json:"abandoned"`
	LastError  string          `json:"last_error,omitempty"`
}
