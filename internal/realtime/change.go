// Package realtime carries row-change events between this service, the edge
// functions, and dashboard listeners over a Redis channel.
package realtime

// Ops mirror the database operation that produced the change.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change is one row-level change event. TopicID is advisory and may be empty
// for tables that are not topic-scoped.
type Change struct {
	Table   string `json:"table"`
	Op      string `json:"op"`
	ID      string `json:"id"`
	TopicID string `json:"topic_id,omitempty"`
}
