// Package seeding fills the demo database with synthetic student records and
// reports progress as events the CLI renders.
//
// The package supports schema creation, batch insertion inside a single
// transaction and progress updates for terminal feedback.
package seeding

// EventType enumerates known seeding event kinds.
type EventType string

const (
	// EventSchemaReady fires once the students table exists.
	EventSchemaReady EventType = "schema_ready"
	// EventProgress reports how many rows of the batch were inserted.
	EventProgress EventType = "progress"
	// EventCommitted fires after the batch is committed.
	EventCommitted EventType = "committed"
	// EventRolledBack fires when the batch is abandoned.
	EventRolledBack EventType = "rolled_back"
)

// Event is a generic container for seeding UI events.
// Only a subset of fields is set depending on Type.
type Event struct {
	Type EventType `json:"type"`

	// Table is the seeded table name
	Table string `json:"table,omitempty"`

	// Progress
	Done  int `json:"done,omitempty"`
	Total int `json:"total,omitempty"`

	// Message carries the failure reason for EventRolledBack
	Message string `json:"message,omitempty"`
}
