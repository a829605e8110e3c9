package syncclient

import "encoding/json"

// EntityKind identifies one of the syncable entity kinds.
type EntityKind string

const (
	EntityProjects        EntityKind = "projects"
	EntityWorkers         EntityKind = "workers"
	EntityFindings        EntityKind = "findings"
	EntityMobileDocuments EntityKind = "mobile_documents"
)

// Operation constants for outbox items.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// OutboxItem is one pending mutation queued while offline. LocalID is
// minted by this client for creates; RemoteID is filled in once a prior
// create round-tripped.
type OutboxItem struct {
	ID        int64      `json:"id"`
	Entity    EntityKind `json:"entity"`
	Op        string     `json:"op"`
	LocalID   string     `json:"local_id"`
	RemoteID  *int64     `json:"remote_id"`
	Payload   string     `json:"payload"`
	CreatedAt string     `json:"created_at"`
}

// IDMapEntry maps a client-local identifier to the server-assigned id.
type IDMapEntry struct {
	Entity   EntityKind `json:"entity"`
	LocalID  string     `json:"local_id"`
	RemoteID int64      `json:"remote_id"`
}

// Tombstone records a server-side delete the client must mirror locally.
type Tombstone struct {
	Entity    EntityKind `json:"entity"`
	RemoteID  int64      `json:"remote_id"`
	DeletedAt string     `json:"deleted_at"`
}

// Conflict reports an outbox item the server declined. ServerRow carries
// the current server state for version conflicts; the caller resolves
// locally and may requeue.
type Conflict struct {
	OutboxID  int64           `json:"outbox_id"`
	Entity    EntityKind      `json:"entity"`
	RemoteID  *int64          `json:"remote_id"`
	Reason    string          `json:"reason"`
	ServerRow json.RawMessage `json:"server_row"`
}

// Changes carries the delta rows as raw JSON objects: callers decode each
// row into their own local model.
type Changes struct {
	Projects        []json.RawMessage `json:"projects"`
	Workers         []json.RawMessage `json:"workers"`
	Findings        []json.RawMessage `json:"findings"`
	MobileDocuments []json.RawMessage `json:"mobile_documents"`
	Admonitions     []json.RawMessage `json:"admonitions"`
}

// Request is the sync request body.
type Request struct {
	LastSync *string      `json:"lastSync"`
	Outbox   []OutboxItem `json:"outbox"`
}

// Response is the sync response envelope. Now becomes the client's next
// watermark.
type Response struct {
	Now              string       `json:"now"`
	AppliedOutboxIDs []int64      `json:"appliedOutboxIds"`
	IDMap            []IDMapEntry `json:"idMap"`
	Changes          Changes      `json:"changes"`
	Tombstones       []Tombstone  `json:"tombstones"`
	Conflicts        []Conflict   `json:"conflicts"`
}
