// Package sync defines the wire types of the offline synchronization
// protocol: the outbox batch submitted by a client and the envelope the
// server answers with.
package sync

import (
	"github.com/fieldsafe/sitesync/internal/types"
)

// EntityKind identifies one of the syncable entity kinds. The values are
// the wire names used by outbox items, the id map and tombstones.
type EntityKind string

const (
	EntityProjects        EntityKind = "projects"
	EntityWorkers         EntityKind = "workers"
	EntityFindings        EntityKind = "findings"
	EntityMobileDocuments EntityKind = "mobile_documents"
)

// Kinds lists the mutable entity kinds in a stable order.
var Kinds = []EntityKind{EntityProjects, EntityWorkers, EntityFindings, EntityMobileDocuments}

// Operation constants for outbox items.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// OutboxItem is one pending mutation from a client's outbox log.
// LocalID is minted by the client and opaque to the server; RemoteID is
// only known after a prior create round-tripped. Payload is a JSON-encoded
// object of entity fields.
type OutboxItem struct {
	ID        int64      `json:"id"`
	Entity    EntityKind `json:"entity"`
	Op        string     `json:"op"`
	LocalID   string     `json:"local_id"`
	RemoteID  *int64     `json:"remote_id"`
	Payload   string     `json:"payload"`
	CreatedAt string     `json:"created_at"`
}

// IDMapEntry maps a client-local identifier to the server id assigned by
// a successful create. Entries are ephemeral: generated per request,
// never persisted.
type IDMapEntry struct {
	Entity   EntityKind `json:"entity"`
	LocalID  string     `json:"local_id"`
	RemoteID int64      `json:"remote_id"`
}

// Tombstone records a server-observed delete so clients that were offline
// when it happened can purge the row locally.
type Tombstone struct {
	Entity    EntityKind `json:"entity"`
	RemoteID  int64      `json:"remote_id"`
	DeletedAt string     `json:"deleted_at"`
}

// Conflict reports an outbox item the server declined to apply. ServerRow
// carries the current server state for stale-update conflicts so the
// client can resolve locally; it is nil for structural conflicts.
type Conflict struct {
	OutboxID  int64      `json:"outbox_id"`
	Entity    EntityKind `json:"entity"`
	RemoteID  *int64     `json:"remote_id"`
	Reason    string     `json:"reason"`
	ServerRow any        `json:"server_row"`
}

// Request is the sync request body. LastSync is the client's watermark:
// an ISO-8601 instant, or null for a full resync.
type Request struct {
	LastSync *string      `json:"lastSync"`
	Outbox   []OutboxItem `json:"outbox"`
}

// Changes carries the per-entity delta rows. Admonitions are always a
// full snapshot: they are synced but never mutated from the client, so
// there is no staleness window to protect against.
type Changes struct {
	Projects        []types.Project        `json:"projects"`
	Workers         []types.Worker         `json:"workers"`
	Findings        []types.Finding        `json:"findings"`
	MobileDocuments []types.MobileDocument `json:"mobile_documents"`
	Admonitions     []types.Admonition     `json:"admonitions"`
}

// Response is the sync response envelope. Now is the server-side instant
// the request was processed and becomes the client's next watermark.
type Response struct {
	Now              string       `json:"now"`
	AppliedOutboxIDs []int64      `json:"appliedOutboxIds"`
	IDMap            []IDMapEntry `json:"idMap"`
	Changes          Changes      `json:"changes"`
	Tombstones       []Tombstone  `json:"tombstones"`
	Conflicts        []Conflict   `json:"conflicts"`
}
