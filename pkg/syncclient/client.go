// Package syncclient is a Go client for the sitesync protocol. It keeps
// an in-memory outbox of mutations queued while offline and exchanges it
// for the server delta in a single round trip per Sync call.
//
// The outbox is not persisted: an application that must survive restarts
// with pending mutations snapshots Pending() into its own local store and
// requeues on startup.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Sentinel errors mapped from the server's failure statuses.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

// Config configures a Client.
type Config struct {
	// ServerURL is the base URL of the sync server, without trailing slash.
	ServerURL string
	// Token is the bearer token identifying the principal.
	Token string
	// Timeout bounds each HTTP round trip. Defaults to 30s.
	Timeout time.Duration
}

// Client queues mutations and synchronizes them with the server.
// Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client

	mu       sync.Mutex
	lastSync *string
	outbox   []OutboxItem
	nextID   int64
}

// New creates a Client. ServerURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, errors.New("ServerURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		nextID: 1,
	}, nil
}

// Ping checks connectivity to the server.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ServerURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

// QueueCreate queues a create. localID is the client-minted identifier
// the server echoes back through the id map; payload is marshalled to
// JSON. Returns the outbox id of the queued item.
func (c *Client) QueueCreate(entity EntityKind, localID string, payload any) (int64, error) {
	return c.queue(entity, OpCreate, localID, nil, payload)
}

// QueueUpdate queues an update of a server-known row.
func (c *Client) QueueUpdate(entity EntityKind, remoteID int64, payload any) (int64, error) {
	return c.queue(entity, OpUpdate, "", &remoteID, payload)
}

// QueueUpdateLocal queues an update of a row whose create has not
// synced yet. The remote id is resolved from the id map when the create
// round-trips; until then the item is held back from sync.
func (c *Client) QueueUpdateLocal(entity EntityKind, localID string, payload any) (int64, error) {
	return c.queue(entity, OpUpdate, localID, nil, payload)
}

// QueueDelete queues a delete of a server-known row.
func (c *Client) QueueDelete(entity EntityKind, remoteID int64) (int64, error) {
	return c.queue(entity, OpDelete, "", &remoteID, nil)
}

func (c *Client) queue(entity EntityKind, op, localID string, remoteID *int64, payload any) (int64, error) {
	encoded := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("encode payload: %w", err)
		}
		encoded = string(data)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.outbox = append(c.outbox, OutboxItem{
		ID:        id,
		Entity:    entity,
		Op:        op,
		LocalID:   localID,
		RemoteID:  remoteID,
		Payload:   encoded,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	return id, nil
}

// Pending returns a copy of the queued outbox.
func (c *Client) Pending() []OutboxItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]OutboxItem, len(c.outbox))
	copy(out, c.outbox)
	return out
}

// Watermark returns the lastSync watermark, nil before the first
// successful sync.
func (c *Client) Watermark() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSync == nil {
		return nil
	}
	ws := *c.lastSync
	return &ws
}

// SetWatermark seeds the watermark, for clients restoring persisted
// state. Passing nil forces a full resync on the next call.
func (c *Client) SetWatermark(ws *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ws == nil {
		c.lastSync = nil
		return
	}
	v := *ws
	c.lastSync = &v
}

// Sync exchanges the queued outbox for the server delta. On success the
// applied and conflicted items are removed from the queue, pending items
// that referenced a local-only create are rewritten with the assigned
// server id, and the watermark advances to the response's now.
//
// Conflicts are returned inside the response, not as an error: the
// caller inspects them, resolves locally and requeues what it wants to
// retry. Updates still waiting on an unresolved local id are held back
// and sent on a later call.
func (c *Client) Sync(ctx context.Context) (*Response, error) {
	c.mu.Lock()
	batch := make([]OutboxItem, 0, len(c.outbox))
	held := 0
	for _, item := range c.outbox {
		// An update of a row whose create has not round-tripped yet has
		// no remote id to send.
		if item.Op == OpUpdate && item.RemoteID == nil {
			held++
			continue
		}
		batch = append(batch, item)
	}
	reqBody := Request{LastSync: c.lastSync, Outbox: batch}
	c.mu.Unlock()

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode sync request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL+"/api/v1/sync", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		return nil, fmt.Errorf("sync failed: status %d", resp.StatusCode)
	}

	var envelope Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}

	c.settle(&envelope)
	return &envelope, nil
}

// settle retires processed items and resolves local ids from the id map.
func (c *Client) settle(resp *Response) {
	processed := make(map[int64]bool, len(resp.AppliedOutboxIDs)+len(resp.Conflicts))
	for _, id := range resp.AppliedOutboxIDs {
		processed[id] = true
	}
	for _, conflict := range resp.Conflicts {
		processed[conflict.OutboxID] = true
	}

	type localKey struct {
		entity  EntityKind
		localID string
	}
	assigned := make(map[localKey]int64, len(resp.IDMap))
	for _, entry := range resp.IDMap {
		assigned[localKey{entry.Entity, entry.LocalID}] = entry.RemoteID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := c.outbox[:0]
	for _, item := range c.outbox {
		if processed[item.ID] {
			continue
		}
		if item.RemoteID == nil && item.LocalID != "" {
			if remoteID, ok := assigned[localKey{item.Entity, item.LocalID}]; ok {
				id := remoteID
				item.RemoteID = &id
			}
		}
		remaining = append(remaining, item)
	}
	c.outbox = remaining

	ws := resp.Now
	c.lastSync = &ws
}
