package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubServer implements just enough of the protocol to exercise the
// client: it records each request and answers from a queue of canned
// responses.
type stubServer struct {
	t         *testing.T
	requests  []Request
	responses []Response
	status    int
}

func (s *stubServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/sync", func(w http.ResponseWriter, r *http.Request) {
		if s.status != 0 {
			w.WriteHeader(s.status)
			json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(s.status)})
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.t.Fatalf("stub: decode request: %v", err)
		}
		s.requests = append(s.requests, req)

		resp := Response{Now: "2026-03-15T10:30:00.000Z"}
		if len(s.responses) > 0 {
			resp = s.responses[0]
			s.responses = s.responses[1:]
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func newStubClient(t *testing.T, stub *stubServer) *Client {
	t.Helper()
	stub.t = t
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	c, err := New(Config{ServerURL: srv.URL, Token: "token"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_RequiresServerURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing ServerURL")
	}
}

func TestPing(t *testing.T) {
	c := newStubClient(t, &stubServer{})
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestSync_AppliedItemsRetire(t *testing.T) {
	stub := &stubServer{responses: []Response{{
		Now:              "2026-03-15T10:30:00.000Z",
		AppliedOutboxIDs: []int64{1},
		IDMap:            []IDMapEntry{{Entity: EntityProjects, LocalID: "p-1", RemoteID: 101}},
	}}}
	c := newStubClient(t, stub)

	if _, err := c.QueueCreate(EntityProjects, "p-1", map[string]string{"name": "Obra"}); err != nil {
		t.Fatalf("QueueCreate() error = %v", err)
	}

	resp, err := c.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(resp.AppliedOutboxIDs) != 1 {
		t.Errorf("applied = %v", resp.AppliedOutboxIDs)
	}
	if len(c.Pending()) != 0 {
		t.Errorf("applied item not retired: %+v", c.Pending())
	}
	if ws := c.Watermark(); ws == nil || *ws != "2026-03-15T10:30:00.000Z" {
		t.Errorf("watermark = %v", ws)
	}

	// The outbox item went over the wire with its payload intact
	if len(stub.requests) != 1 || len(stub.requests[0].Outbox) != 1 {
		t.Fatalf("requests = %+v", stub.requests)
	}
	sent := stub.requests[0].Outbox[0]
	if sent.Entity != EntityProjects || sent.Op != OpCreate || sent.LocalID != "p-1" {
		t.Errorf("sent item = %+v", sent)
	}
}

func TestSync_LocalUpdateHeldUntilIDResolved(t *testing.T) {
	stub := &stubServer{responses: []Response{
		{
			Now:              "2026-03-15T10:30:00.000Z",
			AppliedOutboxIDs: []int64{1},
			IDMap:            []IDMapEntry{{Entity: EntityWorkers, LocalID: "w-1", RemoteID: 55}},
		},
		{
			Now:              "2026-03-15T10:31:00.000Z",
			AppliedOutboxIDs: []int64{2},
		},
	}}
	c := newStubClient(t, stub)

	if _, err := c.QueueCreate(EntityWorkers, "w-1", map[string]string{"name": "Juan"}); err != nil {
		t.Fatalf("QueueCreate() error = %v", err)
	}
	if _, err := c.QueueUpdateLocal(EntityWorkers, "w-1", map[string]string{"name": "Juan P."}); err != nil {
		t.Fatalf("QueueUpdateLocal() error = %v", err)
	}

	// First sync: the create goes, the update is held back
	if _, err := c.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(stub.requests[0].Outbox) != 1 || stub.requests[0].Outbox[0].Op != OpCreate {
		t.Fatalf("first batch = %+v", stub.requests[0].Outbox)
	}

	// The held update picked up the assigned server id
	pending := c.Pending()
	if len(pending) != 1 || pending[0].RemoteID == nil || *pending[0].RemoteID != 55 {
		t.Fatalf("pending after first sync = %+v", pending)
	}

	// Second sync sends it
	if _, err := c.Sync(context.Background()); err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if len(stub.requests[1].Outbox) != 1 {
		t.Fatalf("second batch = %+v", stub.requests[1].Outbox)
	}
	sent := stub.requests[1].Outbox[0]
	if sent.Op != OpUpdate || sent.RemoteID == nil || *sent.RemoteID != 55 {
		t.Errorf("second batch item = %+v", sent)
	}
	if len(c.Pending()) != 0 {
		t.Errorf("outbox not drained: %+v", c.Pending())
	}

	// The second request carried the first response's watermark
	if stub.requests[1].LastSync == nil || *stub.requests[1].LastSync != "2026-03-15T10:30:00.000Z" {
		t.Errorf("second request lastSync = %v", stub.requests[1].LastSync)
	}
}

func TestSync_ConflictedItemsRetire(t *testing.T) {
	stub := &stubServer{responses: []Response{{
		Now: "2026-03-15T10:30:00.000Z",
		Conflicts: []Conflict{{
			OutboxID: 1,
			Entity:   EntityProjects,
			Reason:   "conflicto de versión",
		}},
	}}}
	c := newStubClient(t, stub)

	remoteID := int64(9)
	if _, err := c.QueueUpdate(EntityProjects, remoteID, map[string]string{"name": "Stale"}); err != nil {
		t.Fatalf("QueueUpdate() error = %v", err)
	}

	resp, err := c.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(resp.Conflicts) != 1 {
		t.Fatalf("conflicts = %+v", resp.Conflicts)
	}
	// Conflicted items leave the queue; the caller decides what to requeue
	if len(c.Pending()) != 0 {
		t.Errorf("conflicted item still queued: %+v", c.Pending())
	}
}

func TestSync_Unauthorized(t *testing.T) {
	c := newStubClient(t, &stubServer{status: http.StatusUnauthorized})

	if _, err := c.Sync(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Sync() error = %v, want ErrUnauthorized", err)
	}
}

func TestSync_BadRequest(t *testing.T) {
	c := newStubClient(t, &stubServer{status: http.StatusBadRequest})

	if _, err := c.Sync(context.Background()); !errors.Is(err, ErrBadRequest) {
		t.Errorf("Sync() error = %v, want ErrBadRequest", err)
	}
}

func TestSetWatermark(t *testing.T) {
	c, err := New(Config{ServerURL: "http://localhost"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ws := "2026-01-01T00:00:00.000Z"
	c.SetWatermark(&ws)
	if got := c.Watermark(); got == nil || *got != ws {
		t.Errorf("Watermark() = %v", got)
	}

	c.SetWatermark(nil)
	if got := c.Watermark(); got != nil {
		t.Errorf("Watermark() after reset = %v, want nil", got)
	}
}
