// Package types defines the entity rows held by the authoritative store.
//
// Every row carries the owning principal (UserID) and a store-stamped
// UpdatedAt used both for delta queries and for optimistic conflict
// detection during sync.
package types

import "time"

// Project is a construction site under safety supervision.
type Project struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Name      string     `json:"name"`
	Address   *string    `json:"address"`
	Client    *string    `json:"client"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Notes     *string    `json:"notes"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Worker is a person registered on a project. ProjectID is nullable:
// workers created offline may not reference a project yet.
type Worker struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	ProjectID  *int64     `json:"project_id"`
	Name       string     `json:"name"`
	NationalID string     `json:"national_id"`
	Role       *string    `json:"role"`
	Phone      *string    `json:"phone"`
	Company    *string    `json:"company"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Finding is a safety observation recorded on site. Photos holds opaque
// file references captured by the mobile client.
type Finding struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	ProjectID   *int64     `json:"project_id"`
	Description string     `json:"description"`
	Severity    string     `json:"severity"`
	Status      string     `json:"status"`
	Location    *string    `json:"location"`
	Photos      []string   `json:"photos"`
	DueDate     *time.Time `json:"due_date"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MobileDocument is a document captured by the mobile client.
type MobileDocument struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	DocType   string    `json:"doc_type"`
	FileRef   *string   `json:"file_ref"`
	Photos    []string  `json:"photos"`
	Notes     *string   `json:"notes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Admonition is a disciplinary record issued from the web application.
// Admonitions are synced to mobile clients read-only and are never
// mutated through the sync protocol.
type Admonition struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	WorkerID  *int64     `json:"worker_id"`
	ProjectID *int64     `json:"project_id"`
	Reason    string     `json:"reason"`
	Severity  string     `json:"severity"`
	IssuedAt  *time.Time `json:"issued_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
