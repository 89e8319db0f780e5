package models

import "time"

// Stage is a named phase of the sales pipeline. The set of active stages,
// sorted by SortOrder ascending, is the canonical pipeline sequence.
type Stage struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	SortOrder int       `json:"sort_order"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// DealsCount is derived (count of deals referencing this stage),
	// populated on reads, never written.
	DealsCount int `json:"deals_count"`
}

// StageUpdate carries a partial stage update; nil fields are left untouched.
type StageUpdate struct {
	Name     *string `json:"name"`
	Color    *string `json:"color"`
	IsActive *bool   `json:"is_active"`
}
