package models

import "time"

// DealStatus is the lifecycle status of a deal.
type DealStatus string

const (
	DealOpen      DealStatus = "open"
	DealWon       DealStatus = "won"
	DealLost      DealStatus = "lost"
	DealAbandoned DealStatus = "abandoned"
)

// DefaultProbability is assigned when a deal is created without one.
const DefaultProbability = 50

// Deal is a sales opportunity owned by a single user. Won/lost are terminal:
// there is no path back to open.
type Deal struct {
	ID                int        `json:"id"`
	OwnerID           int        `json:"owner_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Value             *float64   `json:"value"`
	Currency          string     `json:"currency"`
	Status            DealStatus `json:"status"`
	Probability       int        `json:"probability"`
	ExpectedCloseDate *time.Time `json:"expected_close_date"`
	ClosedAt          *time.Time `json:"closed_at"`
	LostReason        *string    `json:"lost_reason"`
	StageID           *int       `json:"stage_id"`
	ContactID         *int       `json:"contact_id"`
	CompanyID         *int       `json:"company_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// DealInput is the request shape for creating or updating a deal.
// closed_at and lost_reason are not part of it: they are only written by the
// win/lose transitions.
type DealInput struct {
	Title             string      `json:"title"`
	Description       *string     `json:"description"`
	Value             *float64    `json:"value"`
	Currency          *string     `json:"currency"`
	Status            *DealStatus `json:"status"`
	Probability       *int        `json:"probability"`
	ExpectedCloseDate *time.Time  `json:"expected_close_date"`
	StageID           *int        `json:"stage_id"`
	ContactID         *int        `json:"contact_id"`
	CompanyID         *int        `json:"company_id"`
}

// DealFilter narrows deal listings.
type DealFilter struct {
	Status  *DealStatus
	StageID *int
}

// BoardColumn is one stage of the kanban board with the deals currently on it.
type BoardColumn struct {
	Stage *Stage  `json:"stage"`
	Deals []*Deal `json:"deals"`
}

// BoardView is the grouped stages+deals payload the kanban board renders.
// Deals without a stage land in Unstaged rather than being dropped.
type BoardView struct {
	Columns  []BoardColumn `json:"columns"`
	Unstaged []*Deal       `json:"unstaged"`
}
