// Package board implements the optimistic move coordinator behind the kanban
// drag-and-drop. It keeps a local, revocable copy of stage membership that is
// updated before the engine confirms and is always subordinate to what the
// engine returns.
package board

import (
	"context"
	"sync"

	"dealdesk/internal/apperrors"
	"dealdesk/internal/models"
)

// DealMover is the slice of the deal engine the coordinator drives.
type DealMover interface {
	MoveToStage(ctx context.Context, ownerID, dealID, stageID int) (*models.Deal, error)
}

// GestureState is the terminal state of a single move gesture.
type GestureState int

const (
	// StateCommitted: the engine confirmed; the optimistic state is now
	// authoritative.
	StateCommitted GestureState = iota
	// StateRolledBack: the engine rejected or failed; local state reverted
	// to the pre-move membership.
	StateRolledBack
	// StateSuperseded: a newer gesture for the same deal started while this
	// one was reconciling; its response was discarded without touching
	// local state.
	StateSuperseded
)

func (s GestureState) String() string {
	switch s {
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StateSuperseded:
		return "superseded"
	}
	return "unknown"
}

// MoveResult reports how a gesture ended. Deal is set only on commit.
type MoveResult struct {
	State GestureState
	Deal  *models.Deal
}

type localDeal struct {
	stageID *int
	status  models.DealStatus
}

// Coordinator serializes gestures per deal with monotonically increasing
// tokens; gestures on distinct deals are independent.
type Coordinator struct {
	mover DealMover

	mu     sync.Mutex
	deals  map[int]*localDeal
	tokens map[int]uint64
}

func NewCoordinator(mover DealMover) *Coordinator {
	return &Coordinator{
		mover:  mover,
		deals:  make(map[int]*localDeal),
		tokens: make(map[int]uint64),
	}
}

// Load replaces the local view with the engine's board response.
func (c *Coordinator) Load(view *models.BoardView) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deals = make(map[int]*localDeal)
	for _, col := range view.Columns {
		for _, deal := range col.Deals {
			c.deals[deal.ID] = &localDeal{stageID: deal.StageID, status: deal.Status}
		}
	}
	for _, deal := range view.Unstaged {
		c.deals[deal.ID] = &localDeal{stageID: deal.StageID, status: deal.Status}
	}
}

// StageOf returns the deal's stage as the local view currently sees it.
func (c *Coordinator) StageOf(dealID int) (*int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	deal, ok := c.deals[dealID]
	if !ok {
		return nil, false
	}
	return deal.stageID, true
}

// Move runs one gesture: guard, optimistic apply, reconcile with the engine,
// then commit or roll back. The optimistic apply is visible through StageOf
// while the engine call is in flight.
func (c *Coordinator) Move(ctx context.Context, ownerID, dealID, stageID int) (MoveResult, error) {
	c.mu.Lock()
	deal, ok := c.deals[dealID]
	if !ok {
		c.mu.Unlock()
		return MoveResult{State: StateRolledBack}, apperrors.ErrNotFound
	}
	// guard clause: short-circuit before any optimistic mutation
	if deal.status != models.DealOpen {
		c.mu.Unlock()
		return MoveResult{State: StateRolledBack}, apperrors.Validation("only open deals can be moved")
	}

	c.tokens[dealID]++
	token := c.tokens[dealID]
	prev := deal.stageID
	staged := stageID
	deal.stageID = &staged // Pending: optimistic apply
	c.mu.Unlock()

	// Reconciling: the engine call runs without the lock so gestures on
	// other deals proceed independently
	moved, err := c.mover.MoveToStage(ctx, ownerID, dealID, stageID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tokens[dealID] != token {
		// a newer gesture owns this deal now; this response is stale
		return MoveResult{State: StateSuperseded}, nil
	}

	current, ok := c.deals[dealID]
	if err != nil {
		if ok {
			current.stageID = prev
		}
		return MoveResult{State: StateRolledBack}, err
	}
	if ok {
		// the engine response is authoritative, not the optimistic guess
		current.stageID = moved.StageID
		current.status = moved.Status
	}
	return MoveResult{State: StateCommitted, Deal: moved}, nil
}
