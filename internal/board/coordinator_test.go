package board

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealdesk/internal/apperrors"
	"dealdesk/internal/models"
)

// scriptedMover lets a test decide, per call, what the engine answers and
// when it answers it.
type scriptedMover struct {
	mu    sync.Mutex
	calls []int
	fn    func(dealID, stageID int) (*models.Deal, error)
}

func (m *scriptedMover) MoveToStage(_ context.Context, _, dealID, stageID int) (*models.Deal, error) {
	m.mu.Lock()
	m.calls = append(m.calls, dealID)
	fn := m.fn
	m.mu.Unlock()
	return fn(dealID, stageID)
}

func stagePtr(id int) *int { return &id }

func boardWith(deals ...*models.Deal) *models.BoardView {
	stage := &models.Stage{ID: 1, Name: "Lead"}
	return &models.BoardView{
		Columns: []models.BoardColumn{{Stage: stage, Deals: deals}},
	}
}

func openDeal(id, stageID int) *models.Deal {
	return &models.Deal{ID: id, Status: models.DealOpen, StageID: stagePtr(stageID)}
}

func TestMove_CommitKeepsOptimisticState(t *testing.T) {
	mover := &scriptedMover{fn: func(dealID, stageID int) (*models.Deal, error) {
		return &models.Deal{ID: dealID, Status: models.DealOpen, StageID: stagePtr(stageID)}, nil
	}}
	c := NewCoordinator(mover)
	c.Load(boardWith(openDeal(10, 1)))

	res, err := c.Move(context.Background(), 1, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, res.State)
	require.NotNil(t, res.Deal)

	stage, ok := c.StageOf(10)
	require.True(t, ok)
	require.NotNil(t, stage)
	assert.Equal(t, 2, *stage)
}

func TestMove_OptimisticApplyVisibleWhileReconciling(t *testing.T) {
	var c *Coordinator
	mover := &scriptedMover{}
	mover.fn = func(dealID, stageID int) (*models.Deal, error) {
		// mid-flight: the local view must already show the target stage
		stage, ok := c.StageOf(dealID)
		require.True(t, ok)
		require.NotNil(t, stage)
		assert.Equal(t, stageID, *stage)
		return &models.Deal{ID: dealID, Status: models.DealOpen, StageID: stagePtr(stageID)}, nil
	}
	c = NewCoordinator(mover)
	c.Load(boardWith(openDeal(10, 1)))

	_, err := c.Move(context.Background(), 1, 10, 2)
	require.NoError(t, err)
}

func TestMove_RollbackRestoresPreviousStage(t *testing.T) {
	engineErr := apperrors.Persistence("move deal", errors.New("connection reset"))
	mover := &scriptedMover{fn: func(int, int) (*models.Deal, error) {
		return nil, engineErr
	}}
	c := NewCoordinator(mover)
	c.Load(boardWith(openDeal(10, 1)))

	res, err := c.Move(context.Background(), 1, 10, 2)
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, res.State)

	stage, ok := c.StageOf(10)
	require.True(t, ok)
	require.NotNil(t, stage)
	assert.Equal(t, 1, *stage, "failed move must revert the optimistic apply")
}

func TestMove_GuardRejectsClosedDealWithoutMutation(t *testing.T) {
	mover := &scriptedMover{fn: func(int, int) (*models.Deal, error) {
		t.Fatal("engine must not be called for a guarded move")
		return nil, nil
	}}
	c := NewCoordinator(mover)
	won := &models.Deal{ID: 10, Status: models.DealWon, StageID: stagePtr(1)}
	c.Load(boardWith(won))

	_, err := c.Move(context.Background(), 1, 10, 2)
	assert.True(t, apperrors.IsValidation(err))

	stage, _ := c.StageOf(10)
	require.NotNil(t, stage)
	assert.Equal(t, 1, *stage)
	assert.Empty(t, mover.calls)
}

func TestMove_UnknownDeal(t *testing.T) {
	mover := &scriptedMover{fn: func(int, int) (*models.Deal, error) { return nil, nil }}
	c := NewCoordinator(mover)
	c.Load(boardWith())

	_, err := c.Move(context.Background(), 1, 99, 2)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMove_StaleReconciliationSuperseded(t *testing.T) {
	firstInFlight := make(chan struct{})
	releaseFirst := make(chan struct{})

	var call int
	var mu sync.Mutex
	mover := &scriptedMover{}
	mover.fn = func(dealID, stageID int) (*models.Deal, error) {
		mu.Lock()
		call++
		mine := call
		mu.Unlock()
		if mine == 1 {
			close(firstInFlight)
			<-releaseFirst
			// slow first gesture answers after the second already won
			return nil, apperrors.Persistence("move deal", errors.New("timeout"))
		}
		return &models.Deal{ID: dealID, Status: models.DealOpen, StageID: stagePtr(stageID)}, nil
	}
	c := NewCoordinator(mover)
	c.Load(boardWith(openDeal(10, 1)))

	results := make(chan MoveResult, 1)
	go func() {
		res, _ := c.Move(context.Background(), 1, 10, 2)
		results <- res
	}()

	<-firstInFlight
	res2, err := c.Move(context.Background(), 1, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, res2.State)

	close(releaseFirst)
	res1 := <-results
	assert.Equal(t, StateSuperseded, res1.State)

	// the stale failure must not roll back the newer committed move
	stage, _ := c.StageOf(10)
	require.NotNil(t, stage)
	assert.Equal(t, 3, *stage)
}

func TestMove_IndependentDealsDoNotInterfere(t *testing.T) {
	mover := &scriptedMover{fn: func(dealID, stageID int) (*models.Deal, error) {
		return &models.Deal{ID: dealID, Status: models.DealOpen, StageID: stagePtr(stageID)}, nil
	}}
	c := NewCoordinator(mover)
	c.Load(boardWith(openDeal(10, 1), openDeal(11, 1)))

	var wg sync.WaitGroup
	for _, move := range []struct{ deal, stage int }{{10, 2}, {11, 3}} {
		wg.Add(1)
		go func(dealID, stageID int) {
			defer wg.Done()
			res, err := c.Move(context.Background(), 1, dealID, stageID)
			assert.NoError(t, err)
			assert.Equal(t, StateCommitted, res.State)
		}(move.deal, move.stage)
	}
	wg.Wait()

	stageA, _ := c.StageOf(10)
	stageB, _ := c.StageOf(11)
	require.NotNil(t, stageA)
	require.NotNil(t, stageB)
	assert.Equal(t, 2, *stageA)
	assert.Equal(t, 3, *stageB)
}
