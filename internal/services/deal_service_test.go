package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealdesk/internal/apperrors"
	"dealdesk/internal/models"
)

const ownerID = 1

type dealFixture struct {
	deals    DealService
	stages   StageService
	dealRepo *fakeDealRepo
	contacts *fakeLinkRepo
}

func newDealFixture(t *testing.T, stageNames ...string) *dealFixture {
	t.Helper()
	stageRepo := newFakeStageRepo()
	dealRepo := newFakeDealRepo()
	contacts := newFakeLinkRepo()
	companies := fakeCompanyRepo{newFakeLinkRepo()}

	stages := NewStageService(stageRepo, nil)
	for _, name := range stageNames {
		_, err := stages.Create(context.Background(), name, "#ccc")
		require.NoError(t, err)
	}
	deals := NewDealService(dealRepo, stageRepo, contacts, companies, nil, "USD")
	return &dealFixture{deals: deals, stages: stages, dealRepo: dealRepo, contacts: contacts}
}

func (f *dealFixture) mustCreate(t *testing.T, input models.DealInput) *models.Deal {
	t.Helper()
	deal, err := f.deals.Create(context.Background(), ownerID, input)
	require.NoError(t, err)
	return deal
}

func TestCreateDeal_DefaultsToLowestOrderActiveStage(t *testing.T) {
	f := newDealFixture(t, "Lead", "Proposal")

	deal := f.mustCreate(t, models.DealInput{Title: "X"})

	require.NotNil(t, deal.StageID)
	assert.Equal(t, 1, *deal.StageID, "lowest-order active stage wins")
	assert.Equal(t, models.DealOpen, deal.Status)
	assert.Equal(t, models.DefaultProbability, deal.Probability)
	assert.Equal(t, "USD", deal.Currency)
	assert.Nil(t, deal.ClosedAt)
}

func TestCreateDeal_UnstagedWhenNoActiveStage(t *testing.T) {
	f := newDealFixture(t)

	deal := f.mustCreate(t, models.DealInput{Title: "X"})
	assert.Nil(t, deal.StageID)
}

func TestCreateDeal_SkipsInactiveStages(t *testing.T) {
	f := newDealFixture(t, "Lead", "Proposal")
	inactive := false
	_, err := f.stages.Update(context.Background(), 1, models.StageUpdate{IsActive: &inactive})
	require.NoError(t, err)

	deal := f.mustCreate(t, models.DealInput{Title: "X"})
	require.NotNil(t, deal.StageID)
	assert.Equal(t, 2, *deal.StageID)
}

func TestCreateDeal_EmptyTitleRejected(t *testing.T) {
	f := newDealFixture(t)
	_, err := f.deals.Create(context.Background(), ownerID, models.DealInput{Title: "  "})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateDeal_ValidatesProbabilityAndValue(t *testing.T) {
	f := newDealFixture(t)

	bad := 150
	_, err := f.deals.Create(context.Background(), ownerID, models.DealInput{Title: "X", Probability: &bad})
	assert.True(t, apperrors.IsValidation(err))

	negative := -10.0
	_, err = f.deals.Create(context.Background(), ownerID, models.DealInput{Title: "X", Value: &negative})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateDeal_TolerantContactLink(t *testing.T) {
	f := newDealFixture(t)
	f.contacts.existing[7] = ownerID
	f.contacts.existing[8] = 99 // someone else's contact

	mine := 7
	deal := f.mustCreate(t, models.DealInput{Title: "X", ContactID: &mine})
	require.NotNil(t, deal.ContactID)
	assert.Equal(t, 7, *deal.ContactID)

	foreign := 8
	deal = f.mustCreate(t, models.DealInput{Title: "Y", ContactID: &foreign})
	assert.Nil(t, deal.ContactID, "a foreign-owned reference becomes no relation")

	missing := 1000
	deal = f.mustCreate(t, models.DealInput{Title: "Z", ContactID: &missing})
	assert.Nil(t, deal.ContactID, "a dangling reference becomes no relation")
}

func TestCreateDeal_CannotStartClosed(t *testing.T) {
	f := newDealFixture(t)
	won := models.DealWon
	_, err := f.deals.Create(context.Background(), ownerID, models.DealInput{Title: "X", Status: &won})
	assert.True(t, apperrors.IsValidation(err))
}

func TestMoveDeal_OpenDealChangesStageOnly(t *testing.T) {
	f := newDealFixture(t, "Lead", "Proposal")
	deal := f.mustCreate(t, models.DealInput{Title: "X"})

	moved, err := f.deals.MoveToStage(context.Background(), ownerID, deal.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, moved.StageID)
	assert.Equal(t, 2, *moved.StageID)
	assert.Equal(t, models.DealOpen, moved.Status)
	assert.Equal(t, deal.Probability, moved.Probability)
}

func TestMoveDeal_ClosedDealRejected(t *testing.T) {
	f := newDealFixture(t, "Lead", "Proposal")
	deal := f.mustCreate(t, models.DealInput{Title: "X"})

	_, err := f.deals.MoveToStage(context.Background(), ownerID, deal.ID, 2)
	require.NoError(t, err)

	reason := "budget"
	_, err = f.deals.MarkLost(context.Background(), ownerID, deal.ID, &reason)
	require.NoError(t, err)

	_, err = f.deals.MoveToStage(context.Background(), ownerID, deal.ID, 1)
	assert.True(t, apperrors.IsValidation(err))

	stored, err := f.deals.Get(context.Background(), ownerID, deal.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StageID)
	assert.Equal(t, 2, *stored.StageID, "rejected move must leave stage untouched")
}

func TestMoveDeal_ForeignOwnerLooksMissing(t *testing.T) {
	f := newDealFixture(t, "Lead")
	deal := f.mustCreate(t, models.DealInput{Title: "X"})

	_, err := f.deals.MoveToStage(context.Background(), 99, deal.ID, 1)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMoveDeal_UnknownTargetStage(t *testing.T) {
	f := newDealFixture(t, "Lead")
	deal := f.mustCreate(t, models.DealInput{Title: "X"})

	_, err := f.deals.MoveToStage(context.Background(), ownerID, deal.ID, 42)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMarkWon_SetsTerminalFields(t *testing.T) {
	f := newDealFixture(t, "Lead")
	deal := f.mustCreate(t, models.DealInput{Title: "X"})

	won, err := f.deals.MarkWon(context.Background(), ownerID, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DealWon, won.Status)
	assert.Equal(t, 100, won.Probability)
	require.NotNil(t, won.ClosedAt)

	// winning again is a retry, not an error, and closedAt stays put
	again, err := f.deals.MarkWon(context.Background(), ownerID, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, won.ClosedAt.Unix(), again.ClosedAt.Unix())
}

func TestMarkLost_SetsTerminalFieldsAndReason(t *testing.T) {
	f := newDealFixture(t, "Lead")
	deal := f.mustCreate(t, models.DealInput{Title: "X"})

	reason := "budget"
	lost, err := f.deals.MarkLost(context.Background(), ownerID, deal.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, models.DealLost, lost.Status)
	assert.Equal(t, 0, lost.Probability)
	require.NotNil(t, lost.ClosedAt)
	require.NotNil(t, lost.LostReason)
	assert.Equal(t, "budget", *lost.LostReason)

	// a lost deal cannot be won afterwards
	_, err = f.deals.MarkWon(context.Background(), ownerID, deal.ID)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateDeal_StatusRules(t *testing.T) {
	f := newDealFixture(t, "Lead")
	deal := f.mustCreate(t, models.DealInput{Title: "X"})

	abandoned := models.DealAbandoned
	updated, err := f.deals.Update(context.Background(), ownerID, deal.ID, models.DealInput{Status: &abandoned})
	require.NoError(t, err)
	assert.Equal(t, models.DealAbandoned, updated.Status)
	assert.NotNil(t, updated.ClosedAt, "leaving open stamps closedAt")

	open := models.DealOpen
	updated, err = f.deals.Update(context.Background(), ownerID, deal.ID, models.DealInput{Status: &open})
	require.NoError(t, err)
	assert.Equal(t, models.DealOpen, updated.Status)
	assert.Nil(t, updated.ClosedAt, "reopening clears closedAt")

	won := models.DealWon
	_, err = f.deals.Update(context.Background(), ownerID, deal.ID, models.DealInput{Status: &won})
	assert.True(t, apperrors.IsValidation(err), "won is only reachable through MarkWon")
}

func TestUpdateDeal_TerminalStatusFrozen(t *testing.T) {
	f := newDealFixture(t, "Lead")
	deal := f.mustCreate(t, models.DealInput{Title: "X"})

	_, err := f.deals.MarkWon(context.Background(), ownerID, deal.ID)
	require.NoError(t, err)

	open := models.DealOpen
	_, err = f.deals.Update(context.Background(), ownerID, deal.ID, models.DealInput{Status: &open})
	assert.True(t, apperrors.IsValidation(err))
}

func TestDeleteDeal_OwnershipChecked(t *testing.T) {
	f := newDealFixture(t, "Lead")
	deal := f.mustCreate(t, models.DealInput{Title: "X"})

	assert.True(t, apperrors.IsNotFound(f.deals.Delete(context.Background(), 99, deal.ID)))
	require.NoError(t, f.deals.Delete(context.Background(), ownerID, deal.ID))

	_, err := f.deals.Get(context.Background(), ownerID, deal.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestBoard_GroupsDealsByStage(t *testing.T) {
	f := newDealFixture(t, "Lead", "Proposal")

	a := f.mustCreate(t, models.DealInput{Title: "A"})
	stage2 := 2
	b := f.mustCreate(t, models.DealInput{Title: "B", StageID: &stage2})
	f.dealRepo.deals[b.ID].StageID = &stage2

	// an unstaged deal must surface in the unstaged bucket
	c := f.mustCreate(t, models.DealInput{Title: "C"})
	f.dealRepo.deals[c.ID].StageID = nil

	view, err := f.deals.Board(context.Background(), ownerID, false)
	require.NoError(t, err)
	require.Len(t, view.Columns, 2)
	assert.Equal(t, "Lead", view.Columns[0].Stage.Name)
	require.Len(t, view.Columns[0].Deals, 1)
	assert.Equal(t, a.ID, view.Columns[0].Deals[0].ID)
	require.Len(t, view.Columns[1].Deals, 1)
	assert.Equal(t, b.ID, view.Columns[1].Deals[0].ID)
	require.Len(t, view.Unstaged, 1)
	assert.Equal(t, c.ID, view.Unstaged[0].ID)
}

func TestBoard_ClosedDealsHiddenUnlessRequested(t *testing.T) {
	f := newDealFixture(t, "Lead")
	deal := f.mustCreate(t, models.DealInput{Title: "X"})
	_, err := f.deals.MarkWon(context.Background(), ownerID, deal.ID)
	require.NoError(t, err)

	view, err := f.deals.Board(context.Background(), ownerID, false)
	require.NoError(t, err)
	assert.Empty(t, view.Columns[0].Deals)

	view, err = f.deals.Board(context.Background(), ownerID, true)
	require.NoError(t, err)
	require.Len(t, view.Columns[0].Deals, 1)
}
