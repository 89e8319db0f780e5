package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dealdesk/internal/apperrors"
	"dealdesk/internal/models"
	"dealdesk/internal/repositories"
)

// DealService owns deal stage membership and status-transition side effects.
// Every operation takes the owner explicitly; a deal that exists but belongs
// to someone else is reported as not found.
type DealService interface {
	Create(ctx context.Context, ownerID int, input models.DealInput) (*models.Deal, error)
	Get(ctx context.Context, ownerID, id int) (*models.Deal, error)
	List(ctx context.Context, ownerID int, filter models.DealFilter) ([]*models.Deal, error)
	Update(ctx context.Context, ownerID, id int, input models.DealInput) (*models.Deal, error)
	Delete(ctx context.Context, ownerID, id int) error
	MoveToStage(ctx context.Context, ownerID, dealID, stageID int) (*models.Deal, error)
	MarkWon(ctx context.Context, ownerID, dealID int) (*models.Deal, error)
	MarkLost(ctx context.Context, ownerID, dealID int, reason *string) (*models.Deal, error)
	Board(ctx context.Context, ownerID int, includeClosed bool) (*models.BoardView, error)
}

type dealService struct {
	repo        repositories.DealRepository
	stageRepo   repositories.StageRepository
	contactRepo repositories.ContactRepository
	companyRepo repositories.CompanyRepository
	invalidator ViewInvalidator
	currency    string
}

func NewDealService(
	repo repositories.DealRepository,
	stageRepo repositories.StageRepository,
	contactRepo repositories.ContactRepository,
	companyRepo repositories.CompanyRepository,
	invalidator ViewInvalidator,
	defaultCurrency string,
) DealService {
	if invalidator == nil {
		invalidator = NopInvalidator{}
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &dealService{
		repo:        repo,
		stageRepo:   stageRepo,
		contactRepo: contactRepo,
		companyRepo: companyRepo,
		invalidator: invalidator,
		currency:    defaultCurrency,
	}
}

func validStatus(s models.DealStatus) bool {
	switch s {
	case models.DealOpen, models.DealWon, models.DealLost, models.DealAbandoned:
		return true
	}
	return false
}

func (s *dealService) Create(ctx context.Context, ownerID int, input models.DealInput) (*models.Deal, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.Validation("deal title is required")
	}

	now := time.Now()
	deal := &models.Deal{
		OwnerID:           ownerID,
		Title:             title,
		Value:             input.Value,
		Currency:          s.currency,
		Status:            models.DealOpen,
		Probability:       models.DefaultProbability,
		ExpectedCloseDate: input.ExpectedCloseDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if input.Description != nil {
		deal.Description = *input.Description
	}
	if input.Currency != nil && *input.Currency != "" {
		deal.Currency = *input.Currency
	}
	if input.Value != nil && *input.Value < 0 {
		return nil, apperrors.Validation("deal value must not be negative")
	}
	if input.Probability != nil {
		if *input.Probability < 0 || *input.Probability > 100 {
			return nil, apperrors.Validation("probability must be between 0 and 100")
		}
		deal.Probability = *input.Probability
	}
	if input.Status != nil {
		if !validStatus(*input.Status) {
			return nil, apperrors.Validation("unknown deal status %q", *input.Status)
		}
		// won/lost are only reachable through the win/lose transitions
		if *input.Status == models.DealWon || *input.Status == models.DealLost {
			return nil, apperrors.Validation("deals cannot be created as %s", *input.Status)
		}
		deal.Status = *input.Status
		if deal.Status != models.DealOpen {
			closed := now
			deal.ClosedAt = &closed
		}
	}

	if input.StageID != nil {
		stage, err := s.stageRepo.FindByID(ctx, *input.StageID)
		if err != nil {
			return nil, apperrors.Persistence("load stage", err)
		}
		if stage == nil {
			return nil, apperrors.ErrNotFound
		}
		deal.StageID = input.StageID
	} else {
		// default to the active stage with the lowest order, unstaged if none
		first, err := s.stageRepo.FirstActive(ctx)
		if err != nil {
			return nil, apperrors.Persistence("resolve default stage", err)
		}
		if first != nil {
			deal.StageID = &first.ID
		}
	}

	// contact/company links are opportunistic: an id that does not resolve
	// for this owner becomes "no relation" instead of an error
	var err error
	deal.ContactID, err = s.resolveContact(ctx, ownerID, input.ContactID)
	if err != nil {
		return nil, err
	}
	deal.CompanyID, err = s.resolveCompany(ctx, ownerID, input.CompanyID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Store(ctx, deal); err != nil {
		return nil, apperrors.Persistence("create deal", err)
	}
	s.invalidator.Invalidate("/deals", "/board")
	return deal, nil
}

func (s *dealService) resolveContact(ctx context.Context, ownerID int, id *int) (*int, error) {
	if id == nil {
		return nil, nil
	}
	ok, err := s.contactRepo.ExistsForOwner(ctx, *id, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("check contact", err)
	}
	if !ok {
		return nil, nil
	}
	return id, nil
}

func (s *dealService) resolveCompany(ctx context.Context, ownerID int, id *int) (*int, error) {
	if id == nil {
		return nil, nil
	}
	ok, err := s.companyRepo.ExistsForOwner(ctx, *id, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("check company", err)
	}
	if !ok {
		return nil, nil
	}
	return id, nil
}

func (s *dealService) get(ctx context.Context, ownerID, id int) (*models.Deal, error) {
	deal, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("load deal", err)
	}
	if deal == nil {
		return nil, apperrors.ErrNotFound
	}
	return deal, nil
}

func (s *dealService) Get(ctx context.Context, ownerID, id int) (*models.Deal, error) {
	return s.get(ctx, ownerID, id)
}

func (s *dealService) List(ctx context.Context, ownerID int, filter models.DealFilter) ([]*models.Deal, error) {
	deals, err := s.repo.FindForOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, apperrors.Persistence("list deals", err)
	}
	return deals, nil
}

func (s *dealService) Update(ctx context.Context, ownerID, id int, input models.DealInput) (*models.Deal, error) {
	deal, err := s.get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(input.Title); title != "" {
		deal.Title = title
	}
	if input.Description != nil {
		deal.Description = *input.Description
	}
	if input.Value != nil {
		if *input.Value < 0 {
			return nil, apperrors.Validation("deal value must not be negative")
		}
		deal.Value = input.Value
	}
	if input.Currency != nil && *input.Currency != "" {
		deal.Currency = *input.Currency
	}
	if input.Probability != nil {
		if *input.Probability < 0 || *input.Probability > 100 {
			return nil, apperrors.Validation("probability must be between 0 and 100")
		}
		deal.Probability = *input.Probability
	}
	if input.ExpectedCloseDate != nil {
		deal.ExpectedCloseDate = input.ExpectedCloseDate
	}

	if input.Status != nil && *input.Status != deal.Status {
		if err := s.applyStatusChange(deal, *input.Status); err != nil {
			return nil, err
		}
	}

	if input.StageID != nil {
		stage, err := s.stageRepo.FindByID(ctx, *input.StageID)
		if err != nil {
			return nil, apperrors.Persistence("load stage", err)
		}
		if stage == nil {
			return nil, apperrors.ErrNotFound
		}
		deal.StageID = input.StageID
	}
	if input.ContactID != nil {
		deal.ContactID, err = s.resolveContact(ctx, ownerID, input.ContactID)
		if err != nil {
			return nil, err
		}
	}
	if input.CompanyID != nil {
		deal.CompanyID, err = s.resolveCompany(ctx, ownerID, input.CompanyID)
		if err != nil {
			return nil, err
		}
	}

	deal.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, deal); err != nil {
		return nil, apperrors.Persistence("update deal", err)
	}
	s.invalidator.Invalidate("/deals", fmt.Sprintf("/deals/%d", id), "/board")
	return deal, nil
}

// applyStatusChange enforces the general-update status rules: open and
// abandoned are interchangeable, won/lost are only reachable through the
// win/lose transitions and never leavable at all.
func (s *dealService) applyStatusChange(deal *models.Deal, to models.DealStatus) error {
	if !validStatus(to) {
		return apperrors.Validation("unknown deal status %q", to)
	}
	if deal.Status == models.DealWon || deal.Status == models.DealLost {
		return apperrors.Validation("%s deals cannot change status", deal.Status)
	}
	if to == models.DealWon || to == models.DealLost {
		return apperrors.Validation("use the win/lose operations to close a deal")
	}
	switch {
	case deal.Status == models.DealOpen && to == models.DealAbandoned:
		now := time.Now()
		deal.ClosedAt = &now
	case deal.Status == models.DealAbandoned && to == models.DealOpen:
		deal.ClosedAt = nil
	}
	deal.Status = to
	return nil
}

func (s *dealService) Delete(ctx context.Context, ownerID, id int) error {
	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return apperrors.Persistence("delete deal", err)
	}
	if !deleted {
		return apperrors.ErrNotFound
	}
	s.invalidator.Invalidate("/deals", fmt.Sprintf("/deals/%d", id), "/board")
	return nil
}

// MoveToStage is the operation behind drag-and-drop. It changes stage
// membership only; status and probability are untouched.
func (s *dealService) MoveToStage(ctx context.Context, ownerID, dealID, stageID int) (*models.Deal, error) {
	deal, err := s.get(ctx, ownerID, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealOpen {
		return nil, apperrors.Validation("only open deals can be moved")
	}

	stage, err := s.stageRepo.FindByID(ctx, stageID)
	if err != nil {
		return nil, apperrors.Persistence("load stage", err)
	}
	if stage == nil {
		return nil, apperrors.ErrNotFound
	}

	if err := s.repo.UpdateStage(ctx, dealID, &stageID); err != nil {
		return nil, apperrors.Persistence("move deal", err)
	}
	deal.StageID = &stageID
	s.invalidator.Invalidate("/deals", fmt.Sprintf("/deals/%d", dealID), "/board")
	return deal, nil
}

func (s *dealService) MarkWon(ctx context.Context, ownerID, dealID int) (*models.Deal, error) {
	deal, err := s.get(ctx, ownerID, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status == models.DealWon {
		// retry of an already-applied gesture, nothing to do
		return deal, nil
	}
	if deal.Status != models.DealOpen {
		return nil, apperrors.Validation("only open deals can be won")
	}

	now := time.Now()
	deal.Status = models.DealWon
	deal.Probability = 100
	deal.ClosedAt = &now
	deal.UpdatedAt = now
	if err := s.repo.Update(ctx, deal); err != nil {
		return nil, apperrors.Persistence("mark deal won", err)
	}
	s.invalidator.Invalidate("/deals", fmt.Sprintf("/deals/%d", dealID), "/board")
	return deal, nil
}

func (s *dealService) MarkLost(ctx context.Context, ownerID, dealID int, reason *string) (*models.Deal, error) {
	deal, err := s.get(ctx, ownerID, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status == models.DealLost {
		return deal, nil
	}
	if deal.Status != models.DealOpen {
		return nil, apperrors.Validation("only open deals can be lost")
	}

	now := time.Now()
	deal.Status = models.DealLost
	deal.Probability = 0
	deal.ClosedAt = &now
	deal.LostReason = reason
	deal.UpdatedAt = now
	if err := s.repo.Update(ctx, deal); err != nil {
		return nil, apperrors.Persistence("mark deal lost", err)
	}
	s.invalidator.Invalidate("/deals", fmt.Sprintf("/deals/%d", dealID), "/board")
	return deal, nil
}

// Board returns the active stages in pipeline order with the owner's deals
// grouped per stage. Deals without a stage land in the unstaged bucket.
func (s *dealService) Board(ctx context.Context, ownerID int, includeClosed bool) (*models.BoardView, error) {
	stages, err := s.stageRepo.FindAll(ctx, true)
	if err != nil {
		return nil, apperrors.Persistence("list stages", err)
	}

	filter := models.DealFilter{}
	if !includeClosed {
		open := models.DealOpen
		filter.Status = &open
	}
	deals, err := s.repo.FindForOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, apperrors.Persistence("list deals", err)
	}

	byStage := make(map[int][]*models.Deal)
	var unstaged []*models.Deal
	for _, deal := range deals {
		if deal.StageID == nil {
			unstaged = append(unstaged, deal)
			continue
		}
		byStage[*deal.StageID] = append(byStage[*deal.StageID], deal)
	}

	view := &models.BoardView{Unstaged: unstaged}
	staged := make(map[int]bool, len(stages))
	for _, stage := range stages {
		staged[stage.ID] = true
		view.Columns = append(view.Columns, models.BoardColumn{
			Stage: stage,
			Deals: byStage[stage.ID],
		})
	}
	// deals pointing at an inactive stage still belong somewhere visible
	for stageID, group := range byStage {
		if !staged[stageID] {
			view.Unstaged = append(view.Unstaged, group...)
		}
	}
	return view, nil
}
