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

// StageService maintains the canonical, gapless ordering of pipeline stages.
type StageService interface {
	List(ctx context.Context, activeOnly bool) ([]*models.Stage, error)
	Create(ctx context.Context, name, color string) (*models.Stage, error)
	Update(ctx context.Context, id int, upd models.StageUpdate) (*models.Stage, error)
	Delete(ctx context.Context, id int) error
	Reorder(ctx context.Context, orderedIDs []int) error
	EnsureDefaults(ctx context.Context) error
}

type stageService struct {
	repo        repositories.StageRepository
	invalidator ViewInvalidator
}

func NewStageService(repo repositories.StageRepository, invalidator ViewInvalidator) StageService {
	if invalidator == nil {
		invalidator = NopInvalidator{}
	}
	return &stageService{repo: repo, invalidator: invalidator}
}

// defaultStages seeds an empty pipeline exactly once.
var defaultStages = []struct {
	Name  string
	Color string
}{
	{"Lead", "#6366f1"},
	{"Qualification", "#8b5cf6"},
	{"Proposal", "#f59e0b"},
	{"Negotiation", "#f97316"},
	{"Closing", "#22c55e"},
}

func (s *stageService) List(ctx context.Context, activeOnly bool) ([]*models.Stage, error) {
	stages, err := s.repo.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.Persistence("list stages", err)
	}
	return stages, nil
}

func (s *stageService) Create(ctx context.Context, name, color string) (*models.Stage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("stage name is required")
	}

	max, err := s.repo.MaxSortOrder(ctx)
	if err != nil {
		return nil, apperrors.Persistence("next stage order", err)
	}

	now := time.Now()
	stage := &models.Stage{
		Name:      name,
		Color:     color,
		SortOrder: max + 1,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Store(ctx, stage); err != nil {
		return nil, apperrors.Persistence("create stage", err)
	}
	s.invalidator.Invalidate("/stages", "/board")
	return stage, nil
}

func (s *stageService) Update(ctx context.Context, id int, upd models.StageUpdate) (*models.Stage, error) {
	stage, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("load stage", err)
	}
	if stage == nil {
		return nil, apperrors.ErrNotFound
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperrors.Validation("stage name is required")
		}
		stage.Name = name
	}
	if upd.Color != nil {
		stage.Color = *upd.Color
	}
	if upd.IsActive != nil {
		stage.IsActive = *upd.IsActive
	}
	stage.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, stage); err != nil {
		return nil, apperrors.Persistence("update stage", err)
	}
	s.invalidator.Invalidate("/stages", "/board", fmt.Sprintf("/stages/%d", id))
	return stage, nil
}

func (s *stageService) Delete(ctx context.Context, id int) error {
	stage, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return apperrors.Persistence("load stage", err)
	}
	if stage == nil {
		return apperrors.ErrNotFound
	}

	count, err := s.repo.CountDeals(ctx, id)
	if err != nil {
		return apperrors.Persistence("count stage deals", err)
	}
	if count > 0 {
		return apperrors.Conflict(count, "cannot delete stage: %d deals still assigned", count)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.Persistence("delete stage", err)
	}
	s.invalidator.Invalidate("/stages", "/board")
	return nil
}

// Reorder rewrites every stage's sort_order to its 1-based position in
// orderedIDs. The supplied ids must match the stored set exactly.
func (s *stageService) Reorder(ctx context.Context, orderedIDs []int) error {
	existing, err := s.repo.FindAll(ctx, false)
	if err != nil {
		return apperrors.Persistence("list stages", err)
	}
	if len(orderedIDs) != len(existing) {
		return apperrors.Validation("reorder must include every stage exactly once: got %d ids, have %d stages",
			len(orderedIDs), len(existing))
	}

	known := make(map[int]bool, len(existing))
	for _, stage := range existing {
		known[stage.ID] = true
	}
	seen := make(map[int]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] {
			return apperrors.Validation("unknown stage id %d in reorder", id)
		}
		if seen[id] {
			return apperrors.Validation("duplicate stage id %d in reorder", id)
		}
		seen[id] = true
	}

	if err := s.repo.ReorderAll(ctx, orderedIDs); err != nil {
		return apperrors.Persistence("reorder stages", err)
	}
	s.invalidator.Invalidate("/stages", "/board")
	return nil
}

// EnsureDefaults seeds the default pipeline when no stages exist. Safe to
// call on every board load.
func (s *stageService) EnsureDefaults(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return apperrors.Persistence("count stages", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	for i, def := range defaultStages {
		stage := &models.Stage{
			Name:      def.Name,
			Color:     def.Color,
			SortOrder: i + 1,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Store(ctx, stage); err != nil {
			return apperrors.Persistence("seed default stages", err)
		}
	}
	s.invalidator.Invalidate("/stages", "/board")
	return nil
}
