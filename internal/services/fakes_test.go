package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dealdesk/internal/models"
	"dealdesk/internal/repositories"
)

// In-memory repository fakes. They copy on store and on read so that tests
// observe only what a real database round-trip would.

type fakeStageRepo struct {
	stages     map[int]*models.Stage
	nextID     int
	dealCounts map[int]int
}

func newFakeStageRepo() *fakeStageRepo {
	return &fakeStageRepo{
		stages:     make(map[int]*models.Stage),
		dealCounts: make(map[int]int),
	}
}

func copyStage(s *models.Stage) *models.Stage {
	dup := *s
	return &dup
}

func (r *fakeStageRepo) Store(_ context.Context, stage *models.Stage) error {
	r.nextID++
	stage.ID = r.nextID
	r.stages[stage.ID] = copyStage(stage)
	return nil
}

func (r *fakeStageRepo) sorted(activeOnly bool) []*models.Stage {
	var out []*models.Stage
	for _, s := range r.stages {
		if activeOnly && !s.IsActive {
			continue
		}
		dup := copyStage(s)
		dup.DealsCount = r.dealCounts[s.ID]
		out = append(out, dup)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *fakeStageRepo) FindAll(_ context.Context, activeOnly bool) ([]*models.Stage, error) {
	return r.sorted(activeOnly), nil
}

func (r *fakeStageRepo) FindByID(_ context.Context, id int) (*models.Stage, error) {
	s, ok := r.stages[id]
	if !ok {
		return nil, nil
	}
	dup := copyStage(s)
	dup.DealsCount = r.dealCounts[id]
	return dup, nil
}

func (r *fakeStageRepo) FirstActive(_ context.Context) (*models.Stage, error) {
	active := r.sorted(true)
	if len(active) == 0 {
		return nil, nil
	}
	return active[0], nil
}

func (r *fakeStageRepo) Update(_ context.Context, stage *models.Stage) error {
	if _, ok := r.stages[stage.ID]; !ok {
		return fmt.Errorf("stage %d does not exist", stage.ID)
	}
	r.stages[stage.ID] = copyStage(stage)
	return nil
}

func (r *fakeStageRepo) Delete(_ context.Context, id int) error {
	delete(r.stages, id)
	return nil
}

func (r *fakeStageRepo) Count(_ context.Context) (int, error) {
	return len(r.stages), nil
}

func (r *fakeStageRepo) MaxSortOrder(_ context.Context) (int, error) {
	max := 0
	for _, s := range r.stages {
		if s.SortOrder > max {
			max = s.SortOrder
		}
	}
	return max, nil
}

func (r *fakeStageRepo) CountDeals(_ context.Context, stageID int) (int, error) {
	return r.dealCounts[stageID], nil
}

func (r *fakeStageRepo) ReorderAll(_ context.Context, orderedIDs []int) error {
	// all-or-nothing: verify before touching anything
	for _, id := range orderedIDs {
		if _, ok := r.stages[id]; !ok {
			return fmt.Errorf("reorder: stage %d does not exist", id)
		}
	}
	for pos, id := range orderedIDs {
		r.stages[id].SortOrder = pos + 1
		r.stages[id].UpdatedAt = time.Now()
	}
	return nil
}

var _ repositories.StageRepository = (*fakeStageRepo)(nil)

type fakeDealRepo struct {
	deals  map[int]*models.Deal
	nextID int
}

func newFakeDealRepo() *fakeDealRepo {
	return &fakeDealRepo{deals: make(map[int]*models.Deal)}
}

func copyDeal(d *models.Deal) *models.Deal {
	dup := *d
	return &dup
}

func (r *fakeDealRepo) Store(_ context.Context, deal *models.Deal) error {
	r.nextID++
	deal.ID = r.nextID
	r.deals[deal.ID] = copyDeal(deal)
	return nil
}

func (r *fakeDealRepo) FindByID(_ context.Context, id, ownerID int) (*models.Deal, error) {
	d, ok := r.deals[id]
	if !ok || d.OwnerID != ownerID {
		return nil, nil
	}
	return copyDeal(d), nil
}

func (r *fakeDealRepo) FindForOwner(_ context.Context, ownerID int, filter models.DealFilter) ([]*models.Deal, error) {
	var out []*models.Deal
	for _, d := range r.deals {
		if d.OwnerID != ownerID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.StageID != nil && (d.StageID == nil || *d.StageID != *filter.StageID) {
			continue
		}
		out = append(out, copyDeal(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeDealRepo) Update(_ context.Context, deal *models.Deal) error {
	if _, ok := r.deals[deal.ID]; !ok {
		return fmt.Errorf("deal %d does not exist", deal.ID)
	}
	r.deals[deal.ID] = copyDeal(deal)
	return nil
}

func (r *fakeDealRepo) UpdateStage(_ context.Context, id int, stageID *int) error {
	d, ok := r.deals[id]
	if !ok {
		return fmt.Errorf("deal %d does not exist", id)
	}
	d.StageID = stageID
	return nil
}

func (r *fakeDealRepo) Delete(_ context.Context, id, ownerID int) (bool, error) {
	d, ok := r.deals[id]
	if !ok || d.OwnerID != ownerID {
		return false, nil
	}
	delete(r.deals, id)
	return true, nil
}

func (r *fakeDealRepo) CountByStatus(_ context.Context, ownerID int) (map[models.DealStatus]int, error) {
	counts := map[models.DealStatus]int{}
	for _, d := range r.deals {
		if d.OwnerID == ownerID {
			counts[d.Status]++
		}
	}
	return counts, nil
}

func (r *fakeDealRepo) ValueByStage(_ context.Context, ownerID int) ([]repositories.StageValueStat, error) {
	return nil, nil
}

var _ repositories.DealRepository = (*fakeDealRepo)(nil)

// fakeLinkRepo backs both contact and company lookups in deal tests; only
// ExistsForOwner matters for tolerant linking.
type fakeLinkRepo struct {
	existing map[int]int // id -> owner
}

func newFakeLinkRepo(idOwners ...int) *fakeLinkRepo {
	r := &fakeLinkRepo{existing: make(map[int]int)}
	for i := 0; i+1 < len(idOwners); i += 2 {
		r.existing[idOwners[i]] = idOwners[i+1]
	}
	return r
}

func (r *fakeLinkRepo) ExistsForOwner(_ context.Context, id, ownerID int) (bool, error) {
	owner, ok := r.existing[id]
	return ok && owner == ownerID, nil
}

func (r *fakeLinkRepo) CountForOwner(_ context.Context, ownerID int) (int, error) {
	count := 0
	for _, owner := range r.existing {
		if owner == ownerID {
			count++
		}
	}
	return count, nil
}

func (r *fakeLinkRepo) Store(_ context.Context, _ *models.Contact) error   { return nil }
func (r *fakeLinkRepo) Update(_ context.Context, _ *models.Contact) error  { return nil }
func (r *fakeLinkRepo) Delete(_ context.Context, _, _ int) (bool, error)   { return false, nil }
func (r *fakeLinkRepo) FindByID(_ context.Context, _, _ int) (*models.Contact, error) {
	return nil, nil
}
func (r *fakeLinkRepo) FindForOwner(_ context.Context, _ int) ([]*models.Contact, error) {
	return nil, nil
}

var _ repositories.ContactRepository = (*fakeLinkRepo)(nil)

// fakeCompanyRepo adapts fakeLinkRepo to the company interface.
type fakeCompanyRepo struct{ *fakeLinkRepo }

func (r fakeCompanyRepo) Store(_ context.Context, _ *models.Company) error  { return nil }
func (r fakeCompanyRepo) Update(_ context.Context, _ *models.Company) error { return nil }
func (r fakeCompanyRepo) FindByID(_ context.Context, _, _ int) (*models.Company, error) {
	return nil, nil
}
func (r fakeCompanyRepo) FindForOwner(_ context.Context, _ int) ([]*models.Company, error) {
	return nil, nil
}

var _ repositories.CompanyRepository = fakeCompanyRepo{}

type fakeTaskRepo struct {
	tasks  map[int]*models.Task
	nextID int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[int]*models.Task)}
}

func copyTask(t *models.Task) *models.Task {
	dup := *t
	return &dup
}

func (r *fakeTaskRepo) Store(_ context.Context, task *models.Task) error {
	r.nextID++
	task.ID = r.nextID
	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *fakeTaskRepo) FindByID(_ context.Context, id, ownerID int) (*models.Task, error) {
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, nil
	}
	return copyTask(t), nil
}

func (r *fakeTaskRepo) FindForOwner(_ context.Context, ownerID int, filter models.TaskFilter) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range r.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.DealID != nil && (t.DealID == nil || *t.DealID != *filter.DealID) {
			continue
		}
		if filter.ParentID != nil {
			if t.ParentID == nil || *t.ParentID != *filter.ParentID {
				continue
			}
		} else if filter.TopLevel && t.ParentID != nil {
			continue
		}
		out = append(out, copyTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *models.Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return fmt.Errorf("task %d does not exist", task.ID)
	}
	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id, ownerID int) (bool, error) {
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return false, nil
	}
	delete(r.tasks, id)
	return true, nil
}

func (r *fakeTaskRepo) UpdateStatus(_ context.Context, id int, to models.TaskStatus) error {
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %d does not exist", id)
	}
	t.Status = to
	return nil
}

func (r *fakeTaskRepo) CountOpenForOwner(_ context.Context, ownerID int) (int, error) {
	count := 0
	for _, t := range r.tasks {
		if t.OwnerID == ownerID && (t.Status == models.TaskNew || t.Status == models.TaskInProgress) {
			count++
		}
	}
	return count, nil
}

func (r *fakeTaskRepo) CountSubtasks(_ context.Context, id int) (int, error) {
	count := 0
	for _, t := range r.tasks {
		if t.ParentID != nil && *t.ParentID == id {
			count++
		}
	}
	return count, nil
}

var _ repositories.TaskRepository = (*fakeTaskRepo)(nil)

// recordingInvalidator captures invalidation hints for assertions.
type recordingInvalidator struct {
	paths []string
}

func (r *recordingInvalidator) Invalidate(paths ...string) {
	r.paths = append(r.paths, paths...)
}
