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

// TaskService defines the interface for task-related business logic.
// Subtasks are ordinary tasks with a parent; nesting is one level deep.
type TaskService interface {
	Create(ctx context.Context, ownerID int, task *models.Task) (*models.Task, error)
	Get(ctx context.Context, ownerID, id int) (*models.Task, error)
	List(ctx context.Context, ownerID int, filter models.TaskFilter) ([]*models.Task, error)
	Subtasks(ctx context.Context, ownerID, parentID int) ([]*models.Task, error)
	Update(ctx context.Context, ownerID, id int, task *models.Task) (*models.Task, error)
	UpdateStatus(ctx context.Context, ownerID, id int, to models.TaskStatus) (*models.Task, error)
	Delete(ctx context.Context, ownerID, id int) error
}

type taskService struct {
	repo        repositories.TaskRepository
	invalidator ViewInvalidator
}

func NewTaskService(repo repositories.TaskRepository, invalidator ViewInvalidator) TaskService {
	if invalidator == nil {
		invalidator = NopInvalidator{}
	}
	return &taskService{repo: repo, invalidator: invalidator}
}

func validTaskStatus(s models.TaskStatus) bool {
	switch s {
	case models.TaskNew, models.TaskInProgress, models.TaskDone, models.TaskCancelled:
		return true
	}
	return false
}

func (s *taskService) Create(ctx context.Context, ownerID int, task *models.Task) (*models.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return nil, apperrors.Validation("task title is required")
	}
	if task.Status == "" {
		task.Status = models.TaskNew
	}
	if !validTaskStatus(task.Status) {
		return nil, apperrors.Validation("unknown task status %q", task.Status)
	}
	if task.Priority == "" {
		task.Priority = models.PriorityNormal
	}

	if task.ParentID != nil {
		parent, err := s.repo.FindByID(ctx, *task.ParentID, ownerID)
		if err != nil {
			return nil, apperrors.Persistence("load parent task", err)
		}
		if parent == nil {
			return nil, apperrors.ErrNotFound
		}
		if parent.ParentID != nil {
			return nil, apperrors.Validation("subtasks cannot have subtasks")
		}
	}

	task.OwnerID = ownerID
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	if err := s.repo.Store(ctx, task); err != nil {
		return nil, apperrors.Persistence("create task", err)
	}
	s.invalidator.Invalidate("/tasks")
	return task, nil
}

func (s *taskService) Get(ctx context.Context, ownerID, id int) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("load task", err)
	}
	if task == nil {
		return nil, apperrors.ErrNotFound
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, ownerID int, filter models.TaskFilter) ([]*models.Task, error) {
	tasks, err := s.repo.FindForOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, apperrors.Persistence("list tasks", err)
	}
	return tasks, nil
}

func (s *taskService) Subtasks(ctx context.Context, ownerID, parentID int) ([]*models.Task, error) {
	if _, err := s.Get(ctx, ownerID, parentID); err != nil {
		return nil, err
	}
	tasks, err := s.repo.FindForOwner(ctx, ownerID, models.TaskFilter{ParentID: &parentID})
	if err != nil {
		return nil, apperrors.Persistence("list subtasks", err)
	}
	return tasks, nil
}

func (s *taskService) Update(ctx context.Context, ownerID, id int, in *models.Task) (*models.Task, error) {
	task, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(in.Title); v != "" {
		task.Title = v
	}
	if in.Description != "" {
		task.Description = in.Description
	}
	if in.Priority != "" {
		task.Priority = in.Priority
	}
	if in.Status != "" {
		if !validTaskStatus(in.Status) {
			return nil, apperrors.Validation("unknown task status %q", in.Status)
		}
		task.Status = in.Status
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.DealID != nil {
		task.DealID = in.DealID
	}
	task.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, apperrors.Persistence("update task", err)
	}
	s.invalidator.Invalidate("/tasks", fmt.Sprintf("/tasks/%d", id))
	return task, nil
}

func (s *taskService) UpdateStatus(ctx context.Context, ownerID, id int, to models.TaskStatus) (*models.Task, error) {
	if !validTaskStatus(to) {
		return nil, apperrors.Validation("unknown task status %q", to)
	}
	task, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, apperrors.Persistence("update task status", err)
	}
	task.Status = to
	s.invalidator.Invalidate("/tasks", fmt.Sprintf("/tasks/%d", id))
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, ownerID, id int) error {
	task, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if task.ParentID == nil {
		count, err := s.repo.CountSubtasks(ctx, id)
		if err != nil {
			return apperrors.Persistence("count subtasks", err)
		}
		if count > 0 {
			return apperrors.Conflict(count, "cannot delete task: %d subtasks still attached", count)
		}
	}

	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return apperrors.Persistence("delete task", err)
	}
	if !deleted {
		return apperrors.ErrNotFound
	}
	s.invalidator.Invalidate("/tasks", fmt.Sprintf("/tasks/%d", id))
	return nil
}
