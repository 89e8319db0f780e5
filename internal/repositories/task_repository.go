package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dealdesk/internal/models"
)

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id, ownerID int) (*models.Task, error)
	FindForOwner(ctx context.Context, ownerID int, filter models.TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id, ownerID int) (bool, error)
	UpdateStatus(ctx context.Context, id int, to models.TaskStatus) error
	CountOpenForOwner(ctx context.Context, ownerID int) (int, error)
	CountSubtasks(ctx context.Context, id int) (int, error)
}

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, owner_id, parent_id, deal_id, title, description, priority, status,
       due_date, created_at, updated_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID, &task.OwnerID, &task.ParentID, &task.DealID, &task.Title,
		&task.Description, &task.Priority, &task.Status, &task.DueDate,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (owner_id, parent_id, deal_id, title, description, priority, status,
			due_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		task.OwnerID, task.ParentID, task.DealID, task.Title, task.Description,
		task.Priority, task.Status, task.DueDate, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
}

func (r *taskRepository) FindByID(ctx context.Context, id, ownerID int) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) FindForOwner(ctx context.Context, ownerID int, filter models.TaskFilter) ([]*models.Task, error) {
	conditions := []string{"owner_id = $1"}
	args := []interface{}{ownerID}
	argID := 2

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}
	if filter.DealID != nil {
		conditions = append(conditions, fmt.Sprintf("deal_id = $%d", argID))
		args = append(args, *filter.DealID)
		argID++
	}
	if filter.ParentID != nil {
		conditions = append(conditions, fmt.Sprintf("parent_id = $%d", argID))
		args = append(args, *filter.ParentID)
		argID++
	} else if filter.TopLevel {
		conditions = append(conditions, "parent_id IS NULL")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title=$1, description=$2, priority=$3, status=$4, due_date=$5, deal_id=$6, updated_at=$7
		WHERE id=$8 AND owner_id=$9`
	_, err := r.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Priority, task.Status, task.DueDate,
		task.DealID, task.UpdatedAt, task.ID, task.OwnerID,
	)
	return err
}

func (r *taskRepository) Delete(ctx context.Context, id, ownerID int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id int, to models.TaskStatus) error {
	const q = `UPDATE tasks SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, q, to, id)
	return err
}

func (r *taskRepository) CountOpenForOwner(ctx context.Context, ownerID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE owner_id = $1 AND status IN ('new', 'in_progress')`,
		ownerID).Scan(&count)
	return count, err
}

func (r *taskRepository) CountSubtasks(ctx context.Context, id int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE parent_id = $1`, id).Scan(&count)
	return count, err
}
