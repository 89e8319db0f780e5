package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"dealdesk/internal/models"
)

// StageRepository owns the pipeline_stages table. Finders return (nil, nil)
// when nothing matches; callers decide what "missing" means.
type StageRepository interface {
	Store(ctx context.Context, stage *models.Stage) error
	FindAll(ctx context.Context, activeOnly bool) ([]*models.Stage, error)
	FindByID(ctx context.Context, id int) (*models.Stage, error)
	FirstActive(ctx context.Context) (*models.Stage, error)
	Update(ctx context.Context, stage *models.Stage) error
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (int, error)
	MaxSortOrder(ctx context.Context) (int, error)
	CountDeals(ctx context.Context, stageID int) (int, error)

	// ReorderAll rewrites sort_order to the 1-based position of each id in
	// orderedIDs, inside a single transaction. Partial application is never
	// visible.
	ReorderAll(ctx context.Context, orderedIDs []int) error
}

type stageRepository struct {
	db *sql.DB
}

func NewStageRepository(db *sql.DB) StageRepository {
	return &stageRepository{db: db}
}

const stageColumns = `s.id, s.name, s.color, s.sort_order, s.is_active, s.created_at, s.updated_at,
       (SELECT COUNT(*) FROM deals d WHERE d.stage_id = s.id) AS deals_count`

func scanStage(row interface{ Scan(...interface{}) error }) (*models.Stage, error) {
	stage := &models.Stage{}
	err := row.Scan(
		&stage.ID, &stage.Name, &stage.Color, &stage.SortOrder, &stage.IsActive,
		&stage.CreatedAt, &stage.UpdatedAt, &stage.DealsCount,
	)
	if err != nil {
		return nil, err
	}
	return stage, nil
}

func (r *stageRepository) Store(ctx context.Context, stage *models.Stage) error {
	query := `
		INSERT INTO pipeline_stages (name, color, sort_order, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		stage.Name, stage.Color, stage.SortOrder, stage.IsActive,
		stage.CreatedAt, stage.UpdatedAt,
	).Scan(&stage.ID)
}

func (r *stageRepository) FindAll(ctx context.Context, activeOnly bool) ([]*models.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM pipeline_stages s`
	if activeOnly {
		query += ` WHERE s.is_active`
	}
	// secondary keys keep the listing deterministic if sort_order ever collides
	query += ` ORDER BY s.sort_order ASC, s.created_at ASC, s.id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []*models.Stage
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

func (r *stageRepository) FindByID(ctx context.Context, id int) (*models.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM pipeline_stages s WHERE s.id = $1`
	stage, err := scanStage(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return stage, nil
}

func (r *stageRepository) FirstActive(ctx context.Context) (*models.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM pipeline_stages s
	          WHERE s.is_active
	          ORDER BY s.sort_order ASC, s.created_at ASC, s.id ASC
	          LIMIT 1`
	stage, err := scanStage(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return stage, nil
}

func (r *stageRepository) Update(ctx context.Context, stage *models.Stage) error {
	query := `
		UPDATE pipeline_stages
		SET name=$1, color=$2, sort_order=$3, is_active=$4, updated_at=$5
		WHERE id=$6`
	_, err := r.db.ExecContext(ctx, query,
		stage.Name, stage.Color, stage.SortOrder, stage.IsActive, stage.UpdatedAt, stage.ID)
	return err
}

func (r *stageRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pipeline_stages WHERE id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *stageRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pipeline_stages`).Scan(&count)
	return count, err
}

func (r *stageRepository) MaxSortOrder(ctx context.Context) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM pipeline_stages`).Scan(&max)
	return max, err
}

func (r *stageRepository) CountDeals(ctx context.Context, stageID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deals WHERE stage_id = $1`, stageID).Scan(&count)
	return count, err
}

func (r *stageRepository) ReorderAll(ctx context.Context, orderedIDs []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE pipeline_stages SET sort_order=$1, updated_at=NOW() WHERE id=$2`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for pos, id := range orderedIDs {
		result, err := stmt.ExecContext(ctx, pos+1, id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("reorder: stage %d does not exist", id)
		}
	}
	return tx.Commit()
}
