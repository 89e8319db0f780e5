package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"dealdesk/internal/models"
)

// StageValueStat is one row of the per-stage pipeline aggregate.
type StageValueStat struct {
	StageID    int     `json:"stage_id"`
	StageName  string  `json:"stage_name"`
	DealCount  int     `json:"deal_count"`
	TotalValue float64 `json:"total_value"`
}

// DealRepository owns the deals table. All finders except FindByID are
// owner-scoped; FindByID takes the owner explicitly so that a foreign-owned
// row scans the same as a missing one.
type DealRepository interface {
	Store(ctx context.Context, deal *models.Deal) error
	FindByID(ctx context.Context, id, ownerID int) (*models.Deal, error)
	FindForOwner(ctx context.Context, ownerID int, filter models.DealFilter) ([]*models.Deal, error)
	Update(ctx context.Context, deal *models.Deal) error
	UpdateStage(ctx context.Context, id int, stageID *int) error
	Delete(ctx context.Context, id, ownerID int) (bool, error)

	CountByStatus(ctx context.Context, ownerID int) (map[models.DealStatus]int, error)
	ValueByStage(ctx context.Context, ownerID int) ([]StageValueStat, error)
}

type dealRepository struct {
	db *sql.DB
}

func NewDealRepository(db *sql.DB) DealRepository {
	return &dealRepository{db: db}
}

const dealColumns = `id, owner_id, title, description, value, currency, status, probability,
       expected_close_date, closed_at, lost_reason, stage_id, contact_id, company_id,
       created_at, updated_at`

func scanDeal(row interface{ Scan(...interface{}) error }) (*models.Deal, error) {
	deal := &models.Deal{}
	err := row.Scan(
		&deal.ID, &deal.OwnerID, &deal.Title, &deal.Description, &deal.Value,
		&deal.Currency, &deal.Status, &deal.Probability, &deal.ExpectedCloseDate,
		&deal.ClosedAt, &deal.LostReason, &deal.StageID, &deal.ContactID,
		&deal.CompanyID, &deal.CreatedAt, &deal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return deal, nil
}

func (r *dealRepository) Store(ctx context.Context, deal *models.Deal) error {
	query := `
		INSERT INTO deals (
			owner_id, title, description, value, currency, status, probability,
			expected_close_date, closed_at, lost_reason, stage_id, contact_id, company_id,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		deal.OwnerID, deal.Title, deal.Description, deal.Value, deal.Currency,
		deal.Status, deal.Probability, deal.ExpectedCloseDate, deal.ClosedAt,
		deal.LostReason, deal.StageID, deal.ContactID, deal.CompanyID,
		deal.CreatedAt, deal.UpdatedAt,
	).Scan(&deal.ID)
}

func (r *dealRepository) FindByID(ctx context.Context, id, ownerID int) (*models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1 AND owner_id = $2`
	deal, err := scanDeal(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return deal, nil
}

func (r *dealRepository) FindForOwner(ctx context.Context, ownerID int, filter models.DealFilter) ([]*models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE owner_id = $1`
	args := []interface{}{ownerID}
	i := 2

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", i)
		args = append(args, *filter.Status)
		i++
	}
	if filter.StageID != nil {
		query += fmt.Sprintf(" AND stage_id = $%d", i)
		args = append(args, *filter.StageID)
		i++
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []*models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

func (r *dealRepository) Update(ctx context.Context, deal *models.Deal) error {
	query := `
		UPDATE deals
		SET title=$1, description=$2, value=$3, currency=$4, status=$5, probability=$6,
		    expected_close_date=$7, closed_at=$8, lost_reason=$9, stage_id=$10,
		    contact_id=$11, company_id=$12, updated_at=$13
		WHERE id=$14 AND owner_id=$15`
	_, err := r.db.ExecContext(ctx, query,
		deal.Title, deal.Description, deal.Value, deal.Currency, deal.Status,
		deal.Probability, deal.ExpectedCloseDate, deal.ClosedAt, deal.LostReason,
		deal.StageID, deal.ContactID, deal.CompanyID, deal.UpdatedAt,
		deal.ID, deal.OwnerID,
	)
	return err
}

func (r *dealRepository) UpdateStage(ctx context.Context, id int, stageID *int) error {
	const q = `UPDATE deals SET stage_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, q, stageID, id)
	return err
}

func (r *dealRepository) Delete(ctx context.Context, id, ownerID int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM deals WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *dealRepository) CountByStatus(ctx context.Context, ownerID int) (map[models.DealStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM deals WHERE owner_id = $1 GROUP BY status`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[models.DealStatus]int{}
	for rows.Next() {
		var status models.DealStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *dealRepository) ValueByStage(ctx context.Context, ownerID int) ([]StageValueStat, error) {
	query := `
		SELECT s.id, s.name, COUNT(d.id), COALESCE(SUM(d.value), 0)
		FROM pipeline_stages s
		LEFT JOIN deals d ON d.stage_id = s.id AND d.owner_id = $1 AND d.status = 'open'
		WHERE s.is_active
		GROUP BY s.id, s.name, s.sort_order
		ORDER BY s.sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []StageValueStat
	for rows.Next() {
		var stat StageValueStat
		if err := rows.Scan(&stat.StageID, &stat.StageName, &stat.DealCount, &stat.TotalValue); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
