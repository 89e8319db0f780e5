package repositories

import (
	"context"
	"database/sql"

	"dealdesk/internal/models"
)

type CompanyRepository interface {
	Store(ctx context.Context, company *models.Company) error
	FindByID(ctx context.Context, id, ownerID int) (*models.Company, error)
	FindForOwner(ctx context.Context, ownerID int) ([]*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
	Delete(ctx context.Context, id, ownerID int) (bool, error)
	ExistsForOwner(ctx context.Context, id, ownerID int) (bool, error)
	CountForOwner(ctx context.Context, ownerID int) (int, error)
}

type companyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) CompanyRepository {
	return &companyRepository{db: db}
}

const companyColumns = `id, owner_id, name, website, industry, created_at, updated_at`

func scanCompany(row interface{ Scan(...interface{}) error }) (*models.Company, error) {
	c := &models.Company{}
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Website, &c.Industry, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *companyRepository) Store(ctx context.Context, company *models.Company) error {
	query := `
		INSERT INTO companies (owner_id, name, website, industry, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		company.OwnerID, company.Name, company.Website, company.Industry,
		company.CreatedAt, company.UpdatedAt,
	).Scan(&company.ID)
}

func (r *companyRepository) FindByID(ctx context.Context, id, ownerID int) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1 AND owner_id = $2`
	company, err := scanCompany(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return company, nil
}

func (r *companyRepository) FindForOwner(ctx context.Context, ownerID int) ([]*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE owner_id = $1 ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

func (r *companyRepository) Update(ctx context.Context, company *models.Company) error {
	query := `
		UPDATE companies
		SET name=$1, website=$2, industry=$3, updated_at=$4
		WHERE id=$5 AND owner_id=$6`
	_, err := r.db.ExecContext(ctx, query,
		company.Name, company.Website, company.Industry, company.UpdatedAt,
		company.ID, company.OwnerID,
	)
	return err
}

func (r *companyRepository) Delete(ctx context.Context, id, ownerID int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *companyRepository) ExistsForOwner(ctx context.Context, id, ownerID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM companies WHERE id = $1 AND owner_id = $2)`, id, ownerID,
	).Scan(&exists)
	return exists, err
}

func (r *companyRepository) CountForOwner(ctx context.Context, ownerID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM companies WHERE owner_id = $1`, ownerID).Scan(&count)
	return count, err
}
