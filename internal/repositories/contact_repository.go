package repositories

import (
	"context"
	"database/sql"

	"dealdesk/internal/models"
)

type ContactRepository interface {
	Store(ctx context.Context, contact *models.Contact) error
	FindByID(ctx context.Context, id, ownerID int) (*models.Contact, error)
	FindForOwner(ctx context.Context, ownerID int) ([]*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id, ownerID int) (bool, error)
	ExistsForOwner(ctx context.Context, id, ownerID int) (bool, error)
	CountForOwner(ctx context.Context, ownerID int) (int, error)
}

type contactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) ContactRepository {
	return &contactRepository{db: db}
}

const contactColumns = `id, owner_id, first_name, last_name, email, phone, company_id, created_at, updated_at`

func scanContact(row interface{ Scan(...interface{}) error }) (*models.Contact, error) {
	c := &models.Contact{}
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.CompanyID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *contactRepository) Store(ctx context.Context, contact *models.Contact) error {
	query := `
		INSERT INTO contacts (owner_id, first_name, last_name, email, phone, company_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		contact.OwnerID, contact.FirstName, contact.LastName, contact.Email,
		contact.Phone, contact.CompanyID, contact.CreatedAt, contact.UpdatedAt,
	).Scan(&contact.ID)
}

func (r *contactRepository) FindByID(ctx context.Context, id, ownerID int) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND owner_id = $2`
	contact, err := scanContact(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return contact, nil
}

func (r *contactRepository) FindForOwner(ctx context.Context, ownerID int) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE owner_id = $1 ORDER BY last_name, first_name, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

func (r *contactRepository) Update(ctx context.Context, contact *models.Contact) error {
	query := `
		UPDATE contacts
		SET first_name=$1, last_name=$2, email=$3, phone=$4, company_id=$5, updated_at=$6
		WHERE id=$7 AND owner_id=$8`
	_, err := r.db.ExecContext(ctx, query,
		contact.FirstName, contact.LastName, contact.Email, contact.Phone,
		contact.CompanyID, contact.UpdatedAt, contact.ID, contact.OwnerID,
	)
	return err
}

func (r *contactRepository) Delete(ctx context.Context, id, ownerID int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *contactRepository) ExistsForOwner(ctx context.Context, id, ownerID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM contacts WHERE id = $1 AND owner_id = $2)`, id, ownerID,
	).Scan(&exists)
	return exists, err
}

func (r *contactRepository) CountForOwner(ctx context.Context, ownerID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE owner_id = $1`, ownerID).Scan(&count)
	return count, err
}
