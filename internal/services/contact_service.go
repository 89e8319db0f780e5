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

type ContactService interface {
	Create(ctx context.Context, ownerID int, contact *models.Contact) (*models.Contact, error)
	Get(ctx context.Context, ownerID, id int) (*models.Contact, error)
	List(ctx context.Context, ownerID int) ([]*models.Contact, error)
	Update(ctx context.Context, ownerID, id int, contact *models.Contact) (*models.Contact, error)
	Delete(ctx context.Context, ownerID, id int) error
}

type contactService struct {
	repo        repositories.ContactRepository
	companyRepo repositories.CompanyRepository
	invalidator ViewInvalidator
}

func NewContactService(repo repositories.ContactRepository, companyRepo repositories.CompanyRepository, invalidator ViewInvalidator) ContactService {
	if invalidator == nil {
		invalidator = NopInvalidator{}
	}
	return &contactService{repo: repo, companyRepo: companyRepo, invalidator: invalidator}
}

func (s *contactService) Create(ctx context.Context, ownerID int, contact *models.Contact) (*models.Contact, error) {
	contact.FirstName = strings.TrimSpace(contact.FirstName)
	contact.LastName = strings.TrimSpace(contact.LastName)
	if contact.FirstName == "" && contact.LastName == "" {
		return nil, apperrors.Validation("contact name is required")
	}

	contact.OwnerID = ownerID
	contact.CompanyID = s.resolveCompany(ctx, ownerID, contact.CompanyID)
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	if err := s.repo.Store(ctx, contact); err != nil {
		return nil, apperrors.Persistence("create contact", err)
	}
	s.invalidator.Invalidate("/contacts")
	return contact, nil
}

// resolveCompany applies the tolerant-linking policy: an unresolvable
// company id becomes "no relation".
func (s *contactService) resolveCompany(ctx context.Context, ownerID int, id *int) *int {
	if id == nil {
		return nil
	}
	ok, err := s.companyRepo.ExistsForOwner(ctx, *id, ownerID)
	if err != nil || !ok {
		return nil
	}
	return id
}

func (s *contactService) Get(ctx context.Context, ownerID, id int) (*models.Contact, error) {
	contact, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("load contact", err)
	}
	if contact == nil {
		return nil, apperrors.ErrNotFound
	}
	return contact, nil
}

func (s *contactService) List(ctx context.Context, ownerID int) ([]*models.Contact, error) {
	contacts, err := s.repo.FindForOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("list contacts", err)
	}
	return contacts, nil
}

func (s *contactService) Update(ctx context.Context, ownerID, id int, in *models.Contact) (*models.Contact, error) {
	contact, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(in.FirstName); v != "" {
		contact.FirstName = v
	}
	if v := strings.TrimSpace(in.LastName); v != "" {
		contact.LastName = v
	}
	if in.Email != "" {
		contact.Email = in.Email
	}
	if in.Phone != "" {
		contact.Phone = in.Phone
	}
	if in.CompanyID != nil {
		contact.CompanyID = s.resolveCompany(ctx, ownerID, in.CompanyID)
	}
	contact.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, contact); err != nil {
		return nil, apperrors.Persistence("update contact", err)
	}
	s.invalidator.Invalidate("/contacts", fmt.Sprintf("/contacts/%d", id))
	return contact, nil
}

func (s *contactService) Delete(ctx context.Context, ownerID, id int) error {
	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return apperrors.Persistence("delete contact", err)
	}
	if !deleted {
		return apperrors.ErrNotFound
	}
	s.invalidator.Invalidate("/contacts", fmt.Sprintf("/contacts/%d", id))
	return nil
}
