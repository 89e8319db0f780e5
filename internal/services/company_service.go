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

type CompanyService interface {
	Create(ctx context.Context, ownerID int, company *models.Company) (*models.Company, error)
	Get(ctx context.Context, ownerID, id int) (*models.Company, error)
	List(ctx context.Context, ownerID int) ([]*models.Company, error)
	Update(ctx context.Context, ownerID, id int, company *models.Company) (*models.Company, error)
	Delete(ctx context.Context, ownerID, id int) error
}

type companyService struct {
	repo        repositories.CompanyRepository
	invalidator ViewInvalidator
}

func NewCompanyService(repo repositories.CompanyRepository, invalidator ViewInvalidator) CompanyService {
	if invalidator == nil {
		invalidator = NopInvalidator{}
	}
	return &companyService{repo: repo, invalidator: invalidator}
}

func (s *companyService) Create(ctx context.Context, ownerID int, company *models.Company) (*models.Company, error) {
	company.Name = strings.TrimSpace(company.Name)
	if company.Name == "" {
		return nil, apperrors.Validation("company name is required")
	}

	company.OwnerID = ownerID
	now := time.Now()
	company.CreatedAt = now
	company.UpdatedAt = now

	if err := s.repo.Store(ctx, company); err != nil {
		return nil, apperrors.Persistence("create company", err)
	}
	s.invalidator.Invalidate("/companies")
	return company, nil
}

func (s *companyService) Get(ctx context.Context, ownerID, id int) (*models.Company, error) {
	company, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("load company", err)
	}
	if company == nil {
		return nil, apperrors.ErrNotFound
	}
	return company, nil
}

func (s *companyService) List(ctx context.Context, ownerID int) ([]*models.Company, error) {
	companies, err := s.repo.FindForOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("list companies", err)
	}
	return companies, nil
}

func (s *companyService) Update(ctx context.Context, ownerID, id int, in *models.Company) (*models.Company, error) {
	company, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(in.Name); v != "" {
		company.Name = v
	}
	if in.Website != "" {
		company.Website = in.Website
	}
	if in.Industry != "" {
		company.Industry = in.Industry
	}
	company.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, company); err != nil {
		return nil, apperrors.Persistence("update company", err)
	}
	s.invalidator.Invalidate("/companies", fmt.Sprintf("/companies/%d", id))
	return company, nil
}

func (s *companyService) Delete(ctx context.Context, ownerID, id int) error {
	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return apperrors.Persistence("delete company", err)
	}
	if !deleted {
		return apperrors.ErrNotFound
	}
	s.invalidator.Invalidate("/companies", fmt.Sprintf("/companies/%d", id))
	return nil
}
