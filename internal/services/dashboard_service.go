package services

import (
	"context"

	"dealdesk/internal/apperrors"
	"dealdesk/internal/models"
	"dealdesk/internal/repositories"
)

// DashboardStats is the aggregate snapshot rendered on the dashboard.
type DashboardStats struct {
	OpenDeals     int                           `json:"open_deals"`
	WonDeals      int                           `json:"won_deals"`
	LostDeals     int                           `json:"lost_deals"`
	WinRate       float64                       `json:"win_rate"`
	Pipeline      []repositories.StageValueStat `json:"pipeline"`
	Contacts      int                           `json:"contacts"`
	Companies     int                           `json:"companies"`
	OpenTasks     int                           `json:"open_tasks"`
	DealsByStatus map[models.DealStatus]int     `json:"deals_by_status"`
}

type DashboardService interface {
	Stats(ctx context.Context, ownerID int) (*DashboardStats, error)
}

type dashboardService struct {
	dealRepo    repositories.DealRepository
	contactRepo repositories.ContactRepository
	companyRepo repositories.CompanyRepository
	taskRepo    repositories.TaskRepository
}

func NewDashboardService(
	dealRepo repositories.DealRepository,
	contactRepo repositories.ContactRepository,
	companyRepo repositories.CompanyRepository,
	taskRepo repositories.TaskRepository,
) DashboardService {
	return &dashboardService{
		dealRepo:    dealRepo,
		contactRepo: contactRepo,
		companyRepo: companyRepo,
		taskRepo:    taskRepo,
	}
}

func (s *dashboardService) Stats(ctx context.Context, ownerID int) (*DashboardStats, error) {
	byStatus, err := s.dealRepo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("deal counts", err)
	}
	pipeline, err := s.dealRepo.ValueByStage(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("pipeline values", err)
	}
	contacts, err := s.contactRepo.CountForOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("contact count", err)
	}
	companies, err := s.companyRepo.CountForOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("company count", err)
	}
	openTasks, err := s.taskRepo.CountOpenForOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Persistence("task count", err)
	}

	stats := &DashboardStats{
		OpenDeals:     byStatus[models.DealOpen],
		WonDeals:      byStatus[models.DealWon],
		LostDeals:     byStatus[models.DealLost],
		Pipeline:      pipeline,
		Contacts:      contacts,
		Companies:     companies,
		OpenTasks:     openTasks,
		DealsByStatus: byStatus,
	}
	if closed := stats.WonDeals + stats.LostDeals; closed > 0 {
		stats.WinRate = float64(stats.WonDeals) / float64(closed)
	}
	return stats, nil
}
