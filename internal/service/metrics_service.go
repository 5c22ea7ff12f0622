package service

import (
	"context"
	"time"

	"motoexpress/internal/apperr"
	"motoexpress/internal/repository"
)

// MetricsService computes counters on demand; nothing is cached.
type MetricsService struct {
	store *repository.Store
	now   func() time.Time
}

func NewMetricsService(store *repository.Store) *MetricsService {
	return &MetricsService{store: store, now: utcNow}
}

type MotoboyStats struct {
	MotoboyID           uint    `json:"motoboy_id"`
	Name                string  `json:"name"`
	CompletedDeliveries int64   `json:"completed_deliveries"`
	AverageRating       float64 `json:"average_rating"`
	ReviewCount         int64   `json:"review_count"`
	IsAvailable         bool    `json:"is_available"`
}

type EstablishmentStats struct {
	EstablishmentID uint    `json:"establishment_id"`
	Name            string  `json:"name"`
	DeliveredOrders int64   `json:"delivered_orders"`
	AverageRating   float64 `json:"average_rating"`
	ReviewCount     int64   `json:"review_count"`
	PlanTier        string  `json:"plan_tier"`
}

func (s *MetricsService) MotoboyStats(ctx context.Context, motoboyID uint) (*MotoboyStats, error) {
	store := s.store.WithContext(ctx)
	mb, err := store.Motoboys.GetByID(motoboyID)
	if err != nil {
		return nil, dbErr(err, "motoboy not found")
	}
	completed, err := store.Reviews.CountCompletedForMotoboy(mb.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	rating, err := store.Reviews.SummaryForTarget(mb.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &MotoboyStats{
		MotoboyID:           mb.ID,
		Name:                mb.Name,
		CompletedDeliveries: completed,
		AverageRating:       rating.Average,
		ReviewCount:         rating.Count,
		IsAvailable:         mb.IsAvailable,
	}, nil
}

func (s *MetricsService) EstablishmentStats(ctx context.Context, establishmentID uint) (*EstablishmentStats, error) {
	store := s.store.WithContext(ctx)
	est, err := store.Establishments.GetByID(establishmentID)
	if err != nil {
		return nil, dbErr(err, "establishment not found")
	}
	delivered, err := store.Reviews.CountDeliveredForEstablishment(est.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	rating, err := store.Reviews.SummaryForTarget(est.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &EstablishmentStats{
		EstablishmentID: est.ID,
		Name:            est.Name,
		DeliveredOrders: delivered,
		AverageRating:   rating.Average,
		ReviewCount:     rating.Count,
		PlanTier:        string(est.PlanTier),
	}, nil
}

// Dashboard is the admin overview; "today" starts at UTC midnight.
func (s *MetricsService) Dashboard(ctx context.Context) (*repository.DashboardStats, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	stats, err := s.store.WithContext(ctx).Admin.GetDashboardStats(midnight)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return stats, nil
}
