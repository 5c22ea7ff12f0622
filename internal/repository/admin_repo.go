package repository

import (
	"time"

	"motoexpress/internal/domain"
	"motoexpress/internal/models"

	"gorm.io/gorm"
)

type DashboardStats struct {
	UsersByRole          map[string]int64 `json:"users_by_role"`
	OrdersByStatus       map[string]int64 `json:"orders_by_status"`
	AvailableMotoboys    int64            `json:"available_motoboys"`
	DeliveredToday       int64            `json:"delivered_today"`
	TotalRevenueCents    int64            `json:"total_revenue_cents"`
	ActiveEstablishments int64            `json:"active_establishments"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

type groupCount struct {
	Grp   string
	Total int64
}

// GetDashboardStats aggregates counters; since is the start of "today".
func (r *AdminRepository) GetDashboardStats(since time.Time) (*DashboardStats, error) {
	s := DashboardStats{
		UsersByRole:    map[string]int64{},
		OrdersByStatus: map[string]int64{},
	}

	var roles []groupCount
	if err := r.db.Model(&models.User{}).Select("role AS grp, COUNT(*) AS total").Group("role").Scan(&roles).Error; err != nil {
		return nil, err
	}
	for _, g := range roles {
		s.UsersByRole[g.Grp] = g.Total
	}

	var statuses []groupCount
	if err := r.db.Model(&models.DeliveryOrder{}).Select("status AS grp, COUNT(*) AS total").Group("status").Scan(&statuses).Error; err != nil {
		return nil, err
	}
	for _, g := range statuses {
		s.OrdersByStatus[g.Grp] = g.Total
	}

	if err := r.db.Model(&models.MotoboyProfile{}).Where("is_available = ?", true).Count(&s.AvailableMotoboys).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.DeliveryOrder{}).
		Where("status = ? AND completed_at >= ?", domain.OrderDelivered, since).
		Count(&s.DeliveredToday).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.EstablishmentProfile{}).Where("is_active = ?", true).Count(&s.ActiveEstablishments).Error; err != nil {
		return nil, err
	}

	var rev struct{ Total int64 }
	if err := r.db.Model(&models.Payment{}).Select("COALESCE(SUM(amount_cents), 0) as total").
		Where("status = ?", domain.PaymentCompleted).Scan(&rev).Error; err != nil {
		return nil, err
	}
	s.TotalRevenueCents = rev.Total

	return &s, nil
}
