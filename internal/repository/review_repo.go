package repository

import (
	"motoexpress/internal/domain"
	"motoexpress/internal/models"

	"gorm.io/gorm"
)

// RatingSummary is the aggregate over reviews received by one user.
type RatingSummary struct {
	Average float64 `json:"average_rating"`
	Count   int64   `json:"review_count"`
}

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(rv *models.Review) error {
	return r.db.Create(rv).Error
}

func (r *ReviewRepository) Exists(orderID, authorID uint) (bool, error) {
	var n int64
	err := r.db.Model(&models.Review{}).Where("order_id = ? AND author_id = ?", orderID, authorID).Count(&n).Error
	return n > 0, err
}

func (r *ReviewRepository) ListByOrder(orderID uint) ([]models.Review, error) {
	var list []models.Review
	err := r.db.Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&list).Error
	return list, err
}

func (r *ReviewRepository) SummaryForTarget(userID uint) (*RatingSummary, error) {
	var s RatingSummary
	err := r.db.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("target_id = ?", userID).
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountCompletedForMotoboy counts the motoboy's completed assignments.
func (r *ReviewRepository) CountCompletedForMotoboy(motoboyID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.DeliveryAssignment{}).
		Where("motoboy_id = ? AND status = ?", motoboyID, domain.AssignmentCompleted).
		Count(&n).Error
	return n, err
}

func (r *ReviewRepository) CountDeliveredForEstablishment(establishmentID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.DeliveryOrder{}).
		Where("establishment_id = ? AND status = ?", establishmentID, domain.OrderDelivered).
		Count(&n).Error
	return n, err
}
