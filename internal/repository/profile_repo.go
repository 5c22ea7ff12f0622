package repository

import (
	"time"

	"motoexpress/internal/domain"
	"motoexpress/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EstablishmentRepository struct {
	db *gorm.DB
}

func NewEstablishmentRepository(db *gorm.DB) *EstablishmentRepository {
	return &EstablishmentRepository{db: db}
}

func (r *EstablishmentRepository) Create(p *models.EstablishmentProfile) error {
	return r.db.Create(p).Error
}

func (r *EstablishmentRepository) GetByID(id uint) (*models.EstablishmentProfile, error) {
	var p models.EstablishmentProfile
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *EstablishmentRepository) GetByUserID(userID uint) (*models.EstablishmentProfile, error) {
	var p models.EstablishmentProfile
	err := r.db.Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *EstablishmentRepository) Update(p *models.EstablishmentProfile) error {
	return r.db.Save(p).Error
}

func (r *EstablishmentRepository) SetPlanTier(id uint, tier domain.PlanTier) error {
	return r.db.Model(&models.EstablishmentProfile{}).Where("id = ?", id).Update("plan_tier", tier).Error
}

type MotoboyRepository struct {
	db *gorm.DB
}

func NewMotoboyRepository(db *gorm.DB) *MotoboyRepository {
	return &MotoboyRepository{db: db}
}

func (r *MotoboyRepository) Create(p *models.MotoboyProfile) error {
	return r.db.Create(p).Error
}

func (r *MotoboyRepository) GetByID(id uint) (*models.MotoboyProfile, error) {
	var p models.MotoboyProfile
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MotoboyRepository) GetByUserID(userID uint) (*models.MotoboyProfile, error) {
	var p models.MotoboyProfile
	err := r.db.Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MotoboyRepository) Update(p *models.MotoboyProfile) error {
	return r.db.Save(p).Error
}

// ReportLocation writes coordinates, availability and the report time in one UPDATE.
// With skipOlder set, a report older than the stored one matches no row.
func (r *MotoboyRepository) ReportLocation(id uint, lat, lng float64, at time.Time, skipOlder bool) (bool, error) {
	q := r.db.Model(&models.MotoboyProfile{}).Where("id = ?", id)
	if skipOlder {
		q = q.Where("location_updated_at IS NULL OR location_updated_at <= ?", at)
	}
	res := q.Updates(map[string]interface{}{
		"current_lat":         lat,
		"current_lng":         lng,
		"is_available":        true,
		"location_updated_at": at,
	})
	return res.RowsAffected > 0, res.Error
}

// ClearLocation nulls both coordinates and availability together.
func (r *MotoboyRepository) ClearLocation(id uint) error {
	return r.db.Model(&models.MotoboyProfile{}).Where("id = ?", id).Updates(map[string]interface{}{
		"current_lat":  nil,
		"current_lng":  nil,
		"is_available": false,
	}).Error
}

// ClearStale clears every available motoboy whose last report is before cutoff
// and returns the ids it touched. Each row is cleared only while it still
// matches, so a report landing after the scan keeps its motoboy online.
func (r *MotoboyRepository) ClearStale(cutoff time.Time) ([]uint, error) {
	const stale = "is_available = ? AND (location_updated_at IS NULL OR location_updated_at < ?)"
	var cleared []uint
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.MotoboyProfile{}).Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(stale, true, cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		for _, id := range ids {
			res := tx.Model(&models.MotoboyProfile{}).Where("id = ?", id).Where(stale, true, cutoff).
				Updates(map[string]interface{}{
					"current_lat":  nil,
					"current_lng":  nil,
					"is_available": false,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				cleared = append(cleared, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

// ListAvailable returns motoboys that are available and located.
func (r *MotoboyRepository) ListAvailable() ([]models.MotoboyProfile, error) {
	var list []models.MotoboyProfile
	err := r.db.Where("is_available = ? AND current_lat IS NOT NULL AND current_lng IS NOT NULL", true).
		Order("location_updated_at DESC").Find(&list).Error
	return list, err
}

func (r *MotoboyRepository) List(page, limit int) ([]models.MotoboyProfile, int64, error) {
	var total int64
	if err := r.db.Model(&models.MotoboyProfile{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.MotoboyProfile
	err := r.db.Order("name ASC").Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}
