package repository

import (
	"time"

	"motoexpress/internal/domain"
	"motoexpress/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository stores subscription checkouts. Lookups return
// gorm.ErrRecordNotFound for missing rows.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

// GetByProviderRef finds the checkout a provider webhook refers to.
func (r *PaymentRepository) GetByProviderRef(ref string) (*models.Payment, error) {
	return r.first("provider_ref = ?", ref)
}

func (r *PaymentRepository) GetByIdempotencyKey(key string) (*models.Payment, error) {
	return r.first("idempotency_key = ?", key)
}

func (r *PaymentRepository) first(query string, arg interface{}) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where(query, arg).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Update(p *models.Payment) error {
	return r.db.Save(p).Error
}

// ListByEstablishment returns the newest checkouts first.
func (r *PaymentRepository) ListByEstablishment(establishmentID uint, limit int) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.Where("establishment_id = ?", establishmentID).
		Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

// ExpirePending marks PENDING checkouts whose expiry is before now as EXPIRED.
func (r *PaymentRepository) ExpirePending(now time.Time) (int64, error) {
	res := r.db.Model(&models.Payment{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", domain.PaymentPending, now).
		Update("status", domain.PaymentExpired)
	return res.RowsAffected, res.Error
}
