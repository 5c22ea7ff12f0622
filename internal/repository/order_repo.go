package repository

import (
	"errors"

	"motoexpress/internal/domain"
	"motoexpress/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderFilter scopes List. Nil ids mean no restriction.
type OrderFilter struct {
	EstablishmentID *uint
	MotoboyID       *uint
	Status          domain.OrderStatus
	Page            int
	Limit           int
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(o *models.DeliveryOrder) error {
	return r.db.Create(o).Error
}

func (r *OrderRepository) GetByID(id uint) (*models.DeliveryOrder, error) {
	var o models.DeliveryOrder
	err := r.db.First(&o, id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByIDForUpdate reads the order holding a row lock until the surrounding
// transaction ends. SQLite ignores the clause and serializes writers itself.
func (r *OrderRepository) GetByIDForUpdate(id uint) (*models.DeliveryOrder, error) {
	var o models.DeliveryOrder
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetDetailed loads the order with its establishment and assignment history.
func (r *OrderRepository) GetDetailed(id uint) (*models.DeliveryOrder, error) {
	var o models.DeliveryOrder
	err := r.db.Preload("Establishment").
		Preload("Assignments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Assignments.Motoboy").
		First(&o, id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) GetByCode(code string) (*models.DeliveryOrder, error) {
	var o models.DeliveryOrder
	err := r.db.Preload("Establishment").Where("delivery_code = ?", code).First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.DeliveryOrder{}).Where("id = ?", id).Updates(fields).Error
}

func (r *OrderRepository) List(f OrderFilter) ([]models.DeliveryOrder, int64, error) {
	q := r.db.Model(&models.DeliveryOrder{})
	if f.EstablishmentID != nil {
		q = q.Where("establishment_id = ?", *f.EstablishmentID)
	}
	if f.MotoboyID != nil {
		q = q.Where("id IN (?)", r.db.Model(&models.DeliveryAssignment{}).Select("order_id").Where("motoboy_id = ?", *f.MotoboyID))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.DeliveryOrder
	err := q.Order("created_at DESC, id DESC").Limit(f.Limit).Offset((f.Page - 1) * f.Limit).Find(&list).Error
	return list, total, err
}

type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(a *models.DeliveryAssignment) error {
	return r.db.Create(a).Error
}

func (r *AssignmentRepository) Update(a *models.DeliveryAssignment) error {
	return r.db.Save(a).Error
}

// FindActive returns the order's active assignment, or nil when there is none.
func (r *AssignmentRepository) FindActive(orderID uint) (*models.DeliveryAssignment, error) {
	var a models.DeliveryAssignment
	err := r.db.Where("order_id = ? AND status IN ?", orderID, domain.ActiveAssignmentStatuses).
		Order("id DESC").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindForMotoboy returns the motoboy's most recent assignment on the order.
func (r *AssignmentRepository) FindForMotoboy(orderID, motoboyID uint) (*models.DeliveryAssignment, error) {
	var a models.DeliveryAssignment
	err := r.db.Where("order_id = ? AND motoboy_id = ?", orderID, motoboyID).Order("id DESC").First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepository) ListByOrder(orderID uint) ([]models.DeliveryAssignment, error) {
	var list []models.DeliveryAssignment
	err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *AssignmentRepository) CountByOrder(orderID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.DeliveryAssignment{}).Where("order_id = ?", orderID).Count(&n).Error
	return n, err
}

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(e *models.DeliveryEvent) error {
	return r.db.Create(e).Error
}

// ListByOrder returns the order's events oldest first.
func (r *EventRepository) ListByOrder(orderID uint) ([]models.DeliveryEvent, error) {
	var list []models.DeliveryEvent
	err := r.db.Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&list).Error
	return list, err
}

func (r *EventRepository) Latest(orderID uint) (*models.DeliveryEvent, error) {
	var e models.DeliveryEvent
	err := r.db.Where("order_id = ?", orderID).Order("created_at DESC, id DESC").First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}
