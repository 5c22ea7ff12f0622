package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Store bundles the repositories over one handle so a multi-step mutation can
// run every repository inside the same transaction.
type Store struct {
	db *gorm.DB

	Users          *UserRepository
	Establishments *EstablishmentRepository
	Motoboys       *MotoboyRepository
	Orders         *OrderRepository
	Assignments    *AssignmentRepository
	Events         *EventRepository
	Reviews        *ReviewRepository
	Notifications  *NotificationRepository
	Payments       *PaymentRepository
	AuditLogs      *AuditLogRepository
	Admin          *AdminRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:             db,
		Users:          NewUserRepository(db),
		Establishments: NewEstablishmentRepository(db),
		Motoboys:       NewMotoboyRepository(db),
		Orders:         NewOrderRepository(db),
		Assignments:    NewAssignmentRepository(db),
		Events:         NewEventRepository(db),
		Reviews:        NewReviewRepository(db),
		Notifications:  NewNotificationRepository(db),
		Payments:       NewPaymentRepository(db),
		AuditLogs:      NewAuditLogRepository(db),
		Admin:          NewAdminRepository(db),
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

// WithContext returns a Store whose queries are bound to ctx.
func (s *Store) WithContext(ctx context.Context) *Store {
	return NewStore(s.db.WithContext(ctx))
}

// Transaction runs fn in one database transaction; fn's error rolls it back.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// IsNotFound reports whether err is gorm's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a unique-constraint violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}
