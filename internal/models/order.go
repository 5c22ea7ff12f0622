package models

import (
	"time"

	"motoexpress/internal/domain"
)

type DeliveryOrder struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	DeliveryCode    string             `gorm:"uniqueIndex;size:16;not null" json:"delivery_code"`
	EstablishmentID uint               `gorm:"not null;index" json:"establishment_id"`
	CustomerName    string             `gorm:"size:120;not null" json:"customer_name"`
	CustomerPhone   string             `gorm:"size:32" json:"customer_phone"`
	DeliveryAddress string             `gorm:"size:255;not null" json:"delivery_address"`
	Notes           string             `gorm:"type:text" json:"notes"`
	DestLat         *float64           `json:"dest_lat"`
	DestLng         *float64           `json:"dest_lng"`
	FeeCents        int64              `gorm:"not null;default:0" json:"fee_cents"`
	DistanceKm      *float64           `json:"distance_km"`
	Status          domain.OrderStatus `gorm:"size:20;not null;index" json:"status"`
	CompletedAt     *time.Time         `json:"completed_at"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`

	Establishment *EstablishmentProfile `gorm:"foreignKey:EstablishmentID" json:"establishment,omitempty"`
	Assignments   []DeliveryAssignment  `gorm:"foreignKey:OrderID" json:"assignments,omitempty"`
	Events        []DeliveryEvent       `gorm:"foreignKey:OrderID" json:"events,omitempty"`
}

func (DeliveryOrder) TableName() string {
	return "delivery_orders"
}

// DeliveryAssignment links one order to one motoboy. An order keeps every
// assignment it ever had; at most one is active at a time.
type DeliveryAssignment struct {
	ID              uint                    `gorm:"primaryKey" json:"id"`
	OrderID         uint                    `gorm:"not null;index" json:"order_id"`
	MotoboyID       uint                    `gorm:"not null;index" json:"motoboy_id"`
	Status          domain.AssignmentStatus `gorm:"size:20;not null;index" json:"status"`
	AssignedAt      time.Time               `json:"assigned_at"`
	AcceptedAt      *time.Time              `json:"accepted_at"`
	CompletedAt     *time.Time              `json:"completed_at"`
	RejectionReason *string                 `gorm:"size:500" json:"rejection_reason"` // only set when REJECTED
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`

	Motoboy *MotoboyProfile `gorm:"foreignKey:MotoboyID" json:"motoboy,omitempty"`
}

func (DeliveryAssignment) TableName() string {
	return "delivery_assignments"
}

// DeliveryEvent is append-only.
type DeliveryEvent struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	OrderID   uint               `gorm:"not null;index" json:"order_id"`
	Status    domain.OrderStatus `gorm:"size:20;not null" json:"status"`
	Message   string             `gorm:"size:500" json:"message"`
	Metadata  string             `gorm:"type:text" json:"metadata,omitempty"` // JSON
	CreatedBy *uint              `json:"created_by"`
	CreatedAt time.Time          `gorm:"index" json:"created_at"`
}

func (DeliveryEvent) TableName() string {
	return "delivery_events"
}

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;uniqueIndex:idx_review_order_author" json:"order_id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_review_order_author" json:"author_id"`
	TargetID  uint      `gorm:"not null;index" json:"target_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}
