package models

import (
	"time"

	"motoexpress/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Role         domain.Role    `gorm:"size:20;not null;index" json:"role"` // ADMIN | ESTABLISHMENT | MOTOBOY
	Name         string         `gorm:"size:120" json:"name"`
	Phone        string         `gorm:"size:32" json:"phone"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	GoogleID     *string        `gorm:"uniqueIndex;size:255" json:"-"` // nil unless linked (avoids duplicate '' on unique index)
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Establishment *EstablishmentProfile `gorm:"foreignKey:UserID" json:"establishment,omitempty"`
	Motoboy       *MotoboyProfile       `gorm:"foreignKey:UserID" json:"motoboy,omitempty"`
}

func (u *User) IsAdmin() bool         { return u.Role == domain.RoleAdmin }
func (u *User) IsEstablishment() bool { return u.Role == domain.RoleEstablishment }
func (u *User) IsMotoboy() bool       { return u.Role == domain.RoleMotoboy }

type EstablishmentProfile struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Name             string          `gorm:"size:160;not null" json:"name"`
	TaxID            string          `gorm:"size:32" json:"tax_id"` // CNPJ
	Address          string          `gorm:"size:255" json:"address"`
	Phone            string          `gorm:"size:32" json:"phone"`
	Lat              *float64        `json:"lat"` // pickup point
	Lng              *float64        `json:"lng"`
	DeliveryFeeCents int64           `gorm:"not null;default:0" json:"delivery_fee_cents"`
	PlanTier         domain.PlanTier `gorm:"size:10;not null;default:'FREE'" json:"plan_tier"`
	IsActive         bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (EstablishmentProfile) TableName() string {
	return "establishment_profiles"
}

type MotoboyProfile struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Name              string     `gorm:"size:120;not null" json:"name"`
	Phone             string     `gorm:"size:32" json:"phone"`
	CPF               string     `gorm:"size:14" json:"cpf"`
	CNH               string     `gorm:"size:20" json:"cnh"`
	VehicleType       string     `gorm:"size:20;not null;default:'MOTORCYCLE'" json:"vehicle_type"`
	VehiclePlate      string     `gorm:"size:10" json:"vehicle_plate"`
	DocumentURL       string     `gorm:"size:512" json:"document_url"`
	CurrentLat        *float64   `json:"current_lat"`
	CurrentLng        *float64   `json:"current_lng"`
	IsAvailable       bool       `gorm:"not null;default:false;index" json:"is_available"`
	LocationUpdatedAt *time.Time `json:"location_updated_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (MotoboyProfile) TableName() string {
	return "motoboy_profiles"
}

// HasLocation reports whether both coordinates are known.
func (m *MotoboyProfile) HasLocation() bool {
	return m.CurrentLat != nil && m.CurrentLng != nil
}
