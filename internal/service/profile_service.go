package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"motoexpress/internal/apperr"
	"motoexpress/internal/domain"
	"motoexpress/internal/models"
	"motoexpress/internal/repository"
	"motoexpress/pkg/cloudinary"

	"github.com/google/uuid"
)

type ProfileService struct {
	store    *repository.Store
	cloud    cloudinary.Client
	folder   string
	location *LocationService
}

func NewProfileService(store *repository.Store, cloud cloudinary.Client, folder string, location *LocationService) *ProfileService {
	return &ProfileService{store: store, cloud: cloud, folder: folder, location: location}
}

// ProfilePatch is a partial update; fields for the other role are rejected.
type ProfilePatch struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`

	BusinessName     *string  `json:"business_name" validate:"omitempty,min=1,max=160"`
	TaxID            *string  `json:"tax_id" validate:"omitempty,max=32"`
	Address          *string  `json:"address" validate:"omitempty,max=255"`
	Lat              *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng              *float64 `json:"lng" validate:"omitempty,longitude"`
	DeliveryFeeCents *int64   `json:"delivery_fee_cents" validate:"omitempty,min=0"`

	CPF          *string `json:"cpf" validate:"omitempty,max=14"`
	CNH          *string `json:"cnh" validate:"omitempty,max=20"`
	VehicleType  *string `json:"vehicle_type" validate:"omitempty,oneof=MOTORCYCLE BICYCLE CAR"`
	VehiclePlate *string `json:"vehicle_plate" validate:"omitempty,max=10"`
}

func (p ProfilePatch) establishmentFields() map[string]interface{} {
	f := map[string]interface{}{}
	if p.BusinessName != nil {
		f["name"] = *p.BusinessName
	}
	if p.TaxID != nil {
		f["tax_id"] = *p.TaxID
	}
	if p.Address != nil {
		f["address"] = *p.Address
	}
	if p.Lat != nil {
		f["lat"] = *p.Lat
	}
	if p.Lng != nil {
		f["lng"] = *p.Lng
	}
	if p.DeliveryFeeCents != nil {
		f["delivery_fee_cents"] = *p.DeliveryFeeCents
	}
	return f
}

func (p ProfilePatch) motoboyFields() map[string]interface{} {
	f := map[string]interface{}{}
	if p.CPF != nil {
		f["cpf"] = *p.CPF
	}
	if p.CNH != nil {
		f["cnh"] = *p.CNH
	}
	if p.VehicleType != nil {
		f["vehicle_type"] = *p.VehicleType
	}
	if p.VehiclePlate != nil {
		f["vehicle_plate"] = strings.ToUpper(*p.VehiclePlate)
	}
	return f
}

func (s *ProfileService) Update(ctx context.Context, caller *models.User, patch ProfilePatch) (*models.User, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}
	if (patch.Lat == nil) != (patch.Lng == nil) {
		return nil, apperr.Validation("lat and lng must be sent together")
	}
	estFields, mbFields := patch.establishmentFields(), patch.motoboyFields()
	switch {
	case len(estFields) > 0 && caller.Role != domain.RoleEstablishment:
		return nil, apperr.Validation("establishment fields only apply to establishment accounts")
	case len(mbFields) > 0 && caller.Role != domain.RoleMotoboy:
		return nil, apperr.Validation("courier fields only apply to motoboy accounts")
	}

	err := s.store.WithContext(ctx).Transaction(func(tx *repository.Store) error {
		userFields := map[string]interface{}{}
		if patch.Name != nil {
			userFields["name"] = *patch.Name
			if caller.IsMotoboy() {
				mbFields["name"] = *patch.Name
			}
		}
		if patch.Phone != nil {
			userFields["phone"] = *patch.Phone
			switch caller.Role {
			case domain.RoleMotoboy:
				mbFields["phone"] = *patch.Phone
			case domain.RoleEstablishment:
				estFields["phone"] = *patch.Phone
			}
		}
		if len(userFields) > 0 {
			if err := tx.Users.UpdateFields(caller.ID, userFields); err != nil {
				return apperr.Internal(err)
			}
		}
		if len(estFields) > 0 {
			if err := tx.DB().Model(&models.EstablishmentProfile{}).Where("user_id = ?", caller.ID).Updates(estFields).Error; err != nil {
				return apperr.Internal(err)
			}
		}
		if len(mbFields) > 0 {
			if err := tx.DB().Model(&models.MotoboyProfile{}).Where("user_id = ?", caller.ID).Updates(mbFields).Error; err != nil {
				return apperr.Internal(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u, err := s.store.WithContext(ctx).Users.GetWithProfile(caller.ID)
	if err != nil {
		return nil, dbErr(err, "user not found")
	}
	return u, nil
}

// UploadDocument stores a courier document on Cloudinary and keeps its URL.
func (s *ProfileService) UploadDocument(ctx context.Context, caller *models.User, file io.Reader) (*models.MotoboyProfile, error) {
	store := s.store.WithContext(ctx)
	mb, err := store.Motoboys.GetByUserID(caller.ID)
	if err != nil {
		return nil, dbErr(err, "motoboy profile not found")
	}
	folder := fmt.Sprintf("%s/documents/%d", s.folder, mb.ID)
	publicID := "doc_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	url, err := s.cloud.UploadDocument(ctx, file, folder, publicID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	mb.DocumentURL = url
	if err := store.Motoboys.Update(mb); err != nil {
		return nil, apperr.Internal(err)
	}
	return mb, nil
}

func (s *ProfileService) ListMotoboys(ctx context.Context, page, limit int) ([]models.MotoboyProfile, int64, error) {
	page, limit = clampPage(page, limit)
	list, total, err := s.store.WithContext(ctx).Motoboys.List(page, limit)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return list, total, nil
}

func (s *ProfileService) ListUsers(ctx context.Context, search string, role domain.Role, page, limit int) ([]models.User, int64, error) {
	if role != "" && !role.Valid() {
		return nil, 0, apperr.Validation("unknown role filter")
	}
	page, limit = clampPage(page, limit)
	list, total, err := s.store.WithContext(ctx).Users.List(strings.TrimSpace(search), role, page, limit)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return list, total, nil
}

type AdminUserPatch struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// SetActive activates or deactivates an account. Users are never hard deleted.
// A deactivated motoboy is also taken off the map.
func (s *ProfileService) SetActive(ctx context.Context, admin *models.User, userID uint, patch AdminUserPatch) (*models.User, error) {
	if err := validateInput(patch); err != nil {
		return nil, err
	}
	if userID == admin.ID && !*patch.IsActive {
		return nil, apperr.Validation("you cannot deactivate your own account")
	}
	store := s.store.WithContext(ctx)
	u, err := store.Users.GetByID(userID)
	if err != nil {
		return nil, dbErr(err, "user not found")
	}
	err = store.Transaction(func(tx *repository.Store) error {
		if err := tx.Users.UpdateFields(u.ID, map[string]interface{}{"is_active": *patch.IsActive}); err != nil {
			return apperr.Internal(err)
		}
		if u.IsEstablishment() {
			if err := tx.DB().Model(&models.EstablishmentProfile{}).Where("user_id = ?", u.ID).
				Update("is_active", *patch.IsActive).Error; err != nil {
				return apperr.Internal(err)
			}
		}
		adminID := admin.ID
		return tx.AuditLogs.Create(&models.AuditLog{
			UserID:     &adminID,
			Action:     fmt.Sprintf("set_active=%t", *patch.IsActive),
			Resource:   "user",
			ResourceID: fmt.Sprint(u.ID),
		})
	})
	if err != nil {
		return nil, dbErr(err, "user not found")
	}
	if u.IsMotoboy() && !*patch.IsActive && s.location != nil {
		if err := s.location.Clear(ctx, u.ID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
	}
	u, err = store.Users.GetWithProfile(u.ID)
	if err != nil {
		return nil, dbErr(err, "user not found")
	}
	return u, nil
}
