package service

import (
	"context"
	"strings"

	"motoexpress/config"
	"motoexpress/internal/apperr"
	"motoexpress/internal/auth"
	"motoexpress/internal/domain"
	"motoexpress/internal/models"
	"motoexpress/internal/repository"

	"github.com/rs/zerolog/log"
)

type AuthService struct {
	cfg      *config.Config
	store    *repository.Store
	location *LocationService
}

func NewAuthService(cfg *config.Config, store *repository.Store, location *LocationService) *AuthService {
	return &AuthService{cfg: cfg, store: store, location: location}
}

// RegisterInput carries the user plus the fields of the profile its role needs.
type RegisterInput struct {
	Email    string      `json:"email" validate:"required,email,max=255"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     domain.Role `json:"role" validate:"required,oneof=ESTABLISHMENT MOTOBOY"`
	Name     string      `json:"name" validate:"required,max=120"`
	Phone    string      `json:"phone" validate:"max=32"`

	// ESTABLISHMENT
	BusinessName     string   `json:"business_name" validate:"max=160"`
	TaxID            string   `json:"tax_id" validate:"max=32"`
	Address          string   `json:"address" validate:"max=255"`
	Lat              *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng              *float64 `json:"lng" validate:"omitempty,longitude"`
	DeliveryFeeCents int64    `json:"delivery_fee_cents" validate:"min=0"`

	// MOTOBOY
	CPF          string `json:"cpf" validate:"max=14"`
	CNH          string `json:"cnh" validate:"max=20"`
	VehicleType  string `json:"vehicle_type" validate:"omitempty,oneof=MOTORCYCLE BICYCLE CAR"`
	VehiclePlate string `json:"vehicle_plate" validate:"max=10"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is what a successful sign-in returns.
type Session struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// Meta is request data kept in the audit log.
type Meta struct {
	IP        string
	UserAgent string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta Meta) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	var u *models.User
	err = s.store.WithContext(ctx).Transaction(func(tx *repository.Store) error {
		_, err := tx.Users.GetByEmail(in.Email)
		if err == nil {
			return apperr.Conflict("email already registered")
		}
		if !repository.IsNotFound(err) {
			return apperr.Internal(err)
		}
		u = &models.User{
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
			Name:         in.Name,
			Phone:        in.Phone,
			IsActive:     true,
		}
		if err := tx.Users.Create(u); err != nil {
			if repository.IsDuplicate(err) {
				return apperr.Conflict("email already registered")
			}
			return apperr.Internal(err)
		}
		switch in.Role {
		case domain.RoleEstablishment:
			name := in.BusinessName
			if name == "" {
				name = in.Name
			}
			p := &models.EstablishmentProfile{
				UserID:           u.ID,
				Name:             name,
				TaxID:            in.TaxID,
				Address:          in.Address,
				Phone:            in.Phone,
				Lat:              in.Lat,
				Lng:              in.Lng,
				DeliveryFeeCents: in.DeliveryFeeCents,
				PlanTier:         domain.PlanFree,
				IsActive:         true,
			}
			if err := tx.Establishments.Create(p); err != nil {
				return apperr.Internal(err)
			}
			u.Establishment = p
		case domain.RoleMotoboy:
			vehicle := in.VehicleType
			if vehicle == "" {
				vehicle = domain.VehicleMotorcycle
			}
			p := &models.MotoboyProfile{
				UserID:       u.ID,
				Name:         in.Name,
				Phone:        in.Phone,
				CPF:          in.CPF,
				CNH:          in.CNH,
				VehicleType:  vehicle,
				VehiclePlate: strings.ToUpper(in.VehiclePlate),
			}
			if err := tx.Motoboys.Create(p); err != nil {
				return apperr.Internal(err)
			}
			u.Motoboy = p
		}
		return s.audit(tx, u.ID, "register", meta)
	})
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// Login never says which of email or password was wrong.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta Meta) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(in); err != nil {
		return nil, err
	}
	store := s.store.WithContext(ctx)
	u, err := store.Users.GetByEmail(in.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, apperr.Internal(err)
	}
	if u.PasswordHash == "" || !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("account is inactive")
	}
	return s.signedIn(store, u, "login", meta)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	id, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	u, err := s.store.WithContext(ctx).Users.GetByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Unauthorized("invalid or expired token")
		}
		return nil, apperr.Internal(err)
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("account is inactive")
	}
	return s.session(u)
}

// LoginWithGoogle signs in an existing account by Google id, or by email,
// linking the Google id on first use. Accounts are never created here since
// every role needs its profile from registration.
func (s *AuthService) LoginWithGoogle(ctx context.Context, googleID, email string, meta Meta) (*Session, error) {
	if googleID == "" || email == "" {
		return nil, apperr.Validation("google profile is missing id or email")
	}
	store := s.store.WithContext(ctx)
	u, err := store.Users.GetByGoogleID(googleID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		u, err = store.Users.GetByEmail(strings.ToLower(email))
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperr.NotFound("no account for this Google profile; register first")
			}
			return nil, apperr.Internal(err)
		}
		if u.GoogleID != nil && *u.GoogleID != googleID {
			return nil, apperr.Conflict("account is linked to another Google profile")
		}
		gid := googleID
		if err := store.Users.UpdateFields(u.ID, map[string]interface{}{"google_id": gid}); err != nil {
			return nil, apperr.Internal(err)
		}
		u.GoogleID = &gid
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("account is inactive")
	}
	return s.signedIn(store, u, "google_login", meta)
}

// Logout takes a motoboy off the live map. Tokens are stateless and simply expire.
func (s *AuthService) Logout(ctx context.Context, u *models.User, meta Meta) error {
	if u.IsMotoboy() && s.location != nil {
		if err := s.location.Clear(ctx, u.ID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
	}
	return s.audit(s.store.WithContext(ctx), u.ID, "logout", meta)
}

// Me returns the user with its role profile.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	u, err := s.store.WithContext(ctx).Users.GetWithProfile(userID)
	if err != nil {
		return nil, dbErr(err, "user not found")
	}
	return u, nil
}

func (s *AuthService) signedIn(store *repository.Store, u *models.User, action string, meta Meta) (*Session, error) {
	now := utcNow()
	if err := store.Users.UpdateFields(u.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		return nil, apperr.Internal(err)
	}
	u.LastLoginAt = &now
	if err := s.audit(store, u.ID, action, meta); err != nil {
		log.Warn().Err(err).Uint("user_id", u.ID).Msg("audit log write failed")
	}
	return s.session(u)
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) audit(store *repository.Store, userID uint, action string, meta Meta) error {
	uid := userID
	err := store.AuditLogs.Create(&models.AuditLog{
		UserID:    &uid,
		Action:    action,
		Resource:  "auth",
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}
