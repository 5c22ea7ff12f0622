// Package access turns a bearer token into an active user and checks it against
// the endpoint policy.
package access

import (
	"motoexpress/config"
	"motoexpress/internal/apperr"
	"motoexpress/internal/auth"
	"motoexpress/internal/models"
	"motoexpress/internal/repository"
)

type Gate struct {
	cfg   *config.JWTConfig
	users *repository.UserRepository
}

func NewGate(cfg *config.JWTConfig, users *repository.UserRepository) *Gate {
	return &Gate{cfg: cfg, users: users}
}

// Authenticate resolves token to its user. Missing, invalid or expired tokens and
// inactive or deleted users are all Unauthorized.
func (g *Gate) Authenticate(token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.Unauthorized("missing credentials")
	}
	claims, err := auth.ParseAccessToken(g.cfg, token)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}
	u, err := g.users.GetByID(claims.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Unauthorized("invalid or expired token")
		}
		return nil, apperr.Internal(err)
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("account is inactive")
	}
	return u, nil
}

// Authorize fails with Forbidden when u's role may not call e.
func (g *Gate) Authorize(u *models.User, e Endpoint) error {
	if !Allows(e, u.Role) {
		return apperr.Forbidden("insufficient permissions")
	}
	return nil
}
