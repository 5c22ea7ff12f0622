package access

import (
	"testing"
	"time"

	"motoexpress/config"
	"motoexpress/internal/apperr"
	"motoexpress/internal/auth"
	"motoexpress/internal/domain"
	"motoexpress/internal/models"
	"motoexpress/internal/repository"
	"motoexpress/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T) (*Gate, *repository.UserRepository, *config.JWTConfig) {
	db := testutil.NewDB(t)
	cfg := &config.JWTConfig{AccessSecret: "s", RefreshSecret: "r", AccessExpiry: time.Hour, Issuer: "test"}
	users := repository.NewUserRepository(db)
	return NewGate(cfg, users), users, cfg
}

func TestAuthenticate(t *testing.T) {
	gate, users, cfg := newGate(t)
	u := &models.User{Email: "est@example.com", Role: domain.RoleEstablishment, IsActive: true}
	require.NoError(t, users.Create(u))

	token, err := auth.GenerateAccessToken(cfg, u.ID, u.Email, u.Role)
	require.NoError(t, err)

	got, err := gate.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = gate.Authenticate("")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = gate.Authenticate("garbage")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	require.NoError(t, users.UpdateFields(u.ID, map[string]interface{}{"is_active": false}))
	_, err = gate.Authenticate(token)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAuthenticateDeletedUser(t *testing.T) {
	gate, users, cfg := newGate(t)
	u := &models.User{Email: "gone@example.com", Role: domain.RoleMotoboy, IsActive: true}
	require.NoError(t, users.Create(u))
	token, err := auth.GenerateAccessToken(cfg, u.ID, u.Email, u.Role)
	require.NoError(t, err)

	require.NoError(t, users.DeleteSoft(u.ID))
	_, err = gate.Authenticate(token)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAuthorize(t *testing.T) {
	gate, _, _ := newGate(t)
	motoboy := &models.User{Role: domain.RoleMotoboy}
	admin := &models.User{Role: domain.RoleAdmin}

	assert.NoError(t, gate.Authorize(motoboy, OrderRespond))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(gate.Authorize(motoboy, OrderCreate)))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(gate.Authorize(admin, OrderRespond)))
	assert.NoError(t, gate.Authorize(admin, AdminStats))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(gate.Authorize(admin, Endpoint("nope"))))
}

func TestLiveMapSocketOpenToEveryRole(t *testing.T) {
	gate, _, _ := newGate(t)
	for _, r := range []domain.Role{domain.RoleAdmin, domain.RoleEstablishment, domain.RoleMotoboy} {
		assert.NoError(t, gate.Authorize(&models.User{Role: r}, LiveMap), r)
	}
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(gate.Authorize(&models.User{Role: "GUEST"}, LiveMap)))
}

func TestPolicyRolesHoldCapability(t *testing.T) {
	for e, rule := range Policy {
		require.NotEmpty(t, rule.Roles, e)
		for _, r := range rule.Roles {
			assert.True(t, r.Can(rule.Cap), "%s lists %s without its capability", e, r)
		}
	}
}
