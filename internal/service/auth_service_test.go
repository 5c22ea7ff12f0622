package service

import (
	"testing"
	"time"

	"motoexpress/config"
	"motoexpress/internal/apperr"
	"motoexpress/internal/auth"
	"motoexpress/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(f *fixture) (*AuthService, *LocationService, *fakeMap) {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "access",
			RefreshSecret: "refresh",
			AccessExpiry:  time.Hour,
			RefreshExpiry: 24 * time.Hour,
			Issuer:        "motoexpress",
		},
	}
	live := &fakeMap{}
	loc := NewLocationService(f.store, config.LocationConfig{RejectOutOfOrder: true}, live)
	return NewAuthService(cfg, f.store, loc), loc, live
}

var testMeta = Meta{IP: "127.0.0.1", UserAgent: "go-test"}

func TestRegisterEstablishmentAndLogin(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newAuth(f)

	sess, err := svc.Register(f.ctx, RegisterInput{
		Email:        "  Owner@Burger.com ",
		Password:     "s3cret-pass",
		Role:         domain.RoleEstablishment,
		Name:         "Owner",
		BusinessName: "Burger Place",
	}, testMeta)
	require.NoError(t, err)
	assert.Equal(t, "owner@burger.com", sess.User.Email)
	require.NotNil(t, sess.User.Establishment)
	assert.Equal(t, "Burger Place", sess.User.Establishment.Name)
	assert.Equal(t, domain.PlanFree, sess.User.Establishment.PlanTier)

	claims, err := auth.ParseAccessToken(&svc.cfg.JWT, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEstablishment, claims.Role)

	_, err = svc.Register(f.ctx, RegisterInput{
		Email: "owner@burger.com", Password: "another-pass", Role: domain.RoleMotoboy, Name: "x",
	}, testMeta)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	in, err := svc.Login(f.ctx, LoginInput{Email: "OWNER@burger.com", Password: "s3cret-pass"}, testMeta)
	require.NoError(t, err)
	require.NotNil(t, in.User.LastLoginAt)

	_, err = svc.Login(f.ctx, LoginInput{Email: "owner@burger.com", Password: "wrong-pass"}, testMeta)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = svc.Login(f.ctx, LoginInput{Email: "ghost@burger.com", Password: "wrong-pass"}, testMeta)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	refreshed, err := svc.Refresh(f.ctx, in.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, in.User.ID, refreshed.User.ID)
	_, err = svc.Refresh(f.ctx, in.AccessToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "access token is not a refresh token")
}

func TestRegisterMotoboyDefaults(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newAuth(f)

	sess, err := svc.Register(f.ctx, RegisterInput{
		Email:        "rider@example.com",
		Password:     "long-enough",
		Role:         domain.RoleMotoboy,
		Name:         "Rider",
		VehiclePlate: "abc1d23",
	}, testMeta)
	require.NoError(t, err)
	require.NotNil(t, sess.User.Motoboy)
	assert.Equal(t, domain.VehicleMotorcycle, sess.User.Motoboy.VehicleType)
	assert.Equal(t, "ABC1D23", sess.User.Motoboy.VehiclePlate)
	assert.False(t, sess.User.Motoboy.IsAvailable)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newAuth(f)

	cases := map[string]RegisterInput{
		"admin role":     {Email: "a@example.com", Password: "long-enough", Role: domain.RoleAdmin, Name: "a"},
		"short password": {Email: "a@example.com", Password: "short", Role: domain.RoleMotoboy, Name: "a"},
		"bad email":      {Email: "not-an-email", Password: "long-enough", Role: domain.RoleMotoboy, Name: "a"},
		"missing name":   {Email: "a@example.com", Password: "long-enough", Role: domain.RoleMotoboy},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(f.ctx, in, testMeta)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newAuth(f)

	sess, err := svc.Register(f.ctx, RegisterInput{
		Email: "sleepy@example.com", Password: "long-enough", Role: domain.RoleMotoboy, Name: "Sleepy",
	}, testMeta)
	require.NoError(t, err)
	require.NoError(t, f.store.Users.UpdateFields(sess.User.ID, map[string]interface{}{"is_active": false}))

	_, err = svc.Login(f.ctx, LoginInput{Email: "sleepy@example.com", Password: "long-enough"}, testMeta)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = svc.Refresh(f.ctx, sess.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestLoginWithGoogleLinksExistingAccount(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newAuth(f)

	sess, err := svc.LoginWithGoogle(f.ctx, "g-123", f.estUser.Email, testMeta)
	require.NoError(t, err)
	assert.Equal(t, f.estUser.ID, sess.User.ID)

	again, err := svc.LoginWithGoogle(f.ctx, "g-123", "changed@example.com", testMeta)
	require.NoError(t, err)
	assert.Equal(t, f.estUser.ID, again.User.ID, "matched by google id")

	_, err = svc.LoginWithGoogle(f.ctx, "g-999", f.estUser.Email, testMeta)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.LoginWithGoogle(f.ctx, "g-777", "stranger@example.com", testMeta)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.LoginWithGoogle(f.ctx, "", "x@example.com", testMeta)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestLogoutClearsMotoboyLocation(t *testing.T) {
	f := newFixture(t)
	svc, loc, live := newAuth(f)

	lat, lng := -23.55, -46.63
	_, err := loc.Report(f.ctx, f.mbUser, ReportLocationInput{Lat: &lat, Lng: &lng})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(f.ctx, f.mbUser, testMeta))
	mb, err := f.store.Motoboys.GetByID(f.mb.ID)
	require.NoError(t, err)
	assert.False(t, mb.IsAvailable)
	assert.Nil(t, mb.CurrentLat)
	assert.Equal(t, []uint{f.mb.ID}, live.gone)

	require.NoError(t, svc.Logout(f.ctx, f.estUser, testMeta))
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newAuth(f)

	u, err := svc.Me(f.ctx, f.mbUser.ID)
	require.NoError(t, err)
	require.NotNil(t, u.Motoboy)
	assert.Equal(t, "Carlos", u.Motoboy.Name)

	_, err = svc.Me(f.ctx, 424242)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
