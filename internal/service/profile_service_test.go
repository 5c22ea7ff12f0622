package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"motoexpress/config"
	"motoexpress/internal/apperr"
	"motoexpress/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloud struct {
	folder   string
	publicID string
	body     string
	err      error
}

func (c *fakeCloud) UploadDocument(_ context.Context, file io.Reader, folder, publicID string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	b, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	c.folder, c.publicID, c.body = folder, publicID, string(b)
	return "https://res.cloudinary.com/demo/" + folder + "/" + publicID, nil
}

func newProfiles(f *fixture) (*ProfileService, *fakeCloud, *fakeMap) {
	cloud := &fakeCloud{}
	live := &fakeMap{}
	loc := NewLocationService(f.store, config.LocationConfig{}, live)
	return NewProfileService(f.store, cloud, "motoexpress", loc), cloud, live
}

func strPtr(s string) *string { return &s }

func TestProfileUpdateMirrorsIntoRoleProfile(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newProfiles(f)

	u, err := svc.Update(f.ctx, f.mbUser, ProfilePatch{
		Name:         strPtr("Carlos Silva"),
		Phone:        strPtr("+5511988887777"),
		VehiclePlate: strPtr("xyz9a88"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Carlos Silva", u.Name)
	require.NotNil(t, u.Motoboy)
	assert.Equal(t, "Carlos Silva", u.Motoboy.Name)
	assert.Equal(t, "+5511988887777", u.Motoboy.Phone)
	assert.Equal(t, "XYZ9A88", u.Motoboy.VehiclePlate)

	fee := int64(950)
	u, err = svc.Update(f.ctx, f.estUser, ProfilePatch{BusinessName: strPtr("Napoli Centro"), DeliveryFeeCents: &fee})
	require.NoError(t, err)
	require.NotNil(t, u.Establishment)
	assert.Equal(t, "Napoli Centro", u.Establishment.Name)
	assert.EqualValues(t, 950, u.Establishment.DeliveryFeeCents)
}

func TestProfileUpdateRejectsForeignFields(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newProfiles(f)

	_, err := svc.Update(f.ctx, f.mbUser, ProfilePatch{BusinessName: strPtr("nope")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Update(f.ctx, f.estUser, ProfilePatch{CNH: strPtr("123")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	lat := 10.0
	_, err = svc.Update(f.ctx, f.estUser, ProfilePatch{Lat: &lat})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "lat without lng")

	_, err = svc.Update(f.ctx, f.mbUser, ProfilePatch{VehicleType: strPtr("TRUCK")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUploadDocument(t *testing.T) {
	f := newFixture(t)
	svc, cloud, _ := newProfiles(f)

	mb, err := svc.UploadDocument(f.ctx, f.mbUser, strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", cloud.body)
	assert.True(t, strings.HasPrefix(cloud.folder, "motoexpress/documents/"))
	assert.True(t, strings.HasPrefix(cloud.publicID, "doc_"))
	assert.Contains(t, mb.DocumentURL, cloud.publicID)

	stored, err := f.store.Motoboys.GetByID(f.mb.ID)
	require.NoError(t, err)
	assert.Equal(t, mb.DocumentURL, stored.DocumentURL)

	_, err = svc.UploadDocument(f.ctx, f.estUser, strings.NewReader("x"))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	cloud.err = errors.New("boom")
	_, err = svc.UploadDocument(f.ctx, f.mbUser, strings.NewReader("x"))
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestSetActive(t *testing.T) {
	f := newFixture(t)
	svc, _, live := newProfiles(f)

	_, err := f.store.Motoboys.ReportLocation(f.mb.ID, -23.55, -46.63, f.clock, false)
	require.NoError(t, err)

	off := false
	u, err := svc.SetActive(f.ctx, f.admin, f.mbUser.ID, AdminUserPatch{IsActive: &off})
	require.NoError(t, err)
	assert.False(t, u.IsActive)
	require.NotNil(t, u.Motoboy)
	assert.False(t, u.Motoboy.IsAvailable)
	assert.Equal(t, []uint{f.mb.ID}, live.gone)

	u, err = svc.SetActive(f.ctx, f.admin, f.estUser.ID, AdminUserPatch{IsActive: &off})
	require.NoError(t, err)
	require.NotNil(t, u.Establishment)
	assert.False(t, u.Establishment.IsActive)

	on := true
	u, err = svc.SetActive(f.ctx, f.admin, f.estUser.ID, AdminUserPatch{IsActive: &on})
	require.NoError(t, err)
	assert.True(t, u.Establishment.IsActive)

	_, err = svc.SetActive(f.ctx, f.admin, f.admin.ID, AdminUserPatch{IsActive: &off})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.SetActive(f.ctx, f.admin, 9999, AdminUserPatch{IsActive: &off})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.SetActive(f.ctx, f.admin, f.mbUser.ID, AdminUserPatch{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListUsersAndMotoboys(t *testing.T) {
	f := newFixture(t)
	svc, _, _ := newProfiles(f)

	users, total, err := svc.ListUsers(f.ctx, "", domain.RoleMotoboy, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)

	_, _, err = svc.ListUsers(f.ctx, "", domain.Role("PILOT"), 1, 20)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	mbs, total, err := svc.ListMotoboys(f.ctx, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mbs, 2)
}
