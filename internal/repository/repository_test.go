package repository

import (
	"testing"
	"time"

	"motoexpress/internal/domain"
	"motoexpress/internal/models"
	"motoexpress/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedMotoboy(t *testing.T, db *gorm.DB, email string) *models.MotoboyProfile {
	t.Helper()
	u := &models.User{Email: email, Role: domain.RoleMotoboy, Name: email, IsActive: true}
	require.NoError(t, db.Create(u).Error)
	p := &models.MotoboyProfile{UserID: u.ID, Name: email}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedEstablishment(t *testing.T, db *gorm.DB, email string) *models.EstablishmentProfile {
	t.Helper()
	u := &models.User{Email: email, Role: domain.RoleEstablishment, Name: email, IsActive: true}
	require.NoError(t, db.Create(u).Error)
	p := &models.EstablishmentProfile{UserID: u.ID, Name: email, PlanTier: domain.PlanFree, IsActive: true}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestReportLocationSkipsOlderReports(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	mb := seedMotoboy(t, db, "rider@example.com")
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ok, err := store.Motoboys.ReportLocation(mb.ID, -23.55, -46.63, t0, true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Motoboys.ReportLocation(mb.ID, -1, -1, t0.Add(-time.Minute), true)
	require.NoError(t, err)
	assert.False(t, ok, "older report must not overwrite")

	got, err := store.Motoboys.GetByID(mb.ID)
	require.NoError(t, err)
	require.True(t, got.HasLocation())
	assert.InDelta(t, -23.55, *got.CurrentLat, 1e-9)
	assert.True(t, got.IsAvailable)

	ok, err = store.Motoboys.ReportLocation(mb.ID, -1, -1, t0.Add(-time.Minute), false)
	require.NoError(t, err)
	assert.True(t, ok, "last write wins when ordering is not enforced")
}

func TestClearStaleAndListAvailable(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	fresh := seedMotoboy(t, db, "fresh@example.com")
	stale := seedMotoboy(t, db, "stale@example.com")
	seedMotoboy(t, db, "offline@example.com")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Motoboys.ReportLocation(fresh.ID, 1, 1, now, true)
	require.NoError(t, err)
	_, err = store.Motoboys.ReportLocation(stale.ID, 2, 2, now.Add(-time.Hour), true)
	require.NoError(t, err)

	available, err := store.Motoboys.ListAvailable()
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, fresh.ID, available[0].ID, "most recent report first")

	ids, err := store.Motoboys.ClearStale(now.Add(-10 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []uint{stale.ID}, ids)

	got, err := store.Motoboys.GetByID(stale.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)
	assert.Nil(t, got.CurrentLat)
	assert.Nil(t, got.CurrentLng)

	ids, err = store.Motoboys.ClearStale(now.Add(-10 * time.Minute))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestClearStaleSparesLateReport(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	mb := seedMotoboy(t, db, "late@example.com")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.Motoboys.ReportLocation(mb.ID, 2, 2, now.Add(-time.Hour), true)
	require.NoError(t, err)

	// A fresh report arrives between the scan and the clearing write.
	fired := false
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:late_report", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "motoboy_profiles" {
			return
		}
		fired = true
		tx.Session(&gorm.Session{NewDB: true}).Model(&models.MotoboyProfile{}).
			Where("id = ?", mb.ID).Update("location_updated_at", now)
	}))

	ids, err := store.Motoboys.ClearStale(now.Add(-10 * time.Minute))
	require.NoError(t, err)
	require.True(t, fired)
	assert.Empty(t, ids)

	got, err := store.Motoboys.GetByID(mb.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
	require.NotNil(t, got.CurrentLat)
	assert.Equal(t, 2.0, *got.CurrentLat)
}

func TestOrderListScoping(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	napoli := seedEstablishment(t, db, "napoli@example.com")
	sushi := seedEstablishment(t, db, "sushi@example.com")
	mb := seedMotoboy(t, db, "rider@example.com")

	mk := func(est uint, code string, status domain.OrderStatus) *models.DeliveryOrder {
		o := &models.DeliveryOrder{DeliveryCode: code, EstablishmentID: est, CustomerName: "c", DeliveryAddress: "a", Status: status}
		require.NoError(t, store.Orders.Create(o))
		return o
	}
	a := mk(napoli.ID, "AAAA1111", domain.OrderPending)
	b := mk(napoli.ID, "BBBB2222", domain.OrderAssigned)
	mk(sushi.ID, "CCCC3333", domain.OrderPending)
	require.NoError(t, store.Assignments.Create(&models.DeliveryAssignment{
		OrderID: b.ID, MotoboyID: mb.ID, Status: domain.AssignmentAssigned, AssignedAt: time.Now().UTC(),
	}))

	list, total, err := store.Orders.List(OrderFilter{EstablishmentID: &napoli.ID, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	list, total, err = store.Orders.List(OrderFilter{EstablishmentID: &napoli.ID, Status: domain.OrderPending, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, a.ID, list[0].ID)

	list, total, err = store.Orders.List(OrderFilter{MotoboyID: &mb.ID, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, b.ID, list[0].ID)

	list, total, err = store.Orders.List(OrderFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 1)
}

func TestAssignmentFindActive(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	est := seedEstablishment(t, db, "napoli@example.com")
	mb := seedMotoboy(t, db, "rider@example.com")
	o := &models.DeliveryOrder{DeliveryCode: "AAAA1111", EstablishmentID: est.ID, CustomerName: "c", DeliveryAddress: "a", Status: domain.OrderAssigned}
	require.NoError(t, store.Orders.Create(o))

	active, err := store.Assignments.FindActive(o.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	rejected := &models.DeliveryAssignment{OrderID: o.ID, MotoboyID: mb.ID, Status: domain.AssignmentRejected, AssignedAt: time.Now().UTC()}
	require.NoError(t, store.Assignments.Create(rejected))
	active, err = store.Assignments.FindActive(o.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	current := &models.DeliveryAssignment{OrderID: o.ID, MotoboyID: mb.ID, Status: domain.AssignmentAccepted, AssignedAt: time.Now().UTC()}
	require.NoError(t, store.Assignments.Create(current))
	active, err = store.Assignments.FindActive(o.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, current.ID, active.ID)

	mine, err := store.Assignments.FindForMotoboy(o.ID, mb.ID)
	require.NoError(t, err)
	assert.Equal(t, current.ID, mine.ID)
}

func TestDuplicateAndNotFoundHelpers(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	seedMotoboy(t, db, "rider@example.com")

	err := db.Create(&models.User{Email: "rider@example.com", Role: domain.RoleMotoboy, Name: "x"}).Error
	assert.True(t, IsDuplicate(err))
	assert.False(t, IsDuplicate(nil))

	_, err = store.Orders.GetByCode("NOPE")
	assert.True(t, IsNotFound(err))
}
