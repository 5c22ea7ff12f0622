package service

import (
	"testing"

	"motoexpress/internal/apperr"
	"motoexpress/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deliveredOrder(t *testing.T, f *fixture) uint {
	t.Helper()
	o := f.createOrder()
	_, err := f.orders.Assign(f.ctx, f.estUser, o.ID, f.mb.ID)
	require.NoError(t, err)
	_, err = f.orders.Respond(f.ctx, f.mbUser, o.ID, RespondInput{Status: domain.AssignmentAccepted})
	require.NoError(t, err)
	_, err = f.orders.Respond(f.ctx, f.mbUser, o.ID, RespondInput{Status: domain.AssignmentCompleted})
	require.NoError(t, err)
	return o.ID
}

func TestReviewCreateAndStats(t *testing.T) {
	f := newFixture(t)
	reviews := NewReviewService(f.store)
	metrics := NewMetricsService(f.store)
	orderID := deliveredOrder(t, f)

	rv, err := reviews.Create(f.ctx, f.estUser, orderID, CreateReviewInput{TargetUserID: f.mbUser.ID, Rating: 5, Comment: "fast"})
	require.NoError(t, err)
	assert.Equal(t, f.estUser.ID, rv.AuthorID)

	_, err = reviews.Create(f.ctx, f.mbUser, orderID, CreateReviewInput{TargetUserID: f.estUser.ID, Rating: 4})
	require.NoError(t, err)

	_, err = reviews.Create(f.ctx, f.estUser, orderID, CreateReviewInput{TargetUserID: f.mbUser.ID, Rating: 3})
	assert.True(t, apperr.Is(err, apperr.KindConflict), "one review per author and order")

	list, err := reviews.List(f.ctx, f.admin, orderID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	ms, err := metrics.MotoboyStats(f.ctx, f.mb.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ms.CompletedDeliveries)
	assert.EqualValues(t, 1, ms.ReviewCount)
	assert.InDelta(t, 5.0, ms.AverageRating, 1e-9)

	es, err := metrics.EstablishmentStats(f.ctx, f.est.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, es.DeliveredOrders)
	assert.InDelta(t, 4.0, es.AverageRating, 1e-9)

	_, err = metrics.MotoboyStats(f.ctx, 9999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestReviewRules(t *testing.T) {
	f := newFixture(t)
	reviews := NewReviewService(f.store)
	orderID := deliveredOrder(t, f)

	_, err := reviews.Create(f.ctx, f.estUser, orderID, CreateReviewInput{TargetUserID: f.estUser.ID, Rating: 5})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "self review")

	_, err = reviews.Create(f.ctx, f.estUser, orderID, CreateReviewInput{TargetUserID: f.mb2User.ID, Rating: 5})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "target not on the order")

	_, err = reviews.Create(f.ctx, f.estUser, orderID, CreateReviewInput{TargetUserID: f.mbUser.ID, Rating: 6})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = reviews.Create(f.ctx, f.mb2User, orderID, CreateReviewInput{TargetUserID: f.estUser.ID, Rating: 5})
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "outsider")

	_, err = reviews.Create(f.ctx, f.estUser, 9999, CreateReviewInput{TargetUserID: f.mbUser.ID, Rating: 5})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMetricsDashboard(t *testing.T) {
	f := newFixture(t)
	metrics := NewMetricsService(f.store)
	deliveredOrder(t, f)
	f.createOrder()

	stats, err := metrics.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.UsersByRole["ADMIN"])
	assert.EqualValues(t, 1, stats.UsersByRole["ESTABLISHMENT"])
	assert.EqualValues(t, 2, stats.UsersByRole["MOTOBOY"])
	assert.EqualValues(t, 1, stats.OrdersByStatus["DELIVERED"])
	assert.EqualValues(t, 1, stats.OrdersByStatus["PENDING"])
}
