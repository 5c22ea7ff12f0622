package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"motoexpress/internal/domain"
	"motoexpress/internal/models"
	"motoexpress/internal/queue"
	"motoexpress/internal/repository"
	"motoexpress/internal/testutil"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []queue.OrderEventMessage
	err  error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, msg queue.OrderEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Action)
	}
	return out
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *repository.Store
	pub   *recordingPublisher
	clock time.Time

	admin   *models.User
	estUser *models.User
	est     *models.EstablishmentProfile
	mbUser  *models.User
	mb      *models.MotoboyProfile
	mb2User *models.User
	mb2     *models.MotoboyProfile
	orders  *OrderService
	seq     int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: repository.NewStore(testutil.NewDB(t)),
		pub:   &recordingPublisher{},
		clock: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}
	f.orders = NewOrderService(f.store, f.pub)
	f.orders.now = f.tick

	f.admin = f.user(domain.RoleAdmin, "admin")
	f.estUser, f.est = f.establishment("Pizzaria Napoli")
	f.mbUser, f.mb = f.motoboy("Carlos")
	f.mb2User, f.mb2 = f.motoboy("Joana")
	return f
}

// tick advances the fake clock one second per call.
func (f *fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fixture) user(role domain.Role, name string) *models.User {
	f.t.Helper()
	f.seq++
	u := &models.User{
		Email:    fmt.Sprintf("%s%d@example.com", name, f.seq),
		Role:     role,
		Name:     name,
		IsActive: true,
	}
	require.NoError(f.t, f.store.Users.Create(u))
	return u
}

func (f *fixture) establishment(name string) (*models.User, *models.EstablishmentProfile) {
	f.t.Helper()
	u := f.user(domain.RoleEstablishment, "est")
	lat, lng := -23.5503, -46.6339
	p := &models.EstablishmentProfile{
		UserID:           u.ID,
		Name:             name,
		Lat:              &lat,
		Lng:              &lng,
		DeliveryFeeCents: 700,
		PlanTier:         domain.PlanFree,
		IsActive:         true,
	}
	require.NoError(f.t, f.store.Establishments.Create(p))
	return u, p
}

func (f *fixture) motoboy(name string) (*models.User, *models.MotoboyProfile) {
	f.t.Helper()
	u := f.user(domain.RoleMotoboy, "mb")
	p := &models.MotoboyProfile{UserID: u.ID, Name: name, VehicleType: domain.VehicleMotorcycle}
	require.NoError(f.t, f.store.Motoboys.Create(p))
	return u, p
}

func (f *fixture) createOrder() *models.DeliveryOrder {
	f.t.Helper()
	dlat, dlng := -23.5614, -46.6559
	o, err := f.orders.Create(f.ctx, f.estUser, CreateOrderInput{
		CustomerName:    "Maria",
		CustomerPhone:   "+5511999990000",
		DeliveryAddress: "Av. Paulista, 1578",
		DestLat:         &dlat,
		DestLng:         &dlng,
	})
	require.NoError(f.t, err)
	return o
}

// requireConsistent checks the order status equals its latest event status.
func (f *fixture) requireConsistent(orderID uint) {
	f.t.Helper()
	o, err := f.store.Orders.GetByID(orderID)
	require.NoError(f.t, err)
	ev, err := f.store.Events.Latest(orderID)
	require.NoError(f.t, err)
	require.Equal(f.t, o.Status, ev.Status)
}
