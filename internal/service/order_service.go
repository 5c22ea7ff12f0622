package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"motoexpress/internal/apperr"
	"motoexpress/internal/domain"
	"motoexpress/internal/models"
	"motoexpress/internal/queue"
	"motoexpress/internal/repository"
	"motoexpress/pkg/location"
	"motoexpress/pkg/proximity"

	"github.com/rs/zerolog/log"
)

// OrderService owns creation, assignment and status changes of delivery orders.
// Every mutation is one transaction and every status change goes through domain.Decide.
type OrderService struct {
	store     *repository.Store
	publisher queue.Publisher
	now       func() time.Time
	newCode   func() (string, error)
}

func NewOrderService(store *repository.Store, publisher queue.Publisher) *OrderService {
	return &OrderService{store: store, publisher: publisher, now: utcNow, newCode: newDeliveryCode}
}

type CreateOrderInput struct {
	EstablishmentID uint     `json:"establishment_id"` // ADMIN callers only
	CustomerName    string   `json:"customer_name" validate:"required,max=120"`
	CustomerPhone   string   `json:"customer_phone" validate:"max=32"`
	DeliveryAddress string   `json:"delivery_address" validate:"required,max=255"`
	Notes           string   `json:"notes" validate:"max=2000"`
	DestLat         *float64 `json:"dest_lat" validate:"omitempty,latitude"`
	DestLng         *float64 `json:"dest_lng" validate:"omitempty,longitude"`
	FeeCents        *int64   `json:"fee_cents" validate:"omitempty,min=0"`
	DistanceKm      *float64 `json:"distance_km" validate:"omitempty,min=0"`
}

type UpdateOrderInput struct {
	Status          *domain.OrderStatus `json:"status"`
	Message         string              `json:"message" validate:"max=500"`
	CustomerName    *string             `json:"customer_name" validate:"omitempty,min=1,max=120"`
	CustomerPhone   *string             `json:"customer_phone" validate:"omitempty,max=32"`
	DeliveryAddress *string             `json:"delivery_address" validate:"omitempty,min=1,max=255"`
	Notes           *string             `json:"notes" validate:"omitempty,max=2000"`
	DestLat         *float64            `json:"dest_lat" validate:"omitempty,latitude"`
	DestLng         *float64            `json:"dest_lng" validate:"omitempty,longitude"`
	FeeCents        *int64              `json:"fee_cents" validate:"omitempty,min=0"`
}

func (in UpdateOrderInput) fields() map[string]interface{} {
	f := map[string]interface{}{}
	if in.CustomerName != nil {
		f["customer_name"] = *in.CustomerName
	}
	if in.CustomerPhone != nil {
		f["customer_phone"] = *in.CustomerPhone
	}
	if in.DeliveryAddress != nil {
		f["delivery_address"] = *in.DeliveryAddress
	}
	if in.Notes != nil {
		f["notes"] = *in.Notes
	}
	if in.DestLat != nil {
		f["dest_lat"] = *in.DestLat
	}
	if in.DestLng != nil {
		f["dest_lng"] = *in.DestLng
	}
	if in.FeeCents != nil {
		f["fee_cents"] = *in.FeeCents
	}
	return f
}

type RespondInput struct {
	Status          domain.AssignmentStatus `json:"status" validate:"required,oneof=ACCEPTED REJECTED COMPLETED"`
	RejectionReason string                  `json:"rejection_reason" validate:"max=500"`
}

type EventInput struct {
	Status   *domain.OrderStatus    `json:"status"`
	Message  string                 `json:"message" validate:"required,max=500"`
	Metadata map[string]interface{} `json:"metadata"`
}

type ListOrdersInput struct {
	Status domain.OrderStatus
	Page   int
	Limit  int
}

type TrackingEvent struct {
	Status    domain.OrderStatus `json:"status"`
	Message   string             `json:"message"`
	CreatedAt time.Time          `json:"created_at"`
}

// TrackingView is the public projection of an order; it carries no customer data.
type TrackingView struct {
	DeliveryCode      string             `json:"delivery_code"`
	Status            domain.OrderStatus `json:"status"`
	EstablishmentName string             `json:"establishment_name"`
	MotoboyName       string             `json:"motoboy_name,omitempty"`
	DistanceKm        *float64           `json:"distance_km,omitempty"`
	Proximity         string             `json:"proximity,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	CompletedAt       *time.Time         `json:"completed_at"`
	Events            []TrackingEvent    `json:"events"`
}

// participant is how the caller relates to one order.
type participant struct {
	establishment *models.EstablishmentProfile
	motoboy       *models.MotoboyProfile
	assignment    *models.DeliveryAssignment // caller's latest assignment on the order
}

func (s *OrderService) Create(ctx context.Context, caller *models.User, in CreateOrderInput) (*models.DeliveryOrder, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if (in.DestLat == nil) != (in.DestLng == nil) {
		return nil, apperr.Validation("dest_lat and dest_lng must be sent together")
	}
	var (
		order *models.DeliveryOrder
		msg   queue.OrderEventMessage
	)
	err := s.store.WithContext(ctx).Transaction(func(tx *repository.Store) error {
		est, err := s.resolveEstablishment(tx, caller, in.EstablishmentID)
		if err != nil {
			return err
		}
		now := s.now()
		order = &models.DeliveryOrder{
			EstablishmentID: est.ID,
			CustomerName:    in.CustomerName,
			CustomerPhone:   in.CustomerPhone,
			DeliveryAddress: in.DeliveryAddress,
			Notes:           in.Notes,
			DestLat:         in.DestLat,
			DestLng:         in.DestLng,
			FeeCents:        est.DeliveryFeeCents,
			DistanceKm:      in.DistanceKm,
			Status:          domain.OrderPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if in.FeeCents != nil {
			order.FeeCents = *in.FeeCents
		}
		if order.DistanceKm == nil && est.Lat != nil && est.Lng != nil && in.DestLat != nil {
			d := location.HaversineKm(*est.Lat, *est.Lng, *in.DestLat, *in.DestLng)
			order.DistanceKm = &d
		}
		if err := s.insertWithCode(tx, order); err != nil {
			return err
		}
		if _, err := s.appendEvent(tx, order.ID, domain.OrderPending, "order created", nil, caller.ID, now); err != nil {
			return err
		}
		msg = s.message(order, est.UserID, nil, "CREATE", "", "order created", caller.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, msg)
	return order, nil
}

func (s *OrderService) Assign(ctx context.Context, caller *models.User, orderID, motoboyID uint) (*models.DeliveryAssignment, error) {
	if motoboyID == 0 {
		return nil, apperr.Validation("motoboy_id is required")
	}
	var (
		assignment *models.DeliveryAssignment
		msg        queue.OrderEventMessage
	)
	err := s.store.WithContext(ctx).Transaction(func(tx *repository.Store) error {
		order, err := tx.Orders.GetByIDForUpdate(orderID)
		if err != nil {
			return dbErr(err, "order not found")
		}
		if _, err := ensureAccess(tx, caller, order); err != nil {
			return err
		}
		mb, err := tx.Motoboys.GetByID(motoboyID)
		if err != nil {
			return dbErr(err, "motoboy not found")
		}
		d := domain.Decide(order.Status, domain.ActionAssign, caller.Role)
		if !d.Allowed() {
			return transitionErr(d, domain.ActionAssign, order.Status)
		}
		active, err := tx.Assignments.FindActive(order.ID)
		if err != nil {
			return apperr.Internal(err)
		}
		if active != nil {
			return apperr.Conflict("order already has an active assignment")
		}

		now := s.now()
		assignment = &models.DeliveryAssignment{
			OrderID:    order.ID,
			MotoboyID:  mb.ID,
			Status:     domain.AssignmentAssigned,
			AssignedAt: now,
		}
		if err := tx.Assignments.Create(assignment); err != nil {
			return apperr.Internal(err)
		}
		if err := tx.Orders.UpdateFields(order.ID, map[string]interface{}{"status": d.Next}); err != nil {
			return apperr.Internal(err)
		}
		text := fmt.Sprintf("assigned to motoboy %s", mb.Name)
		meta := map[string]interface{}{"motoboy_id": mb.ID, "assignment_id": assignment.ID}
		if _, err := s.appendEvent(tx, order.ID, d.Next, text, meta, caller.ID, now); err != nil {
			return err
		}
		prev := order.Status
		order.Status = d.Next
		assignment.Motoboy = mb
		msg, err = s.messageFor(tx, order, assignment, string(domain.ActionAssign), prev, text, caller.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, msg)
	return assignment, nil
}

var respondActions = map[domain.AssignmentStatus]domain.Action{
	domain.AssignmentAccepted:  domain.ActionAccept,
	domain.AssignmentRejected:  domain.ActionReject,
	domain.AssignmentCompleted: domain.ActionComplete,
}

// Respond applies a motoboy's accept, reject or complete to its own assignment.
// An assignment that is not the caller's is reported as NotFound. Completing an
// already completed assignment returns it unchanged.
func (s *OrderService) Respond(ctx context.Context, caller *models.User, orderID uint, in RespondInput) (*models.DeliveryAssignment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var (
		assignment *models.DeliveryAssignment
		msg        *queue.OrderEventMessage
	)
	err := s.store.WithContext(ctx).Transaction(func(tx *repository.Store) error {
		mb, err := tx.Motoboys.GetByUserID(caller.ID)
		if err != nil {
			return dbErr(err, "assignment not found")
		}
		order, err := tx.Orders.GetByIDForUpdate(orderID)
		if err != nil {
			return dbErr(err, "order not found")
		}
		a, err := tx.Assignments.FindForMotoboy(order.ID, mb.ID)
		if err != nil {
			return dbErr(err, "assignment not found")
		}
		assignment = a
		if in.Status == domain.AssignmentCompleted && a.Status == domain.AssignmentCompleted {
			return nil
		}
		if _, ok := domain.NextAssignmentStatus(a.Status, in.Status); !ok {
			return apperr.Conflict(fmt.Sprintf("assignment is %s and cannot become %s", a.Status, in.Status))
		}
		action := respondActions[in.Status]
		d := domain.Decide(order.Status, action, caller.Role)
		if !d.Allowed() {
			return transitionErr(d, action, order.Status)
		}

		now := s.now()
		text := ""
		a.Status = in.Status
		switch in.Status {
		case domain.AssignmentAccepted:
			a.AcceptedAt = &now
			text = "motoboy accepted"
		case domain.AssignmentRejected:
			if in.RejectionReason != "" {
				reason := in.RejectionReason
				a.RejectionReason = &reason
			}
			text = "motoboy rejected"
			meta := map[string]interface{}{"rejection_reason": in.RejectionReason, "motoboy_id": mb.ID}
			if _, err := s.appendEvent(tx, order.ID, d.Next, text, meta, caller.ID, now); err != nil {
				return err
			}
		case domain.AssignmentCompleted:
			a.CompletedAt = &now
			text = fmt.Sprintf("delivered by motoboy %s", mb.Name)
			if err := tx.Orders.UpdateFields(order.ID, map[string]interface{}{
				"status":       d.Next,
				"completed_at": now,
			}); err != nil {
				return apperr.Internal(err)
			}
			if _, err := s.appendEvent(tx, order.ID, d.Next, text, nil, caller.ID, now); err != nil {
				return err
			}
		}
		if err := tx.Assignments.Update(a); err != nil {
			return apperr.Internal(err)
		}
		prev := order.Status
		order.Status = d.Next
		a.Motoboy = mb
		m, err := s.messageFor(tx, order, a, string(action), prev, text, caller.ID)
		if err != nil {
			return err
		}
		msg = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if msg != nil {
		s.publish(ctx, *msg)
	}
	return assignment, nil
}

// Update edits order fields and optionally moves its status. Motoboys may only
// move the status, and only to IN_TRANSIT or DELIVERED.
func (s *OrderService) Update(ctx context.Context, caller *models.User, orderID uint, in UpdateOrderInput) (*models.DeliveryOrder, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.Validation("status must be one of [PENDING ASSIGNED IN_TRANSIT DELIVERED CANCELLED]")
	}
	var (
		order *models.DeliveryOrder
		msg   *queue.OrderEventMessage
	)
	err := s.store.WithContext(ctx).Transaction(func(tx *repository.Store) error {
		o, err := tx.Orders.GetByIDForUpdate(orderID)
		if err != nil {
			return dbErr(err, "order not found")
		}
		p, err := ensureAccess(tx, caller, o)
		if err != nil {
			return err
		}
		if fields := in.fields(); len(fields) > 0 {
			if caller.IsMotoboy() {
				return apperr.Forbidden("motoboys may only change the order status")
			}
			if o.Status.Terminal() {
				return apperr.Conflict(fmt.Sprintf("order is %s and can no longer be edited", o.Status))
			}
			if err := tx.Orders.UpdateFields(o.ID, fields); err != nil {
				return apperr.Internal(err)
			}
		}
		if in.Status != nil {
			m, _, err := s.applyStatus(tx, caller, p, o, *in.Status, in.Message, nil)
			if err != nil {
				return err
			}
			msg = &m
		}
		order, err = tx.Orders.GetByID(o.ID)
		return dbErr(err, "order not found")
	})
	if err != nil {
		return nil, err
	}
	if msg != nil {
		s.publish(ctx, *msg)
	}
	return order, nil
}

// RecordEvent appends an event for a participant. A status other than the
// current one is applied to the order through the same rules as Update.
func (s *OrderService) RecordEvent(ctx context.Context, caller *models.User, orderID uint, in EventInput) (*models.DeliveryEvent, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.Validation("status must be one of [PENDING ASSIGNED IN_TRANSIT DELIVERED CANCELLED]")
	}
	var (
		event *models.DeliveryEvent
		msg   *queue.OrderEventMessage
	)
	err := s.store.WithContext(ctx).Transaction(func(tx *repository.Store) error {
		order, err := tx.Orders.GetByIDForUpdate(orderID)
		if err != nil {
			return dbErr(err, "order not found")
		}
		p, err := ensureAccess(tx, caller, order)
		if err != nil {
			return err
		}
		if in.Status == nil || *in.Status == order.Status {
			event, err = s.appendEvent(tx, order.ID, order.Status, in.Message, in.Metadata, caller.ID, s.now())
			return err
		}
		m, ev, err := s.applyStatus(tx, caller, p, order, *in.Status, in.Message, in.Metadata)
		if err != nil {
			return err
		}
		event, msg = ev, &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if msg != nil {
		s.publish(ctx, *msg)
	}
	return event, nil
}

// applyStatus moves order to target and keeps the active assignment in step.
func (s *OrderService) applyStatus(tx *repository.Store, caller *models.User, p *participant, order *models.DeliveryOrder,
	target domain.OrderStatus, text string, meta map[string]interface{}) (queue.OrderEventMessage, *models.DeliveryEvent, error) {
	var none queue.OrderEventMessage
	action, ok := domain.ActionForStatus(target)
	if !ok {
		return none, nil, apperr.Validation(fmt.Sprintf("unknown status %q", target))
	}
	d := domain.Decide(order.Status, action, caller.Role)
	if !d.Allowed() {
		return none, nil, transitionErr(d, action, order.Status)
	}
	if action == domain.ActionAssign {
		return none, nil, apperr.Validation("use the assign operation to assign a motoboy")
	}
	if caller.IsMotoboy() && (p.assignment == nil || !p.assignment.Status.Active()) {
		return none, nil, apperr.Forbidden("assignment is no longer active")
	}

	now := s.now()
	active, err := tx.Assignments.FindActive(order.ID)
	if err != nil {
		return none, nil, apperr.Internal(err)
	}
	fields := map[string]interface{}{"status": d.Next}
	switch d.Next {
	case domain.OrderInTransit, domain.OrderDelivered:
		want := domain.AssignmentInTransit
		if d.Next == domain.OrderDelivered {
			want = domain.AssignmentCompleted
			fields["completed_at"] = now
		}
		if err := advanceAssignment(tx, active, want, now); err != nil {
			return none, nil, err
		}
	case domain.OrderPending:
		if active != nil {
			reason := "released by " + strings.ToLower(caller.Role.String())
			active.Status = domain.AssignmentRejected
			active.RejectionReason = &reason
			if err := tx.Assignments.Update(active); err != nil {
				return none, nil, apperr.Internal(err)
			}
		}
	}
	if err := tx.Orders.UpdateFields(order.ID, fields); err != nil {
		return none, nil, apperr.Internal(err)
	}

	if text == "" {
		text = fmt.Sprintf("status changed to %s", d.Next)
	}
	eventMeta := map[string]interface{}{"previous_status": order.Status}
	for k, v := range meta {
		eventMeta[k] = v
	}
	ev, err := s.appendEvent(tx, order.ID, d.Next, text, eventMeta, caller.ID, now)
	if err != nil {
		return none, nil, err
	}
	prev := order.Status
	order.Status = d.Next
	m, err := s.messageFor(tx, order, active, string(action), prev, text, caller.ID)
	return m, ev, err
}

// advanceAssignment moves the order's active assignment to want under the
// assignment table. Starting a delivery straight from ASSIGNED counts as the
// motoboy's acceptance.
func advanceAssignment(tx *repository.Store, active *models.DeliveryAssignment, want domain.AssignmentStatus, now time.Time) error {
	if active == nil {
		return apperr.Conflict("order has no active assignment")
	}
	next, ok := domain.NextAssignmentStatus(active.Status, want)
	if !ok {
		return apperr.Conflict(fmt.Sprintf("assignment is %s and cannot become %s", active.Status, want))
	}
	if active.AcceptedAt == nil && active.Status == domain.AssignmentAssigned {
		active.AcceptedAt = &now
	}
	if next == domain.AssignmentCompleted {
		active.CompletedAt = &now
	}
	active.Status = next
	if err := tx.Assignments.Update(active); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Get returns the order with its assignments and events.
func (s *OrderService) Get(ctx context.Context, caller *models.User, orderID uint) (*models.DeliveryOrder, error) {
	store := s.store.WithContext(ctx)
	order, err := store.Orders.GetDetailed(orderID)
	if err != nil {
		return nil, dbErr(err, "order not found")
	}
	if _, err := ensureAccess(store, caller, order); err != nil {
		return nil, err
	}
	events, err := store.Events.ListByOrder(order.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	order.Events = events
	return order, nil
}

// List scopes orders to the caller: admins see all, establishments their own,
// motoboys the ones they were assigned to.
func (s *OrderService) List(ctx context.Context, caller *models.User, in ListOrdersInput) ([]models.DeliveryOrder, int64, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, 0, apperr.Validation("unknown status filter")
	}
	store := s.store.WithContext(ctx)
	f := repository.OrderFilter{Status: in.Status}
	f.Page, f.Limit = clampPage(in.Page, in.Limit)
	switch caller.Role {
	case domain.RoleAdmin:
	case domain.RoleEstablishment:
		est, err := store.Establishments.GetByUserID(caller.ID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, 0, apperr.Forbidden("no establishment profile for this account")
			}
			return nil, 0, apperr.Internal(err)
		}
		f.EstablishmentID = &est.ID
	case domain.RoleMotoboy:
		mb, err := store.Motoboys.GetByUserID(caller.ID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, 0, apperr.Forbidden("no motoboy profile for this account")
			}
			return nil, 0, apperr.Internal(err)
		}
		f.MotoboyID = &mb.ID
	default:
		return nil, 0, apperr.Forbidden("insufficient permissions")
	}
	list, total, err := store.Orders.List(f)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return list, total, nil
}

// Track is the public view of an order by delivery code.
func (s *OrderService) Track(ctx context.Context, code string) (*TrackingView, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.Validation("delivery code is required")
	}
	store := s.store.WithContext(ctx)
	order, err := store.Orders.GetByCode(code)
	if err != nil {
		return nil, dbErr(err, "delivery not found")
	}
	events, err := store.Events.ListByOrder(order.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	view := &TrackingView{
		DeliveryCode: order.DeliveryCode,
		Status:       order.Status,
		CreatedAt:    order.CreatedAt,
		CompletedAt:  order.CompletedAt,
		Events:       make([]TrackingEvent, 0, len(events)),
	}
	if order.Establishment != nil {
		view.EstablishmentName = order.Establishment.Name
	}
	for _, e := range events {
		view.Events = append(view.Events, TrackingEvent{Status: e.Status, Message: e.Message, CreatedAt: e.CreatedAt})
	}

	active, err := store.Assignments.FindActive(order.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if active == nil {
		return view, nil
	}
	mb, err := store.Motoboys.GetByID(active.MotoboyID)
	if err != nil {
		return nil, dbErr(err, "delivery not found")
	}
	view.MotoboyName = mb.Name
	if order.Status == domain.OrderInTransit && mb.HasLocation() && order.DestLat != nil && order.DestLng != nil {
		d := location.HaversineKm(*mb.CurrentLat, *mb.CurrentLng, *order.DestLat, *order.DestLng)
		route := proximity.DefaultRouteKm
		if order.DistanceKm != nil {
			route = *order.DistanceKm
		}
		view.DistanceKm = &d
		view.Proximity = proximity.Label(proximity.Progress(d, route))
	}
	return view, nil
}

func (s *OrderService) resolveEstablishment(tx *repository.Store, caller *models.User, requested uint) (*models.EstablishmentProfile, error) {
	var (
		est *models.EstablishmentProfile
		err error
	)
	switch caller.Role {
	case domain.RoleEstablishment:
		est, err = tx.Establishments.GetByUserID(caller.ID)
	case domain.RoleAdmin:
		if requested == 0 {
			return nil, apperr.Forbidden("establishment_id is required")
		}
		est, err = tx.Establishments.GetByID(requested)
	default:
		return nil, apperr.Forbidden("only establishments and admins create orders")
	}
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Forbidden("no establishment could be resolved")
		}
		return nil, apperr.Internal(err)
	}
	if !est.IsActive {
		return nil, apperr.Forbidden("establishment is inactive")
	}
	return est, nil
}

func ensureAccess(tx *repository.Store, caller *models.User, order *models.DeliveryOrder) (*participant, error) {
	switch caller.Role {
	case domain.RoleAdmin:
		return &participant{}, nil
	case domain.RoleEstablishment:
		est, err := tx.Establishments.GetByUserID(caller.ID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperr.Forbidden("no establishment profile for this account")
			}
			return nil, apperr.Internal(err)
		}
		if est.ID != order.EstablishmentID {
			return nil, apperr.Forbidden("order belongs to another establishment")
		}
		return &participant{establishment: est}, nil
	case domain.RoleMotoboy:
		mb, err := tx.Motoboys.GetByUserID(caller.ID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperr.Forbidden("no motoboy profile for this account")
			}
			return nil, apperr.Internal(err)
		}
		a, err := tx.Assignments.FindForMotoboy(order.ID, mb.ID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperr.Forbidden("not assigned to this order")
			}
			return nil, apperr.Internal(err)
		}
		return &participant{motoboy: mb, assignment: a}, nil
	}
	return nil, apperr.Forbidden("insufficient permissions")
}

// insertWithCode draws delivery codes until the insert clears the unique index.
// Each attempt runs under a savepoint so a collision leaves the outer
// transaction usable.
func (s *OrderService) insertWithCode(tx *repository.Store, order *models.DeliveryOrder) error {
	for i := 0; i < deliveryCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return apperr.Internal(err)
		}
		order.ID = 0
		order.DeliveryCode = code
		err = tx.Transaction(func(sp *repository.Store) error {
			return sp.Orders.Create(order)
		})
		if err == nil {
			return nil
		}
		if !repository.IsDuplicate(err) {
			return apperr.Internal(err)
		}
		log.Debug().Str("code", code).Int("attempt", i+1).Msg("delivery code taken, drawing another")
	}
	return apperr.Conflict("could not allocate a delivery code, please retry")
}

func (s *OrderService) appendEvent(tx *repository.Store, orderID uint, status domain.OrderStatus, text string,
	meta map[string]interface{}, actor uint, at time.Time) (*models.DeliveryEvent, error) {
	ev := &models.DeliveryEvent{
		OrderID:   orderID,
		Status:    status,
		Message:   text,
		Metadata:  encodeMetadata(meta),
		CreatedAt: at,
	}
	if actor != 0 {
		ev.CreatedBy = &actor
	}
	if err := tx.Events.Append(ev); err != nil {
		return nil, apperr.Internal(err)
	}
	return ev, nil
}

func (s *OrderService) message(order *models.DeliveryOrder, estUserID uint, a *models.DeliveryAssignment,
	action string, prev domain.OrderStatus, text string, actor uint) queue.OrderEventMessage {
	m := queue.OrderEventMessage{
		OrderID:             order.ID,
		DeliveryCode:        order.DeliveryCode,
		EstablishmentID:     order.EstablishmentID,
		EstablishmentUserID: estUserID,
		Action:              action,
		Status:              string(order.Status),
		PreviousStatus:      string(prev),
		Message:             text,
		ActorID:             actor,
		OccurredAt:          s.now(),
	}
	if a != nil {
		mbID := a.MotoboyID
		m.MotoboyID = &mbID
		if a.Motoboy != nil {
			uid := a.Motoboy.UserID
			m.MotoboyUserID = &uid
		}
	}
	return m
}

// messageFor loads what message needs and builds it.
func (s *OrderService) messageFor(tx *repository.Store, order *models.DeliveryOrder, a *models.DeliveryAssignment,
	action string, prev domain.OrderStatus, text string, actor uint) (queue.OrderEventMessage, error) {
	est, err := tx.Establishments.GetByID(order.EstablishmentID)
	if err != nil {
		return queue.OrderEventMessage{}, apperr.Internal(err)
	}
	if a != nil && a.Motoboy == nil {
		mb, err := tx.Motoboys.GetByID(a.MotoboyID)
		if err != nil {
			return queue.OrderEventMessage{}, apperr.Internal(err)
		}
		a.Motoboy = mb
	}
	return s.message(order, est.UserID, a, action, prev, text, actor), nil
}

// publish runs after commit; a broker failure never undoes a committed change.
func (s *OrderService) publish(ctx context.Context, msg queue.OrderEventMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, msg); err != nil {
		log.Warn().Err(err).Uint("order_id", msg.OrderID).Str("action", msg.Action).Msg("publish order event failed")
	}
}

func transitionErr(d domain.Decision, action domain.Action, current domain.OrderStatus) error {
	verb := strings.ToLower(string(action))
	if d.Verdict == domain.RoleDenied {
		return apperr.Forbidden(fmt.Sprintf("your role may not %s this order", verb))
	}
	return apperr.Conflict(fmt.Sprintf("cannot %s an order that is %s", verb, current))
}
