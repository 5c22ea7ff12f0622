package domain

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderAssigned  OrderStatus = "ASSIGNED"
	OrderInTransit OrderStatus = "IN_TRANSIT"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderAssigned, OrderInTransit, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "ASSIGNED"
	AssignmentAccepted  AssignmentStatus = "ACCEPTED"
	AssignmentRejected  AssignmentStatus = "REJECTED"
	AssignmentInTransit AssignmentStatus = "IN_TRANSIT"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentAccepted, AssignmentRejected, AssignmentInTransit, AssignmentCompleted:
		return true
	}
	return false
}

// Active reports whether the assignment still binds its motoboy to the order.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentAssigned || s == AssignmentAccepted || s == AssignmentInTransit
}

// ActiveAssignmentStatuses is Active as a list, for queries.
var ActiveAssignmentStatuses = []AssignmentStatus{AssignmentAssigned, AssignmentAccepted, AssignmentInTransit}
