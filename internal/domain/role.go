package domain

type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleEstablishment Role = "ESTABLISHMENT"
	RoleMotoboy       Role = "MOTOBOY"
)

// Capability is a bit set of things a role may do.
type Capability uint32

const (
	CapCreateOrder Capability = 1 << iota
	CapAssignMotoboy
	CapRespondAssignment
	CapUpdateOrder
	CapRecordEvent
	CapReview
	CapReportLocation
	CapViewAllOrders
	CapViewLiveMap
	CapManageUsers
	CapSubscribe
)

var capabilities = map[Role]Capability{
	RoleAdmin: CapCreateOrder | CapAssignMotoboy | CapUpdateOrder | CapRecordEvent |
		CapReview | CapViewAllOrders | CapViewLiveMap | CapManageUsers,
	RoleEstablishment: CapCreateOrder | CapAssignMotoboy | CapUpdateOrder | CapRecordEvent |
		CapReview | CapViewLiveMap | CapSubscribe,
	RoleMotoboy: CapRespondAssignment | CapUpdateOrder | CapRecordEvent | CapReview |
		CapReportLocation,
}

func (r Role) Can(c Capability) bool { return capabilities[r]&c == c }

func (r Role) Valid() bool {
	_, ok := capabilities[r]
	return ok
}

func (r Role) String() string { return string(r) }

// ParseRole returns the role named s.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

type PlanTier string

const (
	PlanFree  PlanTier = "FREE"
	PlanBasic PlanTier = "BASIC"
	PlanPro   PlanTier = "PRO"
)

func (p PlanTier) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPro:
		return true
	}
	return false
}

const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
	PaymentExpired   = "EXPIRED"
)

const (
	VehicleMotorcycle = "MOTORCYCLE"
	VehicleBicycle    = "BICYCLE"
	VehicleCar        = "CAR"
)

// Notification types
const (
	NotifOrderCreated    = "ORDER_CREATED"
	NotifOrderAssigned   = "ORDER_ASSIGNED"
	NotifOrderStatus     = "ORDER_STATUS"
	NotifAssignmentReply = "ASSIGNMENT_REPLY"
	NotifPlanActivated   = "PLAN_ACTIVATED"
)
