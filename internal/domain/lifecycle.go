package domain

// Action is a request to move an order.
type Action string

const (
	ActionAssign   Action = "ASSIGN"
	ActionAccept   Action = "ACCEPT"
	ActionReject   Action = "REJECT"
	ActionComplete Action = "COMPLETE"
	ActionStart    Action = "START"   // -> IN_TRANSIT
	ActionDeliver  Action = "DELIVER" // direct -> DELIVERED
	ActionCancel   Action = "CANCEL"
	ActionReopen   Action = "REOPEN" // -> PENDING, releasing the motoboy
)

type Verdict int

const (
	Allowed Verdict = iota
	RoleDenied
	InvalidState
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case RoleDenied:
		return "role denied"
	default:
		return "invalid state"
	}
}

// Decision is the outcome of Decide. Next is only meaningful when Verdict is Allowed.
type Decision struct {
	Next    OrderStatus
	Verdict Verdict
}

func (d Decision) Allowed() bool { return d.Verdict == Allowed }

type rule struct {
	roles []Role
	from  []OrderStatus
	// next is the resulting order status; empty keeps the current status.
	next OrderStatus
}

var transitions = map[Action]rule{
	ActionAssign: {
		roles: []Role{RoleAdmin, RoleEstablishment},
		from:  []OrderStatus{OrderPending, OrderAssigned},
		next:  OrderAssigned,
	},
	ActionAccept: {
		roles: []Role{RoleMotoboy},
		from:  []OrderStatus{OrderAssigned},
	},
	ActionReject: {
		roles: []Role{RoleMotoboy},
		from:  []OrderStatus{OrderAssigned},
	},
	ActionComplete: {
		roles: []Role{RoleMotoboy},
		from:  []OrderStatus{OrderAssigned, OrderInTransit},
		next:  OrderDelivered,
	},
	ActionStart: {
		roles: []Role{RoleAdmin, RoleEstablishment, RoleMotoboy},
		from:  []OrderStatus{OrderAssigned},
		next:  OrderInTransit,
	},
	ActionDeliver: {
		roles: []Role{RoleAdmin, RoleEstablishment, RoleMotoboy},
		from:  []OrderStatus{OrderAssigned, OrderInTransit},
		next:  OrderDelivered,
	},
	ActionCancel: {
		roles: []Role{RoleAdmin, RoleEstablishment},
		from:  []OrderStatus{OrderPending, OrderAssigned, OrderInTransit},
		next:  OrderCancelled,
	},
	ActionReopen: {
		roles: []Role{RoleAdmin, RoleEstablishment},
		from:  []OrderStatus{OrderPending, OrderAssigned},
		next:  OrderPending,
	},
}

// Decide is the single transition authority for orders. A role outside the rule
// is denied before the current status is looked at.
func Decide(current OrderStatus, action Action, role Role) Decision {
	r, ok := transitions[action]
	if !ok {
		return Decision{Verdict: InvalidState}
	}
	if !containsRole(r.roles, role) {
		return Decision{Verdict: RoleDenied}
	}
	if !containsStatus(r.from, current) {
		return Decision{Verdict: InvalidState}
	}
	next := r.next
	if next == "" {
		next = current
	}
	return Decision{Next: next, Verdict: Allowed}
}

// ActionForStatus maps a directly requested order status onto its action.
// ASSIGNED maps to ActionAssign, which needs a motoboy and so cannot be applied
// as a plain status change; callers still run it through Decide to get the verdict.
func ActionForStatus(target OrderStatus) (Action, bool) {
	switch target {
	case OrderPending:
		return ActionReopen, true
	case OrderAssigned:
		return ActionAssign, true
	case OrderInTransit:
		return ActionStart, true
	case OrderDelivered:
		return ActionDeliver, true
	case OrderCancelled:
		return ActionCancel, true
	}
	return "", false
}

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentAssigned:  {AssignmentAccepted, AssignmentRejected, AssignmentInTransit},
	AssignmentAccepted:  {AssignmentRejected, AssignmentInTransit, AssignmentCompleted},
	AssignmentInTransit: {AssignmentCompleted},
}

// NextAssignmentStatus reports whether an assignment may move from current to target.
func NextAssignmentStatus(current, target AssignmentStatus) (AssignmentStatus, bool) {
	for _, s := range assignmentTransitions[current] {
		if s == target {
			return target, true
		}
	}
	return current, false
}

func containsRole(list []Role, r Role) bool {
	for _, x := range list {
		if x == r {
			return true
		}
	}
	return false
}

func containsStatus(list []OrderStatus, s OrderStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
