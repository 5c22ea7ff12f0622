package access

import "motoexpress/internal/domain"

// Endpoint names one authenticated operation of the HTTP API.
type Endpoint string

const (
	AuthMe     Endpoint = "auth.me"
	AuthLogout Endpoint = "auth.logout"

	OrderCreate  Endpoint = "orders.create"
	OrderList    Endpoint = "orders.list"
	OrderGet     Endpoint = "orders.get"
	OrderUpdate  Endpoint = "orders.update"
	OrderAssign  Endpoint = "orders.assign"
	OrderRespond Endpoint = "orders.respond"
	OrderEvent   Endpoint = "orders.events.create"
	ReviewList   Endpoint = "orders.reviews.list"
	ReviewCreate Endpoint = "orders.reviews.create"

	LocationReport Endpoint = "motoboys.location.report"
	LocationClear  Endpoint = "motoboys.location.clear"
	LocationList   Endpoint = "motoboys.locations"
	MotoboyList    Endpoint = "motoboys.list"
	MotoboyStats   Endpoint = "motoboys.stats"
	MotoboyDocs    Endpoint = "motoboys.documents"
	EstablishStats Endpoint = "establishments.stats"
	LiveMap        Endpoint = "ws.map"

	ProfileUpdate     Endpoint = "me.profile.update"
	NotificationList  Endpoint = "me.notifications.list"
	NotificationRead  Endpoint = "me.notifications.read"
	SubscriptionStart Endpoint = "subscriptions.checkout"
	SubscriptionList  Endpoint = "subscriptions.payments"

	AdminUsers      Endpoint = "admin.users.list"
	AdminUserUpdate Endpoint = "admin.users.update"
	AdminStats      Endpoint = "admin.stats"
)

// Rule is an endpoint's allow-list plus the capability every listed role must hold.
type Rule struct {
	Roles []domain.Role
	Cap   domain.Capability
}

var (
	anyone       = []domain.Role{domain.RoleAdmin, domain.RoleEstablishment, domain.RoleMotoboy}
	managers     = []domain.Role{domain.RoleAdmin, domain.RoleEstablishment}
	adminOnly    = []domain.Role{domain.RoleAdmin}
	motoboysOnly = []domain.Role{domain.RoleMotoboy}
	merchants    = []domain.Role{domain.RoleEstablishment}
)

// Policy is the whole authorization surface. Ownership of individual orders is
// checked by the services on top of it.
var Policy = map[Endpoint]Rule{
	AuthMe:     {Roles: anyone},
	AuthLogout: {Roles: anyone},

	OrderCreate:  {Roles: managers, Cap: domain.CapCreateOrder},
	OrderList:    {Roles: anyone},
	OrderGet:     {Roles: anyone},
	OrderUpdate:  {Roles: anyone, Cap: domain.CapUpdateOrder},
	OrderAssign:  {Roles: managers, Cap: domain.CapAssignMotoboy},
	OrderRespond: {Roles: motoboysOnly, Cap: domain.CapRespondAssignment},
	OrderEvent:   {Roles: anyone, Cap: domain.CapRecordEvent},
	ReviewList:   {Roles: anyone},
	ReviewCreate: {Roles: anyone, Cap: domain.CapReview},

	LocationReport: {Roles: motoboysOnly, Cap: domain.CapReportLocation},
	LocationClear:  {Roles: motoboysOnly, Cap: domain.CapReportLocation},
	LocationList:   {Roles: managers, Cap: domain.CapViewLiveMap},
	MotoboyList:    {Roles: managers, Cap: domain.CapAssignMotoboy},
	MotoboyStats:   {Roles: anyone},
	MotoboyDocs:    {Roles: motoboysOnly},
	EstablishStats: {Roles: anyone},
	LiveMap:        {Roles: anyone}, // marker pushes additionally need CapViewLiveMap

	ProfileUpdate:     {Roles: anyone},
	NotificationList:  {Roles: anyone},
	NotificationRead:  {Roles: anyone},
	SubscriptionStart: {Roles: merchants, Cap: domain.CapSubscribe},
	SubscriptionList:  {Roles: merchants, Cap: domain.CapSubscribe},

	AdminUsers:      {Roles: adminOnly, Cap: domain.CapManageUsers},
	AdminUserUpdate: {Roles: adminOnly, Cap: domain.CapManageUsers},
	AdminStats:      {Roles: adminOnly, Cap: domain.CapManageUsers},
}

// Allows reports whether role may call e. Unknown endpoints allow nobody.
func Allows(e Endpoint, role domain.Role) bool {
	rule, ok := Policy[e]
	if !ok {
		return false
	}
	for _, r := range rule.Roles {
		if r == role {
			return role.Can(rule.Cap)
		}
	}
	return false
}
