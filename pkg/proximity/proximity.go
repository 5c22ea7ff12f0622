package proximity

// Labels shown on the public tracking page for an order in transit.
const (
	Arriving = "ARRIVING"
	Nearby   = "NEARBY"
	OnTheWay = "ON_THE_WAY"
)

// DefaultRouteKm is used as the route length when the order has no distance.
const DefaultRouteKm = 10.0

// Label returns a coarse label for how close the courier is, from progress (0-100).
func Label(progressPct float64) string {
	switch {
	case progressPct >= 90:
		return Arriving
	case progressPct >= 60:
		return Nearby
	default:
		return OnTheWay
	}
}

// Progress computes route progress: (1 - remaining/route) * 100, clamped to 0..100.
func Progress(remainingKm, routeKm float64) float64 {
	if routeKm <= 0 {
		routeKm = DefaultRouteKm
	}
	if remainingKm >= routeKm {
		return 0
	}
	p := (1 - remainingKm/routeKm) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
