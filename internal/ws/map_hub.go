package ws

import (
	"sync"
	"time"

	"motoexpress/internal/domain"
)

// MapMarker is one motoboy on the live map.
type MapMarker struct {
	MotoboyID uint    `json:"motoboy_id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Available bool    `json:"available"`
	UpdatedAt int64   `json:"updated_at"`
}

// MapHub streams motoboy markers to live-map viewers. It also carries personal
// pushes for every connected user through the embedded Hub.
type MapHub struct {
	*Hub
	mu      sync.RWMutex
	markers map[uint]MapMarker
}

func NewMapHub() *MapHub {
	return &MapHub{
		Hub:     NewHub(),
		markers: make(map[uint]MapMarker),
	}
}

func isViewer(c *Client) bool {
	return c.Role.Can(domain.CapViewLiveMap)
}

// MotoboyMoved records and broadcasts a new position.
func (m *MapHub) MotoboyMoved(motoboyID uint, name string, lat, lng float64, at time.Time) {
	marker := MapMarker{
		MotoboyID: motoboyID,
		Name:      name,
		Lat:       lat,
		Lng:       lng,
		Available: true,
		UpdatedAt: at.Unix(),
	}
	m.mu.Lock()
	m.markers[motoboyID] = marker
	m.mu.Unlock()
	m.BroadcastWhere(isViewer, map[string]interface{}{"type": "marker", "marker": marker})
}

// MotoboyGone drops the marker and tells viewers to remove it.
func (m *MapHub) MotoboyGone(motoboyID uint) {
	m.mu.Lock()
	_, had := m.markers[motoboyID]
	delete(m.markers, motoboyID)
	m.mu.Unlock()
	if !had {
		return
	}
	m.BroadcastWhere(isViewer, map[string]interface{}{
		"type":   "marker",
		"marker": MapMarker{MotoboyID: motoboyID, Available: false, UpdatedAt: time.Now().Unix()},
	})
}

// Markers returns the current markers for an initial map load.
func (m *MapHub) Markers() []MapMarker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]MapMarker, 0, len(m.markers))
	for _, v := range m.markers {
		list = append(list, v)
	}
	return list
}

// Seed replaces the marker set, used at startup from the database.
func (m *MapHub) Seed(markers []MapMarker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers = make(map[uint]MapMarker, len(markers))
	for _, mk := range markers {
		m.markers[mk.MotoboyID] = mk
	}
}
