package service

import (
	"context"
	"time"

	"motoexpress/config"
	"motoexpress/internal/apperr"
	"motoexpress/internal/models"
	"motoexpress/internal/repository"
	"motoexpress/pkg/location"

	"github.com/rs/zerolog/log"
)

// MapBroadcaster receives live position changes. ws.MapHub implements it.
type MapBroadcaster interface {
	MotoboyMoved(motoboyID uint, name string, lat, lng float64, at time.Time)
	MotoboyGone(motoboyID uint)
}

type LocationService struct {
	store *repository.Store
	cfg   config.LocationConfig
	live  MapBroadcaster
	now   func() time.Time
}

func NewLocationService(store *repository.Store, cfg config.LocationConfig, live MapBroadcaster) *LocationService {
	return &LocationService{store: store, cfg: cfg, live: live, now: utcNow}
}

type ReportLocationInput struct {
	Lat        *float64   `json:"lat" validate:"required,latitude"`
	Lng        *float64   `json:"lng" validate:"required,longitude"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// LocationResult.Applied is false when the report was older than the stored one.
type LocationResult struct {
	Applied bool                   `json:"applied"`
	Motoboy *models.MotoboyProfile `json:"motoboy"`
}

// AvailableMotoboy is the public part of an available courier.
type AvailableMotoboy struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	VehicleType string     `json:"vehicle_type"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	UpdatedAt   *time.Time `json:"location_updated_at"`
	DistanceKm  *float64   `json:"distance_km,omitempty"`
}

// maxClockSkew bounds how far in the future a client timestamp may be.
const maxClockSkew = time.Minute

func (s *LocationService) Report(ctx context.Context, caller *models.User, in ReportLocationInput) (*LocationResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	store := s.store.WithContext(ctx)
	mb, err := store.Motoboys.GetByUserID(caller.ID)
	if err != nil {
		return nil, dbErr(err, "motoboy profile not found")
	}
	now := s.now()
	at := now
	if in.RecordedAt != nil {
		at = in.RecordedAt.UTC()
		if at.After(now.Add(maxClockSkew)) {
			return nil, apperr.Validation("recorded_at is in the future")
		}
	}
	applied, err := store.Motoboys.ReportLocation(mb.ID, *in.Lat, *in.Lng, at, s.cfg.RejectOutOfOrder)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	mb, err = store.Motoboys.GetByID(mb.ID)
	if err != nil {
		return nil, dbErr(err, "motoboy profile not found")
	}
	if applied && s.live != nil {
		s.live.MotoboyMoved(mb.ID, mb.Name, *in.Lat, *in.Lng, at)
	}
	return &LocationResult{Applied: applied, Motoboy: mb}, nil
}

// Clear takes the caller's motoboy off the map.
func (s *LocationService) Clear(ctx context.Context, userID uint) error {
	store := s.store.WithContext(ctx)
	mb, err := store.Motoboys.GetByUserID(userID)
	if err != nil {
		return dbErr(err, "motoboy profile not found")
	}
	if err := store.Motoboys.ClearLocation(mb.ID); err != nil {
		return apperr.Internal(err)
	}
	if s.live != nil {
		s.live.MotoboyGone(mb.ID)
	}
	return nil
}

// Available lists located, available motoboys. With near set they are sorted by
// distance from it.
func (s *LocationService) Available(ctx context.Context, near *location.Point) ([]AvailableMotoboy, error) {
	list, err := s.store.WithContext(ctx).Motoboys.ListAvailable()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]AvailableMotoboy, 0, len(list))
	for _, m := range list {
		if !m.HasLocation() {
			continue
		}
		out = append(out, AvailableMotoboy{
			ID:          m.ID,
			Name:        m.Name,
			VehicleType: m.VehicleType,
			Lat:         *m.CurrentLat,
			Lng:         *m.CurrentLng,
			UpdatedAt:   m.LocationUpdatedAt,
		})
	}
	if near == nil {
		return out, nil
	}
	points := make([]location.Point, len(out))
	for i, m := range out {
		points[i] = location.Point{Lat: m.Lat, Lng: m.Lng}
	}
	sorted := make([]AvailableMotoboy, 0, len(out))
	for _, r := range location.Nearest(*near, points, 0) {
		m := out[r.Index]
		d := r.DistanceKm
		m.DistanceKm = &d
		sorted = append(sorted, m)
	}
	return sorted, nil
}

// SweepStale clears motoboys that stopped reporting. It is a no-op when
// location.stale_after is zero.
func (s *LocationService) SweepStale(ctx context.Context) (int, error) {
	if s.cfg.StaleAfter <= 0 {
		return 0, nil
	}
	ids, err := s.store.WithContext(ctx).Motoboys.ClearStale(s.now().Add(-s.cfg.StaleAfter))
	if err != nil {
		return 0, err
	}
	if s.live != nil {
		for _, id := range ids {
			s.live.MotoboyGone(id)
		}
	}
	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Dur("stale_after", s.cfg.StaleAfter).Msg("cleared stale motoboy locations")
	}
	return len(ids), nil
}
