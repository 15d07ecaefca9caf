// Package service implements the geofence validator: a pure decision over
// the device position and the set of active office zones.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hrgate/internal/geofence/models"
	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
	"hrgate/pkg/platform/sentinel"
)

// Store provides access to office locations.
type Store interface {
	Create(ctx context.Context, loc models.OfficeLocation) error
	Update(ctx context.Context, loc models.OfficeLocation) error
	FindByID(ctx context.Context, locID id.LocationID) (models.OfficeLocation, error)
	ListActive(ctx context.Context) ([]models.OfficeLocation, error)
	ListAll(ctx context.Context) ([]models.OfficeLocation, error)
}

// Service evaluates positions against active zones and exposes the HR
// administration operations over them.
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// CheckPosition decides whether pos falls inside any active zone.
//
// The position is valid when its haversine distance to a zone center is at
// most the zone radius. Zones are evaluated in store iteration order and
// the first match wins; overlapping zones are not tie-broken by distance.
// No active zones means always invalid (fail closed).
func (s *Service) CheckPosition(ctx context.Context, pos models.Position) (models.CheckResult, error) {
	if err := pos.Validate(); err != nil {
		return models.CheckResult{}, err
	}

	zones, err := s.store.ListActive(ctx)
	if err != nil {
		return models.CheckResult{}, fmt.Errorf("list active zones: %w", err)
	}

	for i := range zones {
		zone := zones[i]
		distance := Haversine(pos.Latitude, pos.Longitude, zone.Latitude, zone.Longitude)
		if distance <= float64(zone.RadiusMeters) {
			return models.CheckResult{
				Valid:          true,
				MatchedZone:    &zone,
				DistanceMeters: distance,
			}, nil
		}
	}

	return models.CheckResult{Valid: false}, nil
}

// CreateLocation registers a new office zone.
func (s *Service) CreateLocation(ctx context.Context, name string, lat, lon float64, radiusMeters int, address string, now time.Time) (models.OfficeLocation, error) {
	loc, err := models.NewOfficeLocation(name, lat, lon, radiusMeters, address, now)
	if err != nil {
		return models.OfficeLocation{}, err
	}
	if err := s.store.Create(ctx, loc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.OfficeLocation{}, dErrors.New(dErrors.CodeConflict, "a location with that name already exists")
		}
		return models.OfficeLocation{}, fmt.Errorf("create location: %w", err)
	}
	return loc, nil
}

// UpdateLocation replaces the mutable fields of an existing zone.
func (s *Service) UpdateLocation(ctx context.Context, locID id.LocationID, name string, lat, lon float64, radiusMeters int, address string, active bool, now time.Time) (models.OfficeLocation, error) {
	existing, err := s.store.FindByID(ctx, locID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.OfficeLocation{}, dErrors.New(dErrors.CodeNotFound, "location not found")
		}
		return models.OfficeLocation{}, fmt.Errorf("find location: %w", err)
	}

	updated, err := models.NewOfficeLocation(name, lat, lon, radiusMeters, address, now)
	if err != nil {
		return models.OfficeLocation{}, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.IsActive = active

	if err := s.store.Update(ctx, updated); err != nil {
		return models.OfficeLocation{}, fmt.Errorf("update location: %w", err)
	}
	return updated, nil
}

// DeactivateLocation removes a zone from geofence evaluation without
// losing the audit history that references it.
func (s *Service) DeactivateLocation(ctx context.Context, locID id.LocationID, now time.Time) error {
	existing, err := s.store.FindByID(ctx, locID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "location not found")
		}
		return fmt.Errorf("find location: %w", err)
	}
	existing.IsActive = false
	existing.UpdatedAt = now
	if err := s.store.Update(ctx, existing); err != nil {
		return fmt.Errorf("deactivate location: %w", err)
	}
	return nil
}

// ListLocations returns every zone, active or not, for the admin UI.
func (s *Service) ListLocations(ctx context.Context) ([]models.OfficeLocation, error) {
	return s.store.ListAll(ctx)
}
