// Package models defines the geofence zone records and the position types
// evaluated against them. Constructors validate invariants at creation
// time, not at display time.
package models

import (
	"math"
	"strings"
	"time"

	id "hrgate/pkg/domain"
	dErrors "hrgate/pkg/domain-errors"
)

// OfficeLocation is a circular geofence zone administered by HR.
type OfficeLocation struct {
	ID           id.LocationID
	Name         string
	Latitude     float64 // degrees, WGS84
	Longitude    float64 // degrees, WGS84
	RadiusMeters int
	Address      string // optional free text
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOfficeLocation validates and constructs a zone.
func NewOfficeLocation(name string, lat, lon float64, radiusMeters int, address string, now time.Time) (OfficeLocation, error) {
	if strings.TrimSpace(name) == "" {
		return OfficeLocation{}, dErrors.New(dErrors.CodeInvalidInput, "location name is required")
	}
	if err := validateCoordinates(lat, lon); err != nil {
		return OfficeLocation{}, err
	}
	if radiusMeters <= 0 {
		return OfficeLocation{}, dErrors.New(dErrors.CodeInvalidInput, "radius must be a positive number of meters")
	}
	return OfficeLocation{
		ID:           id.NewLocationID(),
		Name:         strings.TrimSpace(name),
		Latitude:     lat,
		Longitude:    lon,
		RadiusMeters: radiusMeters,
		Address:      strings.TrimSpace(address),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Position is a device-reported latitude/longitude pair.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects malformed coordinates before any distance computation.
func (p Position) Validate() error {
	return validateCoordinates(p.Latitude, p.Longitude)
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return dErrors.New(dErrors.CodeInvalidInput, "coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 {
		return dErrors.New(dErrors.CodeInvalidInput, "latitude must be between -90 and 90 degrees")
	}
	if lon < -180 || lon > 180 {
		return dErrors.New(dErrors.CodeInvalidInput, "longitude must be between -180 and 180 degrees")
	}
	return nil
}

// CheckResult reports whether a position fell inside an active zone.
// When Valid is true, MatchedZone is the first active zone containing the
// position and DistanceMeters the distance to that zone's center.
type CheckResult struct {
	Valid          bool
	MatchedZone    *OfficeLocation
	DistanceMeters float64
}
