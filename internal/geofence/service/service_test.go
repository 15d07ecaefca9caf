package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hrgate/internal/geofence/models"
	"hrgate/internal/geofence/store"
	dErrors "hrgate/pkg/domain-errors"
)

type GeofenceServiceSuite struct {
	suite.Suite
	store *store.InMemoryStore
	svc   *Service
	ctx   context.Context
}

func TestGeofenceServiceSuite(t *testing.T) {
	suite.Run(t, new(GeofenceServiceSuite))
}

func (s *GeofenceServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.svc = New(s.store)
	s.ctx = context.Background()
}

func (s *GeofenceServiceSuite) addZone(name string, lat, lon float64, radius int) models.OfficeLocation {
	loc, err := s.svc.CreateLocation(s.ctx, name, lat, lon, radius, "", time.Now())
	s.Require().NoError(err)
	return loc
}

func (s *GeofenceServiceSuite) TestCheckPosition() {
	s.Run("no zones configured fails closed", func() {
		result, err := s.svc.CheckPosition(s.ctx, models.Position{Latitude: 18.5204, Longitude: 73.8567})
		s.Require().NoError(err)
		s.False(result.Valid)
		s.Nil(result.MatchedZone)
	})

	s.Run("exact center is valid with near-zero distance", func() {
		hq := s.addZone("HQ", 18.5204, 73.8567, 100)
		result, err := s.svc.CheckPosition(s.ctx, models.Position{Latitude: 18.5204, Longitude: 73.8567})
		s.Require().NoError(err)
		s.True(result.Valid)
		s.Require().NotNil(result.MatchedZone)
		s.Equal(hq.ID, result.MatchedZone.ID)
		s.InDelta(0, result.DistanceMeters, 0.01)
	})

	s.Run("position 500m away from a 100m zone is invalid", func() {
		s.addZone("HQ2", 18.5204, 73.8567, 100)
		// ~0.0045 degrees of latitude is roughly 500m.
		result, err := s.svc.CheckPosition(s.ctx, models.Position{Latitude: 18.5249, Longitude: 73.8567})
		s.Require().NoError(err)
		s.False(result.Valid)
	})

	s.Run("position just inside the radius is valid", func() {
		zone := s.addZone("Annex", 52.5200, 13.4050, 150)
		// ~0.0009 degrees latitude is roughly 100m.
		result, err := s.svc.CheckPosition(s.ctx, models.Position{Latitude: 52.5209, Longitude: 13.4050})
		s.Require().NoError(err)
		s.True(result.Valid)
		s.Equal(zone.ID, result.MatchedZone.ID)
		s.Greater(result.DistanceMeters, 0.0)
		s.LessOrEqual(result.DistanceMeters, 150.0)
	})

	s.Run("first matching zone wins when zones overlap", func() {
		first := s.addZone("Overlap A", 40.0, -74.0, 500)
		s.addZone("Overlap B", 40.0, -74.0, 500)
		result, err := s.svc.CheckPosition(s.ctx, models.Position{Latitude: 40.0, Longitude: -74.0})
		s.Require().NoError(err)
		s.True(result.Valid)
		s.Equal(first.ID, result.MatchedZone.ID)
	})

	s.Run("inactive zones are skipped", func() {
		zone := s.addZone("Closed Office", -33.8688, 151.2093, 200)
		err := s.svc.DeactivateLocation(s.ctx, zone.ID, time.Now())
		s.Require().NoError(err)

		result, err := s.svc.CheckPosition(s.ctx, models.Position{Latitude: -33.8688, Longitude: 151.2093})
		s.Require().NoError(err)
		s.False(result.Valid)
	})

	s.Run("malformed coordinates rejected before distance computation", func() {
		for _, pos := range []models.Position{
			{Latitude: math.NaN(), Longitude: 0},
			{Latitude: 0, Longitude: math.NaN()},
			{Latitude: 91, Longitude: 0},
			{Latitude: -91, Longitude: 0},
			{Latitude: 0, Longitude: 181},
			{Latitude: 0, Longitude: -181},
			{Latitude: math.Inf(1), Longitude: 0},
		} {
			_, err := s.svc.CheckPosition(s.ctx, pos)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func (s *GeofenceServiceSuite) TestLocationAdministration() {
	s.Run("radius must be positive", func() {
		_, err := s.svc.CreateLocation(s.ctx, "Bad", 0, 0, 0, "", time.Now())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("duplicate name conflicts", func() {
		s.addZone("Unique Office", 10, 10, 50)
		_, err := s.svc.CreateLocation(s.ctx, "Unique Office", 11, 11, 50, "", time.Now())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("update preserves identity and creation time", func() {
		zone := s.addZone("Movable", 10, 10, 50)
		updated, err := s.svc.UpdateLocation(s.ctx, zone.ID, "Movable", 11, 11, 75, "New Addr", true, time.Now())
		s.Require().NoError(err)
		s.Equal(zone.ID, updated.ID)
		s.Equal(zone.CreatedAt, updated.CreatedAt)
		s.Equal(75, updated.RadiusMeters)
	})
}

func TestHaversineProperties(t *testing.T) {
	points := [][2]float64{
		{18.5204, 73.8567},
		{52.5200, 13.4050},
		{-33.8688, 151.2093},
		{0, 0},
		{89.9, 179.9},
	}

	t.Run("distance to self is zero", func(t *testing.T) {
		for _, p := range points {
			if d := Haversine(p[0], p[1], p[0], p[1]); d != 0 {
				t.Fatalf("Haversine(%v, %v) to itself = %v, want 0", p[0], p[1], d)
			}
		}
	})

	t.Run("distance is symmetric", func(t *testing.T) {
		for i := range points {
			for j := range points {
				a, b := points[i], points[j]
				d1 := Haversine(a[0], a[1], b[0], b[1])
				d2 := Haversine(b[0], b[1], a[0], a[1])
				if math.Abs(d1-d2) > 1e-9 {
					t.Fatalf("asymmetric: %v vs %v", d1, d2)
				}
			}
		}
	})

	t.Run("known distance Berlin to Sydney", func(t *testing.T) {
		d := Haversine(52.5200, 13.4050, -33.8688, 151.2093)
		// Great-circle distance is roughly 16,000 km.
		if d < 15_900_000 || d > 16_200_000 {
			t.Fatalf("Berlin-Sydney distance = %v m, outside expected range", d)
		}
	})
}
