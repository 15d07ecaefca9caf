//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hrgate/internal/geofence/models"
	"hrgate/pkg/platform/sentinel"
	"hrgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite

	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgresStore(s.pg.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "office_locations"))
}

func (s *PostgresStoreSuite) newLocation(name string, at time.Time) models.OfficeLocation {
	loc, err := models.NewOfficeLocation(name, 18.5204, 73.8567, 100, "FC Road, Pune", at)
	s.Require().NoError(err)
	return loc
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	loc := s.newLocation("HQ", time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, loc))

	found, err := s.store.FindByID(s.ctx, loc.ID)
	s.Require().NoError(err)
	s.Equal("HQ", found.Name)
	s.Equal(100, found.RadiusMeters)
	s.True(found.IsActive)
}

func (s *PostgresStoreSuite) TestDuplicateNameConflicts() {
	s.Require().NoError(s.store.Create(s.ctx, s.newLocation("HQ", time.Now().UTC())))
	err := s.store.Create(s.ctx, s.newLocation("HQ", time.Now().UTC()))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestListActiveSkipsDeactivated() {
	now := time.Now().UTC()
	hq := s.newLocation("HQ", now)
	branch := s.newLocation("Branch", now.Add(time.Second))
	s.Require().NoError(s.store.Create(s.ctx, hq))
	s.Require().NoError(s.store.Create(s.ctx, branch))

	branch.IsActive = false
	s.Require().NoError(s.store.Update(s.ctx, branch))

	active, err := s.store.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal("HQ", active[0].Name)

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *PostgresStoreSuite) TestListActiveOrderedByCreation() {
	now := time.Now().UTC()
	s.Require().NoError(s.store.Create(s.ctx, s.newLocation("First", now)))
	s.Require().NoError(s.store.Create(s.ctx, s.newLocation("Second", now.Add(time.Second))))

	active, err := s.store.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal("First", active[0].Name)
	s.Equal("Second", active[1].Name)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	loc := s.newLocation("HQ", time.Now().UTC())
	_, err := s.store.FindByID(s.ctx, loc.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
