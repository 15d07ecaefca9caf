package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"hrgate/internal/geofence/service"
	"hrgate/internal/geofence/store"
	"hrgate/internal/platform/middleware"
	"hrgate/internal/platform/secrets"
	"hrgate/pkg/testutil"
)

const adminToken = "hr-admin-token"

func newRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	svc := service.New(store.NewInMemoryStore())
	h := New(svc, nil, logger)

	hash, err := secrets.Hash(adminToken)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		h.Register(r)
	})
	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(hash, logger))
		h.RegisterAdmin(r)
	})
	return router
}

func createHQ(t *testing.T, router *chi.Mux) LocationResponse {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/locations", LocationRequest{
		Name:         "HQ",
		Latitude:     18.5204,
		Longitude:    73.8567,
		RadiusMeters: 100,
		Address:      "FC Road, Pune",
	})
	req.Header.Set("X-Admin-Token", adminToken)
	rec := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var loc LocationResponse
	testutil.DecodeJSON(t, rec, &loc)
	return loc
}

func TestAdminTokenRequired(t *testing.T) {
	router := newRouter(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/locations", LocationRequest{Name: "HQ"})
	rec := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = testutil.NewJSONRequest(t, http.MethodPost, "/admin/locations", LocationRequest{Name: "HQ"})
	req.Header.Set("X-Admin-Token", "wrong")
	rec = testutil.DoRequest(router, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAndCheckLocation(t *testing.T) {
	router := newRouter(t)
	loc := createHQ(t, router)
	require.Equal(t, "HQ", loc.Name)
	require.True(t, loc.IsActive)

	// Inside the zone.
	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/geofence/check",
		CheckRequest{Latitude: 18.5204, Longitude: 73.8567}))
	require.Equal(t, http.StatusOK, rec.Code)

	var check CheckResponse
	testutil.DecodeJSON(t, rec, &check)
	require.True(t, check.Valid)
	require.Equal(t, "HQ", check.Zone)

	// Well outside.
	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/geofence/check",
		CheckRequest{Latitude: 19.0, Longitude: 73.8567}))
	require.Equal(t, http.StatusOK, rec.Code)
	check = CheckResponse{}
	testutil.DecodeJSON(t, rec, &check)
	require.False(t, check.Valid)
	require.Empty(t, check.Zone)
}

func TestCheckRejectsMalformedPosition(t *testing.T) {
	router := newRouter(t)
	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/geofence/check",
		CheckRequest{Latitude: 123.45, Longitude: 73.8567}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateValidatesRadius(t *testing.T) {
	router := newRouter(t)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/locations", LocationRequest{
		Name:         "HQ",
		Latitude:     18.5204,
		Longitude:    73.8567,
		RadiusMeters: 0,
	})
	req.Header.Set("X-Admin-Token", adminToken)
	rec := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDeactivateLocation(t *testing.T) {
	router := newRouter(t)
	loc := createHQ(t, router)

	req := testutil.NewJSONRequest(t, http.MethodPut, "/admin/locations/"+loc.ID, LocationRequest{
		Name:         "HQ West",
		Latitude:     18.5204,
		Longitude:    73.8567,
		RadiusMeters: 150,
	})
	req.Header.Set("X-Admin-Token", adminToken)
	rec := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated LocationResponse
	testutil.DecodeJSON(t, rec, &updated)
	require.Equal(t, loc.ID, updated.ID)
	require.Equal(t, "HQ West", updated.Name)
	require.Equal(t, 150, updated.RadiusMeters)

	req = testutil.NewJSONRequest(t, http.MethodDelete, "/admin/locations/"+loc.ID, nil)
	req.Header.Set("X-Admin-Token", adminToken)
	rec = testutil.DoRequest(router, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Deactivated zones no longer admit positions.
	rec = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/geofence/check",
		CheckRequest{Latitude: 18.5204, Longitude: 73.8567}))
	var check CheckResponse
	testutil.DecodeJSON(t, rec, &check)
	require.False(t, check.Valid)

	// But remain listed for the admin UI.
	req = testutil.NewJSONRequest(t, http.MethodGet, "/admin/locations", nil)
	req.Header.Set("X-Admin-Token", adminToken)
	rec = testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []LocationResponse
	testutil.DecodeJSON(t, rec, &all)
	require.Len(t, all, 1)
	require.False(t, all[0].IsActive)
}

func TestListLocationsEmpty(t *testing.T) {
	router := newRouter(t)
	req := testutil.NewJSONRequest(t, http.MethodGet, "/admin/locations", nil)
	req.Header.Set("X-Admin-Token", adminToken)
	rec := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []json.RawMessage
	testutil.DecodeJSON(t, rec, &out)
	require.Empty(t, out)
}
