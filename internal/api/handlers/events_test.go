package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/toga/internal/api/handlers"
	"github.com/hugh/toga/internal/api/middleware"
	"github.com/hugh/toga/internal/database/models"
	"github.com/hugh/toga/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEventTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	handler := handlers.NewEventHandler(tc.DB)

	r := chi.NewRouter()
	r.Get("/api/events", handler.List)
	r.Get("/api/events/{id}", handler.Get)
	r.Get("/api/events/{id}/listings", handler.Listings)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Post("/api/events", handler.Create)
		r.Put("/api/events/{id}", handler.Update)
		r.Delete("/api/events/{id}", handler.Delete)
		r.Post("/api/events/{id}/listings", handler.AttachListing)
		r.Delete("/api/events/{id}/listings/{itemId}", handler.DetachListing)
	})

	return r, tc
}

func TestEventHandler_Create(t *testing.T) {
	router, tc := setupEventTestRouter(t)

	eventDate := time.Now().Add(14 * 24 * time.Hour).UTC().Truncate(time.Second)

	t.Run("open event", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPost, "/api/events", map[string]interface{}{
			"title":      "Thrift Pop-Up",
			"event_date": eventDate.Format(time.RFC3339),
			"location":   "Quad",
		}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp handlers.EventResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, tc.User.ID.String(), resp.CreatorID)
		assert.Equal(t, tc.User.Username, resp.CreatorUsername)
		assert.Nil(t, resp.OrganizationID)
		// Display window runs three days from the start date
		assert.Equal(t, eventDate, resp.EventBegin.UTC())
		assert.Equal(t, eventDate.Add(3*24*time.Hour), resp.EventEnd.UTC())
	})

	t.Run("organization scoped event", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, tc.DB, tc.User.ID)
		orgID := org.ID.String()

		req := testutil.AuthenticatedRequest(t, http.MethodPost, "/api/events", map[string]interface{}{
			"title":           "Club Swap",
			"event_date":      eventDate.Format(time.RFC3339),
			"organization_id": orgID,
		}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		var resp handlers.EventResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.NotNil(t, resp.OrganizationID)
		assert.Equal(t, orgID, *resp.OrganizationID)
		assert.Equal(t, tc.User.Username, resp.CreatorUsername)
	})

	t.Run("unknown organization", func(t *testing.T) {
		fake := uuid.New().String()
		req := testutil.AuthenticatedRequest(t, http.MethodPost, "/api/events", map[string]interface{}{
			"title":           "Ghost Event",
			"event_date":      eventDate.Format(time.RFC3339),
			"organization_id": fake,
		}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("missing date", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPost, "/api/events",
			map[string]interface{}{"title": "No Date"}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestEventHandler_List(t *testing.T) {
	router, tc := setupEventTestRouter(t)

	testutil.CreateTestEvent(t, tc.DB, tc.User.ID)
	org := testutil.CreateTestOrg(t, tc.DB, tc.User.ID)
	scoped := testutil.CreateTestEvent(t, tc.DB, tc.User.ID)
	require.NoError(t, tc.DB.Model(scoped).Update("organization_id", org.ID).Error)

	t.Run("all events with creator username", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/events", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []handlers.EventResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Len(t, resp, 2)
		for _, ev := range resp {
			assert.Equal(t, tc.User.Username, ev.CreatorUsername)
		}
	})

	t.Run("organization filter", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/events?organization="+org.ID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []handlers.EventResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Len(t, resp, 1)
		assert.Equal(t, scoped.ID.String(), resp[0].ID)
	})
}

func TestEventHandler_UpdateDelete(t *testing.T) {
	router, tc := setupEventTestRouter(t)

	event := testutil.CreateTestEvent(t, tc.DB, tc.User.ID)
	stranger := testutil.CreateTestUser(t, tc.DB)
	strangerToken := testutil.GenerateTestToken(t, tc.JWTService, stranger)

	t.Run("foreign creator gets 403", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPut, "/api/events/"+event.ID.String(),
			map[string]interface{}{"title": "Hijacked"}, strangerToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("creator updates", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPut, "/api/events/"+event.ID.String(),
			map[string]interface{}{"location": "Ballroom"}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp handlers.EventResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, tc.User.Username, resp.CreatorUsername)

		var stored models.Event
		require.NoError(t, tc.DB.First(&stored, "id = ?", event.ID).Error)
		assert.Equal(t, "Ballroom", stored.Location)
	})

	t.Run("delete removes attached listings", func(t *testing.T) {
		item := testutil.CreateTestItem(t, tc.DB, tc.User.ID)
		require.NoError(t, tc.DB.Create(&models.EventListing{EventID: event.ID, ItemID: item.ID}).Error)

		req := testutil.AuthenticatedRequest(t, http.MethodDelete, "/api/events/"+event.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var listings int64
		tc.DB.Model(&models.EventListing{}).Where("event_id = ?", event.ID).Count(&listings)
		assert.Equal(t, int64(0), listings)
	})
}

func TestEventHandler_Listings(t *testing.T) {
	router, tc := setupEventTestRouter(t)

	event := testutil.CreateTestEvent(t, tc.DB, tc.User.ID)
	item := testutil.CreateTestItem(t, tc.DB, tc.User.ID)

	t.Run("attach own item", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPost, "/api/events/"+event.ID.String()+"/listings",
			map[string]interface{}{"item_id": item.ID.String()}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("re-attach is a no-op", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPost, "/api/events/"+event.ID.String()+"/listings",
			map[string]interface{}{"item_id": item.ID.String()}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("cannot attach someone else's item", func(t *testing.T) {
		stranger := testutil.CreateTestUser(t, tc.DB)
		theirItem := testutil.CreateTestItem(t, tc.DB, stranger.ID)

		req := testutil.AuthenticatedRequest(t, http.MethodPost, "/api/events/"+event.ID.String()+"/listings",
			map[string]interface{}{"item_id": theirItem.ID.String()}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("list attached items", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/events/"+event.ID.String()+"/listings", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []handlers.ItemResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Len(t, resp, 1)
		assert.Equal(t, item.ID.String(), resp[0].ID)
	})

	t.Run("detach", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodDelete,
			"/api/events/"+event.ID.String()+"/listings/"+item.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var count int64
		tc.DB.Model(&models.EventListing{}).Where("event_id = ?", event.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})
}
