package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/toga/internal/api/handlers"
	"github.com/hugh/toga/internal/api/middleware"
	"github.com/hugh/toga/internal/database/models"
	"github.com/hugh/toga/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupItemTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	handler := handlers.NewItemHandler(tc.DB)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(tc.JWTService))
		r.Get("/api/items", handler.List)
		r.Get("/api/items/{id}", handler.Get)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Post("/api/items", handler.Create)
		r.Put("/api/items/{id}", handler.Update)
		r.Delete("/api/items/{id}", handler.Delete)
	})

	return r, tc
}

func TestItemHandler_Create(t *testing.T) {
	router, tc := setupItemTestRouter(t)

	tests := []struct {
		name       string
		body       map[string]interface{}
		token      string
		wantStatus int
	}{
		{
			name: "valid item",
			body: map[string]interface{}{
				"title":          "Denim Jacket",
				"category":       "outerwear",
				"size":           "M",
				"condition":      "good",
				"purchase_price": 30.0,
				"rental_price":   4.0,
				"images":         []string{"https://example.com/a.jpg"},
			},
			token:      tc.Token,
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing title",
			body: map[string]interface{}{
				"category":  "outerwear",
				"size":      "M",
				"condition": "good",
			},
			token:      tc.Token,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "negative price",
			body: map[string]interface{}{
				"title":          "Denim Jacket",
				"category":       "outerwear",
				"size":           "M",
				"condition":      "good",
				"purchase_price": -1.0,
			},
			token:      tc.Token,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "no token",
			body: map[string]interface{}{
				"title":     "Denim Jacket",
				"category":  "outerwear",
				"size":      "M",
				"condition": "good",
			},
			token:      "",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, http.MethodPost, "/api/items", tt.body, tt.token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			testutil.AssertStatus(t, rr, tt.wantStatus)

			if tt.wantStatus == http.StatusCreated {
				var resp handlers.ItemResponse
				testutil.ParseJSONResponse(t, rr, &resp)
				assert.Equal(t, tc.User.ID.String(), resp.OwnerID)
				// Availability defaults to true on both channels
				assert.True(t, resp.IsAvailableForRent)
				assert.True(t, resp.IsAvailableForSale)
			}
		})
	}
}

func TestItemHandler_List(t *testing.T) {
	router, tc := setupItemTestRouter(t)

	owner := testutil.CreateTestUser(t, tc.DB)
	item := testutil.CreateTestItem(t, tc.DB, owner.ID)
	other := testutil.CreateTestItem(t, tc.DB, owner.ID)
	other.Category = "formal"
	require.NoError(t, tc.DB.Save(other).Error)

	t.Run("anonymous list omits bookmark state", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/items", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []handlers.ItemResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Len(t, resp, 2)
		assert.Nil(t, resp[0].IsBookmarked)
	})

	t.Run("category filter", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/items?category=formal", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []handlers.ItemResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Len(t, resp, 1)
		assert.Equal(t, other.ID.String(), resp[0].ID)
	})

	t.Run("owner filter", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/items?user="+owner.ID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []handlers.ItemResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Len(t, resp, 2)
	})

	t.Run("authenticated list joins bookmark state", func(t *testing.T) {
		require.NoError(t, tc.DB.Create(&models.Bookmark{UserID: tc.User.ID, ItemID: item.ID}).Error)

		req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/items", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []handlers.ItemResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Len(t, resp, 2)

		byID := make(map[string]handlers.ItemResponse)
		for _, it := range resp {
			byID[it.ID] = it
		}
		require.NotNil(t, byID[item.ID.String()].IsBookmarked)
		assert.True(t, *byID[item.ID.String()].IsBookmarked)
		require.NotNil(t, byID[other.ID.String()].IsBookmarked)
		assert.False(t, *byID[other.ID.String()].IsBookmarked)
	})

	t.Run("pagination caps limit", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/items?page=1&limit=1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []handlers.ItemResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Len(t, resp, 1)
	})
}

func TestItemHandler_Get(t *testing.T) {
	router, tc := setupItemTestRouter(t)

	item := testutil.CreateTestItem(t, tc.DB, tc.User.ID)

	t.Run("existing item", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/items/"+item.ID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp handlers.ItemResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, item.Title, resp.Title)
	})

	t.Run("absent item", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/items/"+uuid.New().String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/items/not-a-uuid", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestItemHandler_Update(t *testing.T) {
	router, tc := setupItemTestRouter(t)

	item := testutil.CreateTestItem(t, tc.DB, tc.User.ID)

	t.Run("owner partial update", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPut, "/api/items/"+item.ID.String(),
			map[string]interface{}{"rental_price": 7.5}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp handlers.ItemResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, 7.5, resp.RentalPrice)
		// Untouched fields survive
		assert.Equal(t, item.Title, resp.Title)
	})

	t.Run("foreign owner gets 403", func(t *testing.T) {
		stranger := testutil.CreateTestUser(t, tc.DB)
		strangerToken := testutil.GenerateTestToken(t, tc.JWTService, stranger)

		req := testutil.AuthenticatedRequest(t, http.MethodPut, "/api/items/"+item.ID.String(),
			map[string]interface{}{"title": "Hijacked"}, strangerToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)

		var unchanged models.ClothingItem
		require.NoError(t, tc.DB.First(&unchanged, "id = ?", item.ID).Error)
		assert.Equal(t, item.Title, unchanged.Title)
	})

	t.Run("absent item gets 404 before ownership", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPut, "/api/items/"+uuid.New().String(),
			map[string]interface{}{"title": "Ghost"}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestItemHandler_Delete(t *testing.T) {
	router, tc := setupItemTestRouter(t)

	t.Run("foreign owner gets 403", func(t *testing.T) {
		item := testutil.CreateTestItem(t, tc.DB, tc.User.ID)
		stranger := testutil.CreateTestUser(t, tc.DB)
		strangerToken := testutil.GenerateTestToken(t, tc.JWTService, stranger)

		req := testutil.AuthenticatedRequest(t, http.MethodDelete, "/api/items/"+item.ID.String(), nil, strangerToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("active transaction blocks deletion", func(t *testing.T) {
		item := testutil.CreateTestItem(t, tc.DB, tc.User.ID)
		buyer := testutil.CreateTestUser(t, tc.DB)
		testutil.CreateTestTransaction(t, tc.DB, item.ID, buyer.ID, tc.User.ID, models.TransactionStatusPending)

		req := testutil.AuthenticatedRequest(t, http.MethodDelete, "/api/items/"+item.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)

		var count int64
		tc.DB.Model(&models.ClothingItem{}).Where("id = ?", item.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("completed transaction does not block", func(t *testing.T) {
		item := testutil.CreateTestItem(t, tc.DB, tc.User.ID)
		buyer := testutil.CreateTestUser(t, tc.DB)
		testutil.CreateTestTransaction(t, tc.DB, item.ID, buyer.ID, tc.User.ID, models.TransactionStatusCompleted)

		req := testutil.AuthenticatedRequest(t, http.MethodDelete, "/api/items/"+item.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var count int64
		tc.DB.Model(&models.ClothingItem{}).Where("id = ?", item.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("absent item gets 404", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodDelete, "/api/items/"+uuid.New().String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
