package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/toga/internal/api/dto"
	"github.com/hugh/toga/internal/api/handlers"
	"github.com/hugh/toga/internal/api/middleware"
	"github.com/hugh/toga/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	handler := handlers.NewUserHandler(tc.DB)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Get("/api/users/profile", handler.GetProfile)
		r.Put("/api/users/profile", handler.UpdateProfile)
	})

	return r, tc
}

func TestUserHandler_GetProfile(t *testing.T) {
	router, tc := setupUserTestRouter(t)

	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/users/profile", nil, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp dto.UserDTO
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, tc.User.Email, resp.Email)
	assert.Equal(t, tc.User.Username, resp.Username)

	// The password hash never leaves the server
	var raw map[string]json.RawMessage
	testutil.ParseJSONResponse(t, rr, &raw)
	_, leaked := raw["password_hash"]
	assert.False(t, leaked)
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	router, tc := setupUserTestRouter(t)

	t.Run("partial update", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPut, "/api/users/profile",
			map[string]interface{}{"full_name": "Alice Q. Smith"}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Alice Q. Smith", resp.FullName)
		// Untouched fields survive
		assert.Equal(t, tc.User.Username, resp.Username)
	})

	t.Run("empty body changes nothing", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, http.MethodPut, "/api/users/profile",
			map[string]interface{}{}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Alice Q. Smith", resp.FullName)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/users/profile", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
