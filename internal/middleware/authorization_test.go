package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shop-api/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newProtectedRouter() http.Handler {
	logger := zap.NewNop()
	r := chi.NewRouter()
	r.Use(AuthMiddleware(testSecret, logger))
	r.With(RequireAdmin(logger)).Get("/admin/members", okHandler().ServeHTTP)
	r.With(RequireSelfOrAdmin("memberID", logger)).Get("/member/{memberID}/orders", okHandler().ServeHTTP)
	return r
}

func TestRequireAdmin(t *testing.T) {
	router := newProtectedRouter()

	cases := []struct {
		role string
		want int
	}{
		{domain.RoleAdmin, http.StatusOK},
		{domain.RoleMember, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/admin/members", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, 7, tc.role, time.Hour))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, tc.role)
	}
}

func TestRequireSelfOrAdmin(t *testing.T) {
	router := newProtectedRouter()

	cases := []struct {
		name   string
		userID int64
		role   string
		path   string
		want   int
	}{
		{"own orders", 7, domain.RoleMember, "/member/7/orders", http.StatusOK},
		{"other member", 7, domain.RoleMember, "/member/8/orders", http.StatusForbidden},
		{"admin", 1, domain.RoleAdmin, "/member/8/orders", http.StatusOK},
		{"bad id", 7, domain.RoleMember, "/member/abc/orders", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, tc.userID, tc.role, time.Hour))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRequireRoleWithoutAuthIsForbidden(t *testing.T) {
	handler := RequireRole([]string{domain.RoleMember}, zap.NewNop())(okHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/order", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
