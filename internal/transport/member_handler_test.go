package transport

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"shop-api/internal/domain"
	"shop-api/internal/middleware"
	"shop-api/internal/service"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForMapsErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrInsufficientStock, http.StatusUnprocessableEntity},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrTokenExpired, http.StatusUnauthorized},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
		{fmt.Errorf("%w: member 7", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", service.ErrConflict), http.StatusConflict},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestProperty_InvalidSignupDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("signup with invalid data returns a structured 400", prop.ForAll(
		func(invalidCase int) bool {
			api := newTestAPI()
			called := false
			api.members.signup = func(service.SignupInput) (*domain.Member, error) {
				called = true
				return &domain.Member{ID: 1}, nil
			}

			var body SignupRequest
			switch invalidCase % 4 {
			case 0:
				body = SignupRequest{Name: "Kim", Password: "password1"}
			case 1:
				body = SignupRequest{Name: "Kim", Email: "not-an-email", Password: "password1"}
			case 2:
				body = SignupRequest{Name: "Kim", Email: "kim@example.com", Password: "short"}
			case 3:
				body = SignupRequest{Email: "kim@example.com", Password: "password1"}
			}

			w := api.do(t, http.MethodPost, "/member/signup", "", body)
			if w.Code != http.StatusBadRequest || called {
				t.Logf("FAIL: expected 400 without calling the service, got %d", w.Code)
				return false
			}

			var response middleware.ErrorResponse
			decodeBody(t, w, &response)
			_, hasDetails := response.Error.Details["validation_errors"]
			return hasDetails
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSignupAndAlias(t *testing.T) {
	api := newTestAPI()
	seen := map[string]bool{}
	api.members.signup = func(in service.SignupInput) (*domain.Member, error) {
		if seen[in.Email] {
			return nil, fmt.Errorf("%w: member exists", service.ErrConflict)
		}
		seen[in.Email] = true
		return &domain.Member{ID: int64(len(seen)), Name: in.Name, Email: in.Email, PasswordHash: "hash", Zip: in.Zip}, nil
	}

	body := SignupRequest{Name: "Kim", Email: "kim@example.com", Password: "password1", Zip: "04524"}
	w := api.do(t, http.MethodPost, "/member/signup", "", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var member map[string]interface{}
	decodeBody(t, w, &member)
	assert.Equal(t, "kim@example.com", member["email"])
	assert.Equal(t, "04524", member["zip"])
	assert.NotContains(t, member, "password_hash")
	assert.NotContains(t, member, "PasswordHash")

	w = api.do(t, http.MethodPost, "/member/create", "", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin(t *testing.T) {
	api := newTestAPI()
	api.members.login = func(email, password string) (*service.LoginResult, error) {
		if password != "password1" {
			return nil, service.ErrInvalidCredentials
		}
		return &service.LoginResult{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", ExpiresIn: 1800, Role: domain.RoleMember, UserID: 3}, nil
	}

	w := api.do(t, http.MethodPost, "/member/login", "", LoginRequest{Email: "kim@example.com", Password: "password1"})
	require.Equal(t, http.StatusOK, w.Code)
	var result service.LoginResult
	decodeBody(t, w, &result)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, int64(3), result.UserID)

	w = api.do(t, http.MethodPost, "/member/login", "", LoginRequest{Email: "kim@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/member/refresh", "", RefreshRequest{RefreshToken: "r"})
	require.Equal(t, http.StatusOK, w.Code)
	var refreshed RefreshResponse
	decodeBody(t, w, &refreshed)
	assert.Equal(t, "new-access-token", refreshed.AccessToken)
}

func TestMeResolvesPrincipal(t *testing.T) {
	api := newTestAPI()
	api.members.currentUser = func(claims *domain.Claims) (*service.Principal, error) {
		return &service.Principal{ID: claims.UserID, Email: claims.Subject, Role: claims.Role}, nil
	}

	w := api.do(t, http.MethodGet, "/member/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodGet, "/member/me", bearer(t, 5, domain.RoleMember), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var principal service.Principal
	decodeBody(t, w, &principal)
	assert.Equal(t, int64(5), principal.ID)
	assert.Equal(t, "kim@example.com", principal.Email)
}

func TestMemberAdministrationRequiresAdmin(t *testing.T) {
	api := newTestAPI()
	api.members.list = func() ([]*domain.Member, error) { return nil, nil }
	api.members.del = func(id int64) (*domain.Member, error) {
		return nil, fmt.Errorf("%w: member %d", service.ErrNotFound, id)
	}

	w := api.do(t, http.MethodGet, "/member/show/all", bearer(t, 5, domain.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodGet, "/member/show/all", bearer(t, 1, domain.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = api.do(t, http.MethodDelete, "/member/delete/99", bearer(t, 99, domain.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodDelete, "/member/delete/99", bearer(t, 1, domain.RoleAdmin), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateMemberPassesOnlyPresentFields(t *testing.T) {
	api := newTestAPI()
	var got domain.MemberUpdate
	api.members.update = func(id int64, update domain.MemberUpdate) (*domain.Member, error) {
		got = update
		return &domain.Member{ID: id, Name: *update.Name}, nil
	}

	w := api.do(t, http.MethodPatch, "/member/update/5", bearer(t, 5, domain.RoleMember), map[string]string{"name": "Lee"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Lee", *got.Name)
	assert.Nil(t, got.Password)
	assert.Nil(t, got.Zip)

	w = api.do(t, http.MethodPatch, "/member/update/6", bearer(t, 5, domain.RoleMember), map[string]string{"name": "Lee"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPatch, "/member/update/5", bearer(t, 5, domain.RoleMember), map[string]string{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMemberFieldsAreBoundedByColumnWidths(t *testing.T) {
	api := newTestAPI()
	var signups int
	api.members.signup = func(in service.SignupInput) (*domain.Member, error) {
		signups++
		return &domain.Member{ID: 1, Name: in.Name, Email: in.Email}, nil
	}
	api.members.update = func(id int64, update domain.MemberUpdate) (*domain.Member, error) {
		return &domain.Member{ID: id}, nil
	}
	valid := SignupRequest{Name: "Kim", Email: "kim@example.com", Password: "password1"}

	oversized := []SignupRequest{
		{Name: strings.Repeat("k", 51), Email: valid.Email, Password: valid.Password},
		{Name: valid.Name, Email: "kim@" + strings.Repeat("a", 50) + "." + strings.Repeat("b", 50) + ".com", Password: valid.Password},
		{Name: valid.Name, Email: valid.Email, Password: strings.Repeat("p", 73)},
		{Name: valid.Name, Email: valid.Email, Password: valid.Password, Addr1: strings.Repeat("a", 101)},
	}
	for _, body := range oversized {
		w := api.do(t, http.MethodPost, "/member/signup", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	assert.Zero(t, signups)

	w := api.do(t, http.MethodPatch, "/member/update/5", bearer(t, 5, domain.RoleMember), map[string]string{"password": strings.Repeat("p", 73)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/member/signup", "", SignupRequest{Name: strings.Repeat("k", 50), Email: valid.Email, Password: strings.Repeat("p", 72)})
	assert.Equal(t, http.StatusCreated, w.Code)
}
