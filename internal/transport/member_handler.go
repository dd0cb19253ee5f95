package transport

import (
	"net/http"

	"shop-api/internal/domain"
	"shop-api/internal/middleware"
	"shop-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SignupRequest represents the member signup payload
type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Zip      string `json:"zip" validate:"max=20"`
	Addr1    string `json:"addr1" validate:"max=100"`
	Addr2    string `json:"addr2" validate:"max=100"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh and logout payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UpdateMemberRequest is a partial update; absent fields are left untouched
type UpdateMemberRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=50"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Zip      *string `json:"zip" validate:"omitempty,max=20"`
	Addr1    *string `json:"addr1" validate:"omitempty,max=100"`
	Addr2    *string `json:"addr2" validate:"omitempty,max=100"`
}

// MemberHandler handles HTTP requests for member accounts
type MemberHandler struct {
	memberService service.MemberService
	logger        *zap.Logger
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(memberService service.MemberService, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
		logger:        logger,
	}
}

// RegisterRoutes registers all member routes. loginLimiter may be nil.
func (h *MemberHandler) RegisterRoutes(r chi.Router, authMiddleware, loginLimiter func(http.Handler) http.Handler) {
	r.Route("/member", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/create", h.Signup)
		r.Post("/refresh", h.Refresh)
		if loginLimiter != nil {
			r.With(loginLimiter).Post("/login", h.Login)
		} else {
			r.Post("/login", h.Login)
		}

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)

			r.With(middleware.RequireSelfOrAdmin("id", h.logger)).Get("/show/{id}", h.GetMember)
			r.With(middleware.RequireSelfOrAdmin("id", h.logger)).Patch("/update/{id}", h.UpdateMember)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(h.logger))
				r.Get("/show/all", h.ListMembers)
				r.Delete("/delete/{id}", h.DeleteMember)
			})
		})
	})
}

// Signup handles member registration
func (h *MemberHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	member, err := h.memberService.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Zip:      req.Zip,
		Addr1:    req.Addr1,
		Addr2:    req.Addr2,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to register member")
		return
	}

	h.logger.Info("Member registered", zap.Int64("member_id", member.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, member)
}

// Login authenticates a member or administrator
func (h *MemberHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	result, err := h.memberService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to login")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// Refresh exchanges a refresh token for a new access token
func (h *MemberHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	accessToken, err := h.memberService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to refresh token")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{AccessToken: accessToken, TokenType: "Bearer"})
}

// Logout revokes a refresh token
func (h *MemberHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	if err := h.memberService.Logout(r.Context(), req.RefreshToken); err != nil {
		respondServiceError(w, h.logger, err, "failed to logout")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// Me returns the account behind the access token
func (h *MemberHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	principal, err := h.memberService.CurrentUser(r.Context(), claims)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get current user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, principal)
}

// ListMembers returns every member
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.memberService.ListMembers(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list members")
		return
	}
	if members == nil {
		members = []*domain.Member{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, members)
}

// GetMember returns a single member
func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	member, err := h.memberService.GetMember(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get member")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, member)
}

// UpdateMember applies a partial update to a member
func (h *MemberHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateMemberRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	member, err := h.memberService.UpdateMember(r.Context(), id, domain.MemberUpdate{
		Name:     req.Name,
		Password: req.Password,
		Zip:      req.Zip,
		Addr1:    req.Addr1,
		Addr2:    req.Addr2,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update member")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, member)
}

// DeleteMember removes a member and returns the deleted record
func (h *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	member, err := h.memberService.DeleteMember(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to delete member")
		return
	}

	h.logger.Info("Member deleted", zap.Int64("member_id", member.ID))
	middleware.RespondWithJSON(w, http.StatusOK, member)
}
