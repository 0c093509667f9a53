package handlers

import (
	"net/http"

	"github.com/dom/account-api/internal/api/middleware"
	"github.com/dom/account-api/internal/api/response"
	"github.com/dom/account-api/internal/service"
	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	accounts *service.AccountService
}

func NewAuthHandler(accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type ResetLinkRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		response.Error(w, "handlers.AuthHandler.Register", err)
		return
	}

	response.Success(w, http.StatusCreated, "Registration successful. Check your email to activate your account", NewUserResponse(user))
}

func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Activate(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		response.Error(w, "handlers.AuthHandler.Activate", err)
		return
	}

	response.Success(w, http.StatusOK, "Account activated successfully", NewUserResponse(user))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		response.Error(w, "handlers.AuthHandler.Login", err)
		return
	}

	response.Success(w, http.StatusOK, "Login successful", token)
}

// Refresh accepts a bearer token whose TTL has elapsed as long as it is still
// inside the refresh window.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw, err := middleware.BearerToken(r)
	if err != nil {
		response.Error(w, "handlers.AuthHandler.Refresh", err)
		return
	}

	token, err := h.accounts.Refresh(r.Context(), raw)
	if err != nil {
		response.Error(w, "handlers.AuthHandler.Refresh", err)
		return
	}

	response.Success(w, http.StatusOK, "Token refreshed", token)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, "handlers.AuthHandler.Me", service.ErrTokenMissing)
		return
	}

	user, err := h.accounts.GetProfile(r.Context(), userID)
	if err != nil {
		response.Error(w, "handlers.AuthHandler.Me", err)
		return
	}

	response.Success(w, http.StatusOK, "", NewUserResponse(user))
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, "handlers.AuthHandler.UpdateProfile", service.ErrTokenMissing)
		return
	}

	var req service.UpdateProfileInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		response.Error(w, "handlers.AuthHandler.UpdateProfile", err)
		return
	}

	response.Success(w, http.StatusOK, "Profile updated successfully", NewUserResponse(user))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, "handlers.AuthHandler.ChangePassword", service.ErrTokenMissing)
		return
	}

	var req service.ChangePasswordInput
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), userID, req); err != nil {
		response.Error(w, "handlers.AuthHandler.ChangePassword", err)
		return
	}

	response.Success(w, http.StatusOK, "Password updated successfully", nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	token, hasToken := middleware.GetToken(r.Context())
	if !ok || !hasToken {
		response.Error(w, "handlers.AuthHandler.Logout", service.ErrTokenMissing)
		return
	}

	if err := h.accounts.Logout(r.Context(), userID, token); err != nil {
		response.Error(w, "handlers.AuthHandler.Logout", err)
		return
	}

	response.Success(w, http.StatusOK, "Successfully logged out", nil)
}

func (h *AuthHandler) SendResetLink(w http.ResponseWriter, r *http.Request) {
	var req ResetLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		response.Error(w, "handlers.AuthHandler.SendResetLink", err)
		return
	}

	response.Success(w, http.StatusOK, "We have emailed your password reset link", nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ResetPasswordInput
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), req); err != nil {
		response.Error(w, "handlers.AuthHandler.ResetPassword", err)
		return
	}

	response.Success(w, http.StatusOK, "Your password has been reset", nil)
}
