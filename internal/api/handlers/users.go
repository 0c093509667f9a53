package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dom/account-api/internal/api/response"
	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/service"
	"github.com/google/uuid"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type UpdateRoleRequest struct {
	RoleID string `json:"role_id"`
}

// pagination reads ?page= and ?limit=. Out of range values fall back to the
// service defaults.
func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	result, err := h.users.List(r.Context(), page, limit)
	if err != nil {
		response.Error(w, "handlers.UserHandler.List", err)
		return
	}

	items := make([]UserResponse, 0, len(result.Items))
	for _, u := range result.Items {
		items = append(items, NewUserResponse(u))
	}
	response.Success(w, http.StatusOK, "", PageResponse{
		Items:   items,
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.PerPage,
	})
}

func (h *UserHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Create(r.Context(), req)
	if err != nil {
		response.Error(w, "handlers.UserHandler.Store", err)
		return
	}

	response.Success(w, http.StatusCreated, "User created successfully. Login details have been sent to the user's email", NewUserResponse(user))
}

func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.ErrUserNotFound)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		response.Error(w, "handlers.UserHandler.Show", err)
		return
	}

	response.Success(w, http.StatusOK, "", NewUserResponse(user))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.ErrUserNotFound)
	if !ok {
		return
	}

	var req service.UpdateUserInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Update(r.Context(), id, req)
	if err != nil {
		response.Error(w, "handlers.UserHandler.Update", err)
		return
	}

	response.Success(w, http.StatusOK, "User updated successfully", NewUserResponse(user))
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.ErrUserNotFound)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	roleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		response.Error(w, "handlers.UserHandler.UpdateRole", service.ErrRoleNotFound)
		return
	}

	user, err := h.users.UpdateRole(r.Context(), id, roleID)
	if err != nil {
		response.Error(w, "handlers.UserHandler.UpdateRole", err)
		return
	}

	response.Success(w, http.StatusOK, "User role updated successfully", NewUserResponse(user))
}

func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "handlers.UserHandler.Deactivate", h.users.Deactivate, "User deactivated successfully")
}

func (h *UserHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "handlers.UserHandler.Reactivate", h.users.Reactivate, "User reactivated successfully")
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.ErrUserNotFound)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		response.Error(w, "handlers.UserHandler.Delete", err)
		return
	}

	response.Success(w, http.StatusOK, "User deleted permanently", nil)
}

type transitionFunc func(ctx context.Context, id uuid.UUID) (*domain.User, error)

func (h *UserHandler) transition(w http.ResponseWriter, r *http.Request, op string, fn transitionFunc, message string) {
	id, ok := pathID(w, r, service.ErrUserNotFound)
	if !ok {
		return
	}

	user, err := fn(r.Context(), id)
	if err != nil {
		response.Error(w, op, err)
		return
	}

	response.Success(w, http.StatusOK, message, NewUserResponse(user))
}
