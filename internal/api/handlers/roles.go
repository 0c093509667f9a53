package handlers

import (
	"net/http"

	"github.com/dom/account-api/internal/api/response"
	"github.com/dom/account-api/internal/service"
)

type RoleHandler struct {
	roles *service.RoleService
}

func NewRoleHandler(roles *service.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	result, err := h.roles.List(r.Context(), page, limit)
	if err != nil {
		response.Error(w, "handlers.RoleHandler.List", err)
		return
	}

	items := make([]RoleResponse, 0, len(result.Items))
	for _, role := range result.Items {
		items = append(items, NewRoleResponse(role))
	}
	response.Success(w, http.StatusOK, "", PageResponse{
		Items:   items,
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.PerPage,
	})
}

func (h *RoleHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req service.RoleInput
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.roles.Create(r.Context(), req)
	if err != nil {
		response.Error(w, "handlers.RoleHandler.Store", err)
		return
	}

	response.Success(w, http.StatusCreated, "Role created successfully", NewRoleResponse(role))
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.ErrRoleNotFound)
	if !ok {
		return
	}

	var req service.RoleInput
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.roles.Update(r.Context(), id, req)
	if err != nil {
		response.Error(w, "handlers.RoleHandler.Update", err)
		return
	}

	response.Success(w, http.StatusOK, "Role updated successfully", NewRoleResponse(role))
}

func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, service.ErrRoleNotFound)
	if !ok {
		return
	}

	if err := h.roles.Delete(r.Context(), id); err != nil {
		response.Error(w, "handlers.RoleHandler.Delete", err)
		return
	}

	response.Success(w, http.StatusOK, "Role deleted successfully", nil)
}
