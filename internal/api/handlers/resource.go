package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dom/account-api/internal/api/response"
	"github.com/dom/account-api/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02 15:04:05"

type RoleResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Permissions domain.Permissions `json:"permissions"`
	DateAdded   string             `json:"date_added"`
}

type UserResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	IsLoggedIn    bool           `json:"is_logged_in"`
	IsActive      bool           `json:"is_active"`
	IsDeactivated bool           `json:"is_deactivated"`
	Image         *string        `json:"image"`
	Role          string         `json:"role"`
	Roles         []RoleResponse `json:"roles"`
	DateAdded     string         `json:"date_added"`
	LastSeen      string         `json:"last_seen"`
}

type PageResponse struct {
	Items   interface{} `json:"items"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

func NewRoleResponse(role *domain.Role) RoleResponse {
	return RoleResponse{
		ID:          role.ID.String(),
		Name:        role.Name,
		Slug:        role.Slug,
		Permissions: role.PermissionMap(),
		DateAdded:   formatDate(role.CreatedAt),
	}
}

func NewUserResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:            user.ID.String(),
		Name:          user.Name,
		Email:         user.Email,
		IsLoggedIn:    user.IsLoggedIn,
		IsActive:      user.State() == domain.StateActive,
		IsDeactivated: user.State() == domain.StateDeactivated,
		Image:         user.ProfileImage,
		Roles:         make([]RoleResponse, 0, len(user.Roles)),
		DateAdded:     formatDate(user.CreatedAt),
		LastSeen:      "Never",
	}
	if role := user.PrimaryRole(); role != nil {
		resp.Role = role.Name
	}
	for i := range user.Roles {
		resp.Roles = append(resp.Roles, NewRoleResponse(&user.Roles[i]))
	}
	if user.LastSeen != nil {
		resp.LastSeen = formatDate(*user.LastSeen)
	}
	return resp
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// decodeJSON reads the request body into v and writes a 400 when it is not
// valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pathID parses the {id} URL parameter, writing notFound when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, "handlers.pathID", notFound)
		return uuid.Nil, false
	}
	return id, true
}
