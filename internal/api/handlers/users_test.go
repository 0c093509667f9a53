package handlers_test

import (
	"net/http"
	"testing"

	"github.com/dom/account-api/internal/api/handlers"
	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/mail"
	"github.com/dom/account-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersAPI_RequiresAdmin(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	resp := testutil.Do(t, http.MethodGet, ts.APIURL("/users"), nil, token)
	defer resp.Body.Close()
	testutil.AssertErrorResponse(t, resp, http.StatusForbidden, "Forbidden")

	resp = testutil.Do(t, http.MethodGet, ts.APIURL("/users"), nil, "")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
}

func TestUsersAPI_List(t *testing.T) {
	ts := testutil.NewTestServer(t)
	admin := testutil.AdminToken(t, ts)

	testutil.NewUserBuilder().Build(t, ts.Repos)
	testutil.NewUserBuilder().Deactivated().Build(t, ts.Repos)

	resp := testutil.Do(t, http.MethodGet, ts.APIURL("/users?page=1&limit=2"), nil, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var env testutil.Envelope[struct {
		Items   []handlers.UserResponse `json:"items"`
		Total   int64                   `json:"total"`
		Page    int                     `json:"page"`
		PerPage int                     `json:"per_page"`
	}]
	testutil.AssertJSONResponse(t, resp, &env)
	assert.Equal(t, int64(3), env.Data.Total)
	assert.Len(t, env.Data.Items, 2)
	assert.Equal(t, 2, env.Data.PerPage)
}

func TestUsersAPI_StoreShowUpdate(t *testing.T) {
	ts := testutil.NewTestServer(t)
	admin := testutil.AdminToken(t, ts)

	role, err := ts.Repos.Role.GetBySlug(t.Context(), domain.RoleSubscriber)
	require.NoError(t, err)

	resp := testutil.Do(t, http.MethodPost, ts.APIURL("/users/store"), map[string]string{
		"name":    "erin",
		"email":   "erin@example.com",
		"role_id": role.ID.String(),
	}, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var created testutil.Envelope[handlers.UserResponse]
	testutil.AssertJSONResponse(t, resp, &created)
	assert.True(t, created.Data.IsActive)

	msg, ok := ts.Mail.Last("erin@example.com", mail.TemplateCredentials)
	require.True(t, ok)
	testutil.Login(t, ts, "erin@example.com", msg.Data["password"])

	resp = testutil.Do(t, http.MethodGet, ts.APIURL("/users/show/"+created.Data.ID), nil, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	resp = testutil.Do(t, http.MethodPut, ts.APIURL("/users/update/"+created.Data.ID), map[string]string{
		"name":  "Erin Example",
		"email": "erin.example@example.com",
	}, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var updated testutil.Envelope[handlers.UserResponse]
	testutil.AssertJSONResponse(t, resp, &updated)
	assert.Equal(t, "erin.example@example.com", updated.Data.Email)
}

func TestUsersAPI_ShowNotFound(t *testing.T) {
	ts := testutil.NewTestServer(t)
	admin := testutil.AdminToken(t, ts)

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		resp := testutil.Do(t, http.MethodGet, ts.APIURL("/users/show/"+id), nil, admin)
		testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "user not found")
		resp.Body.Close()
	}
}

func TestUsersAPI_UpdateRole(t *testing.T) {
	ts := testutil.NewTestServer(t)
	admin := testutil.AdminToken(t, ts)
	user, _ := testutil.NewUserBuilder().Build(t, ts.Repos)
	editor := testutil.CreateRole(t, ts.Repos, "Editor", domain.Permissions{"editor-access": true})

	resp := testutil.Do(t, http.MethodPut, ts.APIURL("/users/role/update/"+user.ID.String()), map[string]string{
		"role_id": editor.ID.String(),
	}, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var env testutil.Envelope[handlers.UserResponse]
	testutil.AssertJSONResponse(t, resp, &env)
	require.Len(t, env.Data.Roles, 1)
	assert.Equal(t, "editor", env.Data.Roles[0].Slug)
	assert.Equal(t, "Editor", env.Data.Role)

	resp = testutil.Do(t, http.MethodPut, ts.APIURL("/users/role/update/"+user.ID.String()), map[string]string{
		"role_id": uuid.NewString(),
	}, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
}

func TestUsersAPI_DeactivateReactivateDelete(t *testing.T) {
	ts := testutil.NewTestServer(t)
	admin := testutil.AdminToken(t, ts)
	user, password := testutil.NewUserBuilder().Build(t, ts.Repos)
	id := user.ID.String()

	resp := testutil.Do(t, http.MethodPut, ts.APIURL("/users/deactivate/"+id), nil, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var env testutil.Envelope[handlers.UserResponse]
	testutil.AssertJSONResponse(t, resp, &env)
	assert.True(t, env.Data.IsDeactivated)

	resp = testutil.Do(t, http.MethodPost, ts.APIURL("/auth/login"), map[string]string{"email": user.Email, "password": password}, "")
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)

	resp = testutil.Do(t, http.MethodPut, ts.APIURL("/users/deactivate/"+id), nil, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusConflict)

	resp = testutil.Do(t, http.MethodPut, ts.APIURL("/users/reactivate/"+id), nil, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	testutil.Login(t, ts, user.Email, password)

	resp = testutil.Do(t, http.MethodDelete, ts.APIURL("/users/delete/"+id), nil, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	resp = testutil.Do(t, http.MethodGet, ts.APIURL("/users/show/"+id), nil, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
}
