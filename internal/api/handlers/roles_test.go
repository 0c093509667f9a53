package handlers_test

import (
	"net/http"
	"testing"

	"github.com/dom/account-api/internal/api/handlers"
	"github.com/dom/account-api/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRolesAPI(t *testing.T) {
	ts := testutil.NewTestServer(t)
	admin := testutil.AdminToken(t, ts)

	resp := testutil.Do(t, http.MethodPost, ts.APIURL("/roles/store"), map[string]interface{}{
		"name": "Support Agent",
	}, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var created testutil.Envelope[handlers.RoleResponse]
	testutil.AssertJSONResponse(t, resp, &created)
	assert.Equal(t, "support_agent", created.Data.Slug)
	assert.Equal(t, map[string]bool{"support_agent-access": true}, map[string]bool(created.Data.Permissions))

	resp = testutil.Do(t, http.MethodPost, ts.APIURL("/roles/store"), map[string]interface{}{
		"name": "support agent",
	}, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusConflict)

	resp = testutil.Do(t, http.MethodPut, ts.APIURL("/roles/update/"+created.Data.ID), map[string]interface{}{
		"name":        "Support Lead",
		"permissions": map[string]bool{"support-access": true, "refunds": true},
	}, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var updated testutil.Envelope[handlers.RoleResponse]
	testutil.AssertJSONResponse(t, resp, &updated)
	assert.Equal(t, "support_lead", updated.Data.Slug)
	assert.True(t, updated.Data.Permissions["refunds"])

	resp = testutil.Do(t, http.MethodGet, ts.APIURL("/roles"), nil, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var list testutil.Envelope[struct {
		Total int64 `json:"total"`
	}]
	testutil.AssertJSONResponse(t, resp, &list)
	assert.Equal(t, int64(3), list.Data.Total)

	resp = testutil.Do(t, http.MethodDelete, ts.APIURL("/roles/delete/"+created.Data.ID), nil, admin)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	resp = testutil.Do(t, http.MethodDelete, ts.APIURL("/roles/delete/"+created.Data.ID), nil, admin)
	defer resp.Body.Close()
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "role not found")
}

func TestRolesAPI_Validation(t *testing.T) {
	ts := testutil.NewTestServer(t)
	admin := testutil.AdminToken(t, ts)

	resp := testutil.Do(t, http.MethodPost, ts.APIURL("/roles/store"), map[string]interface{}{}, admin)
	defer resp.Body.Close()
	testutil.AssertFieldError(t, resp, "name")
}
