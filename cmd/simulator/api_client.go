package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field string `json:"field"`
		Error string `json:"error"`
	} `json:"errors"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type Role struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Permissions map[string]bool `json:"permissions"`
}

type User struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	IsLoggedIn    bool   `json:"is_logged_in"`
	IsActive      bool   `json:"is_active"`
	IsDeactivated bool   `json:"is_deactivated"`
	Role          string `json:"role"`
	LastSeen      string `json:"last_seen"`
}

type page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

// Login authenticates and returns the access token
func (c *APIClient) Login(email, password string) (string, error) {
	var token Token
	body := map[string]string{"email": email, "password": password}
	if err := c.do(http.MethodPost, "/auth/login", body, "", http.StatusOK, &token); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return token.AccessToken, nil
}

func (c *APIClient) Logout(token string) error {
	return c.do(http.MethodPost, "/auth/logout", nil, token, http.StatusOK, nil)
}

// RoleBySlug looks the role up in the first page of roles
func (c *APIClient) RoleBySlug(token, slug string) (*Role, error) {
	var roles page[Role]
	if err := c.do(http.MethodGet, "/roles?limit=100", nil, token, http.StatusOK, &roles); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	for _, r := range roles.Items {
		if r.Slug == slug {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("role %q not found", slug)
}

// CreateUser adds an active account; the generated password is mailed to it
func (c *APIClient) CreateUser(token, name, email, roleID string) (*User, error) {
	var user User
	body := map[string]string{"name": name, "email": email, "role_id": roleID}
	if err := c.do(http.MethodPost, "/users/store", body, token, http.StatusCreated, &user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (c *APIClient) ListUsers(token string, pageNum, limit int) ([]User, int64, error) {
	var users page[User]
	path := fmt.Sprintf("/users?page=%d&limit=%d", pageNum, limit)
	if err := c.do(http.MethodGet, path, nil, token, http.StatusOK, &users); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users.Items, users.Total, nil
}

// Transition calls one of the user state endpoints: deactivate or reactivate
func (c *APIClient) Transition(token, action, userID string) (*User, error) {
	var user User
	if err := c.do(http.MethodPut, "/users/"+action+"/"+userID, nil, token, http.StatusOK, &user); err != nil {
		return nil, fmt.Errorf("%s user: %w", action, err)
	}
	return &user, nil
}

func (c *APIClient) UpdateRole(token, userID, roleID string) (*User, error) {
	var user User
	body := map[string]string{"role_id": roleID}
	if err := c.do(http.MethodPut, "/users/role/update/"+userID, body, token, http.StatusOK, &user); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return &user, nil
}

func (c *APIClient) DeleteUser(token, userID string) error {
	if err := c.do(http.MethodDelete, "/users/delete/"+userID, nil, token, http.StatusOK, nil); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// PresenceURL returns the websocket URL of the presence feed
func (c *APIClient) PresenceURL(token string) string {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http")
	return wsURL + "/ws/presence?token=" + url.QueryEscape(token)
}

// do sends a JSON request and decodes the envelope's data into out
func (c *APIClient) do(method, path string, body interface{}, token string, want int, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != want {
		msg := env.Message
		for _, fe := range env.Errors {
			msg += fmt.Sprintf("; %s: %s", fe.Field, fe.Error)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
