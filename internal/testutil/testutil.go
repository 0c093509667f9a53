package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/account-api/internal/api"
	"github.com/dom/account-api/internal/config"
	"github.com/dom/account-api/internal/repository"
	"github.com/dom/account-api/internal/repository/memory"
	repoPostgres "github.com/dom/account-api/internal/repository/postgres"
	"github.com/dom/account-api/internal/service"
	"github.com/dom/account-api/internal/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_accounts"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"role_user",
		"password_resets",
		"users",
		"roles",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:             "0", // Random port
		Environment:      "test",
		AppName:          "Account Service",
		AppURL:           "http://localhost:3000",
		DatabaseDriver:   "memory",
		JWTSecret:        "test-jwt-secret-key-for-testing-only",
		JWTTTL:           60 * time.Minute,
		JWTRefreshTTL:    20160 * time.Minute,
		BcryptCost:       bcrypt.MinCost, // Fast hashing for tests
		PasswordResetTTL: 60 * time.Minute,
		DefaultRoleSlug:  "subscriber",
		SingleRolePolicy: true,
		AdminEmail:       "admin@admin.com",
		AdminPassword:    "password",
		MailQueue:        "mail.test",
	}
}

// NewMemoryRepositories returns seeded in-memory repositories.
func NewMemoryRepositories(t *testing.T, cfg *config.Config) *repository.Repositories {
	t.Helper()

	repos := memory.NewRepositories()
	if err := service.Seed(context.Background(), repos, cfg); err != nil {
		t.Fatalf("failed to seed repositories: %v", err)
	}
	return repos
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *websocket.Hub
	Mail     *MailRecorder
	Config   *config.Config
}

// NewTestServer creates a complete test server backed by the seeded in-memory store
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	cfg := TestConfig()
	repos := NewMemoryRepositories(t, cfg)
	mailer := NewMailRecorder()

	hub := websocket.NewHub()
	go hub.Run()

	services := service.NewServices(repos, cfg, mailer, hub)
	router := api.NewRouter(services, hub, cfg, nil)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		Repos:    repos,
		Services: services,
		Hub:      hub,
		Mail:     mailer,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the presence feed URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/ws/presence?token=%s", wsURL, token)
}
