// Package memory implements the repository contracts in process memory. It
// backs DATABASE_DRIVER=memory and the service and HTTP tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the shared state behind the user, role and password-reset
// repositories. Every multi-step mutation holds the write lock for its whole
// duration, which gives it the same all-or-nothing behaviour as a transaction.
type Store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]*domain.User
	roles     map[uuid.UUID]*domain.Role
	userRoles map[uuid.UUID][]uuid.UUID
	resets    map[string]*domain.PasswordReset
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:     make(map[uuid.UUID]*domain.User),
		roles:     make(map[uuid.UUID]*domain.Role),
		userRoles: make(map[uuid.UUID][]uuid.UUID),
		resets:    make(map[string]*domain.PasswordReset),
		now:       time.Now,
	}
}

// NewRepositories returns a repository set backed by a fresh Store and an
// in-memory token blacklist.
func NewRepositories() *repository.Repositories {
	s := NewStore()
	return &repository.Repositories{
		User:          &userRepository{s: s},
		Role:          &roleRepository{s: s},
		PasswordReset: &passwordResetRepository{s: s},
		Blacklist:     NewTokenBlacklist(),
	}
}

// withRoles returns a detached copy of u with its live roles attached.
// Callers must hold at least the read lock.
func (s *Store) withRoles(u *domain.User) *domain.User {
	out := cloneUser(u)
	out.Roles = nil
	for _, id := range s.userRoles[u.ID] {
		role, ok := s.roles[id]
		if !ok || role.DeletedAt.Valid {
			continue
		}
		out.Roles = append(out.Roles, *cloneRole(role))
	}
	sort.Slice(out.Roles, func(i, j int) bool { return out.Roles[i].Name < out.Roles[j].Name })
	return out
}

func (s *Store) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range s.users {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (s *Store) liveRole(id uuid.UUID) bool {
	role, ok := s.roles[id]
	return ok && !role.DeletedAt.Valid
}

func cloneUser(u *domain.User) *domain.User {
	out := *u
	if u.ProfileImage != nil {
		v := *u.ProfileImage
		out.ProfileImage = &v
	}
	if u.ActivationCode != nil {
		v := *u.ActivationCode
		out.ActivationCode = &v
	}
	if u.LastSeen != nil {
		v := *u.LastSeen
		out.LastSeen = &v
	}
	out.Roles = nil
	return &out
}

func cloneRole(r *domain.Role) *domain.Role {
	out := *r
	return &out
}

func softDeleted(at time.Time) gorm.DeletedAt {
	return gorm.DeletedAt{Time: at, Valid: true}
}

func page[T any](items []T, opts repository.ListOptions) []T {
	if opts.PerPage <= 0 {
		return items
	}
	start := opts.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + opts.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
