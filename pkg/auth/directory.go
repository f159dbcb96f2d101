package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"jailroster/pkg/domain"
)

var (
	// ErrInvalidCredentials is returned for unknown usernames and wrong
	// passwords alike so callers cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrCurrentPassword    = errors.New("current password is incorrect")
)

// Directory is the static user directory. Entries are provisioned at
// startup; only password hashes mutate afterwards.
type Directory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewDirectory builds a directory from provisioned users. Usernames are
// normalized to trimmed lower case.
func NewDirectory(users []domain.User) *Directory {
	d := &Directory{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		u.Username = normalizeUsername(u.Username)
		if u.Username == "" {
			continue
		}
		d.users[u.Username] = u
	}
	return d
}

// SeedDefaults provisions the three stock accounts used when no users
// are configured. Passwords follow the legacy deployment and should be
// rotated through change-password on first login.
func SeedDefaults() (*Directory, error) {
	seed := []struct {
		username string
		password string
		role     domain.Role
		name     string
	}{
		{"admin", "admin123", domain.RoleAdministrator, "System Administrator"},
		{"supervisor", "supervisor123", domain.RoleSupervisor, "Jail Supervisor"},
		{"officer", "officer123", domain.RoleOfficer, "Corrections Officer"},
	}
	users := make([]domain.User, 0, len(seed))
	for _, s := range seed {
		hash, err := HashPassword(s.password)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", s.username, err)
		}
		users = append(users, domain.User{
			Username:     s.username,
			PasswordHash: hash,
			Role:         s.role,
			Name:         s.name,
		})
	}
	return NewDirectory(users), nil
}

// Authenticate validates credentials. The error never reveals whether
// the username existed.
func (d *Directory) Authenticate(username, password string) (domain.User, error) {
	username = normalizeUsername(username)
	d.mu.RLock()
	user, ok := d.users[username]
	d.mu.RUnlock()
	if !ok || !CheckPassword(password, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Lookup returns a directory entry by username.
func (d *Directory) Lookup(username string) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[normalizeUsername(username)]
	return user, ok
}

// ChangePassword re-verifies the current password and replaces the
// stored hash. Role and name never change here.
func (d *Directory) ChangePassword(username, current, next string) error {
	if err := ValidatePassword(next); err != nil {
		return err
	}
	username = normalizeUsername(username)
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[username]
	if !ok || !CheckPassword(current, user.PasswordHash) {
		return ErrCurrentPassword
	}
	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	d.users[username] = user
	return nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
