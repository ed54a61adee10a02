package guard

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is the repository-level miss. Guards translate it into the
// entity-specific error (ErrUserNotFound, ErrRoleNotFound) so API consumers
// can distinguish "not allowed" from "does not exist".
var ErrNotFound = errors.New("resource not found")

// Account is a registered identity. Email and Username are unique.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Firstname    string    `json:"firstname,omitempty"`
	Lastname     string    `json:"lastname,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Project is a collaboration space created by one account.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is a named project role. ProjectID never changes after creation.
// The name "director" carries special authorization meaning.
type Role struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountRepository is the read surface the guard layer needs over accounts.
// This is purely a data access layer - no authorization logic.
type AccountRepository interface {
	// FindByID retrieves an account by primary key
	FindByID(ctx context.Context, id string) (*Account, error)

	// FindByEmail retrieves the unique account with the given email
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// RoleRepository handles project roles and their membership sets.
// This is purely a data access layer - no authorization logic.
type RoleRepository interface {
	// FindByID retrieves a role by primary key
	FindByID(ctx context.Context, id string) (*Role, error)

	// Create creates a new role
	Create(ctx context.Context, role *Role) error

	// AddMember adds an account to a role's membership set
	AddMember(ctx context.Context, roleID, accountID string) error

	// ListByAccount returns every role the account is a member of,
	// across all projects
	ListByAccount(ctx context.Context, accountID string) ([]Role, error)
}

// ContainerStore provisions storage namespaces. Writing bytes into a
// container is handled elsewhere; the guard layer only creates namespaces.
type ContainerStore interface {
	// CreateContainer creates the namespace; fails if it already exists
	CreateContainer(ctx context.Context, name string) error
}
