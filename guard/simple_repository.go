package guard

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ============================================================================
// SimpleAccountRepository - SQL implementation of AccountRepository
// ============================================================================

// SimpleAccountRepository implements AccountRepository using SQL
type SimpleAccountRepository struct {
	db *sql.DB
}

// NewSimpleAccountRepository creates a new SimpleAccountRepository
func NewSimpleAccountRepository(db *sql.DB) *SimpleAccountRepository {
	return &SimpleAccountRepository{db: db}
}

// Ensure SimpleAccountRepository implements AccountRepository
var _ AccountRepository = (*SimpleAccountRepository)(nil)

// FindByID retrieves an account by primary key
func (r *SimpleAccountRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	return r.findOne(ctx, `
		SELECT id, email, username, password_hash, COALESCE(firstname, ''), COALESCE(lastname, ''), created_at
		FROM accounts
		WHERE id = $1
	`, id)
}

// FindByEmail retrieves the unique account with the given email
func (r *SimpleAccountRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findOne(ctx, `
		SELECT id, email, username, password_hash, COALESCE(firstname, ''), COALESCE(lastname, ''), created_at
		FROM accounts
		WHERE email = $1
	`, email)
}

func (r *SimpleAccountRepository) findOne(ctx context.Context, query, arg string) (*Account, error) {
	var a Account
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Firstname, &a.Lastname, &a.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// ============================================================================
// SimpleRoleRepository - SQL implementation of RoleRepository
// ============================================================================

// SimpleRoleRepository implements RoleRepository using SQL
type SimpleRoleRepository struct {
	db *sql.DB
}

// NewSimpleRoleRepository creates a new SimpleRoleRepository
func NewSimpleRoleRepository(db *sql.DB) *SimpleRoleRepository {
	return &SimpleRoleRepository{db: db}
}

// Ensure SimpleRoleRepository implements RoleRepository
var _ RoleRepository = (*SimpleRoleRepository)(nil)

// FindByID retrieves a role by primary key
func (r *SimpleRoleRepository) FindByID(ctx context.Context, id string) (*Role, error) {
	var role Role
	err := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, created_at
		FROM project_roles
		WHERE id = $1
	`, id).Scan(&role.ID, &role.ProjectID, &role.Name, &role.CreatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// Create creates a new role. project_id is immutable afterwards; there is no
// corresponding update path.
func (r *SimpleRoleRepository) Create(ctx context.Context, role *Role) error {
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_roles (id, project_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, role.ID, role.ProjectID, role.Name, role.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// AddMember adds an account to a role's membership set
func (r *SimpleRoleRepository) AddMember(ctx context.Context, roleID, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO role_memberships (role_id, account_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, account_id) DO NOTHING
	`, roleID, accountID, time.Now())

	if err != nil {
		return fmt.Errorf("failed to add role membership: %w", err)
	}
	return nil
}

// ListByAccount returns every role the account is a member of, across all
// projects. The project filter happens in the oracle.
func (r *SimpleRoleRepository) ListByAccount(ctx context.Context, accountID string) ([]Role, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.project_id, r.name, r.created_at
		FROM project_roles r
		JOIN role_memberships m ON m.role_id = r.id
		WHERE m.account_id = $1
		ORDER BY r.created_at
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account roles: %w", err)
	}
	defer rows.Close()

	roles := make([]Role, 0)
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.ProjectID, &role.Name, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ============================================================================
// Factory function for convenience
// ============================================================================

// NewSimpleBackend creates all SQL-backed guard components at once.
// The ContainerStore is filesystem-backed and injected by the caller.
func NewSimpleBackend(db *sql.DB, containers ContainerStore) *Pipeline {
	accounts := NewSimpleAccountRepository(db)
	roles := NewSimpleRoleRepository(db)

	resolver := NewRelationResolver(accounts)
	engine := NewEngine(accounts, roles, NewRoleOracle(roles))
	orch := NewOrchestrator(roles, containers)

	return NewPipeline(resolver, engine, orch)
}
