package guard

import (
	"context"
	"fmt"
)

// RoleOracle answers whether an account currently holds a named role on a
// project. It is a read-then-decide check with no locking: a concurrent
// revocation between the check and the guarded mutation can let a
// now-revoked director complete a grant. That window is accepted - role
// changes are rare and the store serializes individual writes.
type RoleOracle struct {
	roles RoleRepository
}

// NewRoleOracle creates a new RoleOracle
func NewRoleOracle(roles RoleRepository) *RoleOracle {
	return &RoleOracle{roles: roles}
}

// HasRole reports whether accountID holds a role named roleName on projectID.
// It fetches the account's full membership set and filters by project, so an
// account that is absent or a project with no such role both answer false.
func (o *RoleOracle) HasRole(ctx context.Context, accountID, projectID, roleName string) (bool, error) {
	roles, err := o.roles.ListByAccount(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to list account roles: %w", err)
	}

	for _, r := range roles {
		if r.ProjectID == projectID && r.Name == roleName {
			return true, nil
		}
	}
	return false, nil
}
