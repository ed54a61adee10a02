package guard

import (
	"context"
	"errors"
	"fmt"
)

// Engine evaluates the guard decisions that the generic CRUD layer cannot
// express declaratively. Each guard runs as a pre hook: an error aborts the
// mutation before the store is touched.
type Engine struct {
	accounts AccountRepository
	roles    RoleRepository
	oracle   *RoleOracle
}

// NewEngine creates a new Engine
func NewEngine(accounts AccountRepository, roles RoleRepository, oracle *RoleOracle) *Engine {
	return &Engine{accounts: accounts, roles: roles, oracle: oracle}
}

// GuardRoleGrant protects role-membership links: granting a role is the only
// mutation that can change another actor's permissions, so only a director
// of the role's project may perform it.
//
// A project whose director role was never provisioned fails closed here: the
// oracle finds no director membership for anyone, so no actor passes.
func (e *Engine) GuardRoleGrant(ctx context.Context, rc *RequestContext) error {
	if rc.InstanceID == "" || rc.ActorID == "" || rc.TargetID == "" {
		return ErrForbidden
	}

	if _, err := e.accounts.FindByID(ctx, rc.ActorID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load acting account: %w", err)
	}

	role, err := e.roles.FindByID(ctx, rc.TargetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("failed to load target role: %w", err)
	}

	isDirector, err := e.oracle.HasRole(ctx, rc.ActorID, role.ProjectID, RoleDirector)
	if err != nil {
		return err
	}
	if !isDirector {
		return ErrForbidden
	}
	return nil
}

// GuardBugCreate requires an authenticated actor and force-sets the bug's
// creator to that actor, overwriting any client-supplied value.
func (e *Engine) GuardBugCreate(ctx context.Context, rc *RequestContext) error {
	if rc.ActorID == "" {
		return ErrForbidden
	}

	if rc.Payload == nil {
		rc.Payload = make(map[string]any)
	}
	rc.Payload["creatorId"] = rc.ActorID
	return nil
}
