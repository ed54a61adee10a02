package guard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Orchestrator performs the mandatory follow-up mutations after a project has
// been durably created: the director role, the creator's membership in it,
// and the project's storage container.
//
// There is no rollback. The project create cannot be undone from here, so a
// failed step leaves the project observable without a director role - an
// inconsistency that is surfaced to the caller as an operation error and
// treated as invalid by the role-grant guard (nobody is director, nobody
// passes).
type Orchestrator struct {
	roles      RoleRepository
	containers ContainerStore
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(roles RoleRepository, containers ContainerStore) *Orchestrator {
	return &Orchestrator{roles: roles, containers: containers}
}

// ProvisionDirector creates the project's director role and enrolls the
// creating actor in it. The actor comes from the request's authenticated
// identity, never from the payload.
func (o *Orchestrator) ProvisionDirector(ctx context.Context, rc *RequestContext, projectID string) error {
	if rc.ActorID == "" || projectID == "" {
		return ErrForbidden
	}

	role := &Role{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      RoleDirector,
	}
	if err := o.roles.Create(ctx, role); err != nil {
		return fmt.Errorf("failed to create director role: %w", err)
	}

	if err := o.roles.AddMember(ctx, role.ID, rc.ActorID); err != nil {
		return fmt.Errorf("failed to enroll creator as director: %w", err)
	}
	return nil
}

// ProvisionContainer creates the project's storage namespace, named by the
// project's primary key.
func (o *Orchestrator) ProvisionContainer(ctx context.Context, rc *RequestContext, projectID string) error {
	if err := o.containers.CreateContainer(ctx, projectID); err != nil {
		return fmt.Errorf("failed to provision project container: %w", err)
	}
	return nil
}
