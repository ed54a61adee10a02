package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestOrchestrator_ProvisionDirector(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the director role and enrolls the creator", func(t *testing.T) {
		roles := NewFakeRoleRepository()
		orch := NewOrchestrator(roles, &FakeContainerStore{})

		creator := uuid.New().String()
		projectID := uuid.New().String()
		rc := &RequestContext{ActorID: creator, Mutation: MutationCreateProject}

		if err := orch.ProvisionDirector(ctx, rc, projectID); err != nil {
			t.Fatalf("ProvisionDirector() error = %v", err)
		}

		director := roles.DirectorOf(projectID)
		if director == nil {
			t.Fatal("no single director role created")
		}
		if director.ProjectID != projectID {
			t.Errorf("director projectID = %s, want %s", director.ProjectID, projectID)
		}
		if members := roles.Members[director.ID]; len(members) != 1 || members[0] != creator {
			t.Errorf("director members = %v, want [%s]", members, creator)
		}
	})

	t.Run("missing actor is forbidden", func(t *testing.T) {
		roles := NewFakeRoleRepository()
		orch := NewOrchestrator(roles, &FakeContainerStore{})

		rc := &RequestContext{ActorID: "", Mutation: MutationCreateProject}
		if err := orch.ProvisionDirector(ctx, rc, uuid.New().String()); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
		if roles.CreateCalls != 0 {
			t.Error("role created despite missing actor")
		}
	})

	t.Run("missing project id is forbidden", func(t *testing.T) {
		orch := NewOrchestrator(NewFakeRoleRepository(), &FakeContainerStore{})
		rc := &RequestContext{ActorID: "acc-1", Mutation: MutationCreateProject}
		if err := orch.ProvisionDirector(ctx, rc, ""); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("role create failure surfaces and skips enrollment", func(t *testing.T) {
		roles := NewFakeRoleRepository()
		roles.CreateErr = errors.New("insert failed")
		orch := NewOrchestrator(roles, &FakeContainerStore{})

		rc := &RequestContext{ActorID: "acc-1", Mutation: MutationCreateProject}
		err := orch.ProvisionDirector(ctx, rc, uuid.New().String())
		if err == nil {
			t.Fatal("expected error")
		}
		for _, members := range roles.Members {
			if len(members) != 0 {
				t.Error("membership created after role create failed")
			}
		}
	})

	t.Run("enrollment failure surfaces without undoing the role", func(t *testing.T) {
		roles := NewFakeRoleRepository()
		roles.MemberErr = errors.New("insert failed")
		orch := NewOrchestrator(roles, &FakeContainerStore{})

		projectID := uuid.New().String()
		rc := &RequestContext{ActorID: "acc-1", Mutation: MutationCreateProject}
		if err := orch.ProvisionDirector(ctx, rc, projectID); err == nil {
			t.Fatal("expected error")
		}
		// The role row stays: this layer never compensates.
		if roles.DirectorOf(projectID) == nil {
			t.Error("director role rolled back, want it left in place")
		}
	})
}

func TestOrchestrator_ProvisionContainer(t *testing.T) {
	ctx := context.Background()

	t.Run("container is named by the project id", func(t *testing.T) {
		containers := &FakeContainerStore{}
		orch := NewOrchestrator(NewFakeRoleRepository(), containers)

		projectID := uuid.New().String()
		rc := &RequestContext{ActorID: "acc-1", Mutation: MutationCreateProject}
		if err := orch.ProvisionContainer(ctx, rc, projectID); err != nil {
			t.Fatalf("ProvisionContainer() error = %v", err)
		}
		if len(containers.Created) != 1 || containers.Created[0] != projectID {
			t.Errorf("containers = %v, want [%s]", containers.Created, projectID)
		}
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		containers := &FakeContainerStore{Error: errors.New("disk full")}
		orch := NewOrchestrator(NewFakeRoleRepository(), containers)

		rc := &RequestContext{ActorID: "acc-1", Mutation: MutationCreateProject}
		if err := orch.ProvisionContainer(ctx, rc, uuid.New().String()); err == nil {
			t.Fatal("expected error")
		}
	})
}

// Container failure after a successful director provision leaves roles in
// place: the post hooks never compensate each other.
func TestOrchestrator_ContainerFailureKeepsDirector(t *testing.T) {
	ctx := context.Background()
	roles := NewFakeRoleRepository()
	containers := &FakeContainerStore{Error: errors.New("disk full")}
	p := NewPipeline(
		NewRelationResolver(NewFakeAccountRepository()),
		NewEngine(NewFakeAccountRepository(), roles, NewRoleOracle(roles)),
		NewOrchestrator(roles, containers),
	)

	projectID := uuid.New().String()
	rc := &RequestContext{ActorID: "acc-1", Mutation: MutationCreateProject}
	if err := p.RunAfter(ctx, rc, projectID); err == nil {
		t.Fatal("expected container failure to surface")
	}
	if roles.DirectorOf(projectID) == nil {
		t.Error("director role missing after container failure, want it kept")
	}
}
