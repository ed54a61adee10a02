package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRoleOracle_HasRole(t *testing.T) {
	ctx := context.Background()
	roles := NewFakeRoleRepository()

	p1 := uuid.New().String()
	p2 := uuid.New().String()
	director1 := &Role{ID: uuid.New().String(), ProjectID: p1, Name: RoleDirector}
	designer1 := &Role{ID: uuid.New().String(), ProjectID: p1, Name: "designer"}
	director2 := &Role{ID: uuid.New().String(), ProjectID: p2, Name: RoleDirector}
	for _, r := range []*Role{director1, designer1, director2} {
		if err := roles.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	// alice directs p1 only; bob only holds a plain role on p1.
	alice, bob := uuid.New().String(), uuid.New().String()
	roles.Members[director1.ID] = []string{alice}
	roles.Members[designer1.ID] = []string{bob}
	roles.Members[director2.ID] = []string{bob}

	oracle := NewRoleOracle(roles)

	tests := []struct {
		name      string
		accountID string
		projectID string
		roleName  string
		want      bool
	}{
		{"director on own project", alice, p1, RoleDirector, true},
		{"director role does not leak across projects", alice, p2, RoleDirector, false},
		{"plain role holder is not director", bob, p1, RoleDirector, false},
		{"director of another project is not director here", bob, p1, RoleDirector, false},
		{"non-director role name matches", bob, p1, "designer", true},
		{"unknown account has no roles", uuid.New().String(), p1, RoleDirector, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oracle.HasRole(ctx, tt.accountID, tt.projectID, tt.roleName)
			if err != nil {
				t.Fatalf("HasRole() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasRole() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngine_GuardRoleGrant(t *testing.T) {
	ctx := context.Background()

	newFixture := func() (*Engine, *FakeAccountRepository, *FakeRoleRepository, string, *Account, *Role) {
		accounts := NewFakeAccountRepository()
		roles := NewFakeRoleRepository()
		engine := NewEngine(accounts, roles, NewRoleOracle(roles))

		projectID := uuid.New().String()
		director := accounts.Add(&Account{Email: "director@atelier.fr", Username: "director"})
		directorRole := &Role{ID: uuid.New().String(), ProjectID: projectID, Name: RoleDirector}
		target := &Role{ID: uuid.New().String(), ProjectID: projectID, Name: "tester"}
		_ = roles.Create(ctx, directorRole)
		_ = roles.Create(ctx, target)
		roles.Members[directorRole.ID] = []string{director.ID}

		return engine, accounts, roles, projectID, director, target
	}

	t.Run("director may grant", func(t *testing.T) {
		engine, accounts, _, _, director, target := newFixture()
		member := accounts.Add(&Account{Email: "m@atelier.fr", Username: "m"})

		rc := &RequestContext{ActorID: director.ID, Mutation: MutationLinkAccountRole, InstanceID: member.ID, TargetID: target.ID}
		if err := engine.GuardRoleGrant(ctx, rc); err != nil {
			t.Fatalf("GuardRoleGrant() error = %v, want nil", err)
		}
	})

	t.Run("missing actor is forbidden", func(t *testing.T) {
		engine, _, _, _, _, target := newFixture()
		rc := &RequestContext{ActorID: "", InstanceID: "someone", TargetID: target.ID}
		if err := engine.GuardRoleGrant(ctx, rc); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("missing instance is forbidden", func(t *testing.T) {
		engine, _, _, _, director, target := newFixture()
		rc := &RequestContext{ActorID: director.ID, InstanceID: "", TargetID: target.ID}
		if err := engine.GuardRoleGrant(ctx, rc); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("missing target is forbidden", func(t *testing.T) {
		engine, _, _, _, director, _ := newFixture()
		rc := &RequestContext{ActorID: director.ID, InstanceID: "someone", TargetID: ""}
		if err := engine.GuardRoleGrant(ctx, rc); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("unknown actor account is user-not-found, not forbidden", func(t *testing.T) {
		engine, _, _, _, _, target := newFixture()
		rc := &RequestContext{ActorID: uuid.New().String(), InstanceID: "someone", TargetID: target.ID}
		if err := engine.GuardRoleGrant(ctx, rc); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("error = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("unknown role is role-not-found, not forbidden", func(t *testing.T) {
		engine, _, _, _, director, _ := newFixture()
		rc := &RequestContext{ActorID: director.ID, InstanceID: "someone", TargetID: uuid.New().String()}
		if err := engine.GuardRoleGrant(ctx, rc); !errors.Is(err, ErrRoleNotFound) {
			t.Fatalf("error = %v, want ErrRoleNotFound", err)
		}
	})

	t.Run("non-director actor is forbidden", func(t *testing.T) {
		engine, accounts, _, _, _, target := newFixture()
		outsider := accounts.Add(&Account{Email: "o@atelier.fr", Username: "o"})
		rc := &RequestContext{ActorID: outsider.ID, InstanceID: "someone", TargetID: target.ID}
		if err := engine.GuardRoleGrant(ctx, rc); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("project without a director role fails closed", func(t *testing.T) {
		// Simulates a project whose provisioning failed after the create
		// committed: no director role exists, so even the creator is refused.
		accounts := NewFakeAccountRepository()
		roles := NewFakeRoleRepository()
		engine := NewEngine(accounts, roles, NewRoleOracle(roles))

		creator := accounts.Add(&Account{Email: "c@atelier.fr", Username: "c"})
		orphanProject := uuid.New().String()
		target := &Role{ID: uuid.New().String(), ProjectID: orphanProject, Name: "tester"}
		_ = roles.Create(ctx, target)

		rc := &RequestContext{ActorID: creator.ID, InstanceID: "someone", TargetID: target.ID}
		if err := engine.GuardRoleGrant(ctx, rc); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})
}

func TestEngine_GuardBugCreate(t *testing.T) {
	ctx := context.Background()
	engine := NewEngine(NewFakeAccountRepository(), NewFakeRoleRepository(), NewRoleOracle(NewFakeRoleRepository()))

	t.Run("unauthenticated actor is forbidden", func(t *testing.T) {
		rc := &RequestContext{Mutation: MutationCreateBug, Payload: map[string]any{"name": "crash"}}
		if err := engine.GuardBugCreate(ctx, rc); !errors.Is(err, ErrForbidden) {
			t.Fatalf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("creator is stamped from the actor", func(t *testing.T) {
		rc := &RequestContext{ActorID: "acc-1", Mutation: MutationCreateBug, Payload: map[string]any{"name": "crash"}}
		if err := engine.GuardBugCreate(ctx, rc); err != nil {
			t.Fatalf("GuardBugCreate() error = %v", err)
		}
		if rc.Payload["creatorId"] != "acc-1" {
			t.Errorf("creatorId = %v, want acc-1", rc.Payload["creatorId"])
		}
	})

	t.Run("client-supplied creator is overwritten", func(t *testing.T) {
		rc := &RequestContext{ActorID: "acc-1", Mutation: MutationCreateBug, Payload: map[string]any{"creatorId": "someone-else"}}
		if err := engine.GuardBugCreate(ctx, rc); err != nil {
			t.Fatalf("GuardBugCreate() error = %v", err)
		}
		if rc.Payload["creatorId"] != "acc-1" {
			t.Errorf("creatorId = %v, want acc-1", rc.Payload["creatorId"])
		}
	})

	t.Run("nil payload is initialized", func(t *testing.T) {
		rc := &RequestContext{ActorID: "acc-1", Mutation: MutationCreateBug}
		if err := engine.GuardBugCreate(ctx, rc); err != nil {
			t.Fatalf("GuardBugCreate() error = %v", err)
		}
		if rc.Payload["creatorId"] != "acc-1" {
			t.Errorf("creatorId = %v, want acc-1", rc.Payload["creatorId"])
		}
	})
}
