// Package guard implements the relational authorization layer wrapped around
// nested-resource mutations. It follows Clean Architecture with separated
// concerns:
// - RelationResolver: rewrites ambiguous relation targets (email -> primary key)
// - RoleOracle: answers "does this account hold this role on this project?"
// - Engine: pass/fail guard decisions evaluated before a mutation
// - Orchestrator: mandatory side effects issued after a parent creation
// - Pipeline: static table mapping each mutation kind to its ordered hooks
package guard

import (
	"context"
	"net/http"
)

// Mutation identifies a protected nested-resource mutation.
type Mutation string

const (
	// MutationCreateProject creates a project nested under an account.
	MutationCreateProject Mutation = "project.create"
	// MutationLinkProjectAccount links an account into a project's member set.
	MutationLinkProjectAccount Mutation = "project.accounts.link"
	// MutationLinkThreadAccount links an account into a thread's member set.
	MutationLinkThreadAccount Mutation = "thread.accounts.link"
	// MutationLinkAccountRole links a project role to an account.
	MutationLinkAccountRole Mutation = "account.roles.link"
	// MutationCreateBug creates a bug nested under a project.
	MutationCreateBug Mutation = "project.bugs.create"
)

// RoleDirector is the reserved role name that authorizes role grants on a
// project. It is created by the Orchestrator when the project is created and
// never by clients.
const RoleDirector = "director"

// RequestContext carries one mutation request through the pipeline. It is an
// inert value: hooks may rewrite TargetID and Payload, nothing else.
//
// An empty string field means "absent". ActorID is empty when the identity
// gate did not authenticate the caller.
type RequestContext struct {
	// ActorID is the authenticated account id attached by the identity gate.
	ActorID string
	// Mutation is the mutation kind being attempted.
	Mutation Mutation
	// InstanceID is the id of the resource the mutation is nested under
	// (e.g. the account whose roles are being linked).
	InstanceID string
	// TargetID is the relation-target identifier of a link mutation. The
	// resolver may rewrite it from an alternate key to a primary key.
	TargetID string
	// Payload holds the raw body fields of a create mutation. Guards may
	// rewrite entries (the bug guard force-sets "creatorId").
	Payload map[string]any
}

// Error is a guard failure with the fixed status/code/message triple surfaced
// at the API boundary. Consumers branch on Code, never on Message.
type Error struct {
	Status  int    `json:"statusCode"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

var (
	// ErrUnauthorized is returned when no actor identity is present where
	// one is required.
	ErrUnauthorized = &Error{Status: http.StatusUnauthorized, Code: "AUTHORIZATION_REQUIRED", Message: "Authorization Required"}
	// ErrForbidden is returned when the actor fails a role or ownership check.
	ErrForbidden = &Error{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: "Forbidden"}
	// ErrUserNotFound is returned when a looked-up account does not exist.
	ErrUserNotFound = &Error{Status: http.StatusNotFound, Code: "USER_NOT_FOUND", Message: "User Not Found"}
	// ErrRoleNotFound is returned when a looked-up project role does not exist.
	ErrRoleNotFound = &Error{Status: http.StatusNotFound, Code: "ROLE_NOT_FOUND", Message: "Role Not Found"}
)

// PreHook runs before the underlying mutation. It may rewrite rc in place;
// returning an error aborts the mutation before the store is touched.
type PreHook interface {
	Before(ctx context.Context, rc *RequestContext) error
}

// PostHook runs after the underlying mutation has durably committed.
// createdID is the primary key of the created entity. An error surfaces to
// the caller but cannot undo the committed mutation.
type PostHook interface {
	After(ctx context.Context, rc *RequestContext, createdID string) error
}

// PreHookFunc adapts a function to the PreHook interface.
type PreHookFunc func(ctx context.Context, rc *RequestContext) error

func (f PreHookFunc) Before(ctx context.Context, rc *RequestContext) error { return f(ctx, rc) }

// PostHookFunc adapts a function to the PostHook interface.
type PostHookFunc func(ctx context.Context, rc *RequestContext, createdID string) error

func (f PostHookFunc) After(ctx context.Context, rc *RequestContext, createdID string) error {
	return f(ctx, rc, createdID)
}

// Pipeline maps each mutation kind to the ordered hooks that run around it.
// The table is built once at startup; there is no runtime registration.
type Pipeline struct {
	pre  map[Mutation][]PreHook
	post map[Mutation][]PostHook
}

// NewPipeline builds the static hook table from the injected components.
func NewPipeline(resolver *RelationResolver, engine *Engine, orch *Orchestrator) *Pipeline {
	return &Pipeline{
		pre: map[Mutation][]PreHook{
			MutationLinkProjectAccount: {PreHookFunc(resolver.ResolveAccountTarget)},
			MutationLinkThreadAccount:  {PreHookFunc(resolver.ResolveAccountTarget)},
			MutationLinkAccountRole:    {PreHookFunc(engine.GuardRoleGrant)},
			MutationCreateBug:          {PreHookFunc(engine.GuardBugCreate)},
		},
		post: map[Mutation][]PostHook{
			MutationCreateProject: {
				PostHookFunc(orch.ProvisionDirector),
				PostHookFunc(orch.ProvisionContainer),
			},
		},
	}
}

// RunBefore executes the pre hooks registered for rc.Mutation in order. The
// first error short-circuits; the underlying mutation must not execute.
func (p *Pipeline) RunBefore(ctx context.Context, rc *RequestContext) error {
	for _, h := range p.pre[rc.Mutation] {
		if err := h.Before(ctx, rc); err != nil {
			return err
		}
	}
	return nil
}

// RunAfter executes the post hooks registered for rc.Mutation in order. The
// first error is returned to the caller; earlier hooks are not compensated
// and the primary mutation stays committed.
func (p *Pipeline) RunAfter(ctx context.Context, rc *RequestContext, createdID string) error {
	for _, h := range p.post[rc.Mutation] {
		if err := h.After(ctx, rc, createdID); err != nil {
			return err
		}
	}
	return nil
}
