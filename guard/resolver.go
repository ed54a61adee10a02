package guard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// emailPattern is deliberately conservative: local part, "@", a domain that
// contains a dot. Anything that doesn't match is assumed to already be a
// primary key and passes through untouched.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// RelationResolver rewrites an ambiguous relation-target identifier into a
// canonical primary key before a link mutation runs. It never performs the
// link itself.
type RelationResolver struct {
	accounts AccountRepository
}

// NewRelationResolver creates a new RelationResolver
func NewRelationResolver(accounts AccountRepository) *RelationResolver {
	return &RelationResolver{accounts: accounts}
}

// ResolveAccountTarget resolves rc.TargetID when it looks like an email
// address: the unique account with that email is looked up and its primary
// key substituted in place. A miss is USER_NOT_FOUND. Non-email identifiers
// pass through unchanged.
//
// Registered for project<->account and thread<->account links only; role
// links require a primary key.
func (r *RelationResolver) ResolveAccountTarget(ctx context.Context, rc *RequestContext) error {
	if !emailPattern.MatchString(rc.TargetID) {
		return nil
	}

	account, err := r.accounts.FindByEmail(ctx, rc.TargetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to resolve account target: %w", err)
	}

	rc.TargetID = account.ID
	return nil
}
