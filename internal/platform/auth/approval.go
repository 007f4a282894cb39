package auth

import "context"

// ApprovalChecker decides whether an actor may perform a workflow transition
// that is marked as requiring approval. The decision itself is external to the
// engine; this interface is the injection point.
type ApprovalChecker interface {
	CanApprove(ctx context.Context, actorID string) bool
}

// RoleApprovalChecker grants approval capability to actors holding any of the
// configured roles, read from the request context set by the auth middleware.
type RoleApprovalChecker struct {
	Roles []string
}

func NewRoleApprovalChecker(roles ...string) *RoleApprovalChecker {
	return &RoleApprovalChecker{Roles: roles}
}

func (r *RoleApprovalChecker) CanApprove(ctx context.Context, _ string) bool {
	held := RolesFromContext(ctx)
	for _, want := range r.Roles {
		for _, has := range held {
			if has == want {
				return true
			}
		}
	}
	return false
}

// ApprovalCheckerFunc adapts a plain function to the ApprovalChecker interface.
type ApprovalCheckerFunc func(ctx context.Context, actorID string) bool

func (f ApprovalCheckerFunc) CanApprove(ctx context.Context, actorID string) bool {
	return f(ctx, actorID)
}
