package rbac

import "context"

type roleKey struct{}

// WithRole stores the caller's role, as read from the access token.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFromContext returns "" when no role was set.
func RoleFromContext(ctx context.Context) string {
	r, _ := ctx.Value(roleKey{}).(string)
	return r
}
