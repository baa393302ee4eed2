package auth

import (
	"context"
	"fmt"

	"github.com/rpattn/gradtrack/internal/domain"
)

type contextKey string

const roleKey contextKey = "callerRole"

// importRoles may run bulk imports.
var importRoles = map[domain.RoleTag]bool{
	domain.RoleCoordinator: true,
	domain.RoleDean:        true,
	domain.RoleAdmin:       true,
}

// ContextWithRole returns a new context that carries the caller's role as set by the gateway.
func ContextWithRole(ctx context.Context, role domain.RoleTag) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, roleKey, role)
}

// RoleFromContext retrieves the caller's role from the context, if any.
func RoleFromContext(ctx context.Context) (domain.RoleTag, bool) {
	if ctx == nil {
		return "", false
	}
	role, ok := ctx.Value(roleKey).(domain.RoleTag)
	if !ok || role == "" {
		return "", false
	}
	return role, true
}

// EnforceImportPermission rejects callers whose role may not import projects.
// A context without a role is allowed; authentication happens upstream.
func EnforceImportPermission(ctx context.Context) error {
	role, ok := RoleFromContext(ctx)
	if !ok {
		return nil
	}
	if !importRoles[role] {
		return fmt.Errorf("role %s may not import projects", role)
	}
	return nil
}
