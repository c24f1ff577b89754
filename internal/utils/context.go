package utils

import "context"

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "email"
	UserRoleKey  contextKey = "role"
)

const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// SetUserContext sets user info into context (called by middleware)
func SetUserContext(ctx context.Context, id uint, email string, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return ctx
}

// GetUserIDFromContext retrieves userID safely
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(UserIDKey).(uint)
	return id, ok && id != 0
}

func GetUserEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

func GetUserRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

func IsAdmin(ctx context.Context) bool {
	return GetUserRoleFromContext(ctx) == RoleAdmin
}

// Requester is the authenticated caller of an operation.
type Requester struct {
	UserID uint
	Email  string
	Role   string
}

func (r Requester) IsAdmin() bool { return r.Role == RoleAdmin }

// RequesterFromContext returns the caller; ok is false for anonymous requests.
func RequesterFromContext(ctx context.Context) (Requester, bool) {
	id, ok := GetUserIDFromContext(ctx)
	if !ok {
		return Requester{}, false
	}
	return Requester{
		UserID: id,
		Email:  GetUserEmailFromContext(ctx),
		Role:   GetUserRoleFromContext(ctx),
	}, true
}
