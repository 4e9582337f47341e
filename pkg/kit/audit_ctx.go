package kit

import "context"

type auditKey struct{}

// AuditUser is filled in by auth middleware further down the chain so the
// audit line can name the caller.
type AuditUser struct {
	ID string
}

func withAuditUser(ctx context.Context, u *AuditUser) context.Context {
	return context.WithValue(ctx, auditKey{}, u)
}

func SetAuditUser(ctx context.Context, id string) {
	if u, ok := ctx.Value(auditKey{}).(*AuditUser); ok {
		u.ID = id
	}
}
