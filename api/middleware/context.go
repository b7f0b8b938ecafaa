package middleware

import (
	"context"

	"github.com/angelmondragon/coursehub-backend/pkg/enums"
)

// Staff is the back-office user behind an authenticated request.
type Staff struct {
	ID   string
	Role enums.MemberRole
}

type staffKey struct{}

// WithStaff stores staff on ctx. Auth calls it; handler tests call it directly.
func WithStaff(ctx context.Context, staff Staff) context.Context {
	return context.WithValue(ctx, staffKey{}, staff)
}

func StaffFrom(ctx context.Context) (Staff, bool) {
	if ctx == nil {
		return Staff{}, false
	}
	staff, ok := ctx.Value(staffKey{}).(Staff)
	return staff, ok
}

// StaffID is empty for anonymous requests.
func StaffID(ctx context.Context) string {
	staff, _ := StaffFrom(ctx)
	return staff.ID
}
