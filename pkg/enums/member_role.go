package enums

import (
	"fmt"
	"strings"
)

// MemberRole is the staff role carried in access tokens. Finance reads
// settlement data; only admins run settlements or change fee schedules.
type MemberRole string

const (
	MemberRoleAdmin   MemberRole = "admin"
	MemberRoleFinance MemberRole = "finance"
)

func (m MemberRole) String() string {
	return string(m)
}

func (m MemberRole) IsValid() bool {
	switch m {
	case MemberRoleAdmin, MemberRoleFinance:
		return true
	}
	return false
}

// StaffRoles lists every role allowed to read settlement data.
func StaffRoles() []MemberRole {
	return []MemberRole{MemberRoleAdmin, MemberRoleFinance}
}

// ParseMemberRole accepts any casing and surrounding whitespace.
func ParseMemberRole(value string) (MemberRole, error) {
	role := MemberRole(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return "", fmt.Errorf("invalid member role %q", value)
	}
	return role, nil
}
