// Package roster holds the pure user list helpers behind the admin users tab.
package roster

import (
	"strings"

	"volunteerhub/pkg/types"
)

// FilterAll matches every role or status.
const FilterAll = "ALL"

// BulkFields are the columns an admin can copy as a bulk list.
var BulkFields = []types.UserField{
	types.UserFieldEmail,
	types.UserFieldPhone,
	types.UserFieldFullName,
	types.UserFieldParentEmail,
	types.UserFieldParentPhone,
}

// NormalizeFilter upper-cases a query value and maps blanks to FilterAll.
func NormalizeFilter(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return FilterAll
	}
	return value
}

// FilterUsers returns the users matching both filters in their original order.
func FilterUsers(users []*types.User, role, status string) []*types.User {
	out := make([]*types.User, 0, len(users))
	for _, u := range users {
		if role != FilterAll && string(u.Role) != role {
			continue
		}
		if status != FilterAll && string(u.Status) != status {
			continue
		}
		out = append(out, u)
	}
	return out
}

// GenerateBulkList joins the non-empty values of field across users.
func GenerateBulkList(users []*types.User, field types.UserField) string {
	values := make([]string, 0, len(users))
	for _, u := range users {
		if v := strings.TrimSpace(u.Value(field)); v != "" {
			values = append(values, v)
		}
	}
	return strings.Join(values, ", ")
}

// ValidBulkField reports whether f can be exported as a bulk list.
func ValidBulkField(f types.UserField) bool {
	for _, b := range BulkFields {
		if b == f {
			return true
		}
	}
	return false
}
