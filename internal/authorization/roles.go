package authorization

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleInstructor UserRole = "instructor"
	RoleLearner    UserRole = "learner"
)

var validRoles = map[UserRole]struct{}{
	RoleAdmin:      {},
	RoleInstructor: {},
	RoleLearner:    {},
}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	_, ok := validRoles[r]
	return ok
}

func (r UserRole) Value() (driver.Value, error) {
	if r == "" {
		return string(RoleLearner), nil
	}
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid user role: %q", r)
	}
	return string(r), nil
}

func (r *UserRole) Scan(value interface{}) error {
	if value == nil {
		*r = RoleLearner
		return nil
	}

	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported type for UserRole: %T", value)
	}

	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	if !role.IsValid() {
		return fmt.Errorf("invalid user role: %q", raw)
	}
	*r = role
	return nil
}

type Permission string

const (
	PermissionManageUsers      Permission = "manage_users"
	PermissionManageAllContent Permission = "manage_all_content"
	PermissionManageOwnContent Permission = "manage_own_content"
	PermissionPublishContent   Permission = "publish_content"
	PermissionModerateForum    Permission = "moderate_forum"
	PermissionViewPlatform     Permission = "view_platform_statistics"
	PermissionRunMaintenance   Permission = "run_maintenance"
)

var rolePermissions = map[UserRole]map[Permission]struct{}{
	RoleAdmin: {
		PermissionManageUsers:      {},
		PermissionManageAllContent: {},
		PermissionManageOwnContent: {},
		PermissionPublishContent:   {},
		PermissionModerateForum:    {},
		PermissionViewPlatform:     {},
		PermissionRunMaintenance:   {},
	},
	RoleInstructor: {
		PermissionManageOwnContent: {},
		PermissionPublishContent:   {},
	},
	RoleLearner: {},
}

func RoleHasPermission(role UserRole, permission Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[permission]
	return ok
}

func ParseUserRole(value interface{}) (UserRole, bool) {
	switch v := value.(type) {
	case UserRole:
		if !v.IsValid() {
			return "", false
		}
		return v, true
	case string:
		role := UserRole(strings.ToLower(strings.TrimSpace(v)))
		if !role.IsValid() {
			return "", false
		}
		return role, true
	case []byte:
		role := UserRole(strings.ToLower(strings.TrimSpace(string(v))))
		if !role.IsValid() {
			return "", false
		}
		return role, true
	default:
		return "", false
	}
}
