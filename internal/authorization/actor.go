package authorization

import "errors"

// ErrNotAdmin is returned when an admin capability is requested for a
// non-admin actor.
var ErrNotAdmin = errors.New("admin access required")

// Actor is the verified identity of the caller for a single request. The
// zero value is an anonymous caller.
type Actor struct {
	UserID uint
	Role   UserRole
}

func Anonymous() Actor {
	return Actor{}
}

func (a Actor) IsAuthenticated() bool {
	return a.UserID != 0
}

func (a Actor) Can(permission Permission) bool {
	if !a.IsAuthenticated() {
		return false
	}
	return RoleHasPermission(a.Role, permission)
}

// CanManage reports whether the actor may mutate content owned by ownerID.
func (a Actor) CanManage(ownerID uint) bool {
	if !a.IsAuthenticated() {
		return false
	}
	if a.Can(PermissionManageAllContent) {
		return true
	}
	return a.UserID == ownerID && a.Can(PermissionManageOwnContent)
}

// AdminContext is a capability proving the request was made by an admin.
// It can only be obtained through NewAdminContext.
type AdminContext struct {
	actor Actor
}

func NewAdminContext(actor Actor) (AdminContext, error) {
	if !actor.IsAuthenticated() || actor.Role != RoleAdmin {
		return AdminContext{}, ErrNotAdmin
	}
	return AdminContext{actor: actor}, nil
}

func (c AdminContext) Valid() bool {
	return c.actor.IsAuthenticated() && c.actor.Role == RoleAdmin
}

func (c AdminContext) Actor() Actor {
	return c.actor
}
