package authorization

import (
	"errors"
	"testing"
)

func TestNewAdminContextRejectsNonAdmins(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
	}{
		{name: "anonymous", actor: Anonymous()},
		{name: "learner", actor: Actor{UserID: 3, Role: RoleLearner}},
		{name: "instructor", actor: Actor{UserID: 4, Role: RoleInstructor}},
		{name: "admin role without user", actor: Actor{Role: RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := NewAdminContext(tt.actor)
			if !errors.Is(err, ErrNotAdmin) {
				t.Fatalf("expected ErrNotAdmin, got %v", err)
			}
			if ctx.Valid() {
				t.Fatalf("expected zero admin context to be invalid")
			}
		})
	}
}

func TestNewAdminContextForAdmin(t *testing.T) {
	ctx, err := NewAdminContext(Actor{UserID: 1, Role: RoleAdmin})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ctx.Valid() {
		t.Fatalf("expected admin context to be valid")
	}
	if ctx.Actor().UserID != 1 {
		t.Fatalf("expected actor user id 1, got %d", ctx.Actor().UserID)
	}
}

func TestActorCanManage(t *testing.T) {
	instructor := Actor{UserID: 7, Role: RoleInstructor}
	if !instructor.CanManage(7) {
		t.Fatalf("expected instructor to manage own content")
	}
	if instructor.CanManage(8) {
		t.Fatalf("expected instructor not to manage foreign content")
	}

	learner := Actor{UserID: 9, Role: RoleLearner}
	if learner.CanManage(9) {
		t.Fatalf("expected learner without content permission to be rejected")
	}

	admin := Actor{UserID: 1, Role: RoleAdmin}
	if !admin.CanManage(42) {
		t.Fatalf("expected admin to manage any content")
	}
}

func TestUserRoleScan(t *testing.T) {
	var role UserRole
	if err := role.Scan([]byte(" Instructor ")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != RoleInstructor {
		t.Fatalf("expected instructor, got %q", role)
	}
	if err := role.Scan("owner"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if err := role.Scan(nil); err != nil || role != RoleLearner {
		t.Fatalf("expected nil to scan as learner, got %q (%v)", role, err)
	}
}
