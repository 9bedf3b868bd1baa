package memberpolicy

import (
	"testing"

	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	owner  = primitive.NewObjectID()
	admin  = primitive.NewObjectID()
	member = primitive.NewObjectID()
)

func subject(caller, target primitive.ObjectID, canManage bool) Subject {
	return Subject{
		CallerID:        caller,
		CallerIsMember:  true,
		CallerCanManage: canManage,
		TargetID:        target,
		TargetIsMember:  true,
		OwnerID:         owner,
	}
}

func TestCheckRoleChange(t *testing.T) {
	notMember := subject(admin, primitive.NewObjectID(), true)
	notMember.TargetIsMember = false
	outsider := subject(primitive.NewObjectID(), member, false)
	outsider.CallerIsMember = false

	tests := []struct {
		name     string
		s        Subject
		role     string
		wantKind apperr.Kind
		wantRole models.Role
		ok       bool
	}{
		{"admin promotes member", subject(admin, member, true), "admin", 0, models.RoleAdmin, true},
		{"admin demotes member", subject(admin, member, true), "VIEWER", 0, models.RoleViewer, true},
		{"own role", subject(admin, admin, true), "MEMBER", apperr.KindBadRequest, "", false},
		{"member caller", subject(member, admin, false), "VIEWER", apperr.KindForbidden, "", false},
		{"non-member caller", outsider, "VIEWER", apperr.KindForbidden, "", false},
		{"invalid role", subject(admin, member, true), "OWNER", apperr.KindBadRequest, "", false},
		{"empty role", subject(admin, member, true), "", apperr.KindBadRequest, "", false},
		{"target not a member", notMember, "VIEWER", apperr.KindNotFound, "", false},
		{"demote owner", subject(admin, owner, true), "VIEWER", apperr.KindForbidden, "", false},
		{"owner changing own role", subject(owner, owner, true), "MEMBER", apperr.KindForbidden, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := CheckRoleChange(tt.s, tt.role)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if role != tt.wantRole {
					t.Errorf("role = %q, want %q", role, tt.wantRole)
				}
				return
			}
			if !apperr.Is(err, tt.wantKind) {
				t.Errorf("err = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestCheckRemove(t *testing.T) {
	notMember := subject(admin, primitive.NewObjectID(), true)
	notMember.TargetIsMember = false

	tests := []struct {
		name     string
		s        Subject
		wantKind apperr.Kind
		ok       bool
	}{
		{"admin removes member", subject(admin, member, true), 0, true},
		{"member caller", subject(member, admin, false), apperr.KindForbidden, false},
		{"remove self", subject(admin, admin, true), apperr.KindBadRequest, false},
		{"target not a member", notMember, apperr.KindNotFound, false},
		{"remove owner", subject(admin, owner, true), apperr.KindForbidden, false},
		{"owner removes self", subject(owner, owner, true), apperr.KindForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRemove(tt.s)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperr.Is(err, tt.wantKind) {
				t.Errorf("err = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestCheckLeave(t *testing.T) {
	if err := CheckLeave(Subject{CallerID: member, CallerIsMember: true, OwnerID: owner}); err != nil {
		t.Errorf("member leave: %v", err)
	}
	if err := CheckLeave(Subject{CallerID: owner, CallerIsMember: true, OwnerID: owner}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("owner leave err = %v, want Forbidden", err)
	}
	if err := CheckLeave(Subject{CallerID: member, OwnerID: owner}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("non-member leave err = %v, want Forbidden", err)
	}
}

// Owner protection is Forbidden whatever the caller's standing, the owner
// included.
func TestOwnerAlwaysProtected(t *testing.T) {
	for _, caller := range []primitive.ObjectID{admin, member, owner} {
		for _, canManage := range []bool{true, false} {
			for _, isMember := range []bool{true, false} {
				s := Subject{
					CallerID:        caller,
					CallerIsMember:  isMember,
					CallerCanManage: canManage,
					TargetID:        owner,
					TargetIsMember:  true,
					OwnerID:         owner,
				}
				for _, r := range models.AllRoles {
					if _, err := CheckRoleChange(s, string(r)); !apperr.Is(err, apperr.KindForbidden) {
						t.Errorf("role change of owner to %s: err = %v, want Forbidden (caller=%s manage=%v member=%v)",
							r, err, caller.Hex(), canManage, isMember)
					}
				}
				if err := CheckRemove(s); !apperr.Is(err, apperr.KindForbidden) {
					t.Errorf("removal of owner: err = %v, want Forbidden (caller=%s manage=%v member=%v)",
						err, caller.Hex(), canManage, isMember)
				}
			}
		}
	}
}
