// Package memberpolicy holds the membership-management rules that go beyond
// a plain role check: nobody edits their own role or removes themselves, and
// the workspace owner can never be demoted, removed or leave.
//
// The order of checks is part of the contract because each failure maps to a
// different status code.
package memberpolicy

import (
	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subject describes a membership change: who is acting, on whom, and in
// which workspace.
type Subject struct {
	CallerID primitive.ObjectID
	// CallerIsMember is false when the caller has no membership at all.
	CallerIsMember bool
	// CallerCanManage is the Authority's verdict for workspace:manage.
	CallerCanManage bool

	TargetID       primitive.ObjectID
	TargetIsMember bool

	OwnerID primitive.ObjectID
}

// CheckRoleChange validates a role change and returns the normalized role.
//
//  1. target is the owner             → Forbidden (even for the owner)
//  2. changing your own role          → BadRequest
//  3. caller not an admin             → Forbidden
//  4. unknown role                    → BadRequest
//  5. target not a member             → NotFound
func CheckRoleChange(s Subject, requested string) (models.Role, error) {
	if isOwner(s) {
		return "", apperr.Forbidden("The workspace owner's role cannot be changed.")
	}
	if s.CallerID == s.TargetID {
		return "", apperr.BadRequest("You cannot change your own role.")
	}
	if !s.CallerIsMember || !s.CallerCanManage {
		return "", apperr.Forbidden("Only admins can change roles.")
	}
	role, ok := models.ParseRole(requested)
	if !ok {
		return "", apperr.BadRequest("Invalid role.")
	}
	if !s.TargetIsMember {
		return "", apperr.NotFound("That user is not a member of this workspace.")
	}
	return role, nil
}

// CheckRemove validates removing another member.
//
//  1. target is the owner             → Forbidden (even for the owner)
//  2. caller not an admin             → Forbidden
//  3. removing yourself               → BadRequest (use leave)
//  4. target not a member             → NotFound
func CheckRemove(s Subject) error {
	if isOwner(s) {
		return apperr.Forbidden("The workspace owner cannot be removed.")
	}
	if !s.CallerIsMember || !s.CallerCanManage {
		return apperr.Forbidden("Only admins can remove members.")
	}
	if s.CallerID == s.TargetID {
		return apperr.BadRequest("You cannot remove yourself. Leave the workspace instead.")
	}
	if !s.TargetIsMember {
		return apperr.NotFound("That user is not a member of this workspace.")
	}
	return nil
}

func isOwner(s Subject) bool {
	return !s.OwnerID.IsZero() && s.TargetID == s.OwnerID
}

// CheckLeave validates the caller leaving. Only CallerID, CallerIsMember and
// OwnerID are consulted.
func CheckLeave(s Subject) error {
	if !s.CallerIsMember {
		return apperr.Forbidden("You are not a member of this workspace.")
	}
	if s.CallerID == s.OwnerID {
		return apperr.Forbidden("The workspace owner cannot leave. Delete the workspace instead.")
	}
	return nil
}
