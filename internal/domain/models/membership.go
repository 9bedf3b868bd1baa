// internal/domain/models/membership.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a user's standing inside one workspace.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
	RoleViewer Role = "VIEWER"
)

// AllRoles lists the valid roles from most to least privileged.
var AllRoles = []Role{RoleAdmin, RoleMember, RoleViewer}

// ParseRole accepts any letter case ("admin", "Admin", "ADMIN").
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range AllRoles {
		if r == v {
			return r, true
		}
	}
	return "", false
}

// Display returns the title-cased role shown in member lists ("Admin").
func (r Role) Display() string {
	if r == "" {
		return ""
	}
	s := strings.ToLower(string(r))
	return strings.ToUpper(s[:1]) + s[1:]
}

// Membership is the authoritative join between users and workspaces.
// Exactly one document per (user_id, workspace_id).
type Membership struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspaceId"`
	Role        Role               `bson:"role" json:"role"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}
