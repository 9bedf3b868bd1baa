package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit event types recorded against a workspace.
const (
	AuditWorkspaceCreated = "workspace_created"
	AuditWorkspaceRenamed = "workspace_renamed"
	AuditMembersInvited   = "members_invited"
	AuditRoleChanged      = "member_role_changed"
	AuditMemberRemoved    = "member_removed"
	AuditMemberLeft       = "member_left"
)

// AuditEvent is one administrative action taken in a workspace.
type AuditEvent struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	WorkspaceID primitive.ObjectID  `bson:"workspace_id" json:"workspaceId"`
	ActorID     primitive.ObjectID  `bson:"actor_id" json:"actorId"`
	Type        string              `bson:"type" json:"type"`
	TargetID    *primitive.ObjectID `bson:"target_id,omitempty" json:"targetId,omitempty"`
	Details     map[string]string   `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
}
