package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType distinguishes pending invites from informational alerts.
type NotificationType string

const (
	NotificationInvite NotificationType = "INVITE"
	NotificationUpdate NotificationType = "UPDATE"
)

// Notification is either a pending workspace invite (INVITE) or an
// informational alert such as a task assignment (UPDATE).
//
// At most one INVITE exists per (recipient_id, workspace_id); a partial
// unique index enforces it. UPDATE notifications are not de-duplicated.
type Notification struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RecipientID primitive.ObjectID  `bson:"recipient_id" json:"recipientId"`
	Type        NotificationType    `bson:"type" json:"type"`
	WorkspaceID primitive.ObjectID  `bson:"workspace_id" json:"workspaceId"`
	ProjectName string              `bson:"project_name,omitempty" json:"projectName,omitempty"`
	ReferenceID *primitive.ObjectID `bson:"reference_id,omitempty" json:"referenceId,omitempty"`
	Title       string              `bson:"title" json:"title"`
	Subtitle    string              `bson:"subtitle" json:"subtitle"`
	IsUnread    bool                `bson:"is_unread" json:"isUnread"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
}
