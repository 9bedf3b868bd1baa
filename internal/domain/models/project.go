package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project belongs to exactly one workspace and owns its work items.
type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspaceId"`
	CreatorID   primitive.ObjectID `bson:"creator_id" json:"creatorId"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
