package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workspace is the top-level tenant container. It owns its memberships and
// projects; deleting a workspace removes both (and the projects' work items).
//
// The owner always holds an ADMIN membership and can never leave, be demoted
// or be removed through membership operations. Deleting the workspace is the
// only way out for an owner.
type Workspace struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Name string `bson:"name" json:"name"`

	// Slug must be unique across all workspaces.
	Slug string `bson:"slug" json:"slug"`

	OwnerID primitive.ObjectID `bson:"owner_id" json:"ownerId"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
