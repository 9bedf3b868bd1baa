// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account. It can own workspaces, hold memberships,
// create projects and be assigned work items.
//
// NOTE:
//   - EmailCI is the folded form of Email and carries the unique index,
//     so "Ann@Example.com" and "ann@example.com" are the same user.
//   - Memberships are not embedded; use the memberships collection.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	EmailCI      string             `bson:"email_ci" json:"-"`
	FullName     string             `bson:"full_name" json:"fullName"`
	PasswordHash string             `bson:"password_hash" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserSummary is the public projection of a User used in member lists,
// search results and work item assignee/creator fields.
type UserSummary struct {
	ID       primitive.ObjectID `json:"id"`
	Email    string             `json:"email"`
	FullName string             `json:"fullName"`
}

// Summary returns the public projection of u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, FullName: u.FullName}
}
