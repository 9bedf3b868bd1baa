package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Login methods recorded in LoginRecord.Method.
const (
	LoginPassword = "password"
	LoginRegister = "register"
)

// LoginRecord captures a single successful sign-in. Records older than the
// configured retention are pruned by a background job.
type LoginRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"-"`
	Method    string             `bson:"method" json:"method"`
	IP        string             `bson:"ip" json:"ip"`
	UserAgent string             `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
