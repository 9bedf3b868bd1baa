package testutil

import (
	"testing"

	membershipstore "github.com/dalemusser/planhub/internal/app/store/memberships"
	"github.com/dalemusser/planhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewAuthority returns an Authority backed by db's memberships collection.
func NewAuthority(t *testing.T, db *mongo.Database) *authz.Authority {
	t.Helper()
	a, err := authz.New(membershipstore.New(db))
	if err != nil {
		t.Fatalf("authz.New: %v", err)
	}
	return a
}
