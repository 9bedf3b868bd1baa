package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/validators"
	"github.com/dalemusser/planhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupBareTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupBareTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "workspaces", "memberships", "projects", "work_items", "notifications", "login_records", "audit_events"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupBareTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	now := time.Now().UTC()
	id := primitive.NewObjectID

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{
			name: "valid user",
			coll: "users",
			doc:  bson.M{"email": "a@b.io", "email_ci": "a@b.io", "full_name": "A", "password_hash": "h", "created_at": now},
		},
		{
			name:    "user missing password hash",
			coll:    "users",
			doc:     bson.M{"email": "a@b.io", "email_ci": "a@b.io", "full_name": "A"},
			wantErr: true,
		},
		{
			name:    "user blank email",
			coll:    "users",
			doc:     bson.M{"email": "   ", "email_ci": "x", "full_name": "A", "password_hash": "h"},
			wantErr: true,
		},
		{
			name: "valid workspace",
			coll: "workspaces",
			doc:  bson.M{"name": "Team", "slug": "team", "owner_id": id()},
		},
		{
			name:    "workspace owner not an id",
			coll:    "workspaces",
			doc:     bson.M{"name": "Team", "slug": "team2", "owner_id": "nope"},
			wantErr: true,
		},
		{
			name: "valid membership",
			coll: "memberships",
			doc:  bson.M{"user_id": id(), "workspace_id": id(), "role": "VIEWER", "created_at": now},
		},
		{
			name:    "membership lower-case role",
			coll:    "memberships",
			doc:     bson.M{"user_id": id(), "workspace_id": id(), "role": "admin"},
			wantErr: true,
		},
		{
			name: "valid project",
			coll: "projects",
			doc:  bson.M{"name": "Board", "description": "", "workspace_id": id(), "creator_id": id()},
		},
		{
			name:    "project blank name",
			coll:    "projects",
			doc:     bson.M{"name": "", "workspace_id": id(), "creator_id": id()},
			wantErr: true,
		},
		{
			name: "valid work item",
			coll: "work_items",
			doc: bson.M{
				"title": "Fix", "status": "TODO", "priority": "HIGH", "type": "BUG", "position": 1000.0,
				"project_id": id(), "workspace_id": id(), "creator_id": id(),
			},
		},
		{
			name: "work item bad status",
			coll: "work_items",
			doc: bson.M{
				"title": "Fix", "status": "WONTFIX", "priority": "HIGH", "type": "BUG", "position": 2000.0,
				"project_id": id(), "workspace_id": id(), "creator_id": id(),
			},
			wantErr: true,
		},
		{
			name: "work item missing position",
			coll: "work_items",
			doc: bson.M{
				"title": "Fix", "status": "TODO", "priority": "HIGH", "type": "BUG",
				"project_id": id(), "workspace_id": id(), "creator_id": id(),
			},
			wantErr: true,
		},
		{
			name: "valid notification",
			coll: "notifications",
			doc:  bson.M{"recipient_id": id(), "type": "UPDATE", "workspace_id": id(), "is_unread": true, "created_at": now},
		},
		{
			name:    "notification unknown type",
			coll:    "notifications",
			doc:     bson.M{"recipient_id": id(), "type": "PING", "workspace_id": id(), "is_unread": true, "created_at": now},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
