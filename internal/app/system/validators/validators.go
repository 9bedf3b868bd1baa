// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/planhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates every planhub collection and attaches its JSON-schema
// validator. Servers without collMod validator support get the collections
// only; problems on individual collections are joined into one error.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("workspaces", workspacesSchema())
	ensure("memberships", membershipsSchema())
	ensure("projects", projectsSchema())
	ensure("work_items", workItemsSchema())
	ensure("notifications", notificationsSchema())
	ensure("login_records", loginRecordsSchema())
	ensure("audit_events", auditEventsSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}


// collectionExists checks by name without creating anything.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection creates name when missing; created reports whether it
// did.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enumOf[T ~string](vals []T) bson.A {
	out := bson.A{}
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "email_ci", "full_name", "password_hash"},
			"properties": bson.M{
				"email":         nonBlank,
				"email_ci":      nonBlank,
				"full_name":     bson.M{"bsonType": "string"},
				"password_hash": nonBlank,
				"created_at":    bson.M{"bsonType": "date"},
				"updated_at":    bson.M{"bsonType": "date"},
			},
		},
	}
}

func workspacesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "slug", "owner_id"},
			"properties": bson.M{
				"name":     nonBlank,
				"slug":     nonBlank,
				"owner_id": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func membershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "workspace_id", "role"},
			"properties": bson.M{
				"user_id":      bson.M{"bsonType": "objectId"},
				"workspace_id": bson.M{"bsonType": "objectId"},
				"role":         bson.M{"enum": enumOf(models.AllRoles)},
				"created_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "workspace_id", "creator_id"},
			"properties": bson.M{
				"name":         nonBlank,
				"description":  bson.M{"bsonType": "string"},
				"workspace_id": bson.M{"bsonType": "objectId"},
				"creator_id":   bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func workItemsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "status", "priority", "type", "position", "project_id", "workspace_id", "creator_id"},
			"properties": bson.M{
				"title":        nonBlank,
				"description":  bson.M{"bsonType": "string"},
				"status":       bson.M{"enum": enumOf(models.WorkItemStatuses)},
				"priority":     bson.M{"enum": enumOf(models.WorkItemPriorities)},
				"type":         bson.M{"enum": enumOf(models.WorkItemTypes)},
				"position":     bson.M{"bsonType": bson.A{"double", "int", "long"}},
				"project_id":   bson.M{"bsonType": "objectId"},
				"workspace_id": bson.M{"bsonType": "objectId"},
				"creator_id":   bson.M{"bsonType": "objectId"},
				"assignee_id":  bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func notificationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"recipient_id", "type", "workspace_id", "is_unread", "created_at"},
			"properties": bson.M{
				"recipient_id": bson.M{"bsonType": "objectId"},
				"type":         bson.M{"enum": bson.A{string(models.NotificationInvite), string(models.NotificationUpdate)}},
				"workspace_id": bson.M{"bsonType": "objectId"},
				"reference_id": bson.M{"bsonType": "objectId"},
				"title":        bson.M{"bsonType": "string"},
				"subtitle":     bson.M{"bsonType": "string"},
				"is_unread":    bson.M{"bsonType": "bool"},
				"created_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func loginRecordsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "method", "created_at"},
			"properties": bson.M{
				"user_id":    bson.M{"bsonType": "objectId"},
				"method":     bson.M{"enum": bson.A{models.LoginPassword, models.LoginRegister}},
				"ip":         bson.M{"bsonType": "string"},
				"user_agent": bson.M{"bsonType": "string"},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func auditEventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"workspace_id", "actor_id", "type", "created_at"},
			"properties": bson.M{
				"workspace_id": bson.M{"bsonType": "objectId"},
				"actor_id":     bson.M{"bsonType": "objectId"},
				"type":         bson.M{"bsonType": "string", "minLength": 1},
				"target_id":    bson.M{"bsonType": "objectId"},
				"details":      bson.M{"bsonType": "object"},
				"created_at":   bson.M{"bsonType": "date"},
			},
		},
	}
}
