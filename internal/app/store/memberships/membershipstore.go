package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/planhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

var (
	ErrNotFound            = errors.New("membership not found")
	ErrDuplicateMembership = errors.New("user is already a member of this workspace")
	errBadRole             = errors.New(`role must be "ADMIN", "MEMBER" or "VIEWER"`)
)

// Add creates the (workspace, user) membership. The unique index on
// (user_id, workspace_id) turns a second Add into ErrDuplicateMembership.
func (s *Store) Add(ctx context.Context, workspaceID, userID primitive.ObjectID, role models.Role) (models.Membership, error) {
	if r, ok := models.ParseRole(string(role)); !ok || r != role {
		return models.Membership{}, errBadRole
	}
	m := models.Membership{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, ErrDuplicateMembership
		}
		return models.Membership{}, err
	}
	return m, nil
}

// Get loads the membership for (workspaceID, userID).
func (s *Store) Get(ctx context.Context, workspaceID, userID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"workspace_id": workspaceID, "user_id": userID}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Membership{}, ErrNotFound
		}
		return models.Membership{}, err
	}
	return m, nil
}

// RoleOf returns the user's role in the workspace; ok is false when the
// user has no membership. Only a store failure produces an error.
func (s *Store) RoleOf(ctx context.Context, userID, workspaceID primitive.ObjectID) (models.Role, bool, error) {
	m, err := s.Get(ctx, workspaceID, userID)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.Role, true, nil
}

// Exists reports whether the user is a member of the workspace.
func (s *Store) Exists(ctx context.Context, workspaceID, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"workspace_id": workspaceID, "user_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetRole changes the role of an existing membership.
func (s *Store) SetRole(ctx context.Context, workspaceID, userID primitive.ObjectID, role models.Role) error {
	if r, ok := models.ParseRole(string(role)); !ok || r != role {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"workspace_id": workspaceID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes the membership document for (workspaceID, userID).
func (s *Store) Remove(ctx context.Context, workspaceID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"workspace_id": workspaceID, "user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByWorkspace removes every membership of a workspace.
func (s *Store) DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByWorkspace returns the workspace's memberships in join order.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]models.Membership, error) {
	return s.find(ctx, bson.M{"workspace_id": workspaceID})
}

// ListByUser returns every membership the user holds, in join order.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Membership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Membership{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByWorkspaces returns the member count of each listed workspace.
// Workspaces with no members are absent from the map.
func (s *Store) CountByWorkspaces(ctx context.Context, workspaceIDs []primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	out := make(map[primitive.ObjectID]int, len(workspaceIDs))
	if len(workspaceIDs) == 0 {
		return out, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"workspace_id": bson.M{"$in": workspaceIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$workspace_id", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}
