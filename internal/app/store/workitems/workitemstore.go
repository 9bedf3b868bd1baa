// internal/app/store/workitems/workitemstore.go
package workitemstore

import (
	"context"
	"errors"
	"math"
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

var (
	ErrNotFound = errors.New("work item not found")
	// ErrDuplicatePosition means another item in the project already holds
	// the position; the (project_id, position) unique index raised it.
	ErrDuplicatePosition = errors.New("position already taken in this project")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("work_items")}
}

var byPosition = bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}}

// Insert stores a new work item. ID and timestamps are set here; Position
// must already be allocated.
func (s *Store) Insert(ctx context.Context, wi models.WorkItem) (models.WorkItem, error) {
	now := time.Now().UTC()
	wi.ID = primitive.NewObjectID()
	wi.CreatedAt = now
	wi.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, wi); err != nil {
		if wafflemongo.IsDup(err) {
			return models.WorkItem{}, ErrDuplicatePosition
		}
		return models.WorkItem{}, err
	}
	return wi, nil
}

// MaxPosition returns the largest position in the project; ok is false
// when the project has no items.
func (s *Store) MaxPosition(ctx context.Context, projectID primitive.ObjectID) (max float64, ok bool, err error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "position", Value: -1}}).
		SetProjection(bson.M{"position": 1})
	var row struct {
		Position float64 `bson:"position"`
	}
	err = s.c.FindOne(ctx, bson.M{"project_id": projectID}, opts).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.Position, true, nil
}

// GetByID loads one work item.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.WorkItem, error) {
	var wi models.WorkItem
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&wi); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.WorkItem{}, ErrNotFound
		}
		return models.WorkItem{}, err
	}
	return wi, nil
}

// ListByProject returns the project's items in board order.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.WorkItem, error) {
	cur, err := s.c.Find(ctx, bson.M{"project_id": projectID}, options.Find().SetSort(byPosition))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.WorkItem{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Changes lists the fields Update writes. Nil fields are left as stored.
// With SetAssignee, a nil AssigneeID clears the assignee.
type Changes struct {
	Title       *string
	Description *string
	Status      *models.WorkItemStatus
	Priority    *models.WorkItemPriority
	Type        *models.WorkItemType
	SetAssignee bool
	AssigneeID  *primitive.ObjectID
	Position    *float64
}

func (c Changes) update(now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if c.Title != nil {
		set["title"] = *c.Title
	}
	if c.Description != nil {
		set["description"] = *c.Description
	}
	if c.Status != nil {
		set["status"] = *c.Status
	}
	if c.Priority != nil {
		set["priority"] = *c.Priority
	}
	if c.Type != nil {
		set["type"] = *c.Type
	}
	if c.Position != nil {
		set["position"] = *c.Position
	}
	upd := bson.M{"$set": set}
	if c.SetAssignee {
		if c.AssigneeID != nil {
			set["assignee_id"] = *c.AssigneeID
		} else {
			upd["$unset"] = bson.M{"assignee_id": ""}
		}
	}
	return upd
}

// Update writes only the fields named in c, bumps UpdatedAt and returns the
// stored document afterwards.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, c Changes) (models.WorkItem, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var wi models.WorkItem
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, c.update(time.Now().UTC()), opts).Decode(&wi)
	switch {
	case err == nil:
		return wi, nil
	case err == mongo.ErrNoDocuments:
		return models.WorkItem{}, ErrNotFound
	case wafflemongo.IsDup(err):
		return models.WorkItem{}, ErrDuplicatePosition
	default:
		return models.WorkItem{}, err
	}
}

// Renumber assigns positions step, 2*step, ... to ids in the given order.
// It runs in two passes, parking every item below the project's current
// minimum first, so the unique index never sees two items on the same
// position mid-way. Call it inside a transaction.
func (s *Store) Renumber(ctx context.Context, projectID primitive.ObjectID, ids []primitive.ObjectID, step float64) error {
	if len(ids) == 0 {
		return nil
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "position", Value: 1}}).SetProjection(bson.M{"position": 1})
	var lowest struct {
		Position float64 `bson:"position"`
	}
	if err := s.c.FindOne(ctx, bson.M{"project_id": projectID}, opts).Decode(&lowest); err != nil && err != mongo.ErrNoDocuments {
		return err
	}
	park := math.Min(lowest.Position, 0) - 1

	now := time.Now().UTC()
	for i, id := range ids {
		if _, err := s.c.UpdateOne(ctx,
			bson.M{"_id": id, "project_id": projectID},
			bson.M{"$set": bson.M{"position": park - float64(i)}},
		); err != nil {
			return err
		}
	}
	for i, id := range ids {
		if _, err := s.c.UpdateOne(ctx,
			bson.M{"_id": id, "project_id": projectID},
			bson.M{"$set": bson.M{"position": float64(i+1) * step, "updated_at": now}},
		); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes one work item.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByProject removes every item of one project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByWorkspace removes every item of every project in a workspace.
func (s *Store) DeleteByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
