// internal/domain/models/workitem.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkItemStatus is the board column a work item sits in.
type WorkItemStatus string

const (
	StatusBacklog    WorkItemStatus = "BACKLOG"
	StatusTodo       WorkItemStatus = "TODO"
	StatusInProgress WorkItemStatus = "IN_PROGRESS"
	StatusDone       WorkItemStatus = "DONE"
)

// WorkItemStatuses is the canonical status list, in board order.
var WorkItemStatuses = []WorkItemStatus{StatusBacklog, StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is a known status.
func (s WorkItemStatus) Valid() bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type WorkItemPriority string

const (
	PriorityLow    WorkItemPriority = "LOW"
	PriorityMedium WorkItemPriority = "MEDIUM"
	PriorityHigh   WorkItemPriority = "HIGH"
	PriorityUrgent WorkItemPriority = "URGENT"
)

var WorkItemPriorities = []WorkItemPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p WorkItemPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type WorkItemType string

const (
	TypeTask WorkItemType = "TASK"
	TypeBug  WorkItemType = "BUG"
	TypeEpic WorkItemType = "EPIC"
)

var WorkItemTypes = []WorkItemType{TypeTask, TypeBug, TypeEpic}

func (t WorkItemType) Valid() bool {
	switch t {
	case TypeTask, TypeBug, TypeEpic:
		return true
	}
	return false
}

// WorkItem is a task, bug or epic inside one project.
//
// Position is a fractional sort key. Items in a project are rendered in
// ascending position order; the (project_id, position) unique index keeps
// that order strict. WorkspaceID is denormalized from the parent project so
// workspace deletion can cascade without a join.
type WorkItem struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description" json:"description"`
	Status      WorkItemStatus      `bson:"status" json:"status"`
	Priority    WorkItemPriority    `bson:"priority" json:"priority"`
	Type        WorkItemType        `bson:"type" json:"type"`
	Position    float64             `bson:"position" json:"position"`
	ProjectID   primitive.ObjectID  `bson:"project_id" json:"projectId"`
	WorkspaceID primitive.ObjectID  `bson:"workspace_id" json:"workspaceId"`
	CreatorID   primitive.ObjectID  `bson:"creator_id" json:"creatorId"`
	AssigneeID  *primitive.ObjectID `bson:"assignee_id,omitempty" json:"assigneeId"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
