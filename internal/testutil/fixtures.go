package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// FixturePassword is the plain-text password of every fixture user.
const FixturePassword = "correct-horse-battery"

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the same request adds another parameter.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test documents directly, bypassing services.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreateUser creates a user whose password is FixturePassword. A minimum
// bcrypt cost keeps tests fast.
func (f *Fixtures) CreateUser(ctx context.Context, email, fullName string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("bcrypt: %v", err)
	}
	now := time.Now().UTC()
	email = strings.ToLower(strings.TrimSpace(email))
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		EmailCI:      text.Fold(email),
		FullName:     fullName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateWorkspace creates a workspace owned by owner together with the
// owner's ADMIN membership.
func (f *Fixtures) CreateWorkspace(ctx context.Context, owner models.User, name string) models.Workspace {
	f.t.Helper()

	now := time.Now().UTC()
	ws := models.Workspace{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Slug:      strings.ReplaceAll(strings.ToLower(name), " ", "-") + "-" + primitive.NewObjectID().Hex()[18:],
		OwnerID:   owner.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "workspaces", ws)
	f.AddMember(ctx, ws, owner, models.RoleAdmin)
	return ws
}

// AddMember inserts a membership.
func (f *Fixtures) AddMember(ctx context.Context, ws models.Workspace, u models.User, role models.Role) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:          primitive.NewObjectID(),
		UserID:      u.ID,
		WorkspaceID: ws.ID,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	f.insert(ctx, "memberships", m)
	return m
}

// CreateProject inserts a project created by creator.
func (f *Fixtures) CreateProject(ctx context.Context, ws models.Workspace, creator models.User, name string) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:          primitive.NewObjectID(),
		Name:        name,
		WorkspaceID: ws.ID,
		CreatorID:   creator.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "projects", p)
	return p
}

// CreateWorkItem inserts a BACKLOG/MEDIUM/TASK item at position.
func (f *Fixtures) CreateWorkItem(ctx context.Context, p models.Project, creator models.User, title string, position float64) models.WorkItem {
	f.t.Helper()

	now := time.Now().UTC()
	wi := models.WorkItem{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Status:      models.StatusBacklog,
		Priority:    models.PriorityMedium,
		Type:        models.TypeTask,
		Position:    position,
		ProjectID:   p.ID,
		WorkspaceID: p.WorkspaceID,
		CreatorID:   creator.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "work_items", wi)
	return wi
}

// CreateNotification inserts an unread notification for recipient.
func (f *Fixtures) CreateNotification(ctx context.Context, recipient models.User, ws models.Workspace, typ models.NotificationType) models.Notification {
	f.t.Helper()

	n := models.Notification{
		ID:          primitive.NewObjectID(),
		RecipientID: recipient.ID,
		Type:        typ,
		WorkspaceID: ws.ID,
		Title:       "Fixture",
		Subtitle:    "Fixture notification",
		IsUnread:    true,
		CreatedAt:   time.Now().UTC(),
	}
	f.insert(ctx, "notifications", n)
	return n
}
