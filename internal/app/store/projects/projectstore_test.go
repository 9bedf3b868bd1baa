package projectstore_test

import (
	"testing"

	projectstore "github.com/dalemusser/planhub/internal/app/store/projects"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/planhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	other := fixtures.CreateWorkspace(ctx, owner, "Other")

	first, err := store.Create(ctx, models.Project{Name: "First", WorkspaceID: ws.ID, CreatorID: owner.ID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first.ID.IsZero() || first.CreatedAt.IsZero() {
		t.Errorf("created = %+v", first)
	}
	if _, err := store.Create(ctx, models.Project{Name: "Second", WorkspaceID: ws.ID, CreatorID: owner.ID}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	fixtures.CreateProject(ctx, other, owner, "Elsewhere")

	list, err := store.ListByWorkspace(ctx, ws.ID)
	if err != nil {
		t.Fatalf("ListByWorkspace failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Name != "First" || list[1].Name != "Second" {
		t.Errorf("order = %q, %q; want creation order", list[0].Name, list[1].Name)
	}

	counts, err := store.CountByWorkspaces(ctx, []primitive.ObjectID{ws.ID, other.ID})
	if err != nil {
		t.Fatalf("CountByWorkspaces failed: %v", err)
	}
	if counts[ws.ID] != 2 || counts[other.ID] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	p := fixtures.CreateProject(ctx, ws, owner, "Board")

	desc := "Quarterly roadmap"
	got, err := store.Update(ctx, p.ID, projectstore.Update{Description: &desc})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Name != "Board" {
		t.Errorf("Name = %q, want unchanged", got.Name)
	}
	if got.Description != desc {
		t.Errorf("Description = %q, want %q", got.Description, desc)
	}

	name := "Renamed"
	if _, err := store.Update(ctx, primitive.NewObjectID(), projectstore.Update{Name: &name}); err != projectstore.ErrNotFound {
		t.Errorf("missing project err = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	p := fixtures.CreateProject(ctx, ws, owner, "A")
	fixtures.CreateProject(ctx, ws, owner, "B")

	n, err := store.Delete(ctx, p.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	if _, err := store.GetByID(ctx, p.ID); err != projectstore.ErrNotFound {
		t.Errorf("GetByID after delete err = %v, want ErrNotFound", err)
	}

	n, err = store.DeleteByWorkspace(ctx, ws.ID)
	if err != nil || n != 1 {
		t.Errorf("DeleteByWorkspace = %d, %v; want 1", n, err)
	}
}
