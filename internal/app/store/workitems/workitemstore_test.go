package workitemstore_test

import (
	"testing"

	workitemstore "github.com/dalemusser/planhub/internal/app/store/workitems"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/planhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newItem(p models.Project, creator models.User, title string, pos float64) models.WorkItem {
	return models.WorkItem{
		Title:       title,
		Status:      models.StatusTodo,
		Priority:    models.PriorityMedium,
		Type:        models.TypeTask,
		Position:    pos,
		ProjectID:   p.ID,
		WorkspaceID: p.WorkspaceID,
		CreatorID:   creator.ID,
	}
}

func TestStore_Insert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workitemstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	p := fixtures.CreateProject(ctx, ws, owner, "Board")

	wi, err := store.Insert(ctx, newItem(p, owner, "First", 1000))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if wi.ID.IsZero() || wi.CreatedAt.IsZero() {
		t.Errorf("inserted = %+v", wi)
	}

	_, err = store.Insert(ctx, newItem(p, owner, "Clash", 1000))
	if err != workitemstore.ErrDuplicatePosition {
		t.Errorf("same position err = %v, want ErrDuplicatePosition", err)
	}

	// positions are unique per project, not globally
	other := fixtures.CreateProject(ctx, ws, owner, "Other")
	if _, err := store.Insert(ctx, newItem(other, owner, "Same pos elsewhere", 1000)); err != nil {
		t.Errorf("insert in other project failed: %v", err)
	}
}

func TestStore_MaxPosition(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workitemstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	p := fixtures.CreateProject(ctx, ws, owner, "Board")

	_, ok, err := store.MaxPosition(ctx, p.ID)
	if err != nil {
		t.Fatalf("MaxPosition failed: %v", err)
	}
	if ok {
		t.Error("empty project should report ok=false")
	}

	fixtures.CreateWorkItem(ctx, p, owner, "a", 1000)
	fixtures.CreateWorkItem(ctx, p, owner, "b", 3000)
	fixtures.CreateWorkItem(ctx, p, owner, "c", 2000)

	max, ok, err := store.MaxPosition(ctx, p.ID)
	if err != nil {
		t.Fatalf("MaxPosition failed: %v", err)
	}
	if !ok || max != 3000 {
		t.Errorf("MaxPosition = (%v, %v), want (3000, true)", max, ok)
	}
}

func TestStore_ListByProject_Order(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workitemstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	p := fixtures.CreateProject(ctx, ws, owner, "Board")
	fixtures.CreateWorkItem(ctx, p, owner, "third", 3000)
	fixtures.CreateWorkItem(ctx, p, owner, "first", 500)
	fixtures.CreateWorkItem(ctx, p, owner, "second", 1500.5)

	items, err := store.ListByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByProject failed: %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(items) != len(want) {
		t.Fatalf("len = %d, want %d", len(items), len(want))
	}
	for i, w := range want {
		if items[i].Title != w {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Title, w)
		}
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workitemstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	p := fixtures.CreateProject(ctx, ws, owner, "Board")
	a := fixtures.CreateWorkItem(ctx, p, owner, "a", 1000)
	fixtures.CreateWorkItem(ctx, p, owner, "b", 2000)

	done := models.StatusDone
	saved, err := store.Update(ctx, a.ID, workitemstore.Changes{Status: &done, SetAssignee: true, AssigneeID: &owner.ID})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if saved.Status != models.StatusDone || saved.AssigneeID == nil || *saved.AssigneeID != owner.ID {
		t.Errorf("returned = %+v", saved)
	}
	if saved.Title != "a" || saved.Position != 1000 {
		t.Errorf("untouched fields changed: %+v", saved)
	}
	if saved.UpdatedAt.Before(a.CreatedAt) {
		t.Errorf("UpdatedAt not bumped: %v", saved.UpdatedAt)
	}

	// A field-level write leaves a concurrent position change alone.
	if err := store.Renumber(ctx, p.ID, []primitive.ObjectID{a.ID}, 5000); err != nil {
		t.Fatalf("Renumber failed: %v", err)
	}
	title := "renamed"
	saved, err = store.Update(ctx, a.ID, workitemstore.Changes{Title: &title})
	if err != nil {
		t.Fatalf("Update title failed: %v", err)
	}
	if saved.Position != 5000 || saved.Title != "renamed" {
		t.Errorf("after title update = %+v, want position 5000", saved)
	}

	saved, err = store.Update(ctx, a.ID, workitemstore.Changes{SetAssignee: true})
	if err != nil {
		t.Fatalf("clear assignee failed: %v", err)
	}
	if saved.AssigneeID != nil {
		t.Errorf("assignee = %v, want cleared", saved.AssigneeID)
	}

	taken := 2000.0
	if _, err := store.Update(ctx, a.ID, workitemstore.Changes{Position: &taken}); err != workitemstore.ErrDuplicatePosition {
		t.Errorf("Update onto taken position err = %v, want ErrDuplicatePosition", err)
	}
	if _, err := store.Update(ctx, primitive.NewObjectID(), workitemstore.Changes{Title: &title}); err != workitemstore.ErrNotFound {
		t.Errorf("Update missing err = %v, want ErrNotFound", err)
	}
}

func TestStore_Renumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workitemstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	p := fixtures.CreateProject(ctx, ws, owner, "Board")
	a := fixtures.CreateWorkItem(ctx, p, owner, "a", 1)
	b := fixtures.CreateWorkItem(ctx, p, owner, "b", 1.0000001)
	c := fixtures.CreateWorkItem(ctx, p, owner, "c", 2)

	// reverse the order; the two-pass renumber must not trip the unique index
	if err := store.Renumber(ctx, p.ID, []primitive.ObjectID{c.ID, b.ID, a.ID}, 1000); err != nil {
		t.Fatalf("Renumber failed: %v", err)
	}

	items, err := store.ListByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByProject failed: %v", err)
	}
	wantTitles := []string{"c", "b", "a"}
	wantPos := []float64{1000, 2000, 3000}
	for i := range items {
		if items[i].Title != wantTitles[i] || items[i].Position != wantPos[i] {
			t.Errorf("items[%d] = (%q, %v), want (%q, %v)", i, items[i].Title, items[i].Position, wantTitles[i], wantPos[i])
		}
	}
}

func TestStore_DeleteCascades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workitemstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	p1 := fixtures.CreateProject(ctx, ws, owner, "One")
	p2 := fixtures.CreateProject(ctx, ws, owner, "Two")
	x := fixtures.CreateWorkItem(ctx, p1, owner, "x", 1000)
	fixtures.CreateWorkItem(ctx, p1, owner, "y", 2000)
	fixtures.CreateWorkItem(ctx, p1, owner, "z", 3000)
	fixtures.CreateWorkItem(ctx, p2, owner, "w", 1000)

	if n, err := store.Delete(ctx, x.ID); err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	if n, err := store.DeleteByProject(ctx, p1.ID); err != nil || n != 2 {
		t.Errorf("DeleteByProject = %d, %v; want 2", n, err)
	}
	if n, err := store.DeleteByWorkspace(ctx, ws.ID); err != nil || n != 1 {
		t.Errorf("DeleteByWorkspace = %d, %v; want 1", n, err)
	}
}
