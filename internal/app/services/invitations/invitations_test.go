package invitations_test

import (
	"sync"
	"testing"

	"github.com/dalemusser/planhub/internal/app/services/invitations"
	membershipstore "github.com/dalemusser/planhub/internal/app/store/memberships"
	notificationstore "github.com/dalemusser/planhub/internal/app/store/notifications"
	"github.com/dalemusser/planhub/internal/app/system/apperr"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/planhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newService(t *testing.T, db *mongo.Database) *invitations.Service {
	t.Helper()
	return invitations.New(db, testutil.NewAuthority(t, db), nil, zap.NewNop())
}

func TestInvite_SkipsAndDeduplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	bob := fixtures.CreateUser(ctx, "bob@example.com", "Bob")
	member := fixtures.CreateUser(ctx, "member@example.com", "Member")
	fixtures.AddMember(ctx, ws, member, models.RoleMember)

	n, err := svc.Invite(ctx, owner.ID, ws.ID, []string{
		"BOB@example.com",
		"bob@example.com",
		"owner@example.com",
		"nobody@example.com",
		"member@example.com",
		"",
	})
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if n != 1 {
		t.Errorf("created = %d, want 1", n)
	}

	// a second round must not add another pending invite
	n, err = svc.Invite(ctx, owner.ID, ws.ID, []string{"bob@example.com"})
	if err != nil {
		t.Fatalf("second Invite: %v", err)
	}
	if n != 0 {
		t.Errorf("second created = %d, want 0", n)
	}

	count, err := notificationstore.New(db).CountInvites(ctx, bob.ID, ws.ID)
	if err != nil {
		t.Fatalf("CountInvites: %v", err)
	}
	if count != 1 {
		t.Errorf("pending invites for bob = %d, want 1", count)
	}
}

func TestInvite_RequiresAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	fixtures.CreateUser(ctx, "bob@example.com", "Bob")
	member := fixtures.CreateUser(ctx, "member@example.com", "Member")
	fixtures.AddMember(ctx, ws, member, models.RoleMember)
	outsider := fixtures.CreateUser(ctx, "out@example.com", "Out")

	for _, caller := range []models.User{member, outsider} {
		_, err := svc.Invite(ctx, caller.ID, ws.ID, []string{"bob@example.com"})
		if !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("Invite by %s err = %v, want Forbidden", caller.Email, err)
		}
	}
}

func TestAccept(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	bob := fixtures.CreateUser(ctx, "bob@example.com", "Bob")
	if _, err := svc.Invite(ctx, owner.ID, ws.ID, []string{bob.Email}); err != nil {
		t.Fatalf("Invite: %v", err)
	}
	inbox, err := svc.Inbox(ctx, bob.ID)
	if err != nil || len(inbox) != 1 {
		t.Fatalf("Inbox = %v, %v; want one item", inbox, err)
	}
	if inbox[0].Type != "invite" || inbox[0].WorkspaceName != "Team" || inbox[0].ReferenceID != ws.ID.Hex() {
		t.Errorf("inbox item = %+v", inbox[0])
	}

	// only the recipient can act on it
	if _, err := svc.Accept(ctx, owner.ID, inbox[0].ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Accept by owner err = %v, want Forbidden", err)
	}

	wsID, err := svc.Accept(ctx, bob.ID, inbox[0].ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if wsID != ws.ID {
		t.Errorf("workspace id = %s, want %s", wsID.Hex(), ws.ID.Hex())
	}

	members := membershipstore.New(db)
	m, err := members.Get(ctx, ws.ID, bob.ID)
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if m.Role != models.RoleMember {
		t.Errorf("role = %s, want MEMBER", m.Role)
	}
	if inbox, _ := svc.Inbox(ctx, bob.ID); len(inbox) != 0 {
		t.Errorf("inbox after accept = %d items, want 0", len(inbox))
	}

	// a second accept of the same id finds nothing
	if _, err := svc.Accept(ctx, bob.ID, inbox[0].ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second Accept err = %v, want NotFound", err)
	}
}

func TestAccept_AlreadyMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	bob := fixtures.CreateUser(ctx, "bob@example.com", "Bob")
	fixtures.AddMember(ctx, ws, bob, models.RoleViewer)
	note := fixtures.CreateNotification(ctx, bob, ws, models.NotificationInvite)

	if _, err := svc.Accept(ctx, bob.ID, note.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	role, ok, err := membershipstore.New(db).RoleOf(ctx, bob.ID, ws.ID)
	if err != nil || !ok {
		t.Fatalf("RoleOf = %v, %v", ok, err)
	}
	if role != models.RoleViewer {
		t.Errorf("role = %s, want the existing VIEWER", role)
	}
	if _, err := notificationstore.New(db).GetByID(ctx, note.ID); err != notificationstore.ErrNotFound {
		t.Errorf("notification still present: %v", err)
	}
}

func TestAccept_WorkspaceGone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	bob := fixtures.CreateUser(ctx, "bob@example.com", "Bob")
	ghost := models.Workspace{ID: primitive.NewObjectID(), Name: "Ghost"}
	note := fixtures.CreateNotification(ctx, bob, ghost, models.NotificationInvite)

	if _, err := svc.Accept(ctx, bob.ID, note.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Accept err = %v, want NotFound", err)
	}
	if _, err := notificationstore.New(db).GetByID(ctx, note.ID); err != notificationstore.ErrNotFound {
		t.Errorf("stale invite not cleaned up: %v", err)
	}
}

// One invite is consumed once: racing Accepts and a Reject leave exactly
// one winner, and a membership only when an Accept won.
func TestAccept_ConsumesInviteOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	bob := fixtures.CreateUser(ctx, "bob@example.com", "Bob")
	note := fixtures.CreateNotification(ctx, bob, ws, models.NotificationInvite)

	const accepters = 4
	errs := make([]error, accepters+1)
	var wg sync.WaitGroup
	for i := 0; i < accepters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Accept(ctx, bob.ID, note.ID)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[accepters] = svc.Reject(ctx, bob.ID, note.ID)
	}()
	wg.Wait()

	winners, acceptWon := 0, false
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
			acceptWon = i < accepters
		case !apperr.Is(err, apperr.KindNotFound):
			t.Errorf("call %d err = %v, want nil or NotFound", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want 1 (%v)", winners, errs)
	}

	member, err := membershipstore.New(db).Exists(ctx, ws.ID, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if member != acceptWon {
		t.Errorf("membership = %v, accept won = %v", member, acceptWon)
	}

	// sequential replays are NotFound too
	if _, err := svc.Accept(ctx, bob.ID, note.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("replayed Accept err = %v, want NotFound", err)
	}
	if err := svc.Reject(ctx, bob.ID, note.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("replayed Reject err = %v, want NotFound", err)
	}
}

func TestRejectAndMarkRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	bob := fixtures.CreateUser(ctx, "bob@example.com", "Bob")
	invite := fixtures.CreateNotification(ctx, bob, ws, models.NotificationInvite)
	update := fixtures.CreateNotification(ctx, bob, ws, models.NotificationUpdate)

	t.Run("reject of an update is a bad request", func(t *testing.T) {
		if err := svc.Reject(ctx, bob.ID, update.ID); !apperr.Is(err, apperr.KindBadRequest) {
			t.Errorf("err = %v, want BadRequest", err)
		}
	})

	t.Run("mark read", func(t *testing.T) {
		if err := svc.MarkRead(ctx, owner.ID, update.ID); !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("MarkRead by other err = %v, want Forbidden", err)
		}
		if err := svc.MarkRead(ctx, bob.ID, update.ID); err != nil {
			t.Fatalf("MarkRead: %v", err)
		}
		unread, err := svc.HasUnread(ctx, bob.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !unread {
			t.Error("the invite is still unread, HasUnread = false")
		}
	})

	t.Run("reject", func(t *testing.T) {
		if err := svc.Reject(ctx, bob.ID, invite.ID); err != nil {
			t.Fatalf("Reject: %v", err)
		}
		if ok, _ := membershipstore.New(db).Exists(ctx, ws.ID, bob.ID); ok {
			t.Error("reject created a membership")
		}
		unread, _ := svc.HasUnread(ctx, bob.ID)
		if unread {
			t.Error("HasUnread = true after reject and mark read")
		}
	})
}

func TestNotifyAssignment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "owner@example.com", "Owner")
	bob := fixtures.CreateUser(ctx, "bob@example.com", "Bob")
	ws := fixtures.CreateWorkspace(ctx, owner, "Team")
	p := fixtures.CreateProject(ctx, ws, owner, "Board")
	wi := fixtures.CreateWorkItem(ctx, p, owner, "Fix login", 1000)

	// self-assignment and unassigned items send nothing
	self := wi
	self.AssigneeID = &owner.ID
	for _, item := range []models.WorkItem{wi, self} {
		if err := svc.NotifyAssignment(ctx, owner.ID, item, p); err != nil {
			t.Fatalf("NotifyAssignment: %v", err)
		}
	}
	if inbox, _ := svc.Inbox(ctx, owner.ID); len(inbox) != 0 {
		t.Errorf("owner inbox = %d, want 0", len(inbox))
	}

	wi.AssigneeID = &bob.ID
	for i := 0; i < 2; i++ {
		if err := svc.NotifyAssignment(ctx, owner.ID, wi, p); err != nil {
			t.Fatalf("NotifyAssignment: %v", err)
		}
	}
	inbox, err := svc.Inbox(ctx, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 2 {
		t.Fatalf("bob inbox = %d, want 2 (updates are not de-duplicated)", len(inbox))
	}
	got := inbox[0]
	if got.Type != "update" || got.ProjectName != "Board" || got.ReferenceID != wi.ID.Hex() {
		t.Errorf("update item = %+v", got)
	}
	if got.Subtitle != "You have been assigned to: Fix login" {
		t.Errorf("subtitle = %q", got.Subtitle)
	}
}
