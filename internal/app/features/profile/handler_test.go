package profile_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/planhub/internal/app/features/login"
	"github.com/dalemusser/planhub/internal/app/features/profile"
	usersvc "github.com/dalemusser/planhub/internal/app/services/users"
	"github.com/dalemusser/planhub/internal/domain/models"
	"github.com/dalemusser/planhub/internal/testutil"
	"go.uber.org/zap"
)

type fixture struct {
	h     *profile.Handler
	users *usersvc.Service
	alice models.User
	bob   models.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc := usersvc.New(db, zap.NewNop())
	return fixture{
		h:     profile.NewHandler(svc, testutil.NewTokenManager(t), zap.NewNop()),
		users: svc,
		alice: fx.CreateUser(ctx, "alice@example.com", "Alice"),
		bob:   fx.CreateUser(ctx, "bob@example.com", "Bob"),
	}
}

func TestServeMe(t *testing.T) {
	f := setup(t)

	rec := testutil.NewRecorder()
	f.h.ServeMe(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/api/users/me", nil, f.alice))
	rec.AssertStatus(t, http.StatusOK)

	var got models.User
	rec.DecodeJSON(t, &got)
	if got.ID != f.alice.ID || got.FullName != "Alice" {
		t.Errorf("me = %+v", got)
	}

	rec = testutil.NewRecorder()
	f.h.ServeMe(rec, testutil.NewRequest(http.MethodGet, "/api/users/me", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestHandleUpdateProfile(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"rename", map[string]string{"fullName": "Alice Smith"}, http.StatusOK},
		{"new email", map[string]string{"email": "alice.smith@example.com"}, http.StatusOK},
		{"email taken", map[string]string{"email": "bob@example.com"}, http.StatusConflict},
		{"blank name", map[string]string{"fullName": "  "}, http.StatusBadRequest},
		{"bad email", map[string]string{"email": "nope"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			f.h.HandleUpdateProfile(rec, testutil.NewAuthenticatedRequest(http.MethodPatch, "/api/users/me", tt.body, f.alice))
			rec.AssertStatus(t, tt.want)
		})
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := f.users.Me(ctx, f.alice.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if u.FullName != "Alice Smith" || u.Email != "alice.smith@example.com" {
		t.Errorf("stored user = %+v", u)
	}
}

func TestHandleUpdateProfile_ReturnsFreshToken(t *testing.T) {
	f := setup(t)

	rec := testutil.NewRecorder()
	f.h.HandleUpdateProfile(rec, testutil.NewAuthenticatedRequest(http.MethodPatch, "/api/users/me",
		map[string]string{"email": "new@example.com"}, f.alice))
	rec.AssertStatus(t, http.StatusOK)

	var sess login.Session
	rec.DecodeJSON(t, &sess)
	claims, err := f.h.Tokens.Parse(sess.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Email != "new@example.com" {
		t.Errorf("token email = %q, want new@example.com", claims.Email)
	}
}

func TestHandleChangePassword(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong current", map[string]string{"currentPassword": "nope-nope", "newPassword": "brand-new-pass"}, http.StatusBadRequest},
		{"too short", map[string]string{"currentPassword": testutil.FixturePassword, "newPassword": "short"}, http.StatusBadRequest},
		{"ok", map[string]string{"currentPassword": testutil.FixturePassword, "newPassword": "brand-new-pass"}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			f.h.HandleChangePassword(rec, testutil.NewAuthenticatedRequest(http.MethodPatch, "/api/users/me/password", tt.body, f.alice))
			rec.AssertStatus(t, tt.want)
		})
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := f.users.Login(ctx, "alice@example.com", "brand-new-pass"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestServeLogins(t *testing.T) {
	f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f.users.RecordLogin(ctx, f.alice.ID, models.LoginPassword, "203.0.113.9", "test-agent")
	f.users.RecordLogin(ctx, f.bob.ID, models.LoginPassword, "203.0.113.10", "other")

	rec := testutil.NewRecorder()
	f.h.ServeLogins(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/api/users/me/logins", nil, f.alice))
	rec.AssertStatus(t, http.StatusOK)

	var got []models.LoginRecord
	rec.DecodeJSON(t, &got)
	if len(got) != 1 || got[0].IP != "203.0.113.9" || got[0].Method != models.LoginPassword {
		t.Errorf("logins = %+v", got)
	}
}
