package login_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/planhub/internal/app/features/login"
	"github.com/dalemusser/planhub/internal/app/services/users"
	"github.com/dalemusser/planhub/internal/app/system/ratelimit"
	"github.com/dalemusser/planhub/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, limiter *ratelimit.LoginLimiter) (*login.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := login.NewHandler(users.New(db, zap.NewNop()), testutil.NewTokenManager(t), limiter, zap.NewNop())
	return h, testutil.NewFixtures(t, db)
}

func TestHandleRegister(t *testing.T) {
	h, fx := newHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUser(ctx, "taken@example.com", "Taken")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"created", map[string]string{"email": "New@Example.com", "password": "longenough", "fullName": "New"}, http.StatusCreated},
		{"duplicate email", map[string]string{"email": "taken@example.com", "password": "longenough", "fullName": "Dup"}, http.StatusConflict},
		{"short password", map[string]string{"email": "x@example.com", "password": "short", "fullName": "X"}, http.StatusBadRequest},
		{"bad email", map[string]string{"email": "nope", "password": "longenough", "fullName": "X"}, http.StatusBadRequest},
		{"bad json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleRegister(rec, testutil.NewRequest(http.MethodPost, "/api/auth/register", tt.body))
			rec.AssertStatus(t, tt.want)
		})
	}

	rec := testutil.NewRecorder()
	h.HandleRegister(rec, testutil.NewRequest(http.MethodPost, "/api/auth/register",
		map[string]string{"email": "fresh@example.com", "password": "longenough", "fullName": "Fresh"}))
	var sess login.Session
	rec.DecodeJSON(t, &sess)
	if sess.Token == "" || sess.User.Email != "fresh@example.com" {
		t.Errorf("session = %+v", sess)
	}
	rec.AssertContains(t, `"expiresAt"`)
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Error("response leaks the password hash")
	}
}

func TestHandleLogin(t *testing.T) {
	h, fx := newHandler(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateUser(ctx, "alice@example.com", "Alice")

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"ok", "alice@example.com", testutil.FixturePassword, http.StatusOK},
		{"case-insensitive email", "ALICE@example.com", testutil.FixturePassword, http.StatusOK},
		{"wrong password", "alice@example.com", "wrong-password", http.StatusUnauthorized},
		{"unknown user", "bob@example.com", testutil.FixturePassword, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleLogin(rec, testutil.NewRequest(http.MethodPost, "/api/auth/login",
				map[string]string{"email": tt.email, "password": tt.password}))
			rec.AssertStatus(t, tt.want)
			if tt.want == http.StatusUnauthorized {
				rec.AssertContains(t, "Invalid email or password.")
			}
		})
	}
}

func TestHandleLogin_Throttled(t *testing.T) {
	limiter := ratelimit.NewLoginLimiter(2, time.Minute)
	defer limiter.Stop()
	h, _ := newHandler(t, limiter)

	var last *testutil.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = testutil.NewRecorder()
		h.HandleLogin(last, testutil.NewRequest(http.MethodPost, "/api/auth/login",
			map[string]string{"email": "nobody@example.com", "password": "whatever1"}))
	}
	last.AssertStatus(t, http.StatusTooManyRequests)
	last.AssertContains(t, `"error":"rate_limited"`)
}

func TestHandleLogin_RecordsHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := users.New(db, zap.NewNop())
	h := login.NewHandler(svc, testutil.NewTokenManager(t), nil, zap.NewNop())
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "alice@example.com", "Alice")

	req := testutil.NewRequest(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "alice@example.com", "password": testutil.FixturePassword})
	req.Header.Set("User-Agent", "planhub-test")
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	rec := testutil.NewRecorder()
	h.HandleLogin(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	// A failed attempt is not recorded.
	h.HandleLogin(testutil.NewRecorder(), testutil.NewRequest(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "alice@example.com", "password": "wrong-password"}))

	recs, err := svc.RecentLogins(ctx, u.ID)
	if err != nil {
		t.Fatalf("RecentLogins: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	if recs[0].UserAgent != "planhub-test" || recs[0].Method != "password" {
		t.Errorf("record = %+v", recs[0])
	}
}
