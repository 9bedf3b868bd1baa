package bootstrap

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/dalemusser/planhub/internal/app/system/metrics"
	"github.com/dalemusser/planhub/internal/app/system/ratelimit"
	"github.com/dalemusser/planhub/internal/app/system/realtime"
	"github.com/dalemusser/planhub/internal/app/system/timeouts"
	"github.com/dalemusser/planhub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func testDeps(db *mongo.Database) DBDeps {
	return DBDeps{
		MongoClient:   db.Client(),
		MongoDatabase: db,
		Hub:           realtime.NewHub(zap.NewNop()),
		Metrics:       metrics.New(),
		Limiter:       ratelimit.NewLoginLimiter(50, time.Minute),
	}
}

func testAppConfig() AppConfig {
	return AppConfig{
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "planhub_test",
		MongoMaxPoolSize: 10,
		MongoMinPoolSize: 1,
		JWTSecret:        testutil.TokenSecret,
		JWTIssuer:        "planhub-test",
		JWTTTL:           time.Hour,
		LoginRateLimit:   50,
		LoginRateWindow:  time.Minute,
		MetricsEnabled:   true,
		AuditLog:         "db",

		PruneInterval:         time.Hour,
		NotificationRetention: 720 * time.Hour,
		LoginHistoryRetention: 2160 * time.Hour,
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"*", []string{"*"}},
		{" https://a.example , https://b.example,, ", []string{"https://a.example", "https://b.example"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid dev", dev, func(*AppConfig) {}, false},
		{"bad uri", dev, func(c *AppConfig) { c.MongoURI = "http://nope" }, true},
		{"empty database", dev, func(c *AppConfig) { c.MongoDatabase = "" }, true},
		{"pool inverted", dev, func(c *AppConfig) { c.MongoMinPoolSize = 20 }, true},
		{"dev secret allowed in dev", dev, func(c *AppConfig) { c.JWTSecret = devJWTSecret }, false},
		{"dev secret rejected in prod", prod, func(c *AppConfig) { c.JWTSecret = devJWTSecret }, true},
		{"short secret rejected in prod", prod, func(c *AppConfig) { c.JWTSecret = "short" }, true},
		{"strong secret in prod", prod, func(*AppConfig) {}, false},
		{"zero rate limit", dev, func(c *AppConfig) { c.LoginRateLimit = 0 }, true},
		{"bad audit mode", dev, func(c *AppConfig) { c.AuditLog = "everything" }, true},
		{"pruning disabled", dev, func(c *AppConfig) { c.PruneInterval = 0 }, false},
		{"negative retention", dev, func(c *AppConfig) { c.NotificationRetention = -time.Hour }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAppConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := testutil.SetupBareTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := testDeps(db)
	for i := 0; i < 2; i++ {
		if err := EnsureSchema(ctx, nil, testAppConfig(), deps, zap.NewNop()); err != nil {
			t.Fatalf("EnsureSchema pass %d: %v", i+1, err)
		}
	}
}

func TestStartup_ConfiguresTimeouts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	t.Cleanup(timeouts.Reset)

	cfg := testAppConfig()
	cfg.TimeoutShort = 3 * time.Second
	if err := Startup(ctx, nil, cfg, testDeps(db), zap.NewNop()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if got := timeouts.Short(); got != 3*time.Second {
		t.Errorf("Short() = %v, want 3s", got)
	}
	if got := timeouts.Medium(); got != timeouts.DefaultMedium {
		t.Errorf("Medium() = %v, want default", got)
	}
}

func TestNewScheduler_Jobs(t *testing.T) {
	db := testutil.SetupBareTestDB(t)

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   []string
	}{
		{"both", func(*AppConfig) {}, []string{"notification-prune", "login-history-prune"}},
		{"notifications kept", func(c *AppConfig) { c.NotificationRetention = 0 }, []string{"login-history-prune"}},
		{"interval off", func(c *AppConfig) { c.PruneInterval = 0 }, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAppConfig()
			tt.mutate(&cfg)
			s := newScheduler(cfg, db, zap.NewNop())
			if got := s.Jobs(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Jobs() = %v, want %v", got, tt.want)
			}
		})
	}
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID string `json:"id"`
	} `json:"user"`
}

// Drives the router end to end: sign up two users, invite one into a
// workspace, accept, and have the new member create a work item.
func TestBuildHandler_EndToEnd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := testAppConfig()
	deps := testDeps(db)
	t.Cleanup(deps.Hub.Stop)
	t.Cleanup(deps.Limiter.Stop)
	if err := Startup(ctx, nil, cfg, deps, zap.NewNop()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	t.Cleanup(timeouts.Reset)

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	anon := &client{t: t, base: srv.URL}
	if code := anon.do(http.MethodGet, "/health", nil, nil); code != http.StatusOK {
		t.Fatalf("health = %d", code)
	}
	if code := anon.do(http.MethodGet, "/api/workspaces", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list = %d, want 401", code)
	}
	if code := anon.do(http.MethodGet, "/nowhere", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown route = %d, want 404", code)
	}

	var alice, bob session
	if code := anon.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "alice@example.com", "password": "password1", "fullName": "Alice",
	}, &alice); code != http.StatusCreated {
		t.Fatalf("register alice = %d", code)
	}
	if code := anon.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "bob@example.com", "password": "password2", "fullName": "Bob",
	}, nil); code != http.StatusCreated {
		t.Fatalf("register bob = %d", code)
	}
	if code := anon.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "BOB@example.com", "password": "password2",
	}, &bob); code != http.StatusOK {
		t.Fatalf("login bob = %d", code)
	}

	a := &client{t: t, base: srv.URL, token: alice.Token}
	b := &client{t: t, base: srv.URL, token: bob.Token}

	var ws struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if code := a.do(http.MethodPost, "/api/workspaces", map[string]any{
		"name": "My Team", "memberEmails": []string{"bob@example.com"},
	}, &ws); code != http.StatusCreated {
		t.Fatalf("create workspace = %d", code)
	}
	if ws.Slug != "my-team" {
		t.Errorf("slug = %q, want my-team", ws.Slug)
	}

	var inbox []struct {
		ID string `json:"id"`
	}
	if code := b.do(http.MethodGet, "/api/notifications", nil, &inbox); code != http.StatusOK || len(inbox) != 1 {
		t.Fatalf("bob inbox = %d, %d notes", code, len(inbox))
	}
	if code := b.do(http.MethodPost, "/api/notifications/"+inbox[0].ID+"/accept", nil, nil); code != http.StatusOK {
		t.Fatalf("accept = %d", code)
	}

	var p struct {
		ID string `json:"id"`
	}
	if code := a.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/projects", map[string]string{"name": "Board"}, &p); code != http.StatusCreated {
		t.Fatalf("create project = %d", code)
	}

	var item struct {
		Position float64 `json:"position"`
		Status   string  `json:"status"`
	}
	itemsPath := "/api/workspaces/" + ws.ID + "/projects/" + p.ID + "/work-items"
	if code := b.do(http.MethodPost, itemsPath, map[string]string{"title": "First"}, &item); code != http.StatusCreated {
		t.Fatalf("create work item = %d", code)
	}
	if item.Position != 1000 || item.Status != "BACKLOG" {
		t.Errorf("item = %+v, want position 1000 status BACKLOG", item)
	}

	var list []json.RawMessage
	if code := a.do(http.MethodGet, itemsPath, nil, &list); code != http.StatusOK || len(list) != 1 {
		t.Errorf("list = %d, %d items", code, len(list))
	}

	if code := anon.do(http.MethodGet, "/metrics", nil, nil); code != http.StatusOK {
		t.Errorf("metrics = %d", code)
	}
}
