// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	errorsfeature "github.com/dalemusser/planhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/planhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/planhub/internal/app/features/login"
	notificationsfeature "github.com/dalemusser/planhub/internal/app/features/notifications"
	profilefeature "github.com/dalemusser/planhub/internal/app/features/profile"
	projectsfeature "github.com/dalemusser/planhub/internal/app/features/projects"
	realtimefeature "github.com/dalemusser/planhub/internal/app/features/realtime"
	workitemsfeature "github.com/dalemusser/planhub/internal/app/features/workitems"
	workspacesfeature "github.com/dalemusser/planhub/internal/app/features/workspaces"
	"github.com/dalemusser/planhub/internal/app/services/invitations"
	projectsvc "github.com/dalemusser/planhub/internal/app/services/projects"
	usersvc "github.com/dalemusser/planhub/internal/app/services/users"
	itemsvc "github.com/dalemusser/planhub/internal/app/services/workitems"
	wssvc "github.com/dalemusser/planhub/internal/app/services/workspaces"
	auditstore "github.com/dalemusser/planhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/planhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/planhub/internal/app/store/users"
	"github.com/dalemusser/planhub/internal/app/system/auth"
	"github.com/dalemusser/planhub/internal/app/system/auditlog"
	"github.com/dalemusser/planhub/internal/app/system/authz"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Services are built once here and shared by the
// feature handlers; the realtime hub in deps is the publisher for work item
// changes.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTIssuer, appCfg.JWTTTL, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}
	// Re-read the user on every request so profile changes and deleted
	// accounts take effect immediately.
	tokens.SetPrincipalFetcher(userstore.NewFetcher(deps.MongoDatabase))

	db := deps.MongoDatabase
	authority, err := authz.New(membershipstore.New(db))
	if err != nil {
		logger.Error("authz init failed", zap.Error(err))
		return nil, err
	}

	invSvc := invitations.New(db, authority, deps.Metrics, logger)
	usersSvc := usersvc.New(db, logger)
	audit := auditlog.New(auditstore.New(db), logger, appCfg.AuditLog)
	wsSvc := wssvc.New(db, authority, invSvc, audit, logger)
	projSvc := projectsvc.New(db, authority, logger)
	itemSvc := itemsvc.New(db, authority, invSvc, deps.Hub, deps.Metrics, logger)

	errorsHandler := errorsfeature.NewHandler(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(errorsHandler.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(appCfg.CORSAllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(tokens.LoadPrincipal)

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	loginHandler := loginfeature.NewHandler(usersSvc, tokens, deps.Limiter, logger)
	r.Mount("/api/auth", loginfeature.Routes(loginHandler))

	r.Group(func(r chi.Router) {
		r.Use(tokens.RequireSignedIn)

		profileHandler := profilefeature.NewHandler(usersSvc, tokens, logger)
		r.Mount("/api/users", profilefeature.Routes(profileHandler))

		projectsHandler := projectsfeature.NewHandler(projSvc, logger)
		itemsHandler := workitemsfeature.NewHandler(itemSvc, logger)
		wsHandler := workspacesfeature.NewHandler(wsSvc, logger)
		r.Mount("/api/workspaces", workspacesfeature.Routes(wsHandler, func(r chi.Router) {
			projectsfeature.MountRoutes(r, projectsHandler, func(r chi.Router) {
				workitemsfeature.MountRoutes(r, itemsHandler)
			})
		}))

		notesHandler := notificationsfeature.NewHandler(invSvc, logger)
		r.Mount("/api/notifications", notificationsfeature.Routes(notesHandler))

		rtHandler := realtimefeature.NewHandler(deps.Hub, projSvc, appCfg.CORSAllowedOrigins, logger)
		r.Mount("/ws", realtimefeature.Routes(rtHandler))
	})

	return r, nil
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
