// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/commonshub/internal/app/features/auditlog"
	healthfeature "github.com/dalemusser/commonshub/internal/app/features/health"
	organizationsfeature "github.com/dalemusser/commonshub/internal/app/features/organizations"
	publicationsfeature "github.com/dalemusser/commonshub/internal/app/features/publications"
	sessionfeature "github.com/dalemusser/commonshub/internal/app/features/session"
	transfersfeature "github.com/dalemusser/commonshub/internal/app/features/transfers"
	"github.com/dalemusser/commonshub/internal/app/governance"
	"github.com/dalemusser/commonshub/internal/app/system/auditlog"
	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/dalemusser/commonshub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. CommonsHub builds the identity gateway
// and the governance service here, then mounts one JSON feature router per
// area under /api.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr.UseTokens(auth.NewTokenVerifier(appCfg.JWTSecret, appCfg.JWTIssuer, appCfg.TokenTTL))

	trail := auditlog.New(deps.AuditSink, logger, auditlog.Config{
		Workflow: appCfg.AuditLogWorkflow,
		Security: appCfg.AuditLogSecurity,
	})
	svc := governance.New(deps.Store, trail, deps.Publisher, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(appCfg.CORSAllowedOrigins, coreCfg.Env))
	r.Use(auditlog.CaptureRequest)

	// Global auth middleware: resolves the caller from a bearer token or
	// cookie session. Absent identity leaves the request anonymous.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.Store, appCfg.StoreBackend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		if deps.WriteLimiter != nil {
			api.Use(ratelimit.Writes(deps.WriteLimiter))
		}

		sessionHandler := sessionfeature.NewHandler(sessionMgr, trail, logger)
		api.Mount("/session", sessionfeature.Routes(sessionHandler))

		orgHandler := organizationsfeature.NewHandler(svc, logger)
		api.Mount("/organizations", organizationsfeature.Routes(orgHandler, sessionMgr))
		api.Mount("/join-requests", organizationsfeature.JoinRoutes(orgHandler, sessionMgr))

		pubHandler := publicationsfeature.NewHandler(svc, logger)
		api.Mount("/publications", publicationsfeature.Routes(pubHandler, sessionMgr))

		transferHandler := transfersfeature.NewHandler(svc, logger)
		api.Mount("/transfers", transfersfeature.Routes(transferHandler, sessionMgr))

		auditHandler := auditlogfeature.NewHandler(svc, logger)
		api.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))
	})

	return r, nil
}
