// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/commonshub/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// Store backends.
const (
	BackendMongo = "mongo"
	BackendBolt  = "bolt"
)

// minSecretLen is the shortest jwt_secret accepted in production.
const minSecretLen = 32

// appConfigKeys defines the configuration keys for CommonsHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: COMMONSHUB_MONGO_URI, COMMONSHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Entity store: 'mongo' or 'bolt'"},

	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "commonshub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "require_transactions", Default: true, Desc: "Fail writes instead of running them without a transaction on standalone servers"},

	{Name: "bolt_path", Default: "./data/commonshub.db", Desc: "bbolt file path (bolt backend)"},

	// Identity gateway
	{Name: "jwt_secret", Default: "dev-only-jwt-secret-change-me-0123456789", Desc: "HMAC secret for bearer tokens (must be strong in production)"},
	{Name: "jwt_issuer", Default: "commonshub", Desc: "Expected bearer token issuer"},
	{Name: "token_ttl", Default: "1h", Desc: "Lifetime of issued bearer tokens"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "commonshub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime"},

	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated origins allowed to call the API"},

	{Name: "write_rate_limit", Default: 120, Desc: "Max state-changing API requests per caller per window (0 disables)"},
	{Name: "write_rate_window", Default: "1m", Desc: "Window for write_rate_limit"},

	// Workflow events
	{Name: "redis_addr", Default: "", Desc: "Redis address for workflow events (blank disables publishing)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "events_channel_prefix", Default: "commonshub:", Desc: "Prefix for workflow event channels"},

	// Audit logging settings
	{Name: "audit_log_workflow", Default: "all", Desc: "Workflow transition logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_security", Default: "all", Desc: "Denied actions and sessions: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "timeout_short", Default: "", Desc: "Timeout for single reads (e.g., 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "Timeout for workflow actions (e.g., 10s)"},
	{Name: "timeout_long", Default: "", Desc: "Timeout for audit queries (e.g., 30s)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, COMMONSHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COMMONSHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:        strings.ToLower(strings.TrimSpace(appValues.String("store_backend"))),
		MongoURI:            appValues.String("mongo_uri"),
		MongoDatabase:       appValues.String("mongo_database"),
		MongoMaxPoolSize:    uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize:    uint64(appValues.Int("mongo_min_pool_size")),
		RequireTransactions: appValues.Bool("require_transactions"),
		BoltPath:            appValues.String("bolt_path"),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),
		TokenTTL:  appValues.Duration("token_ttl", time.Hour),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		WriteRateLimit:  appValues.Int("write_rate_limit"),
		WriteRateWindow: appValues.Duration("write_rate_window", time.Minute),

		RedisAddr:           appValues.String("redis_addr"),
		RedisPassword:       appValues.String("redis_password"),
		RedisDB:             appValues.Int("redis_db"),
		EventsChannelPrefix: appValues.String("events_channel_prefix"),

		AuditLogWorkflow: appValues.String("audit_log_workflow"),
		AuditLogSecurity: appValues.String("audit_log_security"),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// CommonsHub checks the chosen store's settings before connecting and
// refuses weak secrets in production.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if strings.TrimSpace(appCfg.MongoDatabase) == "" {
			return fmt.Errorf("mongo_database is required for the mongo backend")
		}
	case BackendBolt:
		if strings.TrimSpace(appCfg.BoltPath) == "" {
			return fmt.Errorf("bolt_path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("unknown store_backend %q (want %q or %q)", appCfg.StoreBackend, BackendMongo, BackendBolt)
	}

	if !auditlog.ValidMode(appCfg.AuditLogWorkflow) {
		return fmt.Errorf("invalid audit_log_workflow %q", appCfg.AuditLogWorkflow)
	}
	if !auditlog.ValidMode(appCfg.AuditLogSecurity) {
		return fmt.Errorf("invalid audit_log_security %q", appCfg.AuditLogSecurity)
	}

	if appCfg.WriteRateLimit < 0 {
		return fmt.Errorf("write_rate_limit must not be negative")
	}
	if appCfg.WriteRateLimit > 0 && appCfg.WriteRateWindow <= 0 {
		return fmt.Errorf("write_rate_window must be positive when write_rate_limit is set")
	}

	if coreCfg != nil && coreCfg.Env == "prod" {
		if len(appCfg.JWTSecret) < minSecretLen {
			return fmt.Errorf("jwt_secret must be at least %d characters in production", minSecretLen)
		}
		if strings.HasPrefix(appCfg.JWTSecret, "dev-only") || strings.HasPrefix(appCfg.SessionKey, "dev-only") {
			return fmt.Errorf("development secrets must not be used in production")
		}
	}

	return nil
}

// splitList parses a comma-separated setting, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
