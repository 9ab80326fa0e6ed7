// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - Request body size limits
//
// AppConfig carries everything CommonsHub needs on top of that: which entity
// store to run on, how to reach it, how callers are identified, and where
// workflow events and audit records go.
type AppConfig struct {
	// Entity store selection: "mongo" or "bolt"
	StoreBackend string

	// MongoDB connection configuration
	MongoURI            string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase       string // Database name within MongoDB
	MongoMaxPoolSize    uint64 // Max connections in pool (default: 100)
	MongoMinPoolSize    uint64 // Min connections to keep warm (default: 10)
	RequireTransactions bool   // Refuse the non-transactional fallback on standalone servers

	// Embedded store
	BoltPath string // bbolt file path (bolt backend only)

	// Identity gateway
	JWTSecret string        // HMAC secret for bearer tokens
	JWTIssuer string        // Expected "iss" claim
	TokenTTL  time.Duration // Lifetime of tokens this service issues (dev tooling, tests)

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: commonshub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Browser clients allowed to call the API
	CORSAllowedOrigins []string

	// Per-caller limit on state-changing API requests (0 disables)
	WriteRateLimit  int
	WriteRateWindow time.Duration

	// Workflow events (disabled when RedisAddr is empty)
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	EventsChannelPrefix string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogWorkflow string
	AuditLogSecurity string

	// Operation timeouts (zero keeps the default)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
