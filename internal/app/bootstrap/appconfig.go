// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, log level and the environment name.
// Everything planhub itself needs lives here and is loaded in LoadConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string // HMAC key for signing tokens (must be strong in production)
	JWTIssuer string
	JWTTTL    time.Duration

	// Browser origins allowed by CORS and by the websocket handshake.
	// Empty or "*" allows any origin.
	CORSAllowedOrigins []string

	// Request deadlines; zero keeps the timeouts package default.
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Login throttling: attempts per IP per window.
	LoginRateLimit  int
	LoginRateWindow time.Duration

	MetricsEnabled bool

	// Workspace audit trail destination: all, db, log or off.
	AuditLog string

	// Background pruning. A zero interval or retention disables the job.
	PruneInterval         time.Duration
	NotificationRetention time.Duration
	LoginHistoryRetention time.Duration
}
