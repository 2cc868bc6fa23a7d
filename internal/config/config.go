package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Collab    CollabConfig    `yaml:"collab"`
	Channel   ChannelConfig   `yaml:"channel"`
	Retention RetentionConfig `yaml:"retention"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min" env:"SERVER_RATE_LIMIT_PER_MIN" env-default:"600"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds identity token settings. Identity is supplied by the
// auth collaborator; this service only validates and unpacks tokens.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"       env-required:"true"`
	JWTIssuer      string        `yaml:"jwt_issuer"       env:"AUTH_JWT_ISSUER"       env-default:"gridwise"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"15m"`
}

// CollabConfig holds presence, locking, and conflict-resolution settings.
//
// LockTTL bounds recovery time after a crashed editor: an abandoned lock is
// reacquirable after at most one TTL window. HeartbeatInterval is what
// well-behaved clients are told to use; Validate enforces
// LockTTL >= 3*HeartbeatInterval so a couple of missed heartbeats never cause
// premature reaping.
type CollabConfig struct {
	LockTTL           time.Duration `yaml:"lock_ttl"            env:"COLLAB_LOCK_TTL"            env-default:"45s"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"  env:"COLLAB_HEARTBEAT_INTERVAL"  env-default:"15s"`
	PresenceTTL       time.Duration `yaml:"presence_ttl"        env:"COLLAB_PRESENCE_TTL"        env-default:"60s"`
	SweepInterval     time.Duration `yaml:"sweep_interval"      env:"COLLAB_SWEEP_INTERVAL"      env-default:"10s"`
	MaxResolveRetries int           `yaml:"max_resolve_retries" env:"COLLAB_MAX_RESOLVE_RETRIES" env-default:"3"`
}

// ChannelConfig holds websocket channel settings.
type ChannelConfig struct {
	WriteTimeout   time.Duration `yaml:"write_timeout"    env:"CHANNEL_WRITE_TIMEOUT"    env-default:"5s"`
	PongTimeout    time.Duration `yaml:"pong_timeout"     env:"CHANNEL_PONG_TIMEOUT"     env-default:"60s"`
	PingInterval   time.Duration `yaml:"ping_interval"    env:"CHANNEL_PING_INTERVAL"    env-default:"25s"`
	MaxMessageSize int64         `yaml:"max_message_size" env:"CHANNEL_MAX_MESSAGE_SIZE" env-default:"65536"`
	SendBufferSize int           `yaml:"send_buffer_size" env:"CHANNEL_SEND_BUFFER_SIZE" env-default:"64"`
}

// RetentionConfig controls pruning of ARCHIVED layout versions.
// DRAFT/PREVIEW/PUBLISHED rows are never pruned.
type RetentionConfig struct {
	ArchivedRetentionDays int `yaml:"archived_retention_days" env:"RETENTION_ARCHIVED_DAYS"    env-default:"90"`
	MinVersionsPerLayout  int `yaml:"min_versions_per_layout" env:"RETENTION_MIN_PER_LAYOUT"   env-default:"10"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type,X-Session-Id"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}
