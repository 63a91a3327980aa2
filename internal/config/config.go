package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Task      TaskConfig      `mapstructure:"task" validate:"required"`
	Notify    NotifyConfig    `mapstructure:"notify" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Curves    CurvesConfig    `mapstructure:"curves"`
	Trash     TrashConfig     `mapstructure:"trash"`
}

// ServerConfig contains HTTP server and process-wide settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// Timezone decides where "today" starts for statistics.
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains token and password hashing settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gtfield=TokenLifetimeMinutes"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// SchedulerConfig controls the review reminder alarm.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MinDelay is the shortest the alarm may be armed for.
	MinDelay time.Duration `mapstructure:"min_delay" validate:"gte=0"`
	// RemindOnStart fires once at start-up for items that fell due while the
	// process was down.
	RemindOnStart bool `mapstructure:"remind_on_start"`
	// RetryDelay and MaxRetryDelay bound the backoff used when the alarm
	// cannot be re-derived and nothing is left armed.
	RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay" validate:"gtefield=RetryDelay"`
}

// TaskConfig controls the background task runner.
type TaskConfig struct {
	WorkerCount     int           `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize       int           `mapstructure:"queue_size" validate:"gte=1"`
	StuckTaskAge    time.Duration `mapstructure:"stuck_task_age" validate:"gt=0"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval" validate:"gt=0"`
}

// NotifyConfig selects how review reminders are delivered.
type NotifyConfig struct {
	Kind       string        `mapstructure:"kind" validate:"required,oneof=log webhook"`
	WebhookURL string        `mapstructure:"webhook_url" validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// CacheConfig sizes in-process caches.
type CacheConfig struct {
	CurveCacheSize int `mapstructure:"curve_cache_size" validate:"gte=0"`
}

// CurvesConfig points at optional curve presets seeded for new users.
type CurvesConfig struct {
	PresetsFile string `mapstructure:"presets_file"`
}

// TrashConfig controls how long deleted items are kept before they are
// purged for good. A zero Retention keeps them forever.
type TrashConfig struct {
	Retention     time.Duration `mapstructure:"retention" validate:"gte=0"`
	PurgeInterval time.Duration `mapstructure:"purge_interval" validate:"gt=0"`
}
