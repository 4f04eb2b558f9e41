package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/inventory-service/pkg/enums"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	Inventory     InventoryConfig
	Cron          CronConfig
	Collaborators CollaboratorsConfig
	Notifier      NotifierConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Notifier.validate(cfg.GCP, cfg.PubSub, cfg.Collaborators); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"INVENTORY_APP_ENV" required:"true"`
	Port         string `envconfig:"INVENTORY_APP_PORT" default:"3005"`
	LogLevel     string `envconfig:"INVENTORY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"INVENTORY_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"INVENTORY_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"INVENTORY_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"INVENTORY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"INVENTORY_DB_DSN"`
	Driver string `envconfig:"INVENTORY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"INVENTORY_DB_HOST"`
	LegacyPort     int    `envconfig:"INVENTORY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"INVENTORY_DB_USER"`
	LegacyPassword string `envconfig:"INVENTORY_DB_PASSWORD"`
	LegacyName     string `envconfig:"INVENTORY_DB_NAME"`
	LegacySSLMode  string `envconfig:"INVENTORY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"INVENTORY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"INVENTORY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"INVENTORY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"INVENTORY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"INVENTORY_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"INVENTORY_REDIS_URL"`
	Address      string        `envconfig:"INVENTORY_REDIS_ADDR"`
	Password     string        `envconfig:"INVENTORY_REDIS_PASSWORD"`
	DB           int           `envconfig:"INVENTORY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"INVENTORY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"INVENTORY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"INVENTORY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"INVENTORY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"INVENTORY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// InventoryConfig holds the business defaults of the stock service.
type InventoryConfig struct {
	ReservationExpiryMinutes int           `envconfig:"INVENTORY_RESERVATION_EXPIRY_MINUTES" default:"30"`
	LowStockThreshold        int           `envconfig:"INVENTORY_LOW_STOCK_THRESHOLD" default:"10"`
	CacheTTL                 time.Duration `envconfig:"INVENTORY_CACHE_TTL" default:"1h"`
	SweepBatchSize           int           `envconfig:"INVENTORY_SWEEP_BATCH_SIZE" default:"500"`
}

// ReservationTTL returns the default lifetime of a new reservation.
func (i InventoryConfig) ReservationTTL() time.Duration {
	if i.ReservationExpiryMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(i.ReservationExpiryMinutes) * time.Minute
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"INVENTORY_CRON_INTERVAL" default:"5m"`
	LowStockInterval time.Duration `envconfig:"INVENTORY_LOW_STOCK_INTERVAL" default:"1h"`
	LowStockNotify   bool          `envconfig:"INVENTORY_LOW_STOCK_SWEEP_NOTIFY" default:"false"`
	LockTTL          time.Duration `envconfig:"INVENTORY_CRON_LOCK_TTL" default:"4m"`
}

type CollaboratorsConfig struct {
	ProductServiceURL      string        `envconfig:"INVENTORY_PRODUCT_SERVICE_URL"`
	NotificationServiceURL string        `envconfig:"INVENTORY_NOTIFICATION_SERVICE_URL"`
	HTTPTimeout            time.Duration `envconfig:"INVENTORY_COLLABORATOR_TIMEOUT" default:"10s"`
}

type NotifierConfig struct {
	Kind string `envconfig:"INVENTORY_NOTIFIER_KIND" default:"http"`
}

// ParsedKind returns the notifier kind, defaulting blank input to http.
func (n NotifierConfig) ParsedKind() (enums.NotifierKind, error) {
	return enums.ParseNotifierKind(n.Kind)
}

func (n NotifierConfig) validate(gcp GCPConfig, ps PubSubConfig, collab CollaboratorsConfig) error {
	kind, err := n.ParsedKind()
	if err != nil {
		return err
	}
	switch kind {
	case enums.NotifierKindHTTP:
		if strings.TrimSpace(collab.NotificationServiceURL) == "" {
			return fmt.Errorf("%s is required when notifier kind is %q", EnvNotificationServiceURL, kind)
		}
	case enums.NotifierKindPubSub:
		if strings.TrimSpace(gcp.ProjectID) == "" || strings.TrimSpace(ps.LowStockTopic) == "" {
			return fmt.Errorf("%s and %s are required when notifier kind is %q", EnvGCPProjectID, EnvPubSubLowStockTopic, kind)
		}
	}
	return nil
}

type GCPConfig struct {
	ProjectID string `envconfig:"INVENTORY_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	LowStockTopic string `envconfig:"INVENTORY_PUBSUB_LOW_STOCK_TOPIC" default:"inventory-low-stock"`
}

type RateLimitConfig struct {
	Window time.Duration `envconfig:"INVENTORY_RATE_LIMIT_WINDOW" default:"15m"`
	Limit  int           `envconfig:"INVENTORY_RATE_LIMIT_MAX" default:"200"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"INVENTORY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"INVENTORY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
