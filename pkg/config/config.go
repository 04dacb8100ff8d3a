package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	OpenAI       OpenAIConfig
	Geocoder     GeocoderConfig
	Store        StoreConfig
	Chat         ChatConfig
	Messaging    MessagingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TIENDABOT_APP_ENV" required:"true"`
	Port         string `envconfig:"TIENDABOT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TIENDABOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TIENDABOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TIENDABOT_DB_DSN"`
	Driver string `envconfig:"TIENDABOT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TIENDABOT_DB_HOST"`
	LegacyPort     int    `envconfig:"TIENDABOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TIENDABOT_DB_USER"`
	LegacyPassword string `envconfig:"TIENDABOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"TIENDABOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"TIENDABOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TIENDABOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TIENDABOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TIENDABOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TIENDABOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TIENDABOT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TIENDABOT_REDIS_ADDR"`
	Password     string        `envconfig:"TIENDABOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"TIENDABOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TIENDABOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TIENDABOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TIENDABOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TIENDABOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TIENDABOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TIENDABOT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TIENDABOT_AUTO_MIGRATE" default:"false"`
}

type OpenAIConfig struct {
	APIKey  string        `envconfig:"TIENDABOT_OPENAI_API_KEY"`
	Model   string        `envconfig:"TIENDABOT_OPENAI_MODEL" default:"gpt-4o-mini"`
	BaseURL string        `envconfig:"TIENDABOT_OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Timeout time.Duration `envconfig:"TIENDABOT_OPENAI_TIMEOUT" default:"25s"`
}

type GeocoderConfig struct {
	APIKey   string `envconfig:"TIENDABOT_GEOCODER_API_KEY"`
	BaseURL  string `envconfig:"TIENDABOT_GEOCODER_BASE_URL" default:"https://maps.googleapis.com/maps/api/geocode"`
	Region   string `envconfig:"TIENDABOT_GEOCODER_REGION" default:"ar"`
	Language string `envconfig:"TIENDABOT_GEOCODER_LANGUAGE" default:"es"`
}

// StoreConfig describes the physical storefront the assistant sells for.
type StoreConfig struct {
	Latitude          float64 `envconfig:"TIENDABOT_STORE_LAT" default:"-31.4201"`
	Longitude         float64 `envconfig:"TIENDABOT_STORE_LNG" default:"-64.1888"`
	Timezone          string  `envconfig:"TIENDABOT_STORE_TZ" default:"America/Argentina/Cordoba"`
	DistancePrecision int     `envconfig:"TIENDABOT_STORE_DISTANCE_PRECISION" default:"1"`
	LocalitySuffix    string  `envconfig:"TIENDABOT_STORE_LOCALITY_SUFFIX" default:"Córdoba, Córdoba, Argentina"`
	DeliveryKeyword   string  `envconfig:"TIENDABOT_STORE_DELIVERY_KEYWORD" default:"envío"`
}

type ChatConfig struct {
	RepairMaxAttempts int           `envconfig:"TIENDABOT_CHAT_REPAIR_MAX_ATTEMPTS" default:"3"`
	SessionTTL        time.Duration `envconfig:"TIENDABOT_CHAT_SESSION_TTL" default:"12h"`
	HistoryLimit      int           `envconfig:"TIENDABOT_CHAT_HISTORY_LIMIT" default:"20"`
	CatalogCacheTTL   time.Duration `envconfig:"TIENDABOT_CHAT_CATALOG_CACHE_TTL" default:"60s"`
}

type MessagingConfig struct {
	WebhookURL string `envconfig:"TIENDABOT_MESSAGING_WEBHOOK_URL"`
	Token      string `envconfig:"TIENDABOT_MESSAGING_TOKEN"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
