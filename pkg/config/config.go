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
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Vision       VisionConfig
	GoogleMaps   GoogleMapsConfig
	Upload       UploadConfig
	PubSub       PubSubConfig
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
	Env          string   `envconfig:"LANDMARK_APP_ENV" required:"true"`
	Port         string   `envconfig:"LANDMARK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"LANDMARK_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"LANDMARK_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"LANDMARK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"LANDMARK_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"LANDMARK_DB_DSN"`

	LegacyHost     string `envconfig:"LANDMARK_DB_HOST"`
	LegacyPort     int    `envconfig:"LANDMARK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LANDMARK_DB_USER"`
	LegacyPassword string `envconfig:"LANDMARK_DB_PASSWORD"`
	LegacyName     string `envconfig:"LANDMARK_DB_NAME"`
	LegacySSLMode  string `envconfig:"LANDMARK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LANDMARK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LANDMARK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LANDMARK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LANDMARK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"LANDMARK_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LANDMARK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LANDMARK_REDIS_ADDR"`
	Password     string        `envconfig:"LANDMARK_REDIS_PASSWORD"`
	DB           int           `envconfig:"LANDMARK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LANDMARK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LANDMARK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LANDMARK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LANDMARK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LANDMARK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the verification settings for access tokens minted by the
// identity service.
type JWTConfig struct {
	Secret            string `envconfig:"LANDMARK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LANDMARK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LANDMARK_JWT_EXPIRATION_MINUTES" default:"60"`
	RequireSession    bool   `envconfig:"LANDMARK_JWT_REQUIRE_SESSION" default:"true"`

	// Leeway tolerates clock skew against the identity service on exp/iat.
	Leeway time.Duration `envconfig:"LANDMARK_JWT_LEEWAY" default:"30s"`
}

// AccessTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type RateLimitConfig struct {
	AnalyzeWindow time.Duration `envconfig:"LANDMARK_RATE_LIMIT_ANALYZE_WINDOW" default:"1m"`
	AnalyzeLimit  int           `envconfig:"LANDMARK_RATE_LIMIT_ANALYZE_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LANDMARK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LANDMARK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"LANDMARK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LANDMARK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"LANDMARK_GCS_BUCKET_NAME" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"LANDMARK_GCS_DOWNLOAD_URL_EXPIRY" default:"15m"`
	PublicBaseURL     string        `envconfig:"LANDMARK_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

// PublicURL returns the unsigned object URL for the given key.
func (g GCSConfig) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(g.PublicBaseURL, "/"), g.BucketName, key)
}

type VisionConfig struct {
	Endpoint string `envconfig:"LANDMARK_VISION_ENDPOINT"`
}

type GoogleMapsConfig struct {
	APIKey  string `envconfig:"LANDMARK_GOOGLE_MAPS_API_KEY" required:"true"`
	BaseURL string `envconfig:"LANDMARK_GOOGLE_MAPS_BASE_URL"`
}

type UploadConfig struct {
	MaxUploadMB int `envconfig:"LANDMARK_MAX_UPLOAD_MB" default:"20"`
}

// MaxBytes converts the configured upload ceiling into bytes.
func (u UploadConfig) MaxBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 0
	}
	return int64(u.MaxUploadMB) << 20
}

// PubSubConfig names the topic analysis outcomes are published to. An empty
// topic disables publishing.
type PubSubConfig struct {
	AnalysisTopic string `envconfig:"LANDMARK_PUBSUB_ANALYSIS_TOPIC"`
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
