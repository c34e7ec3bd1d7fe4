package config

const EnvPrefix = "LANDMARK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names, exported for tests and tooling.
const (
	EnvAppEnv       = "LANDMARK_APP_ENV"
	EnvPort         = "LANDMARK_APP_PORT"
	EnvLogLevel     = "LANDMARK_LOG_LEVEL"
	EnvLogFormat    = "LANDMARK_LOG_FORMAT"
	EnvLogWarnStack = "LANDMARK_LOG_WARN_STACK"
	EnvCORSOrigins  = "LANDMARK_CORS_ORIGINS"

	EnvDBDSN      = "LANDMARK_DB_DSN"
	EnvDBHost     = "LANDMARK_DB_HOST"
	EnvDBPort     = "LANDMARK_DB_PORT"
	EnvDBUser     = "LANDMARK_DB_USER"
	EnvDBPassword = "LANDMARK_DB_PASSWORD"
	EnvDBName     = "LANDMARK_DB_NAME"
	EnvDBSSLMode  = "LANDMARK_DB_SSLMODE"

	EnvRedisURL = "LANDMARK_REDIS_URL"

	EnvJWTSecret         = "LANDMARK_JWT_SECRET"
	EnvJWTIssuer         = "LANDMARK_JWT_ISSUER"
	EnvJWTExpMins        = "LANDMARK_JWT_EXPIRATION_MINUTES"
	EnvJWTRequireSession = "LANDMARK_JWT_REQUIRE_SESSION"

	EnvRateLimitAnalyzeWindow = "LANDMARK_RATE_LIMIT_ANALYZE_WINDOW"
	EnvRateLimitAnalyzeLimit  = "LANDMARK_RATE_LIMIT_ANALYZE_LIMIT"

	EnvAutoMigrate = "LANDMARK_AUTO_MIGRATE"

	EnvGCPProjectID       = "LANDMARK_GCP_PROJECT_ID"
	EnvGCPCredentialsJSON = "LANDMARK_GCP_CREDENTIALS_JSON"
	EnvGCPCredentialsFile = "LANDMARK_GOOGLE_APPLICATION_CREDENTIALS"

	EnvGCSBucket         = "LANDMARK_GCS_BUCKET_NAME"
	EnvGCSDownloadExpiry = "LANDMARK_GCS_DOWNLOAD_URL_EXPIRY"
	EnvGCSPublicBaseURL  = "LANDMARK_GCS_PUBLIC_BASE_URL"

	EnvVisionEndpoint = "LANDMARK_VISION_ENDPOINT"

	EnvGoogleMapsAPIKey  = "LANDMARK_GOOGLE_MAPS_API_KEY"
	EnvGoogleMapsBaseURL = "LANDMARK_GOOGLE_MAPS_BASE_URL"

	EnvMaxUploadMB = "LANDMARK_MAX_UPLOAD_MB"

	EnvPubSubAnalysisTopic = "LANDMARK_PUBSUB_ANALYSIS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
