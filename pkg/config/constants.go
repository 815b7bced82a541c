package config

// EnvPrefix is passed to envconfig; explicit struct tags carry the full
// variable names so the prefix only matters for untagged fields.
const EnvPrefix = "smartpatrol"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "SMARTPATROL_APP_ENV"
	EnvPort                   = "SMARTPATROL_APP_PORT"
	EnvDBDSN                  = "SMARTPATROL_DB_DSN"
	EnvDBHost                 = "SMARTPATROL_DB_HOST"
	EnvDBUser                 = "SMARTPATROL_DB_USER"
	EnvDBName                 = "SMARTPATROL_DB_NAME"
	EnvRedisURL               = "SMARTPATROL_REDIS_URL"
	EnvJWTSecret              = "SMARTPATROL_JWT_SECRET"
	EnvJWTIssuer              = "SMARTPATROL_JWT_ISSUER"
	EnvJWTExpMins             = "SMARTPATROL_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SMARTPATROL_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "SMARTPATROL_GCP_PROJECT_ID"
	EnvGCSBucket              = "SMARTPATROL_GCS_BUCKET_NAME"
	EnvGCSUploadExpiry        = "SMARTPATROL_GCS_UPLOAD_URL_EXPIRY"
	EnvGCSDownloadExpiry      = "SMARTPATROL_GCS_DOWNLOAD_URL_EXPIRY"
	EnvPubSubPatrolTopic      = "SMARTPATROL_PUBSUB_PATROL_TOPIC"
	EnvPubSubNotificationSub  = "SMARTPATROL_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub     = "SMARTPATROL_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvPubSubMediaDeletionSub = "SMARTPATROL_PUBSUB_MEDIA_DELETION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
