package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"
	HLocation     = "Location"
	HRequestID    = "X-Request-Id"

	CTypeHTML        = "text/html"
	CTypeJSON        = "application/json"
	CTypeCSS         = "text/css"
	CTypePlain       = "text/plain"
	CTypeEventStream = "text/event-stream"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
	HTTPErrNotFound         = "Not found"
	HTTPErrBadRequest       = "Bad request"
)

// Environment variables holding secrets that never go in the config file.
const (
	EnvConfigPath     = "CMS_CONFIG"
	EnvS3AccessKeyID  = "S3_ACCESS_KEY_ID"
	EnvS3SecretKey    = "S3_SECRET_ACCESS_KEY"
	DefaultConfigPath = "config.yaml"
)
