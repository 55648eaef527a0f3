package config

// Defaults mirrored from the struct tags of Config. TestConfigConstantsMatch
// keeps them in sync.
const (
	DefaultVersion            = SupportedVersion
	DefaultSiteName           = "Fundación"
	DefaultSiteLanguage       = "es"
	DefaultServerHost         = "0.0.0.0"
	DefaultServerPort         = "12600"
	DefaultDatabasePath       = "./database.db"
	DefaultCompression        = "zstd"
	DefaultEditorWidth        = 1200
	DefaultMinImageWidth      = 60
	DefaultHandleSize         = 16
	DefaultMediaStore         = "fs"
	DefaultMaxUploadMB        = 10
	DefaultMediaURLPath       = "/media/"
	DefaultRenderer           = "mmark"
	DefaultLogLevel           = "info"
	DefaultSessionIdleMinutes = 30
)
