package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// SupportedVersion is the only configuration layout this build reads.
const SupportedVersion = "1"

var ErrUnsupportedVersion = errors.New("unsupported configuration version")

// Config represents the complete configuration structure
type Config struct {
	Version  string         `yaml:"version" default:"1" validate:"required"`
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Editor   EditorConfig   `yaml:"editor"`
	Media    MediaConfig    `yaml:"media"`
	Render   RenderConfig   `yaml:"render"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

type SiteConfig struct {
	Name     string `yaml:"name" default:"Fundación" validate:"required"`
	Language string `yaml:"language" default:"es" validate:"required"`
}

type ServerConfig struct {
	Host            string `yaml:"host" default:"0.0.0.0"`
	Port            string `yaml:"port" default:"12600" validate:"required,numeric"`
	ShutdownSeconds int    `yaml:"shutdown_seconds" default:"10" validate:"min=0"`
}

type DatabaseConfig struct {
	Path        string `yaml:"path" default:"./database.db" validate:"required"`
	Compression string `yaml:"compression" default:"zstd" validate:"oneof=zstd gzip"`
	PollSeconds int    `yaml:"poll_seconds" default:"10" validate:"min=1"`
}

type EditorConfig struct {
	Width              int `yaml:"width" default:"1200" validate:"min=100"`
	MinImageWidth      int `yaml:"min_image_width" default:"60" validate:"min=1"`
	HandleSize         int `yaml:"handle_size" default:"16" validate:"min=1"`
	SessionIdleMinutes int `yaml:"session_idle_minutes" default:"30" validate:"min=1"`
}

type MediaConfig struct {
	Store        string        `yaml:"store" default:"fs" validate:"oneof=fs s3"`
	MaxUploadMB  int           `yaml:"max_upload_mb" default:"10" validate:"min=1"`
	AllowedTypes []string      `yaml:"allowed_types" default:"image/jpeg,image/png,image/gif,image/webp" validate:"min=1,dive,required"`
	Variants     bool          `yaml:"variants" default:"true"`
	Quality      int           `yaml:"quality" default:"85" validate:"min=1,max=100"`
	ProbeSeconds int           `yaml:"probe_seconds" default:"5" validate:"min=0"`
	FS           FSStoreConfig `yaml:"fs"`
	S3           S3StoreConfig `yaml:"s3"`
}

type FSStoreConfig struct {
	Dir     string `yaml:"dir" default:"media"`
	URLPath string `yaml:"url_path" default:"/media/" validate:"startswith=/,endswith=/"`
}

// S3StoreConfig configures an S3 compatible bucket. Credentials are read from
// S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY.
type S3StoreConfig struct {
	Bucket    string `yaml:"bucket" default:""`
	Endpoint  string `yaml:"endpoint" default:""`
	Region    string `yaml:"region" default:"auto"`
	PublicURL string `yaml:"public_url" default:""`
}

type RenderConfig struct {
	Renderer    string `yaml:"renderer" default:"mmark" validate:"oneof=mmark classic"`
	SyntaxTheme string `yaml:"syntax_theme" default:"github"`
}

var AppConfig *Config

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a configuration holding only default values.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func LoadConfig(path string) error {
	config := Default()

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(config); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

// Validate checks the version and field constraints of cfg.
func Validate(cfg *Config) error {
	if cfg.Version != SupportedVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, cfg.Version)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Media.Store == "s3" && cfg.Media.S3.Bucket == "" {
		return errors.New("invalid configuration: media.s3.bucket is required for the s3 store")
	}
	if cfg.Editor.MinImageWidth > cfg.Editor.Width {
		return errors.New("invalid configuration: editor.min_image_width exceeds editor.width")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
