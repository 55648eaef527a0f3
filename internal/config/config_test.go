package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config content: %v", err)
	}
	return path
}

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		if config.Site.Name != "Fundación" {
			t.Errorf("Expected site name 'Fundación', got %q", config.Site.Name)
		}
		if config.Server.Port != "12600" {
			t.Errorf("Expected port '12600', got %q", config.Server.Port)
		}
		if config.Editor.Width != 1200 {
			t.Errorf("Expected editor width 1200, got %d", config.Editor.Width)
		}
		if config.Editor.MinImageWidth != 60 {
			t.Errorf("Expected min image width 60, got %d", config.Editor.MinImageWidth)
		}
		if !config.Media.Variants {
			t.Error("Expected variants to be enabled by default")
		}
		expectedTypes := []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
		if !reflect.DeepEqual(config.Media.AllowedTypes, expectedTypes) {
			t.Errorf("Expected allowed types %v, got %v", expectedTypes, config.Media.AllowedTypes)
		}
		if config.Media.S3.Region != "auto" {
			t.Errorf("Expected S3 region 'auto', got %q", config.Media.S3.Region)
		}
		if config.Media.S3.Bucket != "" {
			t.Errorf("Expected empty bucket, got %q", config.Media.S3.Bucket)
		}
		if config.Logging.Level != "info" || config.Logging.Format != "console" {
			t.Errorf("Expected console logging at info, got %+v", config.Logging)
		}
	})

	t.Run("Custom struct with various field types", func(t *testing.T) {
		type TestStruct struct {
			StringField  string   `default:"test-string"`
			BoolField    bool     `default:"true"`
			IntField     int      `default:"42"`
			Float64Field float64  `default:"3.14"`
			SliceField   []string `default:"a,b,c"`
			NoDefault    string
		}

		test := &TestStruct{}
		applyDefaults(test)

		if test.StringField != "test-string" {
			t.Errorf("Expected string field 'test-string', got %q", test.StringField)
		}
		if !test.BoolField {
			t.Error("Expected bool field to be true")
		}
		if test.IntField != 42 {
			t.Errorf("Expected int field 42, got %d", test.IntField)
		}
		if test.Float64Field != 3.14 {
			t.Errorf("Expected float64 field 3.14, got %f", test.Float64Field)
		}
		if !reflect.DeepEqual(test.SliceField, []string{"a", "b", "c"}) {
			t.Errorf("Expected slice [a b c], got %v", test.SliceField)
		}
		if test.NoDefault != "" {
			t.Errorf("Expected no default field to be empty, got %q", test.NoDefault)
		}
	})

	t.Run("Invalid default values", func(t *testing.T) {
		type InvalidStruct struct {
			BadBool  bool    `default:"not-a-bool"`
			BadInt   int     `default:"not-an-int"`
			BadFloat float64 `default:"not-a-float"`
		}

		test := &InvalidStruct{}
		applyDefaults(test)

		if test.BadBool || test.BadInt != 0 || test.BadFloat != 0 {
			t.Errorf("Expected invalid defaults to leave zero values, got %+v", test)
		}
	})

	t.Run("Non-empty slice should not be overwritten", func(t *testing.T) {
		type TestStruct struct {
			Items []string `default:"default1,default2"`
		}

		test := &TestStruct{Items: []string{"existing"}}
		applyDefaults(test)

		if !reflect.DeepEqual(test.Items, []string{"existing"}) {
			t.Errorf("Expected existing items to be preserved, got %v", test.Items)
		}
	})

	t.Run("Non-struct input", func(t *testing.T) {
		stringVar := "test"
		applyDefaults(&stringVar)
		applyDefaults(stringVar)
		applyDefaults(42)
		applyDefaults(nil)
	})
}

func TestLoadConfig(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	t.Run("Load non-existent config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		if err := LoadConfig("non-existent-config.yaml"); err != nil {
			t.Errorf("Expected no error for non-existent config file, got %v", err)
		}
		if AppConfig == nil {
			t.Fatal("Expected AppConfig to be set with defaults")
		}
		if AppConfig.Site.Name != DefaultSiteName {
			t.Errorf("Expected default site name, got %q", AppConfig.Site.Name)
		}
	})

	t.Run("Load valid config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		path := writeConfig(t, `
version: "1"
server:
  host: "127.0.0.1"
  port: "8080"
editor:
  width: 960
media:
  store: s3
  allowed_types: [image/png]
  s3:
    bucket: fundacion-media
    endpoint: https://example.r2.cloudflarestorage.com
    public_url: https://media.example.org
`)
		if err := LoadConfig(path); err != nil {
			t.Fatalf("Expected no error loading valid config, got %v", err)
		}

		if AppConfig.Addr() != "127.0.0.1:8080" {
			t.Errorf("Expected addr '127.0.0.1:8080', got %q", AppConfig.Addr())
		}
		if AppConfig.Editor.Width != 960 {
			t.Errorf("Expected editor width 960, got %d", AppConfig.Editor.Width)
		}
		if AppConfig.Media.S3.Bucket != "fundacion-media" {
			t.Errorf("Expected bucket 'fundacion-media', got %q", AppConfig.Media.S3.Bucket)
		}
		if !reflect.DeepEqual(AppConfig.Media.AllowedTypes, []string{"image/png"}) {
			t.Errorf("Expected allowed types to be replaced, got %v", AppConfig.Media.AllowedTypes)
		}

		// Unspecified fields keep their defaults.
		if AppConfig.Editor.MinImageWidth != DefaultMinImageWidth {
			t.Errorf("Expected default min image width, got %d", AppConfig.Editor.MinImageWidth)
		}
		if AppConfig.Media.S3.Region != "auto" {
			t.Errorf("Expected default region, got %q", AppConfig.Media.S3.Region)
		}
	})

	t.Run("Load invalid YAML file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		path := writeConfig(t, `
site:
  name: "Test"
  invalid yaml syntax [
`)
		err := LoadConfig(path)
		if err == nil {
			t.Fatal("Expected error loading invalid config file")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected parse error, got %v", err)
		}
	})

	t.Run("Constraint violations", func(t *testing.T) {
		cases := map[string]string{
			"compression": "version: \"1\"\ndatabase:\n  compression: lz4\n",
			"quality":     "version: \"1\"\nmedia:\n  quality: 150\n",
			"url path":    "version: \"1\"\nmedia:\n  fs:\n    url_path: media\n",
			"min width":   "version: \"1\"\neditor:\n  width: 100\n  min_image_width: 200\n",
			"log format":  "version: \"1\"\nlogging:\n  format: xml\n",
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				originalAppConfig := AppConfig
				defer func() { AppConfig = originalAppConfig }()

				if err := LoadConfig(writeConfig(t, content)); err == nil {
					t.Error("Expected validation error")
				}
			})
		}
	})
}

func TestPublicApplyDefaults(t *testing.T) {
	type TestStruct struct {
		Field string `default:"test-value"`
	}

	test := &TestStruct{}
	ApplyDefaults(test)

	if test.Field != "test-value" {
		t.Errorf("Expected field 'test-value', got %q", test.Field)
	}
}
