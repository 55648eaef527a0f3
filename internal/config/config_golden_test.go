package config

import (
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// TestConfigDefaultsGoldenFile tests that our defaults match the golden file
func TestConfigDefaultsGoldenFile(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	goldenData, err := os.ReadFile("testdata/defaults.yaml")
	if err != nil {
		t.Fatalf("Failed to read golden defaults file: %v", err)
	}

	var goldenConfig Config
	if err := yaml.Unmarshal(goldenData, &goldenConfig); err != nil {
		t.Fatalf("Failed to parse golden config: %v", err)
	}

	if got := Default(); !reflect.DeepEqual(*got, goldenConfig) {
		t.Errorf("Defaults differ from testdata/defaults.yaml:\n got %+v\nwant %+v", *got, goldenConfig)
	}
}

func TestGoldenFileMatchesMarshalledDefaults(t *testing.T) {
	goldenData, err := os.ReadFile("testdata/defaults.yaml")
	if err != nil {
		t.Fatalf("Failed to read golden defaults file: %v", err)
	}

	out, err := yaml.Marshal(Default())
	if err != nil {
		t.Fatalf("Failed to marshal defaults: %v", err)
	}

	var golden, marshalled map[string]any
	if err := yaml.Unmarshal(goldenData, &golden); err != nil {
		t.Fatalf("Failed to parse golden file: %v", err)
	}
	if err := yaml.Unmarshal(out, &marshalled); err != nil {
		t.Fatalf("Failed to parse marshalled defaults: %v", err)
	}
	if !reflect.DeepEqual(golden, marshalled) {
		t.Errorf("Golden file is stale, regenerate it with `cmsctl config -`")
	}
}

// TestConfigConstantsMatch tests that the exported constants match the tag defaults
func TestConfigConstantsMatch(t *testing.T) {
	cfg := Default()

	checks := []struct {
		name      string
		got, want any
	}{
		{"Version", cfg.Version, DefaultVersion},
		{"Site.Name", cfg.Site.Name, DefaultSiteName},
		{"Site.Language", cfg.Site.Language, DefaultSiteLanguage},
		{"Server.Host", cfg.Server.Host, DefaultServerHost},
		{"Server.Port", cfg.Server.Port, DefaultServerPort},
		{"Database.Path", cfg.Database.Path, DefaultDatabasePath},
		{"Database.Compression", cfg.Database.Compression, DefaultCompression},
		{"Editor.Width", cfg.Editor.Width, DefaultEditorWidth},
		{"Editor.MinImageWidth", cfg.Editor.MinImageWidth, DefaultMinImageWidth},
		{"Editor.HandleSize", cfg.Editor.HandleSize, DefaultHandleSize},
		{"Editor.SessionIdleMinutes", cfg.Editor.SessionIdleMinutes, DefaultSessionIdleMinutes},
		{"Media.Store", cfg.Media.Store, DefaultMediaStore},
		{"Media.MaxUploadMB", cfg.Media.MaxUploadMB, DefaultMaxUploadMB},
		{"Media.FS.URLPath", cfg.Media.FS.URLPath, DefaultMediaURLPath},
		{"Render.Renderer", cfg.Render.Renderer, DefaultRenderer},
		{"Logging.Level", cfg.Logging.Level, DefaultLogLevel},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s constant mismatch: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

// TestInvalidConfigValidation tests validation using invalid config files
func TestInvalidConfigValidation(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	testCases := []struct {
		name        string
		filename    string
		expectError bool
		errorText   string
	}{
		{
			name:        "Invalid version",
			filename:    "testdata/invalid_version.yaml",
			expectError: true,
			errorText:   "unsupported configuration version",
		},
		{
			name:        "S3 store without bucket",
			filename:    "testdata/s3_without_bucket.yaml",
			expectError: true,
			errorText:   "media.s3.bucket",
		},
		{
			name:        "Valid defaults file",
			filename:    "testdata/defaults.yaml",
			expectError: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			originalAppConfig := AppConfig
			defer func() { AppConfig = originalAppConfig }()

			err := LoadConfig(tc.filename)

			if tc.expectError && err == nil {
				t.Fatalf("Expected error but got none")
			}
			if !tc.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
			if tc.expectError && tc.errorText != "" && !strings.Contains(err.Error(), tc.errorText) {
				t.Errorf("Expected error to contain %q, got %q", tc.errorText, err.Error())
			}
		})
	}
}
