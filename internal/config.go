package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Blob backends.
const (
	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Blob        BlobConfig        `yaml:"blob"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	OCR         OCRConfig         `yaml:"ocr"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Upload      UploadConfig      `yaml:"upload"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Auth        AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Blob.Validate(); err != nil {
		return err
	}
	if err := c.Upload.Validate(); err != nil {
		return err
	}
	if err := c.Ingest.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// BlobConfig selects where uploaded files are stored.
//
// Backend controls the provider:
//   - "fs" (default): local directory at Path, suitable for local dev.
//   - "s3": an S3 bucket; S3.Bucket must be non-empty.
type BlobConfig struct {
	Backend string   `yaml:"backend"`
	Path    string   `yaml:"path"`
	S3      S3Config `yaml:"s3"`
}

// Validate validates the blob configuration.
func (c *BlobConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BlobBackendFS
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BlobBackendFS, BlobBackendS3)),
	); err != nil {
		return err
	}
	if c.Backend == BlobBackendFS && c.Path == "" {
		return fmt.Errorf("blob: backend is %q but path is empty", BlobBackendFS)
	}
	if c.Backend == BlobBackendS3 && c.S3.Bucket == "" {
		return fmt.Errorf("blob: backend is %q but s3 bucket is empty", BlobBackendS3)
	}
	return nil
}

// S3Config holds the S3 blob backend settings.
type S3Config struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// SummarizerConfig holds the chat completion model settings.
type SummarizerConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// OCRConfig holds the PDF document OCR service settings.
type OCRConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Processor string `yaml:"processor"`
	APIKey    string `yaml:"api_key"`
}

// TranscriberConfig holds the speech transcription service settings.
type TranscriberConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"api_key"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// UploadConfig tunes the ingestion pipeline.
type UploadConfig struct {
	RewardPoints int           `yaml:"reward_points"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Validate validates the upload configuration.
func (c *UploadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RewardPoints, validation.Min(0)),
	)
}

// IngestConfig holds the optional drop directory watcher settings.
// An empty Path disables the watcher.
type IngestConfig struct {
	Path          string `yaml:"path"`
	UploaderEmail string `yaml:"uploader_email"`
	UploaderName  string `yaml:"uploader_name"`
}

// Validate validates the ingest configuration.
func (c *IngestConfig) Validate() error {
	if c.Path != "" && c.UploaderEmail == "" {
		return fmt.Errorf("ingest: path is set but uploader_email is empty")
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./gebo.db",
		},
		Blob: BlobConfig{
			Backend: BlobBackendFS,
			Path:    "./blobs",
		},
		Summarizer: SummarizerConfig{
			Model: "gpt-4",
		},
		Transcriber: TranscriberConfig{
			PollInterval: 5 * time.Second,
		},
		Upload: UploadConfig{
			RewardPoints: 20,
			Timeout:      5 * time.Minute,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
