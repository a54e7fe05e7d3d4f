package internal

import (
	"fmt"
	"time"

	"github.com/dfryer1193/postpage/blog/application"
	"github.com/dfryer1193/postpage/blog/textmetrics"
	"github.com/dfryer1193/postpage/shared/db/sqlite"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Source kinds.
const (
	SourceSQLite = "sqlite"
	SourceFiles  = "files"
	SourceGitHub = "github"
)

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

func init() {
	// Report validation errors by their YAML key.
	validation.ErrorTag = "yaml"
}

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig   `yaml:"app"`
	SQLite  sqlite.SQLiteConfig `yaml:"sqlite"`
	Source  SourceConfig        `yaml:"source"`
	Reading textmetrics.Config  `yaml:"reading"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := validation.ValidateStruct(&c.SQLite,
		validation.Field(&c.SQLite.Path, validation.Required),
	); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := validateReading(&c.Reading); err != nil {
		return fmt.Errorf("reading: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	HTTP         HTTPConfig    `yaml:"http"`
	SiteName     string        `yaml:"site_name"`
	BaseURL      string        `yaml:"base_url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled")),
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatConsole)),
		validation.Field(&c.BaseURL, is.URL),
		validation.Field(&c.FetchTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
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

// SourceConfig selects where posts are served from.
//
// Kind "sqlite" serves the database filled by the import command; Dir, when set, is
// the Markdown directory imported on start and watched for changes. Kind "files"
// renders <Dir>/<id>.md on every request. Kind "github" serves the database and
// fills it from a GitHub repository, on start and on push webhooks.
type SourceConfig struct {
	Kind        string       `yaml:"kind"`
	Dir         string       `yaml:"dir"`
	Watch       bool         `yaml:"watch"`
	SyncOnStart bool         `yaml:"sync_on_start"`
	GitHub      GitHubConfig `yaml:"github"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	needsDir := c.Kind == SourceFiles || c.Watch || (c.SyncOnStart && c.Kind == SourceSQLite)
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(SourceSQLite, SourceFiles, SourceGitHub)),
		validation.Field(&c.Dir, validation.When(needsDir, validation.Required)),
	); err != nil {
		return err
	}
	if c.Watch && c.Kind != SourceSQLite {
		return fmt.Errorf("watch only applies to the %q source", SourceSQLite)
	}
	if c.SyncOnStart && c.Kind == SourceFiles {
		return fmt.Errorf("sync_on_start does not apply to the %q source", SourceFiles)
	}
	if c.Kind == SourceGitHub {
		if err := c.GitHub.Validate(); err != nil {
			return fmt.Errorf("github: %w", err)
		}
	}
	return nil
}

// GitHubConfig locates the posts inside a GitHub repository.
type GitHubConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	// Ref is the branch, tag or commit posts are read at. Empty means the default
	// branch. Webhook pushes match a full ref (refs/tags/v1) exactly and treat any
	// other value as a branch name, so pinning a commit SHA disables webhook syncs.
	Ref           string `yaml:"ref"`
	Path          string `yaml:"path"`
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// Validate validates the GitHub configuration.
func (c *GitHubConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Owner, validation.Required),
		validation.Field(&c.Repo, validation.Required),
	)
}

// FullName returns "owner/repo".
func (c *GitHubConfig) FullName() string {
	return c.Owner + "/" + c.Repo
}

func validateReading(c *textmetrics.Config) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CPMBase, validation.Required, validation.Min(1)),
		validation.Field(&c.CPMVariance, validation.Min(0), validation.Max(c.CPMBase-1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  "info",
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			SiteName:     "blog",
			FetchTimeout: application.DefaultFetchTimeout,
		},
		SQLite: *sqlite.NewSQLiteConfig(),
		Source: SourceConfig{
			Kind: SourceSQLite,
		},
		Reading: textmetrics.DefaultConfig(),
	}
}
