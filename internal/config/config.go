// Package config provides configuration for the portal end-to-end suite and the
// fixture portal. Values come from environment variables, optionally seeded from a
// .env file, and CLI flags override them in cmd/portal-fixture.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kuitang/kgportal-e2e/internal/urlutil"
)

const (
	DefaultListenAddr      = ":9000"
	DefaultBrowser         = "chromium"
	DefaultTestIDAttribute = "data-cy"
	DefaultTimeout         = 5 * time.Second
	DefaultNodeCount       = 1000
	defaultArtifactsRegion = "us-east-1"
)

// Browsers lists the Playwright browser types the runtime can launch.
var Browsers = []string{"chromium", "firefox", "webkit"}

// Config holds all suite and fixture configuration.
type Config struct {
	// BaseURL is prepended to every page's relative URL. Read it at call time;
	// tests may repoint it between steps.
	BaseURL string

	// Browser runtime
	Browser         string
	Headless        bool
	SlowMo          time.Duration
	Timeout         time.Duration // Playwright default and navigation timeout
	TestIDAttribute string

	// Fixture portal
	ListenAddr              string
	NodesFile               string // CSKG nodes TSV; empty means generate
	FixtureNodeCount        int
	FixtureSeed             int64
	NormalizeSearchRedirect bool

	Artifacts ArtifactsConfig
}

// ArtifactsConfig configures the S3 bucket that receives failure screenshots.
type ArtifactsConfig struct {
	Bucket          string // E2E_ARTIFACTS_BUCKET; empty disables uploads
	Endpoint        string // AWS_ENDPOINT_URL_S3
	Region          string // AWS_REGION
	AccessKeyID     string // AWS_ACCESS_KEY_ID
	SecretAccessKey string // AWS_SECRET_ACCESS_KEY
	UsePathStyle    bool   // E2E_ARTIFACTS_PATH_STYLE
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// LoadConfig reads envFile (if it exists) into the process environment without
// overriding variables that are already set, then builds and validates a Config.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables and defaults, without validation.
func FromEnv() *Config {
	cfg := &Config{}

	cfg.ListenAddr = getEnvOrDefault("PORTAL_LISTEN_ADDR", DefaultListenAddr)
	cfg.BaseURL = urlutil.NormalizeBaseURL(os.Getenv("E2E_BASE_URL"))
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost" + cfg.ListenAddr
	}

	cfg.Browser = strings.ToLower(getEnvOrDefault("E2E_BROWSER", DefaultBrowser))
	cfg.Headless = parseBoolOrDefault("E2E_HEADLESS", true)
	cfg.SlowMo = parseDurationOrDefault("E2E_SLOW_MO", 0)
	cfg.Timeout = parseDurationOrDefault("E2E_TIMEOUT", DefaultTimeout)
	cfg.TestIDAttribute = getEnvOrDefault("E2E_TEST_ID_ATTRIBUTE", DefaultTestIDAttribute)

	cfg.NodesFile = strings.TrimSpace(os.Getenv("PORTAL_NODES_FILE"))
	cfg.FixtureNodeCount = parseIntOrDefault("PORTAL_NODE_COUNT", DefaultNodeCount)
	cfg.FixtureSeed = int64(parseIntOrDefault("PORTAL_SEED", 1))
	cfg.NormalizeSearchRedirect = parseBoolOrDefault("PORTAL_NORMALIZE_SEARCH_REDIRECT", false)

	cfg.Artifacts = ArtifactsConfig{
		Bucket:          strings.TrimSpace(os.Getenv("E2E_ARTIFACTS_BUCKET")),
		Endpoint:        strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3")),
		Region:          getEnvOrDefault("AWS_REGION", defaultArtifactsRegion),
		AccessKeyID:     strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY")),
		UsePathStyle:    parseBoolOrDefault("E2E_ARTIFACTS_PATH_STYLE", false),
	}

	return cfg
}

// Validate checks that all configuration is usable and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("E2E_BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL))
	} else if u.RawQuery != "" || u.Fragment != "" {
		errs = append(errs, "E2E_BASE_URL must not carry a query or fragment")
	}

	if !isKnownBrowser(c.Browser) {
		errs = append(errs, fmt.Sprintf("E2E_BROWSER must be one of %s, got %q", strings.Join(Browsers, ", "), c.Browser))
	}
	if c.Timeout <= 0 {
		errs = append(errs, "E2E_TIMEOUT must be positive")
	}
	if c.SlowMo < 0 {
		errs = append(errs, "E2E_SLOW_MO must not be negative")
	}
	if strings.TrimSpace(c.TestIDAttribute) == "" || strings.ContainsAny(c.TestIDAttribute, " \"'[]=") {
		errs = append(errs, fmt.Sprintf("E2E_TEST_ID_ATTRIBUTE must be a bare attribute name, got %q", c.TestIDAttribute))
	}

	if c.NodesFile == "" && c.FixtureNodeCount <= 0 {
		errs = append(errs, "PORTAL_NODE_COUNT must be positive when PORTAL_NODES_FILE is unset")
	}

	if c.Artifacts.Bucket != "" {
		hasKey := c.Artifacts.AccessKeyID != ""
		hasSecret := c.Artifacts.SecretAccessKey != ""
		if hasKey != hasSecret {
			errs = append(errs, "AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// TimeoutMillis returns the runtime timeout in milliseconds for Playwright APIs.
func (c *Config) TimeoutMillis() float64 {
	return float64(c.Timeout.Milliseconds())
}

// ArtifactsEnabled reports whether failure artifacts should be uploaded.
func (c *Config) ArtifactsEnabled() bool {
	return c.Artifacts.Bucket != ""
}

// PrintStartupSummary writes a human-readable summary of the fixture configuration.
func (c *Config) PrintStartupSummary(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "kgportal fixture starting...")
	if c.NodesFile != "" {
		fmt.Fprintf(w, "  Nodes:    %s\n", c.NodesFile)
	} else {
		fmt.Fprintf(w, "  Nodes:    %d generated (seed %d)\n", c.FixtureNodeCount, c.FixtureSeed)
	}
	if c.NormalizeSearchRedirect {
		fmt.Fprintln(w, "  Search:   redirects to normalized URL")
	}
	fmt.Fprintf(w, "  Test ids: %s\n", c.TestIDAttribute)
	fmt.Fprintf(w, "  Listen:   %s\n", c.ListenAddr)
	fmt.Fprintf(w, "  Base:     %s\n", c.BaseURL)
	fmt.Fprintln(w, "")
}

func isKnownBrowser(name string) bool {
	for _, b := range Browsers {
		if b == name {
			return true
		}
	}
	return false
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
