package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"statusbak/pkg/logger"
)

// Config holds all configuration options for the status backup tool.
type Config struct {
	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Backup pacing and timeout settings
	Backup BackupConfig `yaml:"backup" json:"backup"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging logger.Config `yaml:"logging" json:"logging"`
}

// BrowserConfig selects and configures the page source.
type BrowserConfig struct {
	// Mode is "chrome" (drive a real browser) or "snapshot" (read
	// saved page_<n>.html files from SnapshotDir).
	Mode        string `yaml:"mode" json:"mode"`
	StartURL    string `yaml:"start_url" json:"start_url"`
	SnapshotDir string `yaml:"snapshot_dir" json:"snapshot_dir"`
	Headless    bool   `yaml:"headless" json:"headless"`
}

// BackupConfig holds the pacing and timeout knobs of a run. The
// defaults mirror the values the host site has tolerated for years;
// raising the pacing floor is safe, lowering it is rude.
type BackupConfig struct {
	ItemTimeout    time.Duration `yaml:"item_timeout" json:"item_timeout"`
	PageTimeout    time.Duration `yaml:"page_timeout" json:"page_timeout"`
	SettleDelay    time.Duration `yaml:"settle_delay" json:"settle_delay"`
	SaveGraceDelay time.Duration `yaml:"save_grace_delay" json:"save_grace_delay"`
	PacingMin      time.Duration `yaml:"pacing_min" json:"pacing_min"`
	PacingMax      time.Duration `yaml:"pacing_max" json:"pacing_max"`
	FetchComments  bool          `yaml:"fetch_comments" json:"fetch_comments"`
}

// OutputConfig holds file delivery configuration.
type OutputConfig struct {
	BaseDirectory   string `yaml:"base_directory" json:"base_directory"`
	FileNamePattern string `yaml:"file_name_pattern" json:"file_name_pattern"`
	Zip             bool   `yaml:"zip" json:"zip"`
}

// DefaultFileNamePattern names one page's backup document.
const DefaultFileNamePattern = "douban_status_{user}_p{page}_{date}.md"

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Mode:     "chrome",
			StartURL: "https://www.douban.com/mine/statuses",
			Headless: false,
		},
		Backup: BackupConfig{
			ItemTimeout:    5 * time.Second,
			PageTimeout:    30 * time.Second,
			SettleDelay:    500 * time.Millisecond,
			SaveGraceDelay: time.Second,
			PacingMin:      2 * time.Second,
			PacingMax:      5 * time.Second,
			FetchComments:  true,
		},
		Output: OutputConfig{
			BaseDirectory:   "./backups",
			FileNamePattern: DefaultFileNamePattern,
			Zip:             false,
		},
		Logging: logger.Config{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if mode := os.Getenv("STATUSBAK_BROWSER_MODE"); mode != "" {
		c.Browser.Mode = mode
	}
	if url := os.Getenv("STATUSBAK_START_URL"); url != "" {
		c.Browser.StartURL = url
	}
	if dir := os.Getenv("STATUSBAK_SNAPSHOT_DIR"); dir != "" {
		c.Browser.SnapshotDir = dir
	}
	if dir := os.Getenv("STATUSBAK_OUTPUT_DIR"); dir != "" {
		c.Output.BaseDirectory = dir
	}
	if level := os.Getenv("STATUSBAK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. An empty path
// falls back to the standard locations; finding none is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".statusbak.yaml",
		".statusbak.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "statusbak", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".statusbak.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Browser.Mode) {
	case "chrome":
	case "snapshot":
		if c.Browser.SnapshotDir == "" {
			errs = append(errs, errors.New("snapshot mode requires a snapshot directory"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown browser mode: %s", c.Browser.Mode))
	}

	if c.Backup.ItemTimeout <= 0 {
		errs = append(errs, errors.New("item timeout must be positive"))
	}
	if c.Backup.PageTimeout <= 0 {
		errs = append(errs, errors.New("page timeout must be positive"))
	}
	if c.Backup.PacingMin <= 0 || c.Backup.PacingMax < c.Backup.PacingMin {
		errs = append(errs, errors.New("pacing delays must be positive and max >= min"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.FileNamePattern == "" {
		errs = append(errs, errors.New("file name pattern is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if mode, ok := flags["browser-mode"].(string); ok && mode != "" {
		c.Browser.Mode = mode
	}
	if dir, ok := flags["snapshot-dir"].(string); ok && dir != "" {
		c.Browser.SnapshotDir = dir
		c.Browser.Mode = "snapshot"
	}
	if url, ok := flags["url"].(string); ok && url != "" {
		c.Browser.StartURL = url
	}
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Output.BaseDirectory = dir
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if zip, ok := flags["zip"].(bool); ok {
		c.Output.Zip = zip
	}
	if fetch, ok := flags["comments"].(bool); ok {
		c.Backup.FetchComments = fetch
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment variables > .env file >
// config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".statusbak.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
