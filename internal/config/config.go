package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PathsConfig holds the directories the pipeline reads from and writes to.
type PathsConfig struct {
	LogDir     string `yaml:"log_dir"`
	ReportDir  string `yaml:"report_dir"`
	ArchiveDir string `yaml:"archive_dir"`
	TempDir    string `yaml:"temp_dir"`
}

// ProcessingConfig holds the worker pool settings for the batch engine.
type ProcessingConfig struct {
	NumWorkers int `yaml:"num_workers"`
	BatchSize  int `yaml:"batch_size"`
}

// ReportsConfig controls which report artifacts are generated.
type ReportsConfig struct {
	IncludeCSV bool `yaml:"include_csv"`
	TopN       int  `yaml:"top_n"`
}

// ArchiveConfig controls compression of processed source files.
type ArchiveConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Format           string `yaml:"compress_format"` // "zip" or "tar.gz"
	KeepOriginal     bool   `yaml:"keep_original"`
	CleanOldArchives bool   `yaml:"clean_old_archives"`
	RetentionDays    int    `yaml:"retention_days"`
}

// SMTPConfig holds the settings for the email notifier.
type SMTPConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	From          string `yaml:"from"`
	To            string `yaml:"to"` // comma-separated recipients
	SubjectPrefix string `yaml:"subject_prefix"`
}

// ClickHouseConfig holds the connection settings for the record store.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig holds the settings for the summary publisher.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// APIConfig holds the settings for the report query server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Processing ProcessingConfig `yaml:"processing"`
	Reports    ReportsConfig    `yaml:"reports"`
	Archive    ArchiveConfig    `yaml:"archive"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
	API        APIConfig        `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// The SMTP password may be supplied via the EMAIL_PASSWORD environment variable,
// which takes precedence over the file.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if pw := os.Getenv("EMAIL_PASSWORD"); pw != "" {
		cfg.SMTP.Password = pw
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Processing.NumWorkers <= 0 {
		c.Processing.NumWorkers = 4
	}
	if c.Processing.BatchSize <= 0 {
		c.Processing.BatchSize = 100
	}
	if c.Reports.TopN <= 0 {
		c.Reports.TopN = 10
	}
	if c.Archive.Format == "" {
		c.Archive.Format = "zip"
	}
	if c.Archive.RetentionDays <= 0 {
		c.Archive.RetentionDays = 30
	}
}

// EnsureDirectories creates the configured directories if they do not exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.ReportDir, c.Paths.ArchiveDir, c.Paths.TempDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
