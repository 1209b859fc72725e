package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// DateFormat is the calendar date layout used across inputs, filters and outputs.
const DateFormat = "2006-01-02"

// Config represents the complete application configuration
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths for the four input tables and outputs
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir  string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	SalesFile   string `yaml:"sales_file" envconfig:"SALES_FILE"`
	ProductFile string `yaml:"product_file" envconfig:"PRODUCT_FILE"`
	BrandFile   string `yaml:"brand_file" envconfig:"BRAND_FILE"`
	StoreFile   string `yaml:"store_file" envconfig:"STORE_FILE"`
}

// PipelineConfig contains defaults for the feature pipeline run.
// The date window matches the reference run of the pipeline.
type PipelineConfig struct {
	MinDate string `yaml:"min_date" envconfig:"MIN_DATE"`
	MaxDate string `yaml:"max_date" envconfig:"MAX_DATE"`
	Top     int    `yaml:"top" envconfig:"TOP"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("SALES", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Fill anything still unset with defaults
	cfg.applyDefaults()

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if envConfig.Logging.Format == "" {
		envConfig.Logging.Format = fileConfig.Logging.Format
	}
	if envConfig.Logging.Output == "" {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if envConfig.Paths.DataDir == "" {
		envConfig.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if envConfig.Paths.ReportsDir == "" {
		envConfig.Paths.ReportsDir = fileConfig.Paths.ReportsDir
	}
	if envConfig.Paths.SalesFile == "" {
		envConfig.Paths.SalesFile = fileConfig.Paths.SalesFile
	}
	if envConfig.Paths.ProductFile == "" {
		envConfig.Paths.ProductFile = fileConfig.Paths.ProductFile
	}
	if envConfig.Paths.BrandFile == "" {
		envConfig.Paths.BrandFile = fileConfig.Paths.BrandFile
	}
	if envConfig.Paths.StoreFile == "" {
		envConfig.Paths.StoreFile = fileConfig.Paths.StoreFile
	}
	if envConfig.Pipeline.MinDate == "" {
		envConfig.Pipeline.MinDate = fileConfig.Pipeline.MinDate
	}
	if envConfig.Pipeline.MaxDate == "" {
		envConfig.Pipeline.MaxDate = fileConfig.Pipeline.MaxDate
	}
	if envConfig.Pipeline.Top == 0 {
		envConfig.Pipeline.Top = fileConfig.Pipeline.Top
	}

	return envConfig
}

// applyDefaults fills unset fields. Defaults live here rather than in struct
// tags so that config file values survive the env merge.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/features.log"
	}
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "data"
	}
	if c.Paths.ReportsDir == "" {
		c.Paths.ReportsDir = "reports"
	}
	if c.Paths.SalesFile == "" {
		c.Paths.SalesFile = "sales.csv"
	}
	if c.Paths.ProductFile == "" {
		c.Paths.ProductFile = "product.csv"
	}
	if c.Paths.BrandFile == "" {
		c.Paths.BrandFile = "brand.csv"
	}
	if c.Paths.StoreFile == "" {
		c.Paths.StoreFile = "store.csv"
	}
	if c.Pipeline.MinDate == "" {
		c.Pipeline.MinDate = "2021-01-08"
	}
	if c.Pipeline.MaxDate == "" {
		c.Pipeline.MaxDate = "2021-05-30"
	}
	if c.Pipeline.Top == 0 {
		c.Pipeline.Top = 5
	}
}

// configFilePath returns the path of the optional YAML config file
func configFilePath() string {
	if path := os.Getenv("SALES_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Pipeline.Top <= 0 {
		return fmt.Errorf("pipeline top count must be positive: %d", c.Pipeline.Top)
	}

	minDate, err := time.Parse(DateFormat, c.Pipeline.MinDate)
	if err != nil {
		return fmt.Errorf("invalid pipeline min date %q: %w", c.Pipeline.MinDate, err)
	}
	maxDate, err := time.Parse(DateFormat, c.Pipeline.MaxDate)
	if err != nil {
		return fmt.Errorf("invalid pipeline max date %q: %w", c.Pipeline.MaxDate, err)
	}
	if maxDate.Before(minDate) {
		return fmt.Errorf("pipeline max date %s is before min date %s", c.Pipeline.MaxDate, c.Pipeline.MinDate)
	}

	if c.Paths.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if c.Paths.ReportsDir == "" {
		return fmt.Errorf("reports directory must not be empty")
	}

	return nil
}

// SalesPath returns the resolved sales fact table path
func (c *Config) SalesPath() string {
	return c.resolveDataPath(c.Paths.SalesFile)
}

// ProductPath returns the resolved product dimension path
func (c *Config) ProductPath() string {
	return c.resolveDataPath(c.Paths.ProductFile)
}

// BrandPath returns the resolved brand dimension path
func (c *Config) BrandPath() string {
	return c.resolveDataPath(c.Paths.BrandFile)
}

// StorePath returns the resolved store dimension path
func (c *Config) StorePath() string {
	return c.resolveDataPath(c.Paths.StoreFile)
}

// resolveDataPath joins a file name with the data directory unless already absolute
func (c *Config) resolveDataPath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.Paths.DataDir, file)
}

// EnsureReportsDir creates the reports directory if it does not exist
func (c *Config) EnsureReportsDir() error {
	if err := os.MkdirAll(c.Paths.ReportsDir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}
	return nil
}
