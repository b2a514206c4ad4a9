package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Source     SourceConfig     `yaml:"source" envconfig:"SOURCE"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Processing ProcessingConfig `yaml:"processing" envconfig:"PROCESSING"`
	Export     ExportConfig     `yaml:"export" envconfig:"EXPORT"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
	Publish    PublishConfig    `yaml:"publish" envconfig:"PUBLISH"`
}

// SourceConfig describes where roster documents are listed and fetched from
type SourceConfig struct {
	ListingURL          string        `yaml:"listing_url" envconfig:"LISTING_URL" default:"https://cps.edu/About_CPS/Financial_information/Pages/EmployeePositionFiles.aspx" validate:"required,url"`
	BaseURL             string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://cps.edu" validate:"required,url"`
	LinkFilter          string        `yaml:"link_filter" envconfig:"LINK_FILTER" default:"Employee" validate:"required"`
	HTTPTimeout         time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT" default:"60s" validate:"gt=0"`
	DownloadConcurrency int           `yaml:"download_concurrency" envconfig:"DOWNLOAD_CONCURRENCY" default:"2" validate:"min=1,max=16"`
	RequestsPerSecond   float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"2" validate:"gt=0"`
	Offline             bool          `yaml:"offline" envconfig:"OFFLINE" default:"false"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"." validate:"required"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// ProcessingConfig controls the read, join and clean phases
type ProcessingConfig struct {
	Workers        int    `yaml:"workers" envconfig:"WORKERS" default:"4" validate:"min=1,max=64"`
	Replace        bool   `yaml:"replace" envconfig:"REPLACE" default:"false"`
	NormalizeNames bool   `yaml:"normalize_names" envconfig:"NORMALIZE_NAMES" default:"true"`
	Cutoff         string `yaml:"cutoff" envconfig:"CUTOFF" default:"2010-05-02" validate:"datetime=2006-01-02"`
}

// CutoffDate returns the parsed readability cutoff
func (p ProcessingConfig) CutoffDate() time.Time {
	d, err := time.Parse(DateLayout, p.Cutoff)
	if err != nil {
		return DefaultCutoff
	}
	return d
}

// ExportConfig controls the final artifacts
type ExportConfig struct {
	CSV            bool   `yaml:"csv" envconfig:"CSV" default:"true"`
	SQLitePath     string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	Reduce         bool   `yaml:"reduce" envconfig:"REDUCE" default:"false"`
	JobTitlePrefix string `yaml:"job_title_prefix" envconfig:"JOB_TITLE_PREFIX"`
	UnitNameSuffix string `yaml:"unit_name_suffix" envconfig:"UNIT_NAME_SUFFIX" default:"School"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/roster.log"`
}

// TelemetryConfig controls OpenTelemetry exporters
type TelemetryConfig struct {
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none" validate:"oneof=stdout none"`
	Metrics       bool   `yaml:"metrics" envconfig:"METRICS" default:"true"`
	ListenAddr    string `yaml:"listen_addr" envconfig:"LISTEN_ADDR"`
}

// PublishConfig controls distribution of the reduced export
type PublishConfig struct {
	SFTP SFTPConfig `yaml:"sftp" envconfig:"SFTP"`
}

// SFTPConfig holds SFTP upload settings. Publishing is off while Host is empty.
type SFTPConfig struct {
	Host                  string `yaml:"host" envconfig:"ADDRESS"`
	Port                  int    `yaml:"port" envconfig:"SSH_PORT" default:"22" validate:"min=1,max=65535"`
	User                  string `yaml:"user" envconfig:"LOGIN" validate:"required_with=Host"`
	Password              string `yaml:"password" envconfig:"PASSWORD" validate:"required_with=Host"`
	RemoteDir             string `yaml:"remote_dir" envconfig:"REMOTE_DIR" default:"/"`
	KnownHostsFile        string `yaml:"known_hosts_file" envconfig:"KNOWN_HOSTS_FILE"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_host_key" envconfig:"INSECURE_IGNORE_HOST_KEY" default:"false"`
}

// Enabled reports whether an SFTP target is configured
func (s SFTPConfig) Enabled() bool {
	return s.Host != ""
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom loads configuration from the environment and the given YAML file.
// An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileConfig, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileConfig, cfg)
		}
	}

	if err := cfg.Validate(); err != nil {
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

	// Start from defaults so keys missing from the file keep their default
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeConfigs overlays file values onto env values. Env values win whenever
// the variable was explicitly set; otherwise the file value replaces the
// envconfig default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	set := func(name string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + name)
		return ok
	}
	str := func(name string, dst *string, src string) {
		if src != "" && !set(name) {
			*dst = src
		}
	}
	num := func(name string, dst *int, src int) {
		if src != 0 && !set(name) {
			*dst = src
		}
	}
	flag := func(name string, dst *bool, src bool) {
		if !set(name) {
			*dst = src
		}
	}

	str("SOURCE_LISTING_URL", &envConfig.Source.ListingURL, fileConfig.Source.ListingURL)
	str("SOURCE_BASE_URL", &envConfig.Source.BaseURL, fileConfig.Source.BaseURL)
	str("SOURCE_LINK_FILTER", &envConfig.Source.LinkFilter, fileConfig.Source.LinkFilter)
	num("SOURCE_DOWNLOAD_CONCURRENCY", &envConfig.Source.DownloadConcurrency, fileConfig.Source.DownloadConcurrency)
	if fileConfig.Source.HTTPTimeout != 0 && !set("SOURCE_HTTP_TIMEOUT") {
		envConfig.Source.HTTPTimeout = fileConfig.Source.HTTPTimeout
	}
	if fileConfig.Source.RequestsPerSecond != 0 && !set("SOURCE_REQUESTS_PER_SECOND") {
		envConfig.Source.RequestsPerSecond = fileConfig.Source.RequestsPerSecond
	}
	flag("SOURCE_OFFLINE", &envConfig.Source.Offline, fileConfig.Source.Offline)

	str("PATHS_DATA_DIR", &envConfig.Paths.DataDir, fileConfig.Paths.DataDir)
	str("PATHS_LOGS_DIR", &envConfig.Paths.LogsDir, fileConfig.Paths.LogsDir)

	num("PROCESSING_WORKERS", &envConfig.Processing.Workers, fileConfig.Processing.Workers)
	str("PROCESSING_CUTOFF", &envConfig.Processing.Cutoff, fileConfig.Processing.Cutoff)
	flag("PROCESSING_REPLACE", &envConfig.Processing.Replace, fileConfig.Processing.Replace)
	flag("PROCESSING_NORMALIZE_NAMES", &envConfig.Processing.NormalizeNames, fileConfig.Processing.NormalizeNames)

	str("EXPORT_SQLITE_PATH", &envConfig.Export.SQLitePath, fileConfig.Export.SQLitePath)
	str("EXPORT_JOB_TITLE_PREFIX", &envConfig.Export.JobTitlePrefix, fileConfig.Export.JobTitlePrefix)
	str("EXPORT_UNIT_NAME_SUFFIX", &envConfig.Export.UnitNameSuffix, fileConfig.Export.UnitNameSuffix)
	flag("EXPORT_CSV", &envConfig.Export.CSV, fileConfig.Export.CSV)
	flag("EXPORT_REDUCE", &envConfig.Export.Reduce, fileConfig.Export.Reduce)

	str("LOGGING_LEVEL", &envConfig.Logging.Level, fileConfig.Logging.Level)
	str("LOGGING_OUTPUT", &envConfig.Logging.Output, fileConfig.Logging.Output)
	str("LOGGING_FILE_PATH", &envConfig.Logging.FilePath, fileConfig.Logging.FilePath)

	str("TELEMETRY_TRACE_EXPORTER", &envConfig.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter)
	flag("TELEMETRY_METRICS", &envConfig.Telemetry.Metrics, fileConfig.Telemetry.Metrics)
	str("TELEMETRY_LISTEN_ADDR", &envConfig.Telemetry.ListenAddr, fileConfig.Telemetry.ListenAddr)

	str("PUBLISH_SFTP_ADDRESS", &envConfig.Publish.SFTP.Host, fileConfig.Publish.SFTP.Host)
	num("PUBLISH_SFTP_SSH_PORT", &envConfig.Publish.SFTP.Port, fileConfig.Publish.SFTP.Port)
	str("PUBLISH_SFTP_LOGIN", &envConfig.Publish.SFTP.User, fileConfig.Publish.SFTP.User)
	str("PUBLISH_SFTP_PASSWORD", &envConfig.Publish.SFTP.Password, fileConfig.Publish.SFTP.Password)
	str("PUBLISH_SFTP_REMOTE_DIR", &envConfig.Publish.SFTP.RemoteDir, fileConfig.Publish.SFTP.RemoteDir)
	str("PUBLISH_SFTP_KNOWN_HOSTS_FILE", &envConfig.Publish.SFTP.KnownHostsFile, fileConfig.Publish.SFTP.KnownHostsFile)
	flag("PUBLISH_SFTP_INSECURE_IGNORE_HOST_KEY", &envConfig.Publish.SFTP.InsecureIgnoreHostKey, fileConfig.Publish.SFTP.InsecureIgnoreHostKey)

	return envConfig
}

// Validate checks struct tags and cross-field rules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// JSON is the only supported log format
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/roster.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	locations := []string{
		"roster.yaml",
		"configs/roster.yaml",
		"../configs/roster.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			ListingURL:          DefaultListingURL,
			BaseURL:             DefaultBaseURL,
			LinkFilter:          DefaultLinkFilter,
			HTTPTimeout:         DefaultHTTPTimeout,
			DownloadConcurrency: DefaultDownloadConcurrency,
			RequestsPerSecond:   2,
		},
		Paths: PathsConfig{
			DataDir: ".",
			LogsDir: DefaultLogsDir,
		},
		Processing: ProcessingConfig{
			Workers:        DefaultWorkers,
			NormalizeNames: true,
			Cutoff:         DefaultCutoff.Format(DateLayout),
		},
		Export: ExportConfig{
			CSV:            true,
			UnitNameSuffix: "School",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/roster.log",
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
			Metrics:       true,
		},
		Publish: PublishConfig{
			SFTP: SFTPConfig{Port: 22, RemoteDir: "/"},
		},
	}
}
