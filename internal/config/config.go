package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data           DataConfig           `yaml:"data" mapstructure:"data"`
	Output         OutputConfig         `yaml:"output" mapstructure:"output"`
	CompaniesHouse CompaniesHouseConfig `yaml:"companies_house" mapstructure:"companies_house"`
	Serper         SerperConfig         `yaml:"serper" mapstructure:"serper"`
	Anthropic      AnthropicConfig      `yaml:"anthropic" mapstructure:"anthropic"`
	Enrich         EnrichConfig         `yaml:"enrich" mapstructure:"enrich"`
	Store          StoreConfig          `yaml:"store" mapstructure:"store"`
	Jobs           JobsConfig           `yaml:"jobs" mapstructure:"jobs"`
	Server         ServerConfig         `yaml:"server" mapstructure:"server"`
	Log            LogConfig            `yaml:"log" mapstructure:"log"`
}

// DataConfig points at the source snapshot and reference files.
type DataConfig struct {
	Snapshot  string `yaml:"snapshot" mapstructure:"snapshot"`
	NSPL      string `yaml:"nspl" mapstructure:"nspl"`
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// OutputConfig configures artifact output directories.
type OutputConfig struct {
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"`
}

// SICExtractDir returns the Stage A artifact directory.
func (o OutputConfig) SICExtractDir() string { return filepath.Join(o.BaseDir, "sic_extracts") }

// CountyFilterDir returns the Stage C artifact directory.
func (o OutputConfig) CountyFilterDir() string { return filepath.Join(o.BaseDir, "county_filtered") }

// EnrichedDir returns the enrichment artifact directory.
func (o OutputConfig) EnrichedDir() string { return filepath.Join(o.BaseDir, "enriched") }

// CompaniesHouseConfig holds registry API settings.
type CompaniesHouseConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	MinDelaySecs float64 `yaml:"min_delay_secs" mapstructure:"min_delay_secs"`
	MaxRetries   int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// SerperConfig holds web-search API settings.
type SerperConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds LLM API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EnrichConfig configures the two enrichment engines.
type EnrichConfig struct {
	BatchSize           int    `yaml:"batch_size" mapstructure:"batch_size"`
	BatchSizeV2         int    `yaml:"batch_size_v2" mapstructure:"batch_size_v2"`
	ConfidenceThreshold int    `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	DirectoryDomain     string `yaml:"directory_domain" mapstructure:"directory_domain"`
}

// StoreConfig configures the dataset persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// JobsConfig configures the in-process job registry.
type JobsConfig struct {
	TTLHours int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// ServerConfig configures the HTTP service layer.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SICDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.snapshot", "data/BasicCompanyDataAsOneFile.csv")
	v.SetDefault("data.nspl", "data/reference/NSPL_UK.csv")
	v.SetDefault("data.config_dir", "config")
	v.SetDefault("output.base_dir", "outputs")
	v.SetDefault("companies_house.base_url", "https://api.company-information.service.gov.uk")
	v.SetDefault("companies_house.min_delay_secs", 0.6)
	v.SetDefault("companies_house.max_retries", 3)
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("enrich.batch_size", 50)
	v.SetDefault("enrich.batch_size_v2", 10)
	v.SetDefault("enrich.confidence_threshold", 70)
	v.SetDefault("enrich.directory_domain", "endole.co.uk")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outputs/company_datasets.db")
	v.SetDefault("jobs.ttl_hours", 24)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
