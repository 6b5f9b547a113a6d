package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source      SourceConfig      `yaml:"source" mapstructure:"source"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Extract     ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	AzureOpenAI AzureOpenAIConfig `yaml:"azureopenai" mapstructure:"azureopenai"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Publish     PublishConfig     `yaml:"publish" mapstructure:"publish"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Notion      NotionConfig      `yaml:"notion" mapstructure:"notion"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// SourceConfig bounds and decodes the extraction dump.
type SourceConfig struct {
	StartPage  int    `yaml:"start_page" mapstructure:"start_page"`
	EndPage    int    `yaml:"end_page" mapstructure:"end_page"`
	Encoding   string `yaml:"encoding" mapstructure:"encoding"`
	LayoutPath string `yaml:"layout_path" mapstructure:"layout_path"`
}

// PipelineConfig configures the consolidation run.
type PipelineConfig struct {
	OutputPath     string  `yaml:"output_path" mapstructure:"output_path"`
	CheckpointPath string  `yaml:"checkpoint_path" mapstructure:"checkpoint_path"`
	Rewind         int     `yaml:"rewind" mapstructure:"rewind"`
	MinUnitChars   int     `yaml:"min_unit_chars" mapstructure:"min_unit_chars"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
}

// ExtractConfig configures the extraction gateway.
type ExtractConfig struct {
	Provider          string `yaml:"provider" mapstructure:"provider"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxAttempts       int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelaySecs    int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// AzureOpenAIConfig holds Azure OpenAI deployment settings.
type AzureOpenAIConfig struct {
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	Key         string  `yaml:"key" mapstructure:"key"`
	Deployment  string  `yaml:"deployment" mapstructure:"deployment"`
	APIVersion  string  `yaml:"api_version" mapstructure:"api_version"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// StoreConfig configures the local run-history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PublishConfig configures the Postgres case publisher.
type PublishConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// FetchConfig configures source-document downloads.
type FetchConfig struct {
	Dir                   string  `yaml:"dir" mapstructure:"dir"`
	UserAgent             string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs           int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond     float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst                 int     `yaml:"burst" mapstructure:"burst"`
	RetryMaxAttempts      int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryInitialBackoffMs int     `yaml:"retry_initial_backoff_ms" mapstructure:"retry_initial_backoff_ms"`
	RetryMaxBackoffMs     int     `yaml:"retry_max_backoff_ms" mapstructure:"retry_max_backoff_ms"`
	RetryMultiplier       float64 `yaml:"retry_multiplier" mapstructure:"retry_multiplier"`
	RetryJitter           float64 `yaml:"retry_jitter" mapstructure:"retry_jitter"`
	FTPTimeoutSecs        int     `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
}

// NotionConfig holds the optional run-log destination.
type NotionConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
	RunDB string `yaml:"run_db" mapstructure:"run_db"`
}

// ServerConfig configures the artifact server.
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
	v.AddConfigPath("$HOME/.casebook")

	// Environment
	v.SetEnvPrefix("CASEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("pipeline.output_path", "consolidated_cases.json")
	v.SetDefault("pipeline.checkpoint_path", "parsing_checkpoint.json")
	v.SetDefault("pipeline.rewind", 1)
	v.SetDefault("pipeline.min_unit_chars", 50)
	v.SetDefault("pipeline.fuzzy_threshold", 0.85)
	v.SetDefault("extract.provider", "anthropic")
	v.SetDefault("extract.requests_per_minute", 200)
	v.SetDefault("extract.max_attempts", 3)
	v.SetDefault("extract.retry_delay_secs", 1)
	v.SetDefault("extract.timeout_secs", 60)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("azureopenai.api_version", "2024-02-01")
	v.SetDefault("azureopenai.max_tokens", 4096)
	v.SetDefault("store.path", "casebook.db")
	v.SetDefault("publish.max_conns", 4)
	v.SetDefault("publish.min_conns", 1)
	v.SetDefault("fetch.dir", "downloads")
	v.SetDefault("fetch.user_agent", "casebook-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.requests_per_second", 5.0)
	v.SetDefault("fetch.burst", 5)
	v.SetDefault("fetch.retry_max_attempts", 3)
	v.SetDefault("fetch.retry_initial_backoff_ms", 500)
	v.SetDefault("fetch.retry_max_backoff_ms", 30000)
	v.SetDefault("fetch.retry_multiplier", 2.0)
	v.SetDefault("fetch.retry_jitter", 0.25)
	v.SetDefault("fetch.ftp_timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Credentials and bounds have no defaults, but registering them lets
	// AutomaticEnv populate them through Unmarshal.
	v.SetDefault("source.start_page", 0)
	v.SetDefault("source.end_page", 0)
	v.SetDefault("source.encoding", "")
	v.SetDefault("source.layout_path", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.temperature", 0.0)
	v.SetDefault("azureopenai.endpoint", "")
	v.SetDefault("azureopenai.key", "")
	v.SetDefault("azureopenai.deployment", "")
	v.SetDefault("azureopenai.temperature", 0.0)
	v.SetDefault("publish.database_url", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.run_db", "")

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

// Validate checks the settings a command depends on. Mode is the command
// name: "run", "publish" or "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run":
		switch c.Extract.Provider {
		case "anthropic":
			if c.Anthropic.Key == "" {
				problems = append(problems, "anthropic.key is required")
			}
		case "azureopenai":
			if c.AzureOpenAI.Endpoint == "" {
				problems = append(problems, "azureopenai.endpoint is required")
			}
			if c.AzureOpenAI.Key == "" {
				problems = append(problems, "azureopenai.key is required")
			}
			if c.AzureOpenAI.Deployment == "" {
				problems = append(problems, "azureopenai.deployment is required")
			}
		default:
			problems = append(problems, "extract.provider must be anthropic or azureopenai")
		}
		if c.Pipeline.OutputPath == "" {
			problems = append(problems, "pipeline.output_path is required")
		}
		if c.Pipeline.CheckpointPath == "" {
			problems = append(problems, "pipeline.checkpoint_path is required")
		}
		if c.Pipeline.FuzzyThreshold < 0 || c.Pipeline.FuzzyThreshold > 1 {
			problems = append(problems, "pipeline.fuzzy_threshold must be between 0 and 1")
		}
		if (c.Notion.Token == "") != (c.Notion.RunDB == "") {
			problems = append(problems, "notion.token and notion.run_db must be set together")
		}
	case "publish":
		if c.Publish.DatabaseURL == "" {
			problems = append(problems, "publish.database_url is required")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
