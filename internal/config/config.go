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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Compare   CompareConfig   `yaml:"compare" mapstructure:"compare"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings used by extraction.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ExtractConfig configures document extraction.
type ExtractConfig struct {
	DataDir           string   `yaml:"data_dir" mapstructure:"data_dir"`
	Output            string   `yaml:"output" mapstructure:"output"`
	Concurrency       int      `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	ChunkChars        int      `yaml:"chunk_chars" mapstructure:"chunk_chars"`
	MaxAttempts       int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	Extensions        []string `yaml:"extensions" mapstructure:"extensions"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// CompareConfig configures normalization and report output.
type CompareConfig struct {
	PriceTolerance float64       `yaml:"price_tolerance" mapstructure:"price_tolerance"`
	VendorAliases  []VendorAlias `yaml:"vendor_aliases" mapstructure:"vendor_aliases"`
	OutDir         string        `yaml:"out_dir" mapstructure:"out_dir"`
	XLSX           bool          `yaml:"xlsx" mapstructure:"xlsx"`
}

// VendorAlias names a canonical vendor and the spellings that mean it. A list
// is used rather than a map because viper lower-cases map keys.
type VendorAlias struct {
	Name    string   `yaml:"name" mapstructure:"name"`
	Aliases []string `yaml:"aliases" mapstructure:"aliases"`
}

// AliasGroups returns the configured vendor aliases keyed by canonical name.
func (c CompareConfig) AliasGroups() map[string][]string {
	groups := make(map[string][]string, len(c.VendorAliases))
	for _, va := range c.VendorAliases {
		groups[va.Name] = append(groups[va.Name], va.Aliases...)
	}
	return groups
}

// ServerConfig configures the results API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("BIDCOMPARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "bid-compare.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("extract.data_dir", "./data")
	v.SetDefault("extract.output", "extracted_bids.json")
	v.SetDefault("extract.concurrency", 3)
	v.SetDefault("extract.requests_per_second", 2.0)
	v.SetDefault("extract.chunk_chars", 12000)
	v.SetDefault("extract.max_attempts", 3)
	v.SetDefault("extract.extensions", []string{".pdf", ".xlsx", ".csv", ".tsv", ".txt", ".md"})
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("compare.price_tolerance", 0.01)
	v.SetDefault("compare.out_dir", ".")
	v.SetDefault("compare.xlsx", false)

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

// Validate checks the settings a command needs. Mode is one of "extract",
// "compare", "store" or "serve"; unknown modes only check the store.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "extract":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required (BIDCOMPARE_ANTHROPIC_KEY)")
		}
		if c.Extract.Concurrency < 1 {
			problems = append(problems, "extract.concurrency must be at least 1")
		}
		if c.Extract.ChunkChars < 1000 {
			problems = append(problems, "extract.chunk_chars must be at least 1000")
		}
	case "compare":
		if c.Compare.PriceTolerance < 0 {
			problems = append(problems, "compare.price_tolerance must not be negative")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		problems = append(problems, c.storeProblems()...)
	default:
		problems = append(problems, c.storeProblems()...)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) storeProblems() []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return []string{"store.driver must be sqlite or postgres"}
	}
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
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
