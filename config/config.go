package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the receipts assistant service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Index     IndexConfig     `mapstructure:"index"`
	Assistant AssistantConfig `mapstructure:"assistant"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Listen         string        `mapstructure:"listen"`
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// StorageConfig contains storage and persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a Postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// ProvidersConfig contains external model provider configurations.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig contains settings for the OpenAI completion/embedding provider.
type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

func (o OpenAIConfig) Validate() error {
	if strings.TrimSpace(o.APIKey) == "" {
		return fmt.Errorf("providers.openai.api_key required")
	}
	return nil
}

// IndexConfig controls the semantic index lifecycle.
type IndexConfig struct {
	Dir          string `mapstructure:"dir"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	SearchTopK   int    `mapstructure:"search_top_k"`
	BatchSize    int    `mapstructure:"batch_size"`
}

func (i IndexConfig) Validate() error {
	if strings.TrimSpace(i.Dir) == "" {
		return fmt.Errorf("index.dir required")
	}
	if i.ChunkOverlap >= i.ChunkSize {
		return fmt.Errorf("index.chunk_overlap must be smaller than index.chunk_size")
	}
	return nil
}

// AssistantConfig carries prompt artifacts consumed by the query router.
type AssistantConfig struct {
	// SchemaContract describes the item table for the NL-to-SQL prompt.
	// It must be kept in sync with the migrations by the operator.
	SchemaContract string `mapstructure:"schema_contract"`
}

// DefaultSchemaContract documents the receipt_item columns the SQL
// generation prompt may reference. Versioned alongside migrations.
const DefaultSchemaContract = `Table receipt_item:
  id                  BIGINT        -- primary key
  transaction_id      BIGINT        -- receipt identifier, also a pseudo-time ordinal (no timestamp column exists)
  name                TEXT          -- product name as printed on the receipt
  name_normalized     TEXT          -- lowercased, accent-stripped product name
  price               NUMERIC(10,2) -- line price in EUR
  quantity            NUMERIC(10,3) -- purchased quantity
  unit                TEXT          -- unit as printed (ks, kg, l)
  quantity_normalized NUMERIC(10,3) -- quantity converted to the base unit
  unit_normalized     TEXT          -- base unit (piece, kilogram, litre)
  brand               TEXT          -- detected brand, may be empty
  category            TEXT          -- assigned category, may be empty`

// LoadConfig loads config from file, applying SPENDSENSE_* env overrides.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.listen", ":8000")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("providers.openai.completion_model", "gpt-4o-mini")
	viper.SetDefault("providers.openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("providers.openai.temperature", 0.2)
	viper.SetDefault("providers.openai.max_tokens", 1024)
	viper.SetDefault("providers.openai.timeout", "30s")
	viper.SetDefault("index.dir", "data/index")
	viper.SetDefault("index.chunk_size", 500)
	viper.SetDefault("index.chunk_overlap", 50)
	viper.SetDefault("index.search_top_k", 20)
	viper.SetDefault("index.batch_size", 32)
	viper.SetDefault("assistant.schema_contract", DefaultSchemaContract)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("SPENDSENSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.Providers.OpenAI.Validate(); err != nil {
		panic(err)
	}
	if err := config.Index.Validate(); err != nil {
		panic(err)
	}
	return &config
}
