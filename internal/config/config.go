package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Chain      ChainConfig      `mapstructure:"chain"`
	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	Detector   DetectorConfig   `mapstructure:"detector"`
	Scanner    ScannerConfig    `mapstructure:"scanner"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ChainConfig holds Polygon RPC configuration
type ChainConfig struct {
	RPCURL          string `mapstructure:"rpc_url"`
	ExchangeAddress string `mapstructure:"exchange_address"`
	BlockBatchSize  uint64 `mapstructure:"block_batch_size"`
	StartOffset     uint64 `mapstructure:"start_offset_blocks"`
}

// PolymarketConfig holds Gamma API configuration
type PolymarketConfig struct {
	GammaAPIURL string        `mapstructure:"gamma_api_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// DetectorConfig holds signal detection thresholds
type DetectorConfig struct {
	MinWalletVolume    float64       `mapstructure:"min_wallet_volume"`
	MinConviction      float64       `mapstructure:"min_conviction"`
	MinClusterWallets  int           `mapstructure:"min_cluster_wallets"`
	MaxEntryPrice      float64       `mapstructure:"max_entry_price"`
	AllowedCategories  []string      `mapstructure:"allowed_categories"`
	EmitUnpriced       bool          `mapstructure:"emit_unpriced"`
	WhaleMinVolume     float64       `mapstructure:"whale_min_volume"`
	WhaleMinConviction float64       `mapstructure:"whale_min_conviction"`
	WhaleRecency       time.Duration `mapstructure:"whale_recency"`
	SyncMinWallets     int           `mapstructure:"sync_min_wallets"`
	SyncWindow         time.Duration `mapstructure:"sync_window"`
}

// ScannerConfig holds scan loop behavior configuration
type ScannerConfig struct {
	ScanInterval  time.Duration `mapstructure:"scan_interval"`
	LookbackHours int           `mapstructure:"lookback_hours"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("POLYSCOUT")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Chain defaults
	v.SetDefault("chain.rpc_url", "https://polygon-rpc.com")
	v.SetDefault("chain.exchange_address", "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")
	v.SetDefault("chain.block_batch_size", 1000)
	v.SetDefault("chain.start_offset_blocks", 1000)

	// Polymarket defaults
	v.SetDefault("polymarket.gamma_api_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.timeout", "30s")
	v.SetDefault("polymarket.max_retries", 3)

	// Detector defaults
	v.SetDefault("detector.min_wallet_volume", 1000.0)
	v.SetDefault("detector.min_conviction", 0.80)
	v.SetDefault("detector.min_cluster_wallets", 1)
	v.SetDefault("detector.max_entry_price", 0.60)
	v.SetDefault("detector.allowed_categories", []string{"Politics", "Financial"})
	v.SetDefault("detector.emit_unpriced", true)
	v.SetDefault("detector.whale_min_volume", 10000.0)
	v.SetDefault("detector.whale_min_conviction", 0.80)
	v.SetDefault("detector.whale_recency", "1h")
	v.SetDefault("detector.sync_min_wallets", 5)
	v.SetDefault("detector.sync_window", "1h")

	// Scanner defaults
	v.SetDefault("scanner.scan_interval", "5m")
	v.SetDefault("scanner.lookback_hours", 48)

	// Telegram defaults
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/polyscout.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Chain config
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if c.Chain.ExchangeAddress == "" {
		return fmt.Errorf("chain.exchange_address is required")
	}
	if c.Chain.BlockBatchSize < 1 || c.Chain.BlockBatchSize > 10000 {
		return fmt.Errorf("chain.block_batch_size must be between 1 and 10000")
	}

	// Validate Polymarket config
	if c.Polymarket.GammaAPIURL == "" {
		return fmt.Errorf("polymarket.gamma_api_url is required")
	}
	if c.Polymarket.MaxRetries < 1 {
		return fmt.Errorf("polymarket.max_retries must be at least 1")
	}

	// Validate Detector config
	if c.Detector.MinWalletVolume < 0 {
		return fmt.Errorf("detector.min_wallet_volume must not be negative")
	}
	if c.Detector.MinConviction < 0.0 || c.Detector.MinConviction > 1.0 {
		return fmt.Errorf("detector.min_conviction must be between 0.0 and 1.0")
	}
	if c.Detector.MinClusterWallets < 1 {
		return fmt.Errorf("detector.min_cluster_wallets must be at least 1")
	}
	if c.Detector.MaxEntryPrice <= 0.0 || c.Detector.MaxEntryPrice > 1.0 {
		return fmt.Errorf("detector.max_entry_price must be between 0.0 and 1.0")
	}
	if c.Detector.WhaleMinVolume < 0 {
		return fmt.Errorf("detector.whale_min_volume must not be negative")
	}
	if c.Detector.WhaleMinConviction < 0.0 || c.Detector.WhaleMinConviction > 1.0 {
		return fmt.Errorf("detector.whale_min_conviction must be between 0.0 and 1.0")
	}
	if c.Detector.SyncMinWallets < 2 {
		return fmt.Errorf("detector.sync_min_wallets must be at least 2")
	}
	if c.Detector.SyncWindow < 1*time.Minute {
		return fmt.Errorf("detector.sync_window must be at least 1 minute")
	}

	// Validate Scanner config
	if c.Scanner.ScanInterval < 30*time.Second {
		return fmt.Errorf("scanner.scan_interval must be at least 30 seconds")
	}
	if c.Scanner.LookbackHours < 1 {
		return fmt.Errorf("scanner.lookback_hours must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.MaxRetries < 1 {
			return fmt.Errorf("telegram.max_retries must be at least 1")
		}
		if c.Telegram.RetryDelayBase < 100*time.Millisecond {
			return fmt.Errorf("telegram.retry_delay_base must be at least 100ms")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
