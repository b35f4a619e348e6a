// Package config defines the data structures related to configuration and
// includes functions for loading and parsing the config.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/precisionworks/quote-engine/pkg/constants"
)

// Config holds the full application configuration.
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Shop   ShopConfig   `yaml:"shop" mapstructure:"shop"`
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Stock  StockConfig  `yaml:"stock" mapstructure:"stock"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
}

// StoreConfig configures the SQLite database backend.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ShopConfig holds the shop-level economics used for anchor pricing.
type ShopConfig struct {
	Rate             float64 `yaml:"rate" mapstructure:"rate"`
	SetupTimeMins    float64 `yaml:"setup_time_mins" mapstructure:"setup_time_mins"`
	HandlingTimeMins float64 `yaml:"handling_time_mins" mapstructure:"handling_time_mins"`
	MaterialMarkup   float64 `yaml:"material_markup" mapstructure:"material_markup"`
	BaseMRR          float64 `yaml:"base_mrr" mapstructure:"base_mrr"`
	MinHandTimeMins  float64 `yaml:"min_hand_time_mins" mapstructure:"min_hand_time_mins"`
}

// EngineConfig holds engine tunables: debounce windows and the stock
// padding allowance.
type EngineConfig struct {
	DebounceMillis          int     `yaml:"debounce_millis" mapstructure:"debounce_millis"`
	DimensionDebounceMillis int     `yaml:"dimension_debounce_millis" mapstructure:"dimension_debounce_millis"`
	StockPadding            float64 `yaml:"stock_padding" mapstructure:"stock_padding"`
}

// StockConfig optionally overrides the commercial size catalogs. Empty
// lists use the built-in standard sizes.
type StockConfig struct {
	Thicknesses []float64 `yaml:"thicknesses" mapstructure:"thicknesses"`
	Widths      []float64 `yaml:"widths" mapstructure:"widths"`
}

// LogConfig holds logging configuration options.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`             // debug, info, warn, error
	Format     string `yaml:"format" mapstructure:"format"`           // json, console
	OutputFile string `yaml:"output_file" mapstructure:"output_file"` // optional file output
}

// Load reads the configuration from the given file path, layered under
// QUOTE_ENGINE_* environment variables. A missing file is not an error;
// the defaults stand.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix("QUOTE_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
			return nil, eris.Wrapf(err, "read config file %s", configPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("store.path", constants.DefaultStorePath)
	v.SetDefault("shop.rate", constants.DefaultShopRate)
	v.SetDefault("shop.setup_time_mins", constants.DefaultSetupTimeMins)
	v.SetDefault("shop.handling_time_mins", constants.DefaultHandlingTimeMins)
	v.SetDefault("shop.material_markup", constants.DefaultMaterialMarkup)
	v.SetDefault("shop.base_mrr", constants.DefaultBaseMRR)
	v.SetDefault("shop.min_hand_time_mins", constants.DefaultMinHandTimeMins)
	v.SetDefault("engine.debounce_millis", constants.DefaultDebounceMillis)
	v.SetDefault("engine.dimension_debounce_millis", constants.DimensionDebounceMillis)
	v.SetDefault("engine.stock_padding", constants.StockPaddingPerSide)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func isNotExist(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file")
}
