package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	AI struct {
		Provider      string  `mapstructure:"provider"`
		Temperature   float32 `mapstructure:"temperature"`
		ChunkSizeDays int     `mapstructure:"chunkSizeDays"`
		Models        struct {
			Gemini string `mapstructure:"gemini"`
			OpenAI string `mapstructure:"openai"`
		} `mapstructure:"models"`
	} `mapstructure:"ai"`
	Places struct {
		BaseURL  string        `mapstructure:"baseURL"`
		MaxWidth int           `mapstructure:"maxWidth"`
		CacheTTL time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"places"`
	RateLimits struct {
		TravelPlan   RateLimitConfig `mapstructure:"travelPlan"`
		GooglePlaces RateLimitConfig `mapstructure:"googlePlaces"`
	} `mapstructure:"rateLimits"`
}

type RateLimitConfig struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"maxRequests"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
