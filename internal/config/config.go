package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	YouTube   YouTubeConfig   `mapstructure:"youtube"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Media     MediaConfig     `mapstructure:"media"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// YouTubeConfig holds YouTube OAuth application settings
type YouTubeConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	TickCron      string `mapstructure:"tick_cron"`      // How often the scheduler wakes up
	CallTimeout   string `mapstructure:"call_timeout"`   // Timeout per generation call
	RetryWait     string `mapstructure:"retry_wait"`     // Wait before retrying a transient provider error
	HealthAddress string `mapstructure:"health_address"` // Health check listen address
}

// PolicyConfig holds candidate selection settings
type PolicyConfig struct {
	MinAgeHours       int `mapstructure:"min_age_hours"`       // Videos younger than this are skipped
	CooldownHours     int `mapstructure:"cooldown_hours"`      // Videos touched within this window are skipped
	CandidatesPerTick int `mapstructure:"candidates_per_tick"` // Videos processed per user per tick
	RecentTitleCount  int `mapstructure:"recent_title_count"`  // Recent upload titles fed into the prompt
}

// MediaConfig holds thumbnail generation settings
type MediaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"` // Where generated thumbnails are written
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	YouTubeRequestsPerMinute    int `mapstructure:"youtube_requests_per_minute"`
	GenerationRequestsPerMinute int `mapstructure:"generation_requests_per_minute"`
	FeedRequestsPerMinute       int `mapstructure:"feed_requests_per_minute"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	HealthEnabled bool   `mapstructure:"health_enabled"`
	HealthAddress string `mapstructure:"health_address"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".tubeseo-agent"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("TUBESEO")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("youtube.client_id", "TUBESEO_YOUTUBE_CLIENT_ID")
	v.BindEnv("youtube.client_secret", "TUBESEO_YOUTUBE_CLIENT_SECRET")
	v.BindEnv("youtube.redirect_uri", "TUBESEO_YOUTUBE_REDIRECT_URI")
	v.BindEnv("database.driver", "TUBESEO_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "TUBESEO_DATABASE_DSN")
	v.BindEnv("scheduler.tick_cron", "TUBESEO_SCHEDULER_TICK_CRON")
	v.BindEnv("policy.min_age_hours", "TUBESEO_POLICY_MIN_AGE_HOURS")
	v.BindEnv("policy.cooldown_hours", "TUBESEO_POLICY_COOLDOWN_HOURS")
	v.BindEnv("media.enabled", "TUBESEO_MEDIA_ENABLED")
	v.BindEnv("media.dir", "TUBESEO_MEDIA_DIR")
	v.BindEnv("logging.level", "TUBESEO_LOGGING_LEVEL")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/tubeseo.db")

	// YouTube defaults
	v.SetDefault("youtube.redirect_uri", "http://localhost:8080/callback")

	// Scheduler defaults
	v.SetDefault("scheduler.tick_cron", "@every 10m")
	v.SetDefault("scheduler.call_timeout", "60s")
	v.SetDefault("scheduler.retry_wait", "20s")

	// Policy defaults
	v.SetDefault("policy.min_age_hours", 24)
	v.SetDefault("policy.cooldown_hours", 24)
	v.SetDefault("policy.candidates_per_tick", 1)
	v.SetDefault("policy.recent_title_count", 10)

	// Media defaults
	v.SetDefault("media.enabled", false)
	v.SetDefault("media.dir", "./data/media")

	// Rate limit defaults
	v.SetDefault("rate_limit.youtube_requests_per_minute", 30)
	v.SetDefault("rate_limit.generation_requests_per_minute", 10)
	v.SetDefault("rate_limit.feed_requests_per_minute", 30)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	// Server defaults
	v.SetDefault("server.health_enabled", true)
	v.SetDefault("server.health_address", ":8090")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.YouTube.ClientID == "" {
		return fmt.Errorf("youtube.client_id is required")
	}
	if c.YouTube.ClientSecret == "" {
		return fmt.Errorf("youtube.client_secret is required")
	}
	if c.Policy.CandidatesPerTick < 1 {
		return fmt.Errorf("policy.candidates_per_tick must be at least 1")
	}
	return nil
}
