package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Notification NotificationConfig `mapstructure:"notification"`
	Importer     ImporterConfig     `mapstructure:"importer"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// NotificationConfig selects and configures the outbound notification channel.
// Channel is "smtp", "lark", or "log" (delivery disabled, outcomes logged).
type NotificationConfig struct {
	Channel     string        `mapstructure:"channel"`
	FromName    string        `mapstructure:"from_name"`
	SMTP        SMTPConfig    `mapstructure:"smtp"`
	Lark        LarkConfig    `mapstructure:"lark"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// SMTPConfig holds SMTP relay credentials
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// LarkConfig holds Lark app credentials for the optional messenger channel
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
}

// ImporterConfig holds the optional PDF invoice importer configuration.
// The importer is disabled when APIKey is empty.
type ImporterConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/invopilot.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("notification.channel", "log")
	viper.SetDefault("notification.from_name", "Invopilot")
	viper.SetDefault("notification.send_timeout", 15*time.Second)
	viper.SetDefault("notification.smtp.port", 587)

	viper.SetDefault("importer.model", "gpt-4o")
	viper.SetDefault("importer.temperature", 0.1)
	viper.SetDefault("importer.timeout", 60*time.Second)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	// Credentials come from the environment, never the config file.
	viper.BindEnv("notification.smtp.username", "SMTP_USERNAME")
	viper.BindEnv("notification.smtp.password", "SMTP_PASSWORD")
	viper.BindEnv("notification.lark.app_id", "LARK_APP_ID")
	viper.BindEnv("notification.lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("importer.api_key", "OPENAI_API_KEY")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Notification.Channel {
	case "log":
	case "smtp":
		if c.Notification.SMTP.Host == "" {
			return fmt.Errorf("notification.smtp.host is required for the smtp channel")
		}
		if c.Notification.SMTP.From == "" {
			return fmt.Errorf("notification.smtp.from is required for the smtp channel")
		}
	case "lark":
		if c.Notification.Lark.AppID == "" || c.Notification.Lark.AppSecret == "" {
			return fmt.Errorf("notification.lark credentials are required for the lark channel")
		}
	default:
		return fmt.Errorf("unknown notification channel: %s", c.Notification.Channel)
	}
	return nil
}
