package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Mail     MailConfig     `mapstructure:"mail"`
	Lane     LaneConfig     `mapstructure:"lane"`
	Intake   IntakeConfig   `mapstructure:"intake"`
	CSV      CSVConfig      `mapstructure:"csv"`
	Memory   MemoryConfig   `mapstructure:"memory"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MailConfig holds the monitored mailbox session configuration
type MailConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	TLS             bool          `mapstructure:"tls"`
	Folder          string        `mapstructure:"folder"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	IdleEnabled     bool          `mapstructure:"idle_enabled"`
	ProcessedFolder string        `mapstructure:"processed_folder"`
	FailedFolder    string        `mapstructure:"failed_folder"`
	OAuth           OAuthConfig   `mapstructure:"oauth"`
}

// OAuthConfig holds optional OAuth2 credentials used instead of a password
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// LaneConfig describes recipient addresses that belong to the webhook reply lane
type LaneConfig struct {
	CampaignDomain   string   `mapstructure:"campaign_domain"`
	ReplyPrefixes    []string `mapstructure:"reply_prefixes"`
	ReservedPatterns []string `mapstructure:"reserved_patterns"`
}

// IntakeConfig holds mailbox intake filtering options
type IntakeConfig struct {
	AllowedSenderDomains []string `mapstructure:"allowed_sender_domains"`
}

// CSVConfig holds bulk upload limits
type CSVConfig struct {
	MaxFileSize int64 `mapstructure:"max_file_size"`
	MaxRows     int   `mapstructure:"max_rows"`
	Sanitize    bool  `mapstructure:"sanitize"`
}

// MemoryConfig holds the optional lead memory sink configuration
type MemoryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AMQPURL    string `mapstructure:"amqp_url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "lead-intake.db")

	v.SetDefault("log.level", "info")

	v.SetDefault("mail.port", 993)
	v.SetDefault("mail.tls", true)
	v.SetDefault("mail.folder", "INBOX")
	v.SetDefault("mail.poll_interval", "60s")
	v.SetDefault("mail.idle_enabled", true)

	v.SetDefault("lane.reply_prefixes", []string{"reply", "replies", "respond"})

	v.SetDefault("csv.max_file_size", 10*1024*1024)
	v.SetDefault("csv.max_rows", 10000)
	v.SetDefault("csv.sanitize", true)

	v.SetDefault("memory.enabled", false)
	v.SetDefault("memory.exchange", "ex.leads")
	v.SetDefault("memory.routing_key", "lead.memory")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.path", "DB_PATH")

	v.BindEnv("log.level", "LOG_LEVEL")

	// Mailbox
	v.BindEnv("mail.host", "IMAP_HOST")
	v.BindEnv("mail.port", "IMAP_PORT")
	v.BindEnv("mail.user", "IMAP_USER")
	v.BindEnv("mail.password", "IMAP_PASSWORD")
	v.BindEnv("mail.tls", "IMAP_TLS")
	v.BindEnv("mail.folder", "IMAP_FOLDER")
	v.BindEnv("mail.poll_interval", "IMAP_POLL_INTERVAL")
	v.BindEnv("mail.idle_enabled", "IMAP_IDLE_ENABLED")
	v.BindEnv("mail.processed_folder", "IMAP_PROCESSED_FOLDER")
	v.BindEnv("mail.failed_folder", "IMAP_FAILED_FOLDER")
	v.BindEnv("mail.oauth.client_id", "IMAP_OAUTH_CLIENT_ID")
	v.BindEnv("mail.oauth.client_secret", "IMAP_OAUTH_CLIENT_SECRET")
	v.BindEnv("mail.oauth.refresh_token", "IMAP_OAUTH_REFRESH_TOKEN")

	v.BindEnv("lane.campaign_domain", "CAMPAIGN_DOMAIN")

	v.BindEnv("csv.max_file_size", "CSV_MAX_FILE_SIZE")
	v.BindEnv("csv.max_rows", "CSV_MAX_ROWS")

	v.BindEnv("memory.enabled", "MEMORY_ENABLED")
	v.BindEnv("memory.amqp_url", "MEMORY_AMQP_URL")
}

// GetDSN returns the database connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	case "sqlite":
		return c.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	}
}

// HasCredentials reports whether the mailbox can be logged into
func (c *MailConfig) HasCredentials() bool {
	if c.Host == "" || c.User == "" {
		return false
	}
	return c.Password != "" || c.UsesOAuth()
}

// UsesOAuth reports whether OAuth2 credentials are configured
func (c *MailConfig) UsesOAuth() bool {
	return c.OAuth.ClientID != "" && c.OAuth.ClientSecret != "" && c.OAuth.RefreshToken != ""
}

// Validate validates the configuration. Mail credentials are optional: without
// them the mailbox lane stays disabled.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database host, user, and dbname are required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Mail.PollInterval <= 0 {
		return fmt.Errorf("mail poll interval must be greater than 0")
	}

	if c.CSV.MaxFileSize <= 0 || c.CSV.MaxRows <= 0 {
		return fmt.Errorf("csv max_file_size and max_rows must be greater than 0")
	}

	if c.Memory.Enabled && c.Memory.AMQPURL == "" {
		return fmt.Errorf("memory amqp_url is required when memory sink is enabled")
	}

	return nil
}
