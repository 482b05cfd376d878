package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Database   DatabaseConfig   `yaml:"database"`
	Backup     BackupConfig     `yaml:"backup"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Worker     WorkerConfig     `yaml:"worker"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// BackendConfig points at the pricing backend the calendar orchestrates.
type BackendConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIToken       string  `yaml:"api_token"`
	HotelID        int64   `yaml:"hotel_id"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	FetchRetries   int     `yaml:"fetch_retries"`
}

type CalendarConfig struct {
	// RestWeekday is a pointer so Saturday (0) stays distinguishable
	// from "not configured".
	RestWeekday  *int   `yaml:"rest_weekday"` // Saturday=0 .. Friday=6
	RestDayName  string `yaml:"rest_day_name"`
	HolidaysPath string `yaml:"holidays_path"`
	Timezone     string `yaml:"timezone"`
	StateTTL     int    `yaml:"state_ttl_minutes"`
}

// RestDay returns the configured weekly rest day, Friday when unset.
func (c CalendarConfig) RestDay() int {
	if c.RestWeekday == nil {
		return 6
	}
	return *c.RestWeekday
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	// Enabled is a pointer so `enabled: false` can turn auth off; left
	// unset, auth is on exactly when api_keys are configured.
	Enabled      *bool          `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// AuthEnabled resolves the tri-state Enabled field.
func (c APIAuthConfig) AuthEnabled() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return len(c.APIKeys) > 0
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	RateChangesSheetID    string `yaml:"rate_changes_spreadsheet_id"`
	RateChangesSheetRange string `yaml:"rate_changes_sheet_range"`
}

type TelegramConfig struct {
	Enabled        bool    `yaml:"enabled"`
	BotToken       string  `yaml:"bot_token"`
	ManagerChatIDs []int64 `yaml:"manager_chat_ids"`
}

type WorkerConfig struct {
	Enabled             bool `yaml:"enabled"`
	PollIntervalSeconds int  `yaml:"poll_interval_seconds"`
	BatchSize           int  `yaml:"batch_size"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand ${VAR} placeholders before parsing, same trick as the env
	// interpolation in docker-compose files.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if rw := c.Calendar.RestWeekday; rw != nil && (*rw < 0 || *rw > 6) {
		return fmt.Errorf("calendar rest_weekday %d out of range 0..6", *rw)
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram enabled but bot_token is empty")
	}

	if c.Worker.Enabled && c.Google.CredentialsFile == "" {
		return errors.New("worker enabled but google credentials_file is empty")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "ratedesk"
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 15
	}
	if c.Backend.RateLimitBurst == 0 {
		c.Backend.RateLimitBurst = 5
	}
	if c.Backend.FetchRetries == 0 {
		c.Backend.FetchRetries = 3
	}
	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = "Asia/Tehran"
	}
	if c.Calendar.StateTTL == 0 {
		c.Calendar.StateTTL = 240
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.Enabled && !c.API.HTTP.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Worker.PollIntervalSeconds == 0 {
		c.Worker.PollIntervalSeconds = 5
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 20
	}
}
