package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Routing   RoutingConfig
	Mail      MailConfig
	API       APIConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type SchedulerConfig struct {
	// GenerationSpec and ReminderSpec are 6-field cron expressions for the
	// internal trigger loop (seconds granularity, robfig WithSeconds).
	GenerationSpec string
	ReminderSpec   string
	// LookaheadHours bounds the rolling generation horizon for non-PPM
	// definitions.
	LookaheadHours int
	// LockTTL caps how long a run may hold the single-flight lock.
	LockTTL time.Duration
}

type RoutingConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type MailConfig struct {
	GatewayURL string
	APIKey     string
	From       string
	AlertTo    string
}

type APIConfig struct {
	Key string
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SCHEDULER_GENERATION_SPEC", "0 */15 * * * *")
	viper.SetDefault("SCHEDULER_REMINDER_SPEC", "0 */5 * * * *")
	viper.SetDefault("SCHEDULER_LOOKAHEAD_HOURS", 48)
	viper.SetDefault("SCHEDULER_LOCK_TTL", "10m")
	viper.SetDefault("ROUTING_TIMEOUT", "15s")

	lockTTL, err := time.ParseDuration(viper.GetString("SCHEDULER_LOCK_TTL"))
	if err != nil {
		lockTTL = 10 * time.Minute
	}
	routingTimeout, err := time.ParseDuration(viper.GetString("ROUTING_TIMEOUT"))
	if err != nil {
		routingTimeout = 15 * time.Second
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Scheduler: SchedulerConfig{
			GenerationSpec: viper.GetString("SCHEDULER_GENERATION_SPEC"),
			ReminderSpec:   viper.GetString("SCHEDULER_REMINDER_SPEC"),
			LookaheadHours: viper.GetInt("SCHEDULER_LOOKAHEAD_HOURS"),
			LockTTL:        lockTTL,
		},
		Routing: RoutingConfig{
			BaseURL: viper.GetString("ROUTING_BASE_URL"),
			APIKey:  viper.GetString("ROUTING_API_KEY"),
			Timeout: routingTimeout,
		},
		Mail: MailConfig{
			GatewayURL: viper.GetString("MAIL_GATEWAY_URL"),
			APIKey:     viper.GetString("MAIL_GATEWAY_API_KEY"),
			From:       viper.GetString("MAIL_FROM"),
			AlertTo:    viper.GetString("MAIL_ALERT_TO"),
		},
		API: APIConfig{
			Key: viper.GetString("API_KEY"),
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Routing.BaseURL == "" {
		log.Println("WARNING: ROUTING_BASE_URL is not set, randomized tours will fail route optimization")
	}

	return cfg, nil
}

// LoadDatabaseOnly loads just the database section, for bootstrap tooling.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")

	return &DatabaseConfig{
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		Charset: viper.GetString("DB_CHARSET"),
	}, nil
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=UTC"
}
