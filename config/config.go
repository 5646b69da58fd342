// Package config loads client settings from a JSON file, a .env file and
// COPILOT_* environment variables, in increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. COPILOT_API_BASE_URL.
const EnvPrefix = "COPILOT"

// MaxBackoff caps api.backoff_max. Retry sleeps cannot be interrupted, so this
// bounds how long an interrupt waits on a failing read.
const MaxBackoff = 5 * time.Second

//Config ...
type Config struct {
	API        APIConfig        `mapstructure:"api" validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage" validate:"required"`
	Task       TaskConfig       `mapstructure:"task" validate:"required"`
	Evaluation EvaluationConfig `mapstructure:"evaluation" validate:"required"`
	Worker     WorkerConfig     `mapstructure:"worker" validate:"required"`
	Alert      AlertConfig      `mapstructure:"alert"`
	Log        LogConfig        `mapstructure:"log" validate:"required"`
}

//APIConfig is the backend endpoint and its transport tuning
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	RefreshPath    string        `mapstructure:"refresh_path" validate:"required,startswith=/"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RetryCount     int           `mapstructure:"retry_count" validate:"gte=0,lte=5"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial" validate:"gte=0"`
	BackoffMax     time.Duration `mapstructure:"backoff_max" validate:"gtefield=BackoffInitial"`
}

//StorageConfig selects where session state lives
type StorageConfig struct {
	Driver string       `mapstructure:"driver" validate:"required,oneof=memory sqlite redis"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

//SQLiteConfig ...
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

//RedisConfig ...
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

//TaskConfig bounds generic task polling
type TaskConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"gt=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

//EvaluationConfig tunes progress simulation and evaluation polling
type EvaluationConfig struct {
	PerFileBudget time.Duration `mapstructure:"per_file_budget" validate:"gt=0"`
	MinBudget     time.Duration `mapstructure:"min_budget" validate:"gt=0"`
	TickInterval  time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxNotFound   int           `mapstructure:"max_not_found" validate:"gt=0"`
	Deadline      time.Duration `mapstructure:"deadline" validate:"gt=0"`
	Cooldown      time.Duration `mapstructure:"cooldown" validate:"gte=0"`
	SaveGrace     time.Duration `mapstructure:"save_grace" validate:"gte=0"`
}

//WorkerConfig drives the NATS tracking worker
type WorkerConfig struct {
	PoolSize      int    `mapstructure:"pool_size" validate:"gt=0"`
	NatsHost      string `mapstructure:"nats_host" validate:"required"`
	Subject       string `mapstructure:"subject" validate:"required"`
	QueueGroup    string `mapstructure:"queue_group" validate:"required"`
	ResultSubject string `mapstructure:"result_subject" validate:"required"`
	MetricsAddr   string `mapstructure:"metrics_addr"`
}

//AlertConfig picks where fatal tracking errors are pushed; both may be empty
type AlertConfig struct {
	SlackWebhook string `mapstructure:"slack_webhook" validate:"omitempty,url"`
	RollbarToken string `mapstructure:"rollbar_token"`
	Environment  string `mapstructure:"environment"`
}

//LogConfig ...
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.refresh_path", "/refresh-token")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.retry_count", 2)
	v.SetDefault("api.backoff_initial", 200*time.Millisecond)
	v.SetDefault("api.backoff_max", 2*time.Second)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "copilot.db")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)

	v.SetDefault("task.max_attempts", 180)
	v.SetDefault("task.poll_interval", time.Second)

	v.SetDefault("evaluation.per_file_budget", 90*time.Second)
	v.SetDefault("evaluation.min_budget", time.Second)
	v.SetDefault("evaluation.tick_interval", time.Second)
	v.SetDefault("evaluation.poll_interval", 15*time.Second)
	v.SetDefault("evaluation.max_not_found", 3)
	v.SetDefault("evaluation.deadline", time.Hour)
	v.SetDefault("evaluation.cooldown", 3*time.Second)
	v.SetDefault("evaluation.save_grace", 1500*time.Millisecond)

	v.SetDefault("worker.pool_size", 4)
	v.SetDefault("worker.nats_host", "nats://localhost:4222")
	v.SetDefault("worker.subject", "copilot.track")
	v.SetDefault("worker.queue_group", "copilot-trackers")
	v.SetDefault("worker.result_subject", "copilot.track.done")
	v.SetDefault("worker.metrics_addr", ":9100")

	v.SetDefault("alert.slack_webhook", "")
	v.SetDefault("alert.rollbar_token", "")
	v.SetDefault("alert.environment", "development")

	v.SetDefault("log.level", "info")
}

// Load reads config.json from dir (or ./config/ when dir is empty). A missing
// file is fine; defaults and environment still apply. A .env file in the
// working directory is loaded first when present.
func Load(dir string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.Wrap(err, "load .env")
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("json")
	v.SetConfigName("config")
	if dir != "" {
		v.AddConfigPath(dir)
	} else {
		v.AddConfigPath("./config/")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the driver-specific requirements.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if cfg.API.BackoffMax > MaxBackoff {
		return errors.Errorf("invalid config: api.backoff_max must not exceed %s", MaxBackoff)
	}
	switch cfg.Storage.Driver {
	case "sqlite":
		if cfg.Storage.SQLite.Path == "" {
			return errors.New("invalid config: storage.sqlite.path is required for the sqlite driver")
		}
	case "redis":
		if cfg.Storage.Redis.Addr == "" {
			return errors.New("invalid config: storage.redis.addr is required for the redis driver")
		}
	}
	return nil
}
