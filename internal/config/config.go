package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hackcomp/grading-api/internal/logger"
	"github.com/hackcomp/grading-api/internal/validator"
)

type Team struct {
	Active   *bool    `mapstructure:"active"   json:"active"   validate:"required"`
	Name     string   `mapstructure:"name"     json:"name"     validate:"required"`
	Password string   `mapstructure:"password" json:"password" validate:"required"`
	Members  []string `mapstructure:"members"  json:"members"`
	Admin    bool     `mapstructure:"admin"    json:"admin"`
}

type PostgresConfig struct {
	User               string        `validate:"required"`
	Password           string        `validate:"required"`
	Host               string        `validate:"required"`
	Database           string        `validate:"required"`
	MaxIdleConnections int           `validate:"required" mapstructure:"max_idle_connections"`
	MaxOpenConnections int           `validate:"required" mapstructure:"max_open_connections"`
	ConnectionTTL      time.Duration `validate:"required" mapstructure:"connection_ttl"`
	Port               int16         `validate:"required"`
}

type SandboxConfig struct {
	URL        string        `mapstructure:"url"         validate:"required"`
	LanguageID int           `mapstructure:"language_id" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryMax   int           `mapstructure:"retry_max"`
}

type PathsConfig struct {
	Submissions     string `mapstructure:"submissions"      validate:"required"`
	Problems        string `mapstructure:"problems"         validate:"required"`
	ProblemTemplate string `mapstructure:"problem_template"`
	Utils           string `mapstructure:"utils"            validate:"required"`
	Output          string `mapstructure:"output"           validate:"required"`
}

type GradingConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type SlogConfig struct {
	Level int `mapstructure:"level"`
}

type GormLogConfig struct {
	Level        int  `mapstructure:"level"`
	TraceQueries bool `mapstructure:"trace_queries"`
}

type LoggingConfig struct {
	Gorm    GormLogConfig `mapstructure:"gorm"`
	App     SlogConfig    `mapstructure:"app"`
	UseOTLP bool          `mapstructure:"use_otlp"`
}

type S3ArchiveConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	SSLEnabled      bool   `mapstructure:"ssl_enabled"`
	Enabled         bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RedisHost       string `mapstructure:"redis_host"`
	GlobalPerMinute int64  `mapstructure:"global_per_minute"`
	SubmitPerMinute int64  `mapstructure:"submit_per_minute"`
	FailOpen        bool   `mapstructure:"fail_open"`
}

// See gradingapi.yaml for an example config
type Config struct {
	Postgres             *PostgresConfig  `mapstructure:"postgres"               validate:"required"`
	Sandbox              *SandboxConfig   `mapstructure:"sandbox"                validate:"required"`
	Paths                *PathsConfig     `mapstructure:"paths"                  validate:"required"`
	Logging              *LoggingConfig   `mapstructure:"logging"                validate:"required"`
	S3Archive            *S3ArchiveConfig `mapstructure:"s3_archive"`
	RateLimit            *RateLimitConfig `mapstructure:"ratelimit"`
	Grading              GradingConfig    `mapstructure:"grading"`
	ListenAddress        string           `mapstructure:"listen_address"         validate:"required"`
	Teams                []Team           `mapstructure:"teams"                  validate:"required"`
	GracefulShutdownSecs int64            `mapstructure:"graceful_shutdown_secs"`
}

const (
	AppLogLevel                string = "logging.app.level"
	EnvPrefix                  string = "gradingapi"
	GlobalPerMinute            string = "ratelimit.global_per_minute"
	GormLogLevel               string = "logging.gorm.level"
	GormTraceQueries           string = "logging.gorm.trace_queries"
	GracefulShutdownSecs       string = "graceful_shutdown_secs"
	GradingConcurrency         string = "grading.concurrency"
	ListenAddress              string = "listen_address"
	PostgresConnectonTTL       string = "postgres.connection_ttl"
	PostgresDatabase           string = "postgres.database"
	PostgresHost               string = "postgres.host"
	PostgresMaxIdleConnections string = "postgres.max_idle_connections"
	PostgresMaxOpenConnections string = "postgres.max_open_connections"
	PostgresPassword           string = "postgres.password"
	PostgresPort               string = "postgres.port"
	PostgresUser               string = "postgres.user"
	RateLimitFailOpen          string = "ratelimit.fail_open"
	RedisHost                  string = "ratelimit.redis_host"
	S3AccessKeyID              string = "s3_archive.access_key_id"
	S3ArchiveEnabled           string = "s3_archive.enabled"
	S3SSLEnabled               string = "s3_archive.ssl_enabled"
	S3SecretAccessKey          string = "s3_archive.secret_access_key" // #nosec
	SandboxLanguageID          string = "sandbox.language_id"
	SandboxRetryMax            string = "sandbox.retry_max"
	SandboxTimeout             string = "sandbox.timeout"
	SubmitPerMinute            string = "ratelimit.submit_per_minute"
	UseOTLP                    string = "logging.use_otlp"
)

var configReady = false
var config Config

func GetConfig() (*Config, error) {
	if configReady {
		logger.Logger.Debug("returning already-loaded config")
		return &config, nil
	}
	logger.Logger.Info("loading config")

	v := viper.New()

	v.SetConfigName("gradingapi")

	v.AddConfigPath("/etc/gradingapi/")
	v.AddConfigPath(".")

	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AutomaticEnv()

	// workaround for https://github.com/spf13/viper/issues/761
	// bind env vars explicitly so they unmarshal into the nested struct
	err := v.BindEnv(PostgresPassword)
	if err != nil {
		return nil, err
	}

	err = v.BindEnv(S3AccessKeyID)
	if err != nil {
		return nil, err
	}

	err = v.BindEnv(S3SecretAccessKey)
	if err != nil {
		return nil, err
	}

	v.SetDefault(ListenAddress, "[::]:1323")
	v.SetDefault(PostgresHost, "localhost")
	v.SetDefault(PostgresPort, 5432)
	v.SetDefault(PostgresMaxIdleConnections, 2)
	v.SetDefault(PostgresMaxOpenConnections, 10)
	v.SetDefault(PostgresConnectonTTL, 10*time.Minute)
	v.SetDefault(GormLogLevel, int(slog.LevelDebug))
	v.SetDefault(GormTraceQueries, false)
	v.SetDefault(AppLogLevel, int(slog.LevelDebug))
	v.SetDefault(S3ArchiveEnabled, false)
	v.SetDefault(S3SSLEnabled, true)

	v.SetDefault(SandboxLanguageID, 89)
	v.SetDefault(SandboxTimeout, 60*time.Second)
	v.SetDefault(SandboxRetryMax, 3)

	v.SetDefault(GradingConcurrency, 4)

	v.SetDefault(RedisHost, "localhost")
	v.SetDefault(GlobalPerMinute, 0)
	v.SetDefault(SubmitPerMinute, 0)
	v.SetDefault(RateLimitFailOpen, true)

	v.SetDefault(UseOTLP, false)

	v.SetDefault(GracefulShutdownSecs, 30)

	err = v.ReadInConfig()
	if err != nil {
		// ignore config file not found to allow pure env config
		if _, ok := err.(*viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	if err != nil {
		configReady = false
		return nil, err
	}

	valid := validator.Create()
	err = valid.Validate(&config)
	if err != nil {
		configReady = false
		return nil, err
	}

	configReady = true
	return &config, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s",
		url.QueryEscape(c.Postgres.User),
		url.QueryEscape(c.Postgres.Password),
		c.Postgres.Host, c.Postgres.Port,
		url.QueryEscape(c.Postgres.Database),
	)
}
