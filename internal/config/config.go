package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the full configuration surface for the application.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Scylla     ScyllaConfig     `mapstructure:"scylla"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	TaskRouter TaskRouterConfig `mapstructure:"task_router"`
	Voicemail  VoicemailConfig  `mapstructure:"voicemail"`
	Session    SessionConfig    `mapstructure:"session"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type ScyllaConfig struct {
	Hosts       []string      `mapstructure:"hosts"`
	Port        int           `mapstructure:"port"`
	Keyspace    string        `mapstructure:"keyspace"`
	Consistency string        `mapstructure:"consistency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	ClientID        string        `mapstructure:"client_id"`
	NotifyTopic     string        `mapstructure:"notify_topic"`
	ConsumerGroupID string        `mapstructure:"consumer_group_id"`
	CommitInterval  time.Duration `mapstructure:"commit_interval"`
}

type TelemetryConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	ServiceName     string        `mapstructure:"service_name"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	TracingEnabled  bool          `mapstructure:"tracing_enabled"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TaskRouterConfig describes the external queueing engine this service
// coordinates around.
type TaskRouterConfig struct {
	WorkspaceSID       string `mapstructure:"workspace_sid"`
	VoicemailQueueName string `mapstructure:"voicemail_queue_name"`
	// CallbackBase overrides the request-derived callback host when set.
	// Leave empty in normal operation so callbacks match the serving host.
	CallbackBase string `mapstructure:"callback_base"`
}

// VoicemailConfig covers both the recording script and the telephony
// provider credentials, since the redirect flow is the only place this
// service drives the provider.
type VoicemailConfig struct {
	Greeting         string        `mapstructure:"greeting"`
	FallbackMessage  string        `mapstructure:"fallback_message"`
	MaxLength        time.Duration `mapstructure:"max_length"`
	SilenceTimeout   time.Duration `mapstructure:"silence_timeout"`
	FinishOnKey      string        `mapstructure:"finish_on_key"`
	ProviderBaseURL  string        `mapstructure:"provider_base_url"`
	ProviderAccount  string        `mapstructure:"provider_account"`
	ProviderToken    string        `mapstructure:"provider_token"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	UseMockTelephony bool          `mapstructure:"use_mock_telephony"`
}

type SessionConfig struct {
	CutoffHour   int           `mapstructure:"cutoff_hour"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type NotifyConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Destination string `mapstructure:"destination"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("CALLDESK")
	v.SetEnvKeyReplacer(NewEnvReplacer())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	if cfg.Session.CutoffHour < 0 || cfg.Session.CutoffHour > 23 {
		return nil, fmt.Errorf("config: session cutoff_hour %d out of range", cfg.Session.CutoffHour)
	}

	return cfg, nil
}

// NewEnvReplacer standardizes environment variable names.
func NewEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}
