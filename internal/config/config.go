package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/tcdata/railnet/internal/routing"
)

// Config is the configuration shared by all commands
type Config struct {
	Data       DataConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	Suggestion SuggestionConfig
}

// DataConfig locates the curated dataset
type DataConfig struct {
	Dir         string `validate:"required"`
	Source      string `validate:"oneof=file postgres"`
	PresetsFile string
	Workers     int `validate:"gte=1"`
}

type ServerConfig struct {
	Host               string
	Port               int `validate:"gt=0,lt=65536"`
	RateLimitPerSecond int `validate:"gte=0"`
	RequestTimeout     time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int `validate:"gt=0"`
	Name     string
	User     string
	Password string
	SSLMode  string
	MinConns int32 `validate:"gte=0"`
	MaxConns int32 `validate:"gte=1"`
}

type RedisConfig struct {
	Enabled    bool
	Host       string
	Port       int `validate:"gt=0"`
	Password   string
	DB         int `validate:"gte=0"`
	TLSEnabled bool
	TTL        time.Duration
}

type LogConfig struct {
	Level string
}

// SuggestionConfig holds the default suggestion settings
type SuggestionConfig struct {
	UseSFS               bool
	AcceptNonElectrified bool
	AvoidEquipments      []string
	MaxSpeed             int `validate:"gte=0"`
	DistanceOnly         bool
	FullPath             bool
	Policy               string `validate:"oneof=strict_degree keep_junction_neighbours"`
	AutoService          bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.dir", ".")
	v.SetDefault("data.source", "file")
	v.SetDefault("data.presets_file", "")
	v.SetDefault("data.workers", 4)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_per_second", 20)
	v.SetDefault("server.request_timeout", "10s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "railnet")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.ttl", "24h")

	v.SetDefault("log.level", "info")

	v.SetDefault("suggestion.use_sfs", true)
	v.SetDefault("suggestion.accept_non_electrified", true)
	v.SetDefault("suggestion.avoid_equipments", "")
	v.SetDefault("suggestion.max_speed", 0)
	v.SetDefault("suggestion.distance_only", false)
	v.SetDefault("suggestion.full_path", false)
	v.SetDefault("suggestion.policy", string(routing.PolicyStrictDegree))
	v.SetDefault("suggestion.auto_service", false)
}

// Load reads the configuration from an optional YAML file and RAILNET_*
// environment variables, e.g. RAILNET_DATA_DIR or RAILNET_REDIS_ENABLED.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("RAILNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Data: DataConfig{
			Dir:         v.GetString("data.dir"),
			Source:      v.GetString("data.source"),
			PresetsFile: v.GetString("data.presets_file"),
			Workers:     v.GetInt("data.workers"),
		},
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Port:               v.GetInt("server.port"),
			RateLimitPerSecond: v.GetInt("server.rate_limit_per_second"),
			RequestTimeout:     v.GetDuration("server.request_timeout"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("database.enabled"),
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			Name:     v.GetString("database.name"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			SSLMode:  v.GetString("database.sslmode"),
			MinConns: v.GetInt32("database.min_conns"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		Redis: RedisConfig{
			Enabled:    v.GetBool("redis.enabled"),
			Host:       v.GetString("redis.host"),
			Port:       v.GetInt("redis.port"),
			Password:   v.GetString("redis.password"),
			DB:         v.GetInt("redis.db"),
			TLSEnabled: v.GetBool("redis.tls_enabled"),
			TTL:        v.GetDuration("redis.ttl"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Suggestion: SuggestionConfig{
			UseSFS:               v.GetBool("suggestion.use_sfs"),
			AcceptNonElectrified: v.GetBool("suggestion.accept_non_electrified"),
			AvoidEquipments:      stringList(v, "suggestion.avoid_equipments"),
			MaxSpeed:             v.GetInt("suggestion.max_speed"),
			DistanceOnly:         v.GetBool("suggestion.distance_only"),
			FullPath:             v.GetBool("suggestion.full_path"),
			Policy:               v.GetString("suggestion.policy"),
			AutoService:          v.GetBool("suggestion.auto_service"),
		},
	}

	if cfg.Data.Source == "postgres" {
		cfg.Database.Enabled = true
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Routing converts the suggestion defaults into a routing configuration
func (s SuggestionConfig) Routing() routing.Config {
	return routing.Config{
		UseSFS:               s.UseSFS,
		AcceptNonElectrified: s.AcceptNonElectrified,
		AvoidEquipments:      s.AvoidEquipments,
		MaxSpeed:             s.MaxSpeed,
		DistanceOnly:         s.DistanceOnly,
		FullPath:             s.FullPath,
		Policy:               routing.CompressionPolicy(s.Policy),
	}
}

// DSN returns the Postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// Addr returns host:port of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Addr returns the listen address of the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// stringList accepts YAML lists as well as comma separated env values
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		out = append(out, splitList(item)...)
	}
	return out
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
