package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config aggregates application configuration values. Values come from an
// optional YAML file first, then environment variables on top. Timeouts are
// environment-only, as Go duration strings.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Store    StoreConfig    `yaml:"store"`
	Search   SearchConfig   `yaml:"search"`
	Stations StationsConfig `yaml:"stations"`
	Journeys JourneysConfig `yaml:"journeys"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port" validate:"gt=0,lte=65535"`
	ReadTimeout       time.Duration `yaml:"-"`
	WriteTimeout      time.Duration `yaml:"-"`
	IdleTimeout       time.Duration `yaml:"-"`
	ShutdownTimeout   time.Duration `yaml:"-"`
	AllowedOriginsCSV string        `yaml:"allowed_origins"`
}

// StoreConfig describes connectivity to the OSM-derived Postgres database.
type StoreConfig struct {
	Host            string        `yaml:"host" validate:"required"`
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	Database        string        `yaml:"database" validate:"required"`
	User            string        `yaml:"user" validate:"required"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MinConns        int           `yaml:"min_connections" validate:"gte=0"`
	MaxConns        int           `yaml:"max_connections" validate:"gt=0"`
	ConnMaxLifetime time.Duration `yaml:"-"`
}

// SearchConfig bounds the work one path search may perform.
type SearchConfig struct {
	MaxRounds       int `yaml:"max_rounds" validate:"gt=0"`
	MaxFallbackHops int `yaml:"max_fallback_hops" validate:"gt=0"`
	MatrixWorkers   int `yaml:"matrix_workers" validate:"gt=0"`
}

// StationsConfig locates the station directory CSV.
type StationsConfig struct {
	CSVPath string `yaml:"csv_path" validate:"required"`
}

// JourneysConfig points at the upstream MOTIS instance.
type JourneysConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"-"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"` // text|json
	Colored       bool   `yaml:"colored"`
	IncludeCaller bool   `yaml:"include_caller"`
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"

	defaultStoreHost       = "localhost"
	defaultStorePort       = 5432
	defaultStoreDatabase   = "osm"
	defaultStoreUser       = "postgres"
	defaultStoreSSLMode    = "disable"
	defaultStoreMinConns   = 1
	defaultStoreMaxConns   = 10
	defaultConnMaxLifetime = 30 * time.Minute

	defaultMaxRounds       = 10
	defaultMaxFallbackHops = 10
	defaultMatrixWorkers   = 4

	defaultStationsCSV     = "stations.csv"
	defaultJourneysBaseURL = "https://api.transitous.org"
	defaultJourneysTimeout = 15 * time.Second
)

// Load builds configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:            defaultHost,
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Store: StoreConfig{
			Host:            defaultStoreHost,
			Port:            defaultStorePort,
			Database:        defaultStoreDatabase,
			User:            defaultStoreUser,
			SSLMode:         defaultStoreSSLMode,
			MinConns:        defaultStoreMinConns,
			MaxConns:        defaultStoreMaxConns,
			ConnMaxLifetime: defaultConnMaxLifetime,
		},
		Search: SearchConfig{
			MaxRounds:       defaultMaxRounds,
			MaxFallbackHops: defaultMaxFallbackHops,
			MatrixWorkers:   defaultMatrixWorkers,
		},
		Stations: StationsConfig{CSVPath: defaultStationsCSV},
		Journeys: JourneysConfig{
			BaseURL: defaultJourneysBaseURL,
			Timeout: defaultJourneysTimeout,
		},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
	}
}

func applyEnv(cfg *Config) error {
	cfg.HTTP.Host = valueOrDefault("SERVER_HOST", cfg.HTTP.Host)
	port, err := parsePort("SERVER_PORT", cfg.HTTP.Port)
	if err != nil {
		return err
	}
	cfg.HTTP.Port = port
	cfg.HTTP.AllowedOriginsCSV = valueOrDefault("SERVER_ALLOWED_ORIGINS", cfg.HTTP.AllowedOriginsCSV)

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"STORE_CONN_MAX_LIFETIME", &cfg.Store.ConnMaxLifetime},
		{"JOURNEYS_TIMEOUT", &cfg.Journeys.Timeout},
	} {
		if v := os.Getenv(d.key); v != "" {
			dur, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.dst = dur
		}
	}

	cfg.Store.Host = valueOrDefault("STORE_HOST", cfg.Store.Host)
	storePort, err := parsePort("STORE_PORT", cfg.Store.Port)
	if err != nil {
		return err
	}
	cfg.Store.Port = storePort
	cfg.Store.Database = valueOrDefault("STORE_DATABASE", cfg.Store.Database)
	cfg.Store.User = valueOrDefault("STORE_USER", cfg.Store.User)
	cfg.Store.Password = valueOrDefault("STORE_PASSWORD", cfg.Store.Password)
	cfg.Store.SSLMode = valueOrDefault("STORE_SSLMODE", cfg.Store.SSLMode)
	cfg.Store.MinConns = parseIntWithDefault("STORE_MIN_CONNECTIONS", cfg.Store.MinConns)
	cfg.Store.MaxConns = parseIntWithDefault("STORE_MAX_CONNECTIONS", cfg.Store.MaxConns)

	cfg.Search.MaxRounds = parseIntWithDefault("SEARCH_MAX_ROUNDS", cfg.Search.MaxRounds)
	cfg.Search.MaxFallbackHops = parseIntWithDefault("SEARCH_MAX_FALLBACK_HOPS", cfg.Search.MaxFallbackHops)
	cfg.Search.MatrixWorkers = parseIntWithDefault("SEARCH_MATRIX_WORKERS", cfg.Search.MatrixWorkers)

	cfg.Stations.CSVPath = valueOrDefault("STATIONS_CSV_PATH", cfg.Stations.CSVPath)
	cfg.Journeys.BaseURL = valueOrDefault("JOURNEYS_BASE_URL", cfg.Journeys.BaseURL)

	cfg.Logging.Level = valueOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = valueOrDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Colored = parseBoolWithDefault("LOG_COLOR", cfg.Logging.Colored)
	cfg.Logging.IncludeCaller = parseBoolWithDefault("LOG_INCLUDE_CALLER", cfg.Logging.IncludeCaller)

	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
