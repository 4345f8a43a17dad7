package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "PROMO"

const (
	BackendDuckDB   = "duckdb"
	BackendPostgres = "postgres"

	SourceStore      = "store"
	SourceDatabricks = "databricks"
)

type Config struct {
	Server     Server     `mapstructure:"server"`
	Log        Log        `mapstructure:"log"`
	Store      Store      `mapstructure:"store"`
	Baseline   Baseline   `mapstructure:"baseline"`
	Cache      Cache      `mapstructure:"cache"`
	Events     Events     `mapstructure:"events"`
	Archive    Archive    `mapstructure:"archive"`
	Pipeline   Pipeline   `mapstructure:"pipeline"`
	Optimizer  Optimizer  `mapstructure:"optimizer"`
	Validator  Validator  `mapstructure:"validator"`
	PostMortem PostMortem `mapstructure:"postmortem"`
	Ingest     Ingest     `mapstructure:"ingest"`
}

type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Store holds scenarios and, unless Baseline.Source says otherwise, the baseline tables.
type Store struct {
	Backend         string        `mapstructure:"backend"`
	DuckDBPath      string        `mapstructure:"duckdb_path"`
	Threads         int           `mapstructure:"threads"`
	PostgresDSN     string        `mapstructure:"postgres_dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type Baseline struct {
	Source string `mapstructure:"source"`
	// DatabricksConfig is a .databrickscfg file; empty means $HOME/.databrickscfg
	DatabricksConfig string `mapstructure:"databricks_config"`
	Profile          string `mapstructure:"profile"`
	HTTPPath         string `mapstructure:"http_path"`
	Catalog          string `mapstructure:"catalog"`
	Schema           string `mapstructure:"schema"`
}

type Cache struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Events struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Archive struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

type Pipeline struct {
	Workers int `mapstructure:"workers"`
}

type Optimizer struct {
	Workers       int `mapstructure:"workers"`
	MaxCandidates int `mapstructure:"max_candidates"`
}

type Validator struct {
	BlockPenalty float64 `mapstructure:"block_penalty"`
	WarnPenalty  float64 `mapstructure:"warn_penalty"`
}

type PostMortem struct {
	MissThreshold            float64 `mapstructure:"miss_threshold"`
	CannibalizationThreshold float64 `mapstructure:"cannibalization_threshold"`
	LearningRate             float64 `mapstructure:"learning_rate"`
	LearnFloor               float64 `mapstructure:"learn_floor"`
	LearnCap                 float64 `mapstructure:"learn_cap"`
}

type Ingest struct {
	BatchSize int `mapstructure:"batch_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("store.backend", BackendDuckDB)
	v.SetDefault("store.duckdb_path", "promo-lab.db")
	v.SetDefault("store.threads", 4)
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("store.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("baseline.source", SourceStore)
	v.SetDefault("baseline.databricks_config", "")
	v.SetDefault("baseline.profile", "DEFAULT")
	v.SetDefault("baseline.http_path", "")
	v.SetDefault("baseline.catalog", "")
	v.SetDefault("baseline.schema", "")

	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.prefix", "promo-lab")
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "promo-lab.events")
	v.SetDefault("events.max_attempts", 3)
	v.SetDefault("events.write_timeout", 10*time.Second)

	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "promo-lab")
	v.SetDefault("archive.region", "")

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("optimizer.workers", 4)
	v.SetDefault("optimizer.max_candidates", 50)
	v.SetDefault("validator.block_penalty", 40)
	v.SetDefault("validator.warn_penalty", 15)
	v.SetDefault("postmortem.miss_threshold", 0.10)
	v.SetDefault("postmortem.cannibalization_threshold", 0.05)
	v.SetDefault("postmortem.learning_rate", 0.1)
	v.SetDefault("postmortem.learn_floor", 0.8)
	v.SetDefault("postmortem.learn_cap", 1.2)
	v.SetDefault("ingest.batch_size", 500)
}

// Load reads the optional YAML file at path and applies PROMO_* environment
// overrides, e.g. PROMO_STORE_BACKEND or PROMO_EVENTS_BROKERS=a:9092,b:9092.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendDuckDB:
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Baseline.Source {
	case SourceStore, SourceDatabricks:
	default:
		return fmt.Errorf("unknown baseline source %q", c.Baseline.Source)
	}

	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		return fmt.Errorf("events.topic is required when brokers are set")
	}

	if c.PostMortem.LearnFloor <= 0 || c.PostMortem.LearnFloor > 1 || c.PostMortem.LearnCap < 1 {
		return fmt.Errorf("postmortem.learn_floor must be within (0, 1] and postmortem.learn_cap at least 1")
	}
	return nil
}
