// Package config layers defaults, a YAML file, the environment and command
// line flags into one validated Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/knolstudy/internal/validation"
)

// EnvPrefix is stripped from environment variables; "__" separates levels,
// so KNOLSTUDY_HTTP__ADDR sets http.addr.
const EnvPrefix = "KNOLSTUDY_"

type Config struct {
	HTTP struct {
		Addr string `koanf:"addr" validate:"required"`
	} `koanf:"http"`
	Data struct {
		Dir string `koanf:"dir" validate:"required"`
	} `koanf:"data"`
	DB struct {
		Path string `koanf:"path" validate:"required"`
	} `koanf:"db"`
	Repos struct {
		Dir string `koanf:"dir" validate:"required"`
	} `koanf:"repos"`
	Import struct {
		Root string `koanf:"root"`
	} `koanf:"import"`
	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db" validate:"gte=0"`
	} `koanf:"redis"`
	Quiz struct {
		SessionSize int `koanf:"session_size" validate:"gte=1"`
	} `koanf:"quiz"`
	Flashcards struct {
		ReviewLimit int `koanf:"review_limit" validate:"gte=0"`
	} `koanf:"flashcards"`
	Log struct {
		Level  string `koanf:"level" validate:"oneof=debug info warn error"`
		Format string `koanf:"format" validate:"oneof=text json"`
	} `koanf:"log"`
}

// RegisterFlags adds every configuration flag, with its default, to f.
func RegisterFlags(f *pflag.FlagSet) {
	f.String("config", "", "Path to a YAML config file")
	f.String("env-file", ".env", "Path to a .env file loaded into the environment if present")

	f.String("http.addr", ":8080", "Address the HTTP API listens on")
	f.String("data.dir", "data", "Directory holding quiz and flashcard records")
	f.String("db.path", "knolstudy.db", "Path to the SQLite history database")
	f.String("repos.dir", "repos", "Directory git sources are checked out into")
	f.String("import.root", "", "Directory the HTTP import endpoint may read local sources from; empty allows git URLs only")
	f.String("redis.addr", "", "Redis address for live quiz sessions; empty keeps them in memory")
	f.String("redis.password", "", "Redis password")
	f.Int("redis.db", 0, "Redis database number")
	f.Int("quiz.session_size", 5, "Maximum questions drawn into a quiz session")
	f.Int("flashcards.review_limit", 10, "Default number of cards returned for review")
	f.String("log.level", "info", "Log level: debug, info, warn or error")
	f.String("log.format", "text", "Log format: text or json")
}

// Load builds the configuration from an already parsed flag set. Precedence,
// highest first: flags set on the command line, environment, config file,
// flag defaults.
func Load(f *pflag.FlagSet) (*Config, error) {
	if envFile, _ := f.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Flags go last: changed flags win, unchanged ones only fill gaps.
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validation.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %s", validation.Message(err))
	}
	return &cfg, nil
}
