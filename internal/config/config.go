// Package config loads sqlgate settings from a CUE file.
//
// The file is unified with an embedded #Config schema that supplies every
// default, so an empty file is a valid configuration. Unknown fields are
// rejected because #Config is a closed definition.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/sqlgate/internal/dbconn"
)

//go:embed schema.cue
var schemaSrc string

// Config is the decoded configuration.
type Config struct {
	Driver           string   `json:"driver"`
	DSN              string   `json:"dsn"`
	LogLevel         string   `json:"log_level"`
	MaxOpenConns     int      `json:"max_open_conns"`
	MaxIdleConns     int      `json:"max_idle_conns"`
	ConnMaxLifetime  string   `json:"conn_max_lifetime"`
	Identity         Identity `json:"identity"`
	ContextStatement string   `json:"context_statement"`
}

// Identity is the configured caller identity.
type Identity struct {
	SubjectID int64  `json:"subject_id"`
	Address   string `json:"address"`
}

// Load reads and validates the CUE file at path.
func Load(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(src, path)
}

// Parse validates CUE source against the schema. filename is used in error
// positions only.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("invalid embedded schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	v := def.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", filename, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if _, err := time.ParseDuration(cfg.ConnMaxLifetime); err != nil {
		return Config{}, fmt.Errorf("invalid conn_max_lifetime %q: %w", cfg.ConnMaxLifetime, err)
	}
	return cfg, nil
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Parse(nil, "default.cue")
	if err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Options converts the connection settings for dbconn.Open.
func (c Config) Options() dbconn.Options {
	lifetime, _ := time.ParseDuration(c.ConnMaxLifetime)
	return dbconn.Options{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: lifetime,
	}
}

// Level returns the configured log level, Info when unrecognized.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
