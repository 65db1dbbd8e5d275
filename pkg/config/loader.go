package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	return LoadWithFile(cfg, "")
}

// LoadWithFile is Load with an optional TOML file layered between the struct
// defaults and the process environment. File keys are the env variable names:
//
//	BACKEND_URL = "https://store.example.com/api"
//	CORS_ALLOWED_ORIGINS = ["http://localhost:5173"]
//
// A missing file is not an error; an empty path skips the file entirely.
func LoadWithFile(cfg any, path string) error {
	vars, err := readFile(path)
	if err != nil {
		return err
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func readFile(path string) (map[string]string, error) {
	vars := make(map[string]string)
	if strings.TrimSpace(path) == "" {
		return vars, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vars, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	for k, v := range raw {
		vars[k] = stringify(v)
	}
	return vars, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = stringify(p)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}
