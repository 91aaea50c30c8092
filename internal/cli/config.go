package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dolmen-go/contextio"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config holds the settings read from the --config file.
type Config struct {
	// Indent is the number of spaces used to indent output. Zero prints
	// one line.
	Indent int `mapstructure:"indent"`
	// Verbose enables development logging on stderr.
	Verbose bool `mapstructure:"verbose"`
	// OptimizeExpr rewrites $expr filters before running pipelines.
	OptimizeExpr bool        `mapstructure:"optimize_expr"`
	Cache        CacheConfig `mapstructure:"cache"`
}

// CacheConfig configures the optimizer cache.
type CacheConfig struct {
	Size int64         `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{
		Indent:       0,
		OptimizeExpr: true,
		Cache: CacheConfig{
			Size: 1024,
			TTL:  10 * time.Minute,
		},
	}
}

// LoadConfig reads a YAML file over the default settings. Keys missing from
// the file keep their defaults.
func LoadConfig(ctx context.Context, path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	return ReadConfig(ctx, f)
}

// ReadConfig reads YAML settings from r over the default settings.
func ReadConfig(ctx context.Context, r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	b, err := io.ReadAll(contextio.NewReader(ctx, r))
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &cfg,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(raw); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
