package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the optional TOML-driven conversion configuration.
// Everything has a workable default; a config file is only needed for
// type overrides or unload/load settings.
type Config struct {
	OutDir      string            `toml:"out_dir"`
	Encoding    string            `toml:"encoding"`
	TypeMapping TypeMappingConfig `toml:"type_mapping"`
	Unload      UnloadConfig      `toml:"unload"`
	Load        LoadConfig        `toml:"load"`

	// configDir is the directory containing the TOML file, used to
	// resolve relative paths.
	configDir string
}

// TypeMappingConfig controls overrides of the built-in type table.
// Keys are DB2 type spellings (exact, e.g. "DECFLOAT(16)", or a bare
// family like "DECFLOAT"); values are target types.
type TypeMappingConfig struct {
	Overrides map[string]string `toml:"overrides"`
}

// UnloadConfig drives the bulk-unload helper.
type UnloadConfig struct {
	DB2Cmd   string `toml:"db2_cmd"`
	Database string `toml:"database"`
	Workers  int    `toml:"workers"`
}

// LoadConfig drives the bulk-load helper.
type LoadConfig struct {
	DSN     string `toml:"dsn"`
	OnError string `toml:"on_error"` // stop|continue
}

func defaultConfig() *Config {
	return &Config{
		OutDir:   "toPG",
		Encoding: "utf8",
		Unload: UnloadConfig{
			DB2Cmd:  "db2",
			Workers: defaultWorkers(),
		},
		Load: LoadConfig{
			OnError: "stop",
		},
	}
}

// loadConfig reads a TOML config file and returns a Config with
// defaults applied. An empty path yields the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	if cfg.OutDir = strings.TrimSpace(cfg.OutDir); cfg.OutDir == "" {
		return nil, fmt.Errorf("out_dir must not be empty")
	}
	if _, err := decodeReader(strings.NewReader(""), cfg.Encoding); err != nil {
		return nil, err
	}
	if cfg.Unload.Workers <= 0 {
		cfg.Unload.Workers = defaultWorkers()
	}
	if strings.TrimSpace(cfg.Unload.DB2Cmd) == "" {
		cfg.Unload.DB2Cmd = "db2"
	}
	switch cfg.Load.OnError {
	case "", "stop":
		cfg.Load.OnError = "stop"
	case "continue":
	default:
		return nil, fmt.Errorf("load.on_error must be one of: stop, continue")
	}

	return cfg, nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *Config) resolvePath(p string) string {
	if c.configDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
