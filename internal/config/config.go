package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultAddr             = ":8080"
	DefaultOffloadThreshold = 0.85
)

// Option describes one loadable option for a task as it appears in the
// configuration document. Memory is given as a GB figure and converted to
// bytes when the spec table is built.
type Option struct {
	ModelID     string   `json:"model_id" yaml:"model_id" toml:"model_id"`
	Backend     string   `json:"backend" yaml:"backend" toml:"backend"`
	VRAMGB      float64  `json:"vram_gb" yaml:"vram_gb" toml:"vram_gb"`
	SpeedClass  string   `json:"speed_class" yaml:"speed_class" toml:"speed_class"`
	Description string   `json:"description" yaml:"description" toml:"description"`
	FPS         *float64 `json:"fps" yaml:"fps" toml:"fps"`
}

// Task is one task slot: a selected option name and the option map.
type Task struct {
	Selected string            `json:"selected" yaml:"selected" toml:"selected"`
	Options  map[string]Option `json:"options" yaml:"options" toml:"options"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr             string          `json:"addr" yaml:"addr" toml:"addr"`
	OffloadThreshold float64         `json:"offload_threshold" yaml:"offload_threshold" toml:"offload_threshold"`
	WarmupEnabled    bool            `json:"warmup_enabled" yaml:"warmup_enabled" toml:"warmup_enabled"`
	CapacityGB       float64         `json:"capacity_gb" yaml:"capacity_gb" toml:"capacity_gb"`
	LlamaBin         string          `json:"llama_bin" yaml:"llama_bin" toml:"llama_bin"`
	BatchHints       map[string]int  `json:"batch_hints" yaml:"batch_hints" toml:"batch_hints"`
	Tasks            map[string]Task `json:"tasks" yaml:"tasks" toml:"tasks"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills unset fields with package defaults.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.OffloadThreshold == 0 {
		c.OffloadThreshold = DefaultOffloadThreshold
	}
}

// Validate rejects a malformed spec table. The process must not start with
// one, so callers treat any returned error as fatal.
func (c *Config) Validate() error {
	if c.OffloadThreshold < 0 || c.OffloadThreshold > 1 {
		return fmt.Errorf("offload_threshold %v out of range [0,1]", c.OffloadThreshold)
	}
	if c.CapacityGB < 0 {
		return fmt.Errorf("capacity_gb must be non-negative, got %v", c.CapacityGB)
	}
	if len(c.Tasks) == 0 {
		return fmt.Errorf("no tasks configured")
	}
	// Deterministic error order for reproducible startup failures.
	ids := make([]string, 0, len(c.Tasks))
	for id := range c.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t := c.Tasks[id]
		if len(t.Options) == 0 {
			return fmt.Errorf("task %q: no options", id)
		}
		if t.Selected == "" {
			return fmt.Errorf("task %q: selected option is required", id)
		}
		if _, ok := t.Options[t.Selected]; !ok {
			return fmt.Errorf("task %q: selected option %q not in options", id, t.Selected)
		}
		names := make([]string, 0, len(t.Options))
		for name := range t.Options {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			opt := t.Options[name]
			if opt.ModelID == "" {
				return fmt.Errorf("task %q option %q: model_id is required", id, name)
			}
			if opt.Backend == "" {
				return fmt.Errorf("task %q option %q: backend is required", id, name)
			}
			if opt.VRAMGB < 0 {
				return fmt.Errorf("task %q option %q: vram_gb must be non-negative", id, name)
			}
		}
	}
	return nil
}
