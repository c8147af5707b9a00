package config

import (
	"fmt"
	"sort"
	"time"
)

// Config represents an allure-phpunit.yaml configuration file.
// All values are optional and act as defaults for run flags.
// CLI flags always override config values.
type Config struct {
	PHP         PHPConfig         `yaml:"php"`
	Output      OutputConfig      `yaml:"output"`
	Lifecycle   LifecycleConfig   `yaml:"lifecycle"`
	Annotations AnnotationsConfig `yaml:"annotations"`
	Notify      NotifyConfig      `yaml:"notify"`
	Report      string            `yaml:"report"`
	Log         LogConfig         `yaml:"log"`
}

// PHPConfig holds runner defaults from the config file.
type PHPConfig struct {
	Binary  string            `yaml:"binary"`
	PHPUnit string            `yaml:"phpunit"`
	Args    []string          `yaml:"args"`
	WorkDir string            `yaml:"workdir"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// OutputConfig holds results directory defaults from the config file.
type OutputConfig struct {
	Dir    string        `yaml:"dir"`
	Purge  bool          `yaml:"purge"`
	Mirror *MirrorConfig `yaml:"mirror,omitempty"`
}

// MirrorConfig configures an S3 mirror of the results directory.
// Path uses the bucket/prefix form.
type MirrorConfig struct {
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// LifecycleConfig holds report engine defaults from the config file.
type LifecycleConfig struct {
	Mode          string   `yaml:"mode"`
	FlushCount    int      `yaml:"flush_count"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// AnnotationsConfig holds annotation filter defaults from the config file.
type AnnotationsConfig struct {
	Ignored []string `yaml:"ignored,omitempty"`
}

// LogConfig holds logging defaults from the config file.
type LogConfig struct {
	// Level is the minimum entry level: debug, info, warn, or error.
	// Empty means debug.
	Level string `yaml:"level"`
}

// NotifyConfig holds notification defaults from the config file.
type NotifyConfig struct {
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	URLs     []string          `yaml:"urls,omitempty"`
	Strategy string            `yaml:"strategy,omitempty"`
	Channel  string            `yaml:"channel,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
	Cooldown Duration          `yaml:"cooldown,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Environ converts the map-keyed env config into a sorted KEY=VALUE
// slice. Sorting by key ensures deterministic ordering.
func (p *PHPConfig) Environ() []string {
	if len(p.Env) == 0 {
		return nil
	}

	keys := make([]string, 0, len(p.Env))
	for key := range p.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, key := range keys {
		env = append(env, key+"="+p.Env[key])
	}
	return env
}

// Endpoints returns the webhook endpoint pool: URLs when set, otherwise
// the single URL.
func (n *NotifyConfig) Endpoints() []string {
	if len(n.URLs) > 0 {
		return n.URLs
	}
	if n.URL != "" {
		return []string{n.URL}
	}
	return nil
}
