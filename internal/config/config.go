// Package config loads the core's runtime configuration. Values come from
// an optional YAML file with NEXUS_-prefixed environment variables layered
// on top, so a bare environment is enough to run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully resolved runtime configuration. All paths are
// absolute by the time Load returns.
type Config struct {
	// Workspace layout
	DataDir      string `yaml:"data_dir"`
	WorkspaceDir string `yaml:"workspace_dir"`
	MemoryDir    string `yaml:"memory_dir"`
	SkillsDir    string `yaml:"skills_dir"`
	DBPath       string `yaml:"db_path"`

	// Identity
	AssistantName string `yaml:"assistant_name"`
	Timezone      string `yaml:"timezone"`

	// Bridge connection
	BridgeURL    string `yaml:"bridge_url"`
	BridgeSecret string `yaml:"bridge_secret"`

	// LLM routing
	APIBaseURL     string   `yaml:"api_base_url"`
	APIKey         string   `yaml:"api_key"`
	PrimaryModel   string   `yaml:"primary_model"`
	FallbackModel  string   `yaml:"fallback_model"`
	ComplexModel   string   `yaml:"complex_model"`
	RequestTimeout Duration `yaml:"request_timeout"`

	// Loop tuning
	MaxSteps            int      `yaml:"max_steps"`
	SessionWindowTurns  int      `yaml:"session_window_turns"`
	ObservationMaxChars int      `yaml:"observation_max_chars"`
	ConfirmationTTL     Duration `yaml:"confirmation_ttl"`

	// Observability
	LogLevel       string   `yaml:"log_level"`
	LogFormat      string   `yaml:"log_format"`
	MetricsAddr    string   `yaml:"metrics_addr"`
	TraceEndpoint  string   `yaml:"trace_endpoint"`
	RedactPatterns []string `yaml:"redact_patterns"`

	// Location is the parsed Timezone. Populated by Load.
	Location *time.Location `yaml:"-"`
}

// Duration wraps time.Duration so YAML can carry values like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration, rooted at dir.
func Default(dir string) Config {
	return Config{
		DataDir:             dir,
		WorkspaceDir:        filepath.Join(dir, "workspace"),
		MemoryDir:           filepath.Join(dir, "memories"),
		SkillsDir:           filepath.Join(dir, "skills"),
		DBPath:              filepath.Join(dir, "nexus.db"),
		AssistantName:       "nexus",
		Timezone:            "America/Jamaica",
		BridgeURL:           "ws://127.0.0.1:8787/ws",
		APIBaseURL:          "https://openrouter.ai/api/v1",
		PrimaryModel:        "openai/gpt-4o-mini",
		FallbackModel:       "openai/gpt-4o",
		ComplexModel:        "anthropic/claude-sonnet-4",
		RequestTimeout:      Duration(60 * time.Second),
		MaxSteps:            8,
		SessionWindowTurns:  20,
		ObservationMaxChars: 2000,
		ConfirmationTTL:     Duration(10 * time.Minute),
		LogLevel:            "info",
		LogFormat:           "json",
		MetricsAddr:         "127.0.0.1:9091",
	}
}

// Load resolves the configuration: defaults, then the YAML file at
// NEXUS_CONFIG (if set and present), then individual NEXUS_* environment
// variables. It parses the timezone and creates the workspace directories.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	cfg := Default(filepath.Join(home, ".nexus"))

	if path := os.Getenv("NEXUS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envDur := func(key string, dst *Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = Duration(d)
			}
		}
	}

	envStr("NEXUS_DATA_DIR", &cfg.DataDir)
	envStr("NEXUS_WORKSPACE_DIR", &cfg.WorkspaceDir)
	envStr("NEXUS_MEMORY_DIR", &cfg.MemoryDir)
	envStr("NEXUS_SKILLS_DIR", &cfg.SkillsDir)
	envStr("NEXUS_DB_PATH", &cfg.DBPath)
	envStr("NEXUS_ASSISTANT_NAME", &cfg.AssistantName)
	envStr("NEXUS_TIMEZONE", &cfg.Timezone)
	envStr("NEXUS_BRIDGE_URL", &cfg.BridgeURL)
	envStr("NEXUS_BRIDGE_SECRET", &cfg.BridgeSecret)
	envStr("NEXUS_API_BASE_URL", &cfg.APIBaseURL)
	envStr("NEXUS_API_KEY", &cfg.APIKey)
	envStr("NEXUS_PRIMARY_MODEL", &cfg.PrimaryModel)
	envStr("NEXUS_FALLBACK_MODEL", &cfg.FallbackModel)
	envStr("NEXUS_COMPLEX_MODEL", &cfg.ComplexModel)
	envDur("NEXUS_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	envInt("NEXUS_MAX_STEPS", &cfg.MaxSteps)
	envInt("NEXUS_SESSION_WINDOW_TURNS", &cfg.SessionWindowTurns)
	envInt("NEXUS_OBSERVATION_MAX_CHARS", &cfg.ObservationMaxChars)
	envDur("NEXUS_CONFIRMATION_TTL", &cfg.ConfirmationTTL)
	envStr("NEXUS_LOG_LEVEL", &cfg.LogLevel)
	envStr("NEXUS_LOG_FORMAT", &cfg.LogFormat)
	envStr("NEXUS_METRICS_ADDR", &cfg.MetricsAddr)
	envStr("NEXUS_TRACE_ENDPOINT", &cfg.TraceEndpoint)
}

func (c *Config) finalize() error {
	for _, p := range []*string{&c.DataDir, &c.WorkspaceDir, &c.MemoryDir, &c.SkillsDir, &c.DBPath} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("resolving path %q: %w", *p, err)
		}
		*p = abs
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if c.MaxSteps < 1 {
		c.MaxSteps = 1
	}
	if c.SessionWindowTurns < 1 {
		c.SessionWindowTurns = 1
	}
	if c.ObservationMaxChars < 200 {
		c.ObservationMaxChars = 200
	}

	for _, dir := range []string{c.DataDir, c.WorkspaceDir, c.MemoryDir, c.SkillsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %q: %w", dir, err)
		}
	}
	return nil
}
