package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied before file and environment overrides.
const (
	DefaultAppName       = "quizd"
	DefaultHost          = "0.0.0.0"
	DefaultPort          = "8080"
	DefaultEnvironment   = "development"
	DefaultModel         = "gpt-4o"
	DefaultAgentBaseURL  = "https://aipipe.org/openai/v1"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	DefaultRunPollInterval   = 2 * time.Second
	DefaultRunTimeout        = 10 * time.Minute
	DefaultToolMaxConcurrent = 4
)

// Config is the process-wide configuration, built once at startup and passed
// by reference to the components that need it.
type Config struct {
	AppName     string
	Host        string
	Port        string
	Environment string

	// UserEmail is the requester allowlist value echoed into agent prompts.
	UserEmail string
	// UserSecret is the configured secret compared against incoming requests.
	UserSecret string

	// Agent collaborator settings.
	APIKey        string
	AgentBaseURL  string
	OpenAIBaseURL string
	Model         string

	RunPollInterval   time.Duration
	RunTimeout        time.Duration
	ToolMaxConcurrent int
}

// EnvLookup abstracts environment access so tests can inject fixtures
// without mutating the process environment.
type EnvLookup func(key string) (string, bool)

// DefaultEnvLookup reads from the process environment.
func DefaultEnvLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

type loadOptions struct {
	envLookup EnvLookup
	readFile  func(string) ([]byte, error)
}

// Option customizes Load behavior.
type Option func(*loadOptions)

// WithEnvLookup overrides environment access.
func WithEnvLookup(lookup EnvLookup) Option {
	return func(o *loadOptions) { o.envLookup = lookup }
}

// WithReadFile overrides config file access.
func WithReadFile(readFile func(string) ([]byte, error)) Option {
	return func(o *loadOptions) { o.readFile = readFile }
}

// fileConfig captures the on-disk YAML configuration sections.
type fileConfig struct {
	Server *struct {
		AppName     string `yaml:"app_name"`
		Host        string `yaml:"host"`
		Port        string `yaml:"port"`
		Environment string `yaml:"environment"`
	} `yaml:"server"`
	Auth *struct {
		UserEmail  string `yaml:"user_email"`
		UserSecret string `yaml:"user_secret"`
	} `yaml:"auth"`
	Agent *struct {
		APIKey            string `yaml:"api_key"`
		BaseURL           string `yaml:"base_url"`
		OpenAIBaseURL     string `yaml:"openai_base_url"`
		Model             string `yaml:"model"`
		PollSeconds       *int   `yaml:"poll_seconds"`
		TimeoutSeconds    *int   `yaml:"timeout_seconds"`
		ToolMaxConcurrent *int   `yaml:"tool_max_concurrent"`
	} `yaml:"agent"`
}

// Load assembles configuration with precedence defaults < file < environment.
// The file path comes from QUIZD_CONFIG; a missing file is not an error
// unless the path was set explicitly.
func Load(opts ...Option) (Config, error) {
	options := loadOptions{
		envLookup: DefaultEnvLookup,
		readFile:  os.ReadFile,
	}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := Config{
		AppName:           DefaultAppName,
		Host:              DefaultHost,
		Port:              DefaultPort,
		Environment:       DefaultEnvironment,
		AgentBaseURL:      DefaultAgentBaseURL,
		OpenAIBaseURL:     DefaultOpenAIBaseURL,
		Model:             DefaultModel,
		RunPollInterval:   DefaultRunPollInterval,
		RunTimeout:        DefaultRunTimeout,
		ToolMaxConcurrent: DefaultToolMaxConcurrent,
	}

	if path, ok := options.envLookup("QUIZD_CONFIG"); ok && strings.TrimSpace(path) != "" {
		data, err := options.readFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := applyFile(&cfg, data); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg, options.envLookup)

	return cfg, nil
}

func applyFile(cfg *Config, data []byte) error {
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	if file.Server != nil {
		setString(&cfg.AppName, file.Server.AppName)
		setString(&cfg.Host, file.Server.Host)
		setString(&cfg.Port, file.Server.Port)
		setString(&cfg.Environment, file.Server.Environment)
	}
	if file.Auth != nil {
		setString(&cfg.UserEmail, file.Auth.UserEmail)
		setString(&cfg.UserSecret, file.Auth.UserSecret)
	}
	if file.Agent != nil {
		setString(&cfg.APIKey, file.Agent.APIKey)
		setString(&cfg.AgentBaseURL, file.Agent.BaseURL)
		setString(&cfg.OpenAIBaseURL, file.Agent.OpenAIBaseURL)
		setString(&cfg.Model, file.Agent.Model)
		if file.Agent.PollSeconds != nil && *file.Agent.PollSeconds > 0 {
			cfg.RunPollInterval = time.Duration(*file.Agent.PollSeconds) * time.Second
		}
		if file.Agent.TimeoutSeconds != nil && *file.Agent.TimeoutSeconds > 0 {
			cfg.RunTimeout = time.Duration(*file.Agent.TimeoutSeconds) * time.Second
		}
		if file.Agent.ToolMaxConcurrent != nil && *file.Agent.ToolMaxConcurrent > 0 {
			cfg.ToolMaxConcurrent = *file.Agent.ToolMaxConcurrent
		}
	}
	return nil
}

func applyEnv(cfg *Config, lookup EnvLookup) {
	setFromEnv(&cfg.AppName, lookup, "QUIZD_APP_NAME")
	setFromEnv(&cfg.Host, lookup, "QUIZD_HOST")
	setFromEnv(&cfg.Port, lookup, "PORT")
	setFromEnv(&cfg.Environment, lookup, "QUIZD_ENV")
	setFromEnv(&cfg.UserEmail, lookup, "USER_EMAIL")
	setFromEnv(&cfg.UserSecret, lookup, "USER_SECRET")
	setFromEnv(&cfg.APIKey, lookup, "OPENAI_API_KEY")
	setFromEnv(&cfg.AgentBaseURL, lookup, "QUIZD_AGENT_BASE_URL")
	setFromEnv(&cfg.OpenAIBaseURL, lookup, "QUIZD_OPENAI_BASE_URL")
	setFromEnv(&cfg.Model, lookup, "QUIZD_MODEL")

	if seconds, ok := lookupInt(lookup, "QUIZD_RUN_POLL_SECONDS"); ok && seconds > 0 {
		cfg.RunPollInterval = time.Duration(seconds) * time.Second
	}
	if seconds, ok := lookupInt(lookup, "QUIZD_RUN_TIMEOUT_SECONDS"); ok && seconds > 0 {
		cfg.RunTimeout = time.Duration(seconds) * time.Second
	}
	if n, ok := lookupInt(lookup, "QUIZD_TOOL_MAX_CONCURRENT"); ok && n > 0 {
		cfg.ToolMaxConcurrent = n
	}
}

func setString(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func setFromEnv(dst *string, lookup EnvLookup, key string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*dst = strings.TrimSpace(value)
	}
}

func lookupInt(lookup EnvLookup, key string) (int, bool) {
	raw, ok := lookup(key)
	if !ok {
		return 0, false
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return value, true
}

// Validate checks invariants that would make the process unable to serve.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("agent API key is required (set OPENAI_API_KEY)")
	}
	if c.Port == "" {
		return fmt.Errorf("server port must not be empty")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}
