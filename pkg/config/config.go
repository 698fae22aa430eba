package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"server"`

	Feed struct {
		BaseURL  string `yaml:"base_url"`
		Language string `yaml:"language"`
		Country  string `yaml:"country"`
	} `yaml:"feed"`

	Fetch struct {
		Timeout   time.Duration `yaml:"timeout"`
		UserAgent string        `yaml:"user_agent"`
	} `yaml:"fetch"`

	LLM LLMConfig `yaml:"llm"`

	Notion NotionConfig `yaml:"notion"`

	Scheduler struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"scheduler"`

	Storage struct {
		SchedulesFile string `yaml:"schedules_file"`
		ExecLogFile   string `yaml:"exec_log_file"`
		HistoryFile   string `yaml:"history_file"`
	} `yaml:"storage"`
}

// LLMConfig holds settings for the OpenAI-compatible summarization endpoint
type LLMConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NotionConfig holds document store credentials and the public domain used
// to rewrite page URLs
type NotionConfig struct {
	APIKey       string `yaml:"api_key"`
	DatabaseID   string `yaml:"database_id"`
	PublicDomain string `yaml:"public_domain"`
	BaseURL      string `yaml:"base_url"`
}

// Enabled reports whether the store credentials are present. Publishing is
// attempted only when both the key and database id are set.
func (n NotionConfig) Enabled() bool {
	return n.APIKey != "" && n.DatabaseID != ""
}

// Load reads configuration from a YAML file, expanding ${ENV} references
// so secrets can stay in the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}

	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://news.google.com/rss/search"
	}
	if c.Feed.Language == "" {
		c.Feed.Language = "ko"
	}
	if c.Feed.Country == "" {
		c.Feed.Country = "KR"
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 15 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Newsbrief/1.0"
	}

	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}

	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = "https://api.notion.com"
	}

	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "Asia/Seoul"
	}

	if c.Storage.SchedulesFile == "" {
		c.Storage.SchedulesFile = "schedules.json"
	}
	if c.Storage.ExecLogFile == "" {
		c.Storage.ExecLogFile = "schedule_logs.json"
	}
	if c.Storage.HistoryFile == "" {
		c.Storage.HistoryFile = "chat_history.json"
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if cfg.Fetch.Timeout < time.Second {
		return fmt.Errorf("fetch timeout must be at least 1 second")
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
	}
	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}
