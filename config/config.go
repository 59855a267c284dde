// Package config loads the process configuration from an optional YAML file
// layered under environment variables. Absence of a capability's settings
// means the capability is disabled, never an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultRegion           = "us-east-1"
	defaultModelID          = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	defaultGuardrailVersion = "DRAFT"
	defaultNumResults       = 5
	defaultHTTPAddr         = "127.0.0.1:8080"
	defaultShutdownTimeout  = 5 * time.Second
)

// Safety configures the content-safety capability. An empty GuardrailID
// leaves the capability disabled.
type Safety struct {
	GuardrailID      string `yaml:"guardrail_id"`
	GuardrailVersion string `yaml:"guardrail_version"`
}

// Enabled reports whether safety settings were supplied at all.
func (s Safety) Enabled() bool {
	return s.GuardrailID != ""
}

// Retrieval configures the knowledge-base capability. An empty
// KnowledgeBaseID leaves the capability disabled.
type Retrieval struct {
	KnowledgeBaseID string `yaml:"knowledge_base_id"`
	NumResults      int    `yaml:"num_results"`
}

// Enabled reports whether retrieval settings were supplied at all.
func (r Retrieval) Enabled() bool {
	return r.KnowledgeBaseID != ""
}

// Persistence configures the cross-session memory capability. An empty
// MemoryID leaves the capability disabled.
type Persistence struct {
	MemoryID string `yaml:"memory_id"`
}

// Enabled reports whether persistence settings were supplied at all.
func (p Persistence) Enabled() bool {
	return p.MemoryID != ""
}

// Config is the full process configuration. Capability identifier length and
// range checks live in the adapters; Load only rejects values it cannot
// parse.
type Config struct {
	Region       string `yaml:"region"`
	ModelID      string `yaml:"model_id"`
	SystemPrompt string `yaml:"system_prompt"`

	Safety      Safety      `yaml:"safety"`
	Retrieval   Retrieval   `yaml:"retrieval"`
	Persistence Persistence `yaml:"persistence"`

	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	SaveOnCancel    bool          `yaml:"save_on_cancel"`
}

// Load reads the YAML file named by TURNFLOW_CONFIG (when set), then applies
// environment variable overrides on top.
func Load() (Config, error) {
	cfg := Config{
		Region:          defaultRegion,
		ModelID:         defaultModelID,
		Safety:          Safety{GuardrailVersion: defaultGuardrailVersion},
		Retrieval:       Retrieval{NumResults: defaultNumResults},
		HTTPAddr:        defaultHTTPAddr,
		ShutdownTimeout: defaultShutdownTimeout,
	}

	if path := os.Getenv("TURNFLOW_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.Region = region
	}
	if modelID := os.Getenv("BEDROCK_MODEL_ID"); modelID != "" {
		cfg.ModelID = modelID
	}
	if prompt := os.Getenv("TURNFLOW_SYSTEM_PROMPT"); prompt != "" {
		cfg.SystemPrompt = prompt
	}

	if id := os.Getenv("BEDROCK_GUARDRAIL_ID"); id != "" {
		cfg.Safety.GuardrailID = id
	}
	if version := os.Getenv("BEDROCK_GUARDRAIL_VERSION"); version != "" {
		cfg.Safety.GuardrailVersion = version
	}

	if id := os.Getenv("BEDROCK_KNOWLEDGE_BASE_ID"); id != "" {
		cfg.Retrieval.KnowledgeBaseID = id
	}
	if n := os.Getenv("BEDROCK_KB_NUM_RESULTS"); n != "" {
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return Config{}, fmt.Errorf("parse BEDROCK_KB_NUM_RESULTS: %w", err)
		}
		cfg.Retrieval.NumResults = parsed
	}

	if id := os.Getenv("BEDROCK_MEMORY_ID"); id != "" {
		cfg.Persistence.MemoryID = id
	}

	if addr := os.Getenv("TURNFLOW_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if timeout := os.Getenv("TURNFLOW_SHUTDOWN_TIMEOUT"); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse TURNFLOW_SHUTDOWN_TIMEOUT: %w", err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("parse TURNFLOW_SHUTDOWN_TIMEOUT: value must be > 0")
		}
		cfg.ShutdownTimeout = parsed
	}
	if save := os.Getenv("TURNFLOW_SAVE_ON_CANCEL"); save != "" {
		parsed, err := strconv.ParseBool(save)
		if err != nil {
			return Config{}, fmt.Errorf("parse TURNFLOW_SAVE_ON_CANCEL: %w", err)
		}
		cfg.SaveOnCancel = parsed
	}

	return cfg, nil
}

// Status summarizes which capabilities the configuration enables, for the
// startup banner and the status command.
func (c Config) Status() map[string]bool {
	return map[string]bool{
		"safety":      c.Safety.Enabled(),
		"retrieval":   c.Retrieval.Enabled(),
		"persistence": c.Persistence.Enabled(),
	}
}
