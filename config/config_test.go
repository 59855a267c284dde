package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TURNFLOW_CONFIG", "AWS_REGION", "BEDROCK_MODEL_ID", "TURNFLOW_SYSTEM_PROMPT",
		"BEDROCK_GUARDRAIL_ID", "BEDROCK_GUARDRAIL_VERSION",
		"BEDROCK_KNOWLEDGE_BASE_ID", "BEDROCK_KB_NUM_RESULTS",
		"BEDROCK_MEMORY_ID",
		"TURNFLOW_HTTP_ADDR", "TURNFLOW_SHUTDOWN_TIMEOUT", "TURNFLOW_SAVE_ON_CANCEL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "us.anthropic.claude-sonnet-4-5-20250929-v1:0", cfg.ModelID)
	assert.Equal(t, "DRAFT", cfg.Safety.GuardrailVersion)
	assert.Equal(t, 5, cfg.Retrieval.NumResults)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)

	assert.False(t, cfg.Safety.Enabled())
	assert.False(t, cfg.Retrieval.Enabled())
	assert.False(t, cfg.Persistence.Enabled())
}

func TestLoad_EnvEnablesCapabilities(t *testing.T) {
	clearEnv(t)
	t.Setenv("BEDROCK_GUARDRAIL_ID", "gr-12345")
	t.Setenv("BEDROCK_KNOWLEDGE_BASE_ID", "kb-12345")
	t.Setenv("BEDROCK_KB_NUM_RESULTS", "10")
	t.Setenv("BEDROCK_MEMORY_ID", "mem-12345")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("TURNFLOW_SAVE_ON_CANCEL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Safety.Enabled())
	assert.Equal(t, "gr-12345", cfg.Safety.GuardrailID)
	assert.Equal(t, "DRAFT", cfg.Safety.GuardrailVersion)
	assert.True(t, cfg.Retrieval.Enabled())
	assert.Equal(t, 10, cfg.Retrieval.NumResults)
	assert.True(t, cfg.Persistence.Enabled())
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.True(t, cfg.SaveOnCancel)
}

func TestLoad_FileLayeredUnderEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "turnflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
region: ap-south-1
system_prompt: "be concise"
safety:
  guardrail_id: gr-from-file
  guardrail_version: "2"
retrieval:
  knowledge_base_id: kb-from-file
  num_results: 8
`), 0o600))
	t.Setenv("TURNFLOW_CONFIG", path)
	t.Setenv("BEDROCK_GUARDRAIL_ID", "gr-from-env")

	cfg, err := Load()
	require.NoError(t, err)

	// Env wins over the file; file wins over defaults.
	assert.Equal(t, "gr-from-env", cfg.Safety.GuardrailID)
	assert.Equal(t, "2", cfg.Safety.GuardrailVersion)
	assert.Equal(t, "ap-south-1", cfg.Region)
	assert.Equal(t, "be concise", cfg.SystemPrompt)
	assert.Equal(t, "kb-from-file", cfg.Retrieval.KnowledgeBaseID)
	assert.Equal(t, 8, cfg.Retrieval.NumResults)
}

func TestLoad_ParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad num results", "BEDROCK_KB_NUM_RESULTS", "many"},
		{"bad shutdown timeout", "TURNFLOW_SHUTDOWN_TIMEOUT", "soon"},
		{"negative shutdown timeout", "TURNFLOW_SHUTDOWN_TIMEOUT", "-1s"},
		{"bad save on cancel", "TURNFLOW_SAVE_ON_CANCEL", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TURNFLOW_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	cfg := Config{
		Safety:    Safety{GuardrailID: "gr-12345"},
		Retrieval: Retrieval{KnowledgeBaseID: "kb-12345"},
	}
	status := cfg.Status()
	assert.True(t, status["safety"])
	assert.True(t, status["retrieval"])
	assert.False(t, status["persistence"])
}
