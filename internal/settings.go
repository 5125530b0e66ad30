package internal

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// LLMSettings configures the scoring client. All fields are overridable
// through LLM_* environment variables.
type LLMSettings struct {
	Provider       string  `koanf:"provider"`         // LLM_PROVIDER (openai | togetherai)
	ModelName      string  `koanf:"model_name"`       // LLM_MODEL_NAME
	Temperature    float64 `koanf:"temperature"`      // LLM_TEMPERATURE
	MaxTokens      int     `koanf:"max_tokens"`       // LLM_MAX_TOKENS
	Seed           int     `koanf:"seed"`             // LLM_SEED
	RequestTimeout float64 `koanf:"request_timeout"`  // LLM_REQUEST_TIMEOUT, seconds
	MaxConcurrency int     `koanf:"max_concurrency"`  // LLM_MAX_CONCURRENCY
	OpenAIModels   string  `koanf:"openai_models"`    // LLM_OPENAI_MODELS, comma separated
	TogetherModels string  `koanf:"together_models"`  // LLM_TOGETHER_MODELS, comma separated
	OpenAIAPIKey   string  `koanf:"openai_api_key"`   // LLM_OPENAI_API_KEY, falls back to OPENAI_API_KEY
	TogetherAPIKey string  `koanf:"together_api_key"` // LLM_TOGETHER_API_KEY, falls back to TOGETHER_API_KEY
}

// ProcessorSettings configures batch processing, overridable through
// PROCESSOR_* environment variables.
type ProcessorSettings struct {
	InputDir      string `koanf:"input_dir"`      // PROCESSOR_INPUT_DIR
	OutputDir     string `koanf:"output_dir"`     // PROCESSOR_OUTPUT_DIR
	SessionNumber int    `koanf:"session_number"` // PROCESSOR_SESSION_NUMBER
}

// Settings is the immutable process-wide configuration, constructed
// once at startup and passed into components explicitly.
type Settings struct {
	LLM       LLMSettings       `koanf:"llm"`
	Processor ProcessorSettings `koanf:"processor"`
}

var settingsDefaults = map[string]any{
	"llm.provider":             "openai",
	"llm.model_name":           "gpt-3.5-turbo",
	"llm.temperature":          0.7,
	"llm.max_tokens":           2000,
	"llm.seed":                 42,
	"llm.request_timeout":      60.0,
	"llm.max_concurrency":      4,
	"llm.openai_models":        "gpt-4o-mini",
	"llm.together_models":      "meta-llama/Llama-3.3-70B-Instruct-Turbo",
	"processor.input_dir":      "data",
	"processor.output_dir":     "post_processed",
	"processor.session_number": 1,
}

// LoadSettings builds Settings from the environment. A .env file in the
// working directory is honored when present.
func LoadSettings() (*Settings, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	prefixed := func(prefix, section string) *env.Env {
		return env.Provider(prefix, ".", func(s string) string {
			return section + "." + strings.ToLower(strings.TrimPrefix(s, prefix))
		})
	}
	if err := k.Load(prefixed("LLM_", "llm"), nil); err != nil {
		return nil, err
	}
	if err := k.Load(prefixed("PROCESSOR_", "processor"), nil); err != nil {
		return nil, err
	}

	for key, value := range settingsDefaults {
		if !k.Exists(key) {
			if err := k.Set(key, value); err != nil {
				return nil, err
			}
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, err
	}

	if s.LLM.OpenAIAPIKey == "" {
		s.LLM.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if s.LLM.TogetherAPIKey == "" {
		s.LLM.TogetherAPIKey = os.Getenv("TOGETHER_API_KEY")
	}
	if s.LLM.MaxConcurrency <= 0 {
		s.LLM.MaxConcurrency = 1
	}
	if s.LLM.RequestTimeout <= 0 {
		s.LLM.RequestTimeout = 60
	}
	return &s, nil
}

// SplitModels parses a comma-separated model list, trimming whitespace
// and dropping empty entries
func SplitModels(csv string) []string {
	var models []string
	for _, part := range strings.Split(csv, ",") {
		if name := strings.TrimSpace(part); name != "" {
			models = append(models, name)
		}
	}
	return models
}
