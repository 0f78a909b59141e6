package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/model"
)

// Generation defaults. They suit a small local model answering from a
// handful of retrieved chunks.
const (
	defaultOllamaHost   = "http://localhost:11434"
	defaultOllamaModel  = "llama3.1"
	defaultOpenAIModel  = "gpt-4o"
	defaultGeminiModel  = "gemini-1.5-pro"
	defaultAWSRegion    = "us-east-1"
	defaultAzureVersion = "2024-02-01"
	defaultMaxTokens    = 200
	defaultTemperature  = 0.7
)

// constructors maps each backend to the function that builds its chat model.
var constructors = map[Backend]func(context.Context, *Config) (model.ToolCallingChatModel, error){
	BackendOllama:  newOllama,
	BackendOpenAI:  newOpenAI,
	BackendAzure:   newAzure,
	BackendBedrock: newBedrock,
	BackendGemini:  newGemini,
}

// ConfigFromEnv resolves a Config from the environment. MODEL_PROVIDER picks
// the backend (default ollama) and is case-insensitive. Each backend reads
// its own variables:
//
//	ollama   OLLAMA_HOST, OLLAMA_MODEL
//	openai   OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL
//	azure    AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT, AZURE_OPENAI_API_VERSION
//	bedrock  AWS_REGION, BEDROCK_MODEL_ID, BEDROCK_API_KEY, BEDROCK_BASE_URL
//	gemini   GOOGLE_API_KEY, GEMINI_MODEL
//
// MODEL_MAX_TOKENS and MODEL_TEMPERATURE apply to every backend. A value that
// does not parse is an error rather than a silent fallback.
func ConfigFromEnv() (*Config, error) {
	maxTokens, err := envInt("MODEL_MAX_TOKENS", defaultMaxTokens)
	if err != nil {
		return nil, err
	}
	temperature, err := envFloat32("MODEL_TEMPERATURE", defaultTemperature)
	if err != nil {
		return nil, err
	}

	return &Config{
		Backend: Backend(strings.ToLower(envOr("MODEL_PROVIDER", string(BackendOllama)))),
		Ollama: ProviderOllama{
			Host:  envOr("OLLAMA_HOST", defaultOllamaHost),
			Model: envOr("OLLAMA_MODEL", defaultOllamaModel),
		},
		OpenAI: ProviderOpenAI{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   envOr("OPENAI_MODEL", defaultOpenAIModel),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		AzureOpenAI: ProviderAzureOpenAI{
			APIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			Deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			APIVersion: envOr("AZURE_OPENAI_API_VERSION", defaultAzureVersion),
		},
		Bedrock: ProviderBedrock{
			AWSRegion: envOr("AWS_REGION", defaultAWSRegion),
			ModelID:   os.Getenv("BEDROCK_MODEL_ID"),
			APIKey:    os.Getenv("BEDROCK_API_KEY"),
			BaseURL:   os.Getenv("BEDROCK_BASE_URL"),
		},
		Gemini: ProviderGemini{
			APIKey: os.Getenv("GOOGLE_API_KEY"),
			Model:  envOr("GEMINI_MODEL", defaultGeminiModel),
		},
		Tuning: SharedTuning{MaxTokens: maxTokens, Temperature: temperature},
	}, nil
}

// New validates cfg and builds the chat model of its backend.
func New(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	build, ok := constructors[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("provider: unknown backend %q", cfg.Backend)
	}
	return build(ctx, cfg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("provider: %s must be an integer, got %q", key, v)
	}
	return n, nil
}

func envFloat32(key string, fallback float32) (float32, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, fmt.Errorf("provider: %s must be a number, got %q", key, v)
	}
	return float32(f), nil
}
