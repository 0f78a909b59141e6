// Package provider constructs the chat model that answers queries and wraps
// it in a Generator with a bounded timeout and typed failures.
// Supported backends: Ollama, OpenAI, Azure OpenAI, AWS Bedrock (via the ark
// runtime), Google Gemini.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendBedrock selects AWS Bedrock.
	BackendBedrock Backend = "bedrock"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// ProviderOllama holds Ollama settings.
type ProviderOllama struct {
	// Host is the Ollama base URL (OLLAMA_HOST).
	Host string
	// Model is the model tag (OLLAMA_MODEL), e.g. "llama3.1".
	Model string
}

// ProviderOpenAI holds OpenAI settings.
type ProviderOpenAI struct {
	// APIKey is OPENAI_API_KEY.
	APIKey string
	// Model is OPENAI_MODEL, e.g. "gpt-4o".
	Model string
	// BaseURL optionally points at an OpenAI-compatible endpoint (OPENAI_BASE_URL).
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	// APIKey is AZURE_OPENAI_API_KEY.
	APIKey string
	// Endpoint is AZURE_OPENAI_ENDPOINT, e.g. "https://my.openai.azure.com".
	Endpoint string
	// Deployment is AZURE_OPENAI_DEPLOYMENT.
	Deployment string
	// APIVersion is AZURE_OPENAI_API_VERSION.
	APIVersion string
}

// ProviderBedrock holds Bedrock settings.
type ProviderBedrock struct {
	// AWSRegion is AWS_REGION.
	AWSRegion string
	// ModelID is BEDROCK_MODEL_ID.
	ModelID string
	// APIKey is BEDROCK_API_KEY for the Bedrock-compatible ark endpoint.
	APIKey string
	// BaseURL is BEDROCK_BASE_URL.
	BaseURL string
}

// ProviderGemini holds Gemini settings.
type ProviderGemini struct {
	// APIKey is GOOGLE_API_KEY.
	APIKey string
	// Model is GEMINI_MODEL.
	Model string
}

// SharedTuning holds generation parameters common to every backend.
type SharedTuning struct {
	// MaxTokens caps the number of tokens generated per response.
	MaxTokens int
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values. Only the section matching
// Backend is read.
type Config struct {
	Backend     Backend
	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Bedrock     ProviderBedrock
	Gemini      ProviderGemini
	Tuning      SharedTuning
}

// Validate reports every missing or out-of-range setting for the selected
// backend at once. Each problem names the environment variable behind it.
func (c *Config) Validate() error {
	var errs []error
	require := func(value, env string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required for %s backend", env, c.Backend))
		}
	}

	switch c.Backend {
	case BackendOllama:
		require(c.Ollama.Model, "OLLAMA_MODEL")
	case BackendOpenAI:
		require(c.OpenAI.APIKey, "OPENAI_API_KEY")
		require(c.OpenAI.Model, "OPENAI_MODEL")
	case BackendAzure:
		require(c.AzureOpenAI.APIKey, "AZURE_OPENAI_API_KEY")
		require(c.AzureOpenAI.Endpoint, "AZURE_OPENAI_ENDPOINT")
		require(c.AzureOpenAI.Deployment, "AZURE_OPENAI_DEPLOYMENT")
	case BackendBedrock:
		require(c.Bedrock.ModelID, "BEDROCK_MODEL_ID")
		require(c.Bedrock.AWSRegion, "AWS_REGION")
	case BackendGemini:
		require(c.Gemini.APIKey, "GOOGLE_API_KEY")
		require(c.Gemini.Model, "GEMINI_MODEL")
	default:
		return fmt.Errorf("provider: unknown backend %q, valid values: ollama, openai, azure, bedrock, gemini", c.Backend)
	}

	if c.Tuning.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("MODEL_MAX_TOKENS must not be negative, got %d", c.Tuning.MaxTokens))
	}
	if c.Tuning.Temperature < 0 || c.Tuning.Temperature > 2 {
		errs = append(errs, fmt.Errorf("MODEL_TEMPERATURE must be within [0, 2], got %v", c.Tuning.Temperature))
	}
	if len(errs) > 0 {
		return fmt.Errorf("provider: %w", errors.Join(errs...))
	}
	return nil
}

// ModelName returns the model identifier for the selected backend.
func (c *Config) ModelName() string {
	switch c.Backend {
	case BackendOllama:
		return c.Ollama.Model
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAzure:
		return c.AzureOpenAI.Deployment
	case BackendBedrock:
		return c.Bedrock.ModelID
	case BackendGemini:
		return c.Gemini.Model
	default:
		return ""
	}
}

// HealthCheckConfig probes a backend without spending tokens.
type HealthCheckConfig interface {
	HealthCheck(ctx context.Context) error
}
