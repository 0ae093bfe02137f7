package adapters

import (
	"context"

	"github.com/variantsgg/variants/internal/adapters/llm"
)

// LLM defines the interface for language model operations
type LLM interface {
	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error)
	// WithModel switches the underlying model
	WithModel(modelName string) LLM
	// WithParameters overrides generation parameters
	WithParameters(parameters *llm.GenerationParameters) LLM
	// WithSystemPrompt sets a default system prompt
	WithSystemPrompt(prompt string) LLM
}
