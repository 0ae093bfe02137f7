package questions

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/variantsgg/variants/internal/adapters"
	"github.com/variantsgg/variants/internal/adapters/llm"
	"github.com/variantsgg/variants/internal/adapters/llm/gemini"
	"github.com/variantsgg/variants/internal/adapters/llm/openai"
	"github.com/variantsgg/variants/internal/config"
	"github.com/variantsgg/variants/internal/game"
)

const systemPrompt = `You generate quiz questions for a bluffing game.

Create ONE question based on the provided fact, together with its correct answer. Restate the fact as a single sentence.

Answer requirements:
- a short verbal answer only
- five words at most
- never "yes" / "no" / "there is" / "there isn't", no numbers, no dates
- written casually, the way people type in chats
- concrete (a city, a name, a title, an action, an object and so on)

Respond with STRICT JSON containing the fields: question, answer, fact`

// Generator produces question bundles through a configured LLM provider.
type Generator struct {
	llm adapters.LLM
}

// New builds a Generator for the configured provider type.
func New(cfg config.LLM) *Generator {
	logger := log.WithField("context", "questions")

	var provider adapters.LLM
	switch strings.ToLower(cfg.Type) {
	case "gemini":
		provider = gemini.NewGemini(cfg.APIKey, cfg.Model, logger).
			WithParameters(&llm.GenerationParameters{
				Temperature:      0.7,
				TopK:             40,
				TopP:             0.95,
				MaxOutputTokens:  2048,
				ResponseMIMEType: "application/json",
			})
	default:
		provider = openai.NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, logger).
			WithParameters(&llm.GenerationParameters{
				Temperature:      0.7,
				TopP:             0.9,
				MaxOutputTokens:  2048,
				ResponseMIMEType: "application/json",
			})
	}
	return NewWithLLM(provider)
}

// NewWithLLM wires an explicit LLM, used by tests.
func NewWithLLM(provider adapters.LLM) *Generator {
	return &Generator{llm: provider}
}

func (g *Generator) Generate(ctx context.Context, factText string) (*game.Question, error) {
	resp, err := g.llm.ChatCompletion(ctx, []llm.ChatCompletionMessage{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: "--FACT--\n" + factText},
	})
	if err != nil {
		return nil, errors.WithMessage(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no completion choices")
	}

	payload := struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
		Fact     string `json:"fact"`
	}{}
	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, errors.WithMessagef(err, "parse completion %q", content)
	}
	if payload.Question == "" || payload.Answer == "" {
		return nil, errors.Errorf("incomplete question payload %q", content)
	}
	if payload.Fact == "" {
		payload.Fact = factText
	}

	return &game.Question{
		Question: payload.Question,
		Answer:   payload.Answer,
		Fact:     payload.Fact,
	}, nil
}

// stripCodeFence unwraps responses from models that fence their JSON.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
