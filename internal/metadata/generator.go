// Package metadata asks an OpenAI chat model for short Spanish summaries and
// keywords of pages that ship without a description.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
)

// DefaultMaxTokens is the maximum content length before truncation (in tokens).
const DefaultMaxTokens = 4000

// DocumentMetadata contains LLM-generated metadata for a document.
type DocumentMetadata struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Text renders the metadata as searchable body text.
func (m *DocumentMetadata) Text() string {
	if m == nil {
		return ""
	}
	if len(m.Keywords) == 0 {
		return m.Summary
	}
	return m.Summary + " " + strings.Join(m.Keywords, " ")
}

// Generator produces metadata with a chat completion model.
type Generator struct {
	client    *openai.Client
	model     openai.ChatModel
	maxTokens int
	logger    *slog.Logger
}

// NewGenerator creates a metadata generator with the given OpenAI client.
// Optional maxTokens parameter sets truncation limit (defaults to DefaultMaxTokens).
func NewGenerator(client *openai.Client, logger *slog.Logger, maxTokens ...int) *Generator {
	limit := DefaultMaxTokens
	if len(maxTokens) > 0 && maxTokens[0] > 0 {
		limit = maxTokens[0]
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:    client,
		model:     openai.ChatModelGPT4oMini,
		maxTokens: limit,
		logger:    logger,
	}
}

// GenerateMetadata summarizes a school site page for search results.
func (g *Generator) GenerateMetadata(ctx context.Context, title, content string) (*DocumentMetadata, error) {
	truncated := g.truncateContent(content)

	prompt := fmt.Sprintf(`Analiza esta página del portal escolar del Bachillerato General Estatal y responde en español:
1. Un resumen conciso (1-2 oraciones) de lo que el alumno, docente o tutor puede hacer o consultar aquí
2. Hasta 8 palabras clave que un usuario escribiría para encontrarla

Título: %s

Contenido:
%s

Responde en formato JSON:
{"summary": "Descripción breve", "keywords": ["palabra1", "palabra2"]}`, title, truncated)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return parseMetadata(resp.Choices[0].Message.Content)
}

func parseMetadata(content string) (*DocumentMetadata, error) {
	var metadata DocumentMetadata
	if err := json.Unmarshal([]byte(content), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	metadata.Summary = strings.TrimSpace(metadata.Summary)
	if metadata.Summary == "" {
		return nil, fmt.Errorf("response has an empty summary")
	}
	return &metadata, nil
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (g *Generator) truncateContent(content string) string {
	maxChars := g.maxTokens * 4

	if len(content) <= maxChars {
		return content
	}

	g.logger.Warn("truncating content for summary",
		"from_chars", len(content),
		"to_chars", maxChars,
		"estimated_tokens", g.maxTokens)

	// Back off to a rune boundary
	cut := maxChars
	for cut > 0 && !isRuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
