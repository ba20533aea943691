package metadata

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrMissingAPIKey is returned when no OpenAI key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not set")

// NewClient creates an OpenAI client for metadata generation.
// Extra options are appended after the API key.
func NewClient(apiKey string, opts ...option.RequestOption) (*openai.Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &client, nil
}
