package openai

import (
	"sync"

	"github.com/corpusgraph/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// EnrichOpenAIClient is a client for OpenAI-compatible chat APIs used for
// entity enrichment.
//
// An EnrichOpenAIClient should be created using NewEnrichOpenAIClient.
type EnrichOpenAIClient struct {
	enrichModel string

	chatURL string
	chatKey string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewEnrichOpenAIClientParams defines the configuration parameters for
// creating a new EnrichOpenAIClient.
//
// EnrichModel specifies the model used for enrichment completions.
// ChatURL and ChatKey configure the chat/completion API endpoint.
type NewEnrichOpenAIClientParams struct {
	EnrichModel string

	ChatURL string
	ChatKey string
}

// NewEnrichOpenAIClient creates and returns a new EnrichOpenAIClient
// configured with the provided parameters.
//
// Example:
//
//	params := openai.NewEnrichOpenAIClientParams{
//		EnrichModel: "gpt-4o-mini",
//		ChatURL:     "https://api.openai.com/v1",
//		ChatKey:     os.Getenv("OPENAI_API_KEY"),
//	}
//	client := openai.NewEnrichOpenAIClient(params)
func NewEnrichOpenAIClient(
	params NewEnrichOpenAIClientParams,
) *EnrichOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)

	return &EnrichOpenAIClient{
		enrichModel: params.EnrichModel,

		chatURL: params.ChatURL,
		chatKey: params.ChatKey,

		metricsLock: sync.Mutex{},
		metrics: ai.ModelMetrics{
			InputTokens:  0,
			OutputTokens: 0,
			TotalTokens:  0,
			DurationMs:   0,
		},

		ChatClient: chatClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

func (c *EnrichOpenAIClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics resets the accumulated usage metrics to zero.
func (c *EnrichOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the usage metrics accumulated since the last reset.
func (c *EnrichOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	return c.metrics
}
