package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/TheApexWu/lacuna/config"
	"github.com/TheApexWu/lacuna/internal"
	"github.com/TheApexWu/lacuna/pkg/models"
)

const OpenAIAPIKeyNotSetError = "LACUNA_EMBEDDINGS_API_KEY is not set" //nolint:gosec

const defaultOpenAIEndpoint = "https://api.openai.com/v1"

var _ models.EmbeddingClient = &OpenAIEmbeddingsClient{}

// OpenAIEmbeddingsClient talks to an OpenAI-compatible /embeddings
// endpoint. Retries are handled by retryablehttp.
type OpenAIEmbeddingsClient struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
}

func NewOpenAIEmbeddingsClient(cfg *config.Config) (*OpenAIEmbeddingsClient, error) {
	if cfg.Embeddings.APIKey == "" {
		return nil, errors.New(OpenAIAPIKeyNotSetError)
	}
	endpoint := cfg.Embeddings.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.HTTPClient.Timeout = 60 * time.Second
	retryClient.Logger = internal.NewLeveledLogrus(log)

	return &OpenAIEmbeddingsClient{
		client:   retryClient.StandardClient(),
		endpoint: endpoint,
		apiKey:   cfg.Embeddings.APIKey,
		model:    cfg.Embeddings.Model,
	}, nil
}

type openAIEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *OpenAIEmbeddingsClient) EmbedTexts(
	ctx context.Context,
	texts []string,
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no text to embed")
	}

	jsonBody, err := json.Marshal(openAIEmbedRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpoint+"/embeddings",
		bytes.NewBuffer(jsonBody),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings request failed: %d - %s", resp.StatusCode, resp.Status)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed openAIEmbedResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf(
			"embeddings response has %d vectors for %d inputs",
			len(parsed.Data), len(texts),
		)
	}

	// The API is not required to preserve order; the index field is.
	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embeddings response index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
