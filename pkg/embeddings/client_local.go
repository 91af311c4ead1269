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

	"github.com/avast/retry-go/v4"

	"github.com/TheApexWu/lacuna/config"
	"github.com/TheApexWu/lacuna/pkg/models"
)

var _ models.EmbeddingClient = &LocalEmbeddingsClient{}

// LocalEmbeddingsClient talks to a self-hosted embedding server, e.g. a
// BGE-M3 sidecar.
type LocalEmbeddingsClient struct {
	url   string
	model string
}

func NewLocalEmbeddingsClient(cfg *config.Config) (*LocalEmbeddingsClient, error) {
	if cfg.Embeddings.Endpoint == "" {
		return nil, errors.New("embeddings.endpoint must be set for the local service")
	}
	return &LocalEmbeddingsClient{
		url:   cfg.Embeddings.Endpoint + "/embed",
		model: cfg.Embeddings.Model,
	}, nil
}

type localEmbedPayload struct {
	Model      string      `json:"model"`
	Texts      []string    `json:"texts"`
	Embeddings [][]float32 `json:"embeddings,omitempty"`
}

func (c *LocalEmbeddingsClient) EmbedTexts(
	ctx context.Context,
	texts []string,
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(localEmbedPayload{Model: c.model, Texts: texts})
	if err != nil {
		log.Error("Error marshaling request body:", err)
		return nil, err
	}

	var bodyBytes []byte
	// Retry POST request to the embedding server 3 times with 1 second delay.
	err = retry.Do(
		func() error {
			var err error
			bodyBytes, err = makeEmbedRequest(ctx, c.url, jsonBody)
			if err != nil {
				return err
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
	)
	if err != nil {
		return nil, err
	}

	var payload localEmbedPayload
	err = json.Unmarshal(bodyBytes, &payload)
	if err != nil {
		log.Errorf("Error unmarshaling response body: %s", err)
		return nil, err
	}
	if len(payload.Embeddings) != len(texts) {
		return nil, fmt.Errorf(
			"embedding server returned %d vectors for %d inputs",
			len(payload.Embeddings), len(texts),
		)
	}

	return payload.Embeddings, nil
}

func makeEmbedRequest(ctx context.Context, url string, jsonBody []byte) ([]byte, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		log.Error("Error making POST request:", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"error making POST request: %d - %s",
			resp.StatusCode,
			resp.Status,
		)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Error reading response body:", err)
		return nil, err
	}

	return bodyBytes, nil
}
