package embeddings

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/TheApexWu/lacuna/config"
	"github.com/TheApexWu/lacuna/internal"
	"github.com/TheApexWu/lacuna/pkg/frames"
	"github.com/TheApexWu/lacuna/pkg/models"
)

var log = internal.GetLogger()

// NewEmbeddingClient constructs the configured embedding provider.
func NewEmbeddingClient(cfg *config.Config) (models.EmbeddingClient, error) {
	switch cfg.Embeddings.Service {
	case "openai":
		return NewOpenAIEmbeddingsClient(cfg)
	case "local":
		return NewLocalEmbeddingsClient(cfg)
	default:
		return nil, fmt.Errorf("invalid embeddings service: %s", cfg.Embeddings.Service)
	}
}

// Embedder batches embedding calls for one pipeline run. Batches are
// issued sequentially with a fixed inter-batch delay to respect upstream
// quota rather than fully in parallel.
type Embedder struct {
	client     models.EmbeddingClient
	cache      *vectorCache
	dimensions int
	batchSize  int
	batchDelay time.Duration
}

func NewEmbedder(appState *models.AppState) *Embedder {
	cfg := appState.Config
	return &Embedder{
		client:     appState.EmbeddingClient,
		cache:      newVectorCache(cfg.Cache.Dir, cfg.Embeddings.Model),
		dimensions: cfg.Embeddings.Dimensions,
		batchSize:  cfg.Embeddings.BatchSize,
		batchDelay: time.Duration(cfg.Embeddings.BatchDelayMs) * time.Millisecond,
	}
}

// EmbedLanguage embeds every concept's text for one language, in concept
// order. Pairs that cannot be embedded are returned as missing rather
// than failing the run; a language where no pair at all could be embedded
// surfaces UpstreamUnavailableError.
func (e *Embedder) EmbedLanguage(
	ctx context.Context,
	set *models.ConceptSet,
	lang string,
) (*models.LanguageVectors, []models.MissingEmbedding, error) {
	var missing []models.MissingEmbedding
	out := &models.LanguageVectors{Language: lang}

	type pending struct {
		conceptID string
		text      string
		key       string
		vec       []float32
	}
	var items []*pending
	var todo []*pending

	for _, c := range set.Concepts {
		text, ok := frames.EmbedText(c, lang)
		if !ok {
			missing = append(missing, models.MissingEmbedding{
				ConceptID: c.ID,
				Language:  lang,
				Reason:    "no label for language",
			})
			continue
		}
		p := &pending{conceptID: c.ID, text: text, key: e.cache.key(lang, text)}
		items = append(items, p)
		if vec, hit := e.cache.get(p.key); hit {
			p.vec = vec
			continue
		}
		todo = append(todo, p)
	}

	attempted := len(todo)
	failed := 0
	var lastErr error

	for start := 0; start < len(todo); start += e.batchSize {
		end := start + e.batchSize
		if end > len(todo) {
			end = len(todo)
		}
		batch := todo[start:end]

		if start > 0 && e.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(e.batchDelay):
			}
		}

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}

		vectors, err := e.client.EmbedTexts(ctx, texts)
		if err != nil {
			log.Warnf("embed batch failed for %s (%d texts): %v", lang, len(texts), err)
			for _, p := range batch {
				missing = append(missing, models.MissingEmbedding{
					ConceptID: p.conceptID,
					Language:  lang,
					Reason:    err.Error(),
				})
			}
			failed += len(batch)
			lastErr = err
			continue
		}

		for i, p := range batch {
			vec := vectors[i]
			if err := e.checkVector(vec); err != nil {
				missing = append(missing, models.MissingEmbedding{
					ConceptID: p.conceptID,
					Language:  lang,
					Reason:    err.Error(),
				})
				continue
			}
			e.cache.put(p.key, vec)
			p.vec = vec
		}
	}

	// Assemble in concept order. The batch order must depend only on
	// the input, not on which vectors happened to be cached.
	for _, p := range items {
		if p.vec == nil {
			continue
		}
		out.ConceptIDs = append(out.ConceptIDs, p.conceptID)
		out.Vectors = append(out.Vectors, p.vec)
	}

	if attempted > 0 && failed == attempted && len(out.ConceptIDs) == 0 {
		return nil, missing, models.NewUpstreamUnavailableError("embed", lang, lastErr)
	}

	log.Debugf("embedded %d concepts for %s (%d missing)", len(out.ConceptIDs), lang, len(missing))
	return out, missing, nil
}

func (e *Embedder) checkVector(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty vector")
	}
	if e.dimensions > 0 && len(vec) != e.dimensions {
		return fmt.Errorf("vector has %d dimensions, expected %d", len(vec), e.dimensions)
	}
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("vector contains non-finite values")
		}
	}
	return nil
}
