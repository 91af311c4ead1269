package models

import "context"

// LanguageVectors holds all embeddings for one language in batch order.
type LanguageVectors struct {
	Language   string
	ConceptIDs []string
	Vectors    [][]float32
}

// Lookup returns the vector for a concept id, if present.
func (lv *LanguageVectors) Lookup(conceptID string) ([]float32, bool) {
	for i, id := range lv.ConceptIDs {
		if id == conceptID {
			return lv.Vectors[i], true
		}
	}
	return nil, false
}

// EmbeddingClient is the embedding provider capability. Implementations
// must be deterministic for a fixed model version and input string and
// must preserve input order in EmbedTexts.
type EmbeddingClient interface {
	// EmbedTexts embeds the given texts
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// InterpretationProvider turns a concept's computed facts into a prose
// explanation. It is consumed after the core pipeline's output and may
// fail without affecting the core's correctness.
type InterpretationProvider interface {
	Explain(ctx context.Context, facts GhostFacts) (string, error)
}

// GhostFacts is the input contract for InterpretationProvider.
type GhostFacts struct {
	ConceptID  string               `json:"concept_id"`
	Labels     map[string]string    `json:"labels"`
	Weights    map[string]float64   `json:"weights"`
	Divergence float64              `json:"divergence"`
	GhostIn    []string             `json:"ghost_in"`
	Neighbors  map[string][]Neighbor `json:"neighbors"`
}

// Neighbor is one nearest-neighbor hit within a language's concept set.
type Neighbor struct {
	ConceptID  string  `json:"concept_id"`
	Label      string  `json:"label"`
	Similarity float32 `json:"similarity"`
}
