package models

// Concept is a single conceptual frame produced by the upstream extractor.
// One record per distinct idea, not per word. Read-only to the pipeline.
type Concept struct {
	ID          string            `json:"id"`
	Labels      map[string]string `json:"labels"`
	Definitions map[string]string `json:"definitions,omitempty"`
	Cluster     string            `json:"cluster"`
	// Confidence is the upstream extraction confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// ConceptSet is a batch of concepts delivered by the Frame Store for one
// pipeline run, plus its dataset metadata.
type ConceptSet struct {
	Meta     ConceptSetMeta `json:"meta"`
	Concepts []Concept      `json:"concepts"`
}

type ConceptSetMeta struct {
	Domain     string   `json:"domain,omitempty"`
	Hypothesis string   `json:"hypothesis,omitempty"`
	Languages  []string `json:"languages,omitempty"`
}

// RejectReason enumerates why the validator excluded a concept.
type RejectReason string

const (
	RejectNone              RejectReason = ""
	RejectLowConfidence     RejectReason = "LOW_CONFIDENCE"
	RejectDuplicate         RejectReason = "DUPLICATE"
	RejectTrivialAcrossLang RejectReason = "TRIVIAL_ACROSS_LANGUAGES"
)

// ValidationRecord is the validator's verdict for one (concept, language)
// pair. Weight is relative to the batch evaluated together for that
// language and is not comparable across runs with different concept sets.
type ValidationRecord struct {
	ConceptID     string       `json:"concept_id"`
	Language      string       `json:"language"`
	Weight        float64      `json:"weight"`
	IsDuplicateOf string       `json:"is_duplicate_of,omitempty"`
	CrossLangSim  float32      `json:"cross_lang_similarity"`
	Rejected      bool         `json:"rejected"`
	RejectReason  RejectReason `json:"reject_reason,omitempty"`
}

// DivergenceRecord compares one concept across an unordered language pair.
// Divergence is symmetric; ghost membership is not.
type DivergenceRecord struct {
	ConceptID  string  `json:"concept_id"`
	LanguageA  string  `json:"language_a"`
	LanguageB  string  `json:"language_b"`
	Divergence float64 `json:"divergence"`
	// GhostIn holds the languages (of the pair) in which the concept is
	// structurally marginal.
	GhostIn map[string]bool `json:"ghost_in"`
}

// Position is a concept's terrain coordinate in one language's layout.
// Positions are only meaningful relative to other positions from the same
// language's fit; absolute coordinates are not comparable across languages.
type Position struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// ConceptRecord is the flat output record consumed by the visualization
// layer, one per concept.
type ConceptRecord struct {
	ID          string                `json:"id"`
	Labels      map[string]string     `json:"labels"`
	Definitions map[string]string     `json:"definitions,omitempty"`
	Cluster     string                `json:"cluster"`
	Position    map[string][2]float64 `json:"position"`
	Weight      map[string]float64    `json:"weight"`
	Ghost       map[string]bool       `json:"ghost"`
	Validation  ValidationStatus      `json:"validation"`
}

type ValidationStatus struct {
	Rejected     bool         `json:"rejected"`
	RejectReason RejectReason `json:"reject_reason,omitempty"`
}

// RunResult is the full output document of one pipeline run: the record
// set plus run metadata and the best-effort failure flags required by the
// no-silent-data-loss policy.
type RunResult struct {
	RunID     string          `json:"run_id"`
	Model     string          `json:"model"`
	Languages []string        `json:"languages"`
	Concepts  []ConceptRecord `json:"concepts"`
	// MissingEmbeddings lists (concept, language) pairs that could not be
	// embedded and were excluded from weight/divergence computation.
	MissingEmbeddings []MissingEmbedding `json:"missing_embeddings,omitempty"`
	// LowConfidenceTopologies lists languages whose projection ran with a
	// degraded neighborhood size.
	LowConfidenceTopologies []string           `json:"low_confidence_topologies,omitempty"`
	Divergences             []DivergenceRecord `json:"divergences"`
	// Interpretations holds optional prose explanations per ghost
	// concept, produced after the core records are complete.
	Interpretations map[string]string `json:"interpretations,omitempty"`
	Stats           RunStats          `json:"stats"`
}

type MissingEmbedding struct {
	ConceptID string `json:"concept_id"`
	Language  string `json:"language"`
	Reason    string `json:"reason"`
}

type RunStats struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Rejected int `json:"rejected"`
	Ghosts   int `json:"ghosts"`
}
