package frames

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/TheApexWu/lacuna/internal"
	"github.com/TheApexWu/lacuna/pkg/models"
)

var log = internal.GetLogger()

// rawConcept accepts every historical dataset shape at the ingestion
// boundary. Older exports used "descriptions" for the per-language
// definition map and omitted cluster/confidence entirely. Migration
// happens once, here; downstream code sees a single schema.
type rawConcept struct {
	ID           string            `json:"id"`
	Labels       map[string]string `json:"labels"`
	Definitions  map[string]string `json:"definitions"`
	Descriptions map[string]string `json:"descriptions"`
	Cluster      string            `json:"cluster"`
	Confidence   *float64          `json:"confidence"`
}

type rawDataset struct {
	Meta     models.ConceptSetMeta `json:"meta"`
	Concepts []rawConcept          `json:"concepts"`
}

const defaultCluster = "extracted"

// LoadConceptSet reads a dataset file in either the current
// {meta, concepts} shape or the legacy bare-array shape.
func LoadConceptSet(path string) (*models.ConceptSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read concept set: %w", err)
	}
	return ParseConceptSet(data)
}

// ParseConceptSet decodes and migrates a dataset document.
func ParseConceptSet(data []byte) (*models.ConceptSet, error) {
	var ds rawDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		// Legacy exports are a bare concept array.
		var raw []rawConcept
		if arrErr := json.Unmarshal(data, &raw); arrErr != nil {
			return nil, fmt.Errorf("parse concept set: %w", err)
		}
		ds = rawDataset{Concepts: raw}
	}

	set := &models.ConceptSet{
		Meta:     ds.Meta,
		Concepts: make([]models.Concept, 0, len(ds.Concepts)),
	}
	for _, rc := range ds.Concepts {
		c, err := migrateConcept(rc)
		if err != nil {
			return nil, err
		}
		set.Concepts = append(set.Concepts, c)
	}

	if len(set.Meta.Languages) == 0 {
		set.Meta.Languages = inferLanguages(set.Concepts)
	}

	return set, nil
}

func migrateConcept(rc rawConcept) (models.Concept, error) {
	if rc.ID == "" {
		return models.Concept{}, fmt.Errorf("concept with empty id")
	}
	if len(rc.Labels) == 0 {
		return models.Concept{}, fmt.Errorf("concept %s has no labels", rc.ID)
	}

	definitions := rc.Definitions
	if len(definitions) == 0 && len(rc.Descriptions) > 0 {
		definitions = rc.Descriptions
	}

	cluster := rc.Cluster
	if cluster == "" {
		cluster = defaultCluster
	}

	confidence := 1.0
	if rc.Confidence != nil {
		confidence = *rc.Confidence
	}
	if confidence < 0 || confidence > 1 {
		return models.Concept{}, fmt.Errorf(
			"concept %s has confidence %.2f outside [0,1]", rc.ID, confidence,
		)
	}

	return models.Concept{
		ID:          rc.ID,
		Labels:      rc.Labels,
		Definitions: definitions,
		Cluster:     cluster,
		Confidence:  confidence,
	}, nil
}

func inferLanguages(concepts []models.Concept) []string {
	seen := map[string]struct{}{}
	for _, c := range concepts {
		for lang := range c.Labels {
			seen[lang] = struct{}{}
		}
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// EmbedText builds the text embedded for a (concept, language) pair:
// the label alone, or "{label}: {definition}" when a definition exists.
// Applied uniformly across a run so weight and divergence comparisons
// stay valid.
func EmbedText(c models.Concept, lang string) (string, bool) {
	label, ok := c.Labels[lang]
	if !ok || label == "" {
		return "", false
	}
	if def, ok := c.Definitions[lang]; ok && def != "" {
		return label + ": " + def, true
	}
	return label, true
}

// Summary describes a dataset's readiness for a pipeline run.
type Summary struct {
	Domain    string
	Languages []string
	Total     int
	// Coverage counts concepts with an embeddable text per language.
	Coverage map[string]int
	Clusters map[string]int
	Ready    bool
}

// Summarize computes per-language coverage and cluster distribution.
func Summarize(set *models.ConceptSet) Summary {
	s := Summary{
		Domain:    set.Meta.Domain,
		Languages: set.Meta.Languages,
		Total:     len(set.Concepts),
		Coverage:  map[string]int{},
		Clusters:  map[string]int{},
	}
	for _, lang := range s.Languages {
		for _, c := range set.Concepts {
			if _, ok := EmbedText(c, lang); ok {
				s.Coverage[lang]++
			}
		}
	}
	for _, c := range set.Concepts {
		s.Clusters[c.Cluster]++
	}
	s.Ready = len(s.Languages) >= 2
	for _, lang := range s.Languages {
		if s.Coverage[lang] != s.Total {
			s.Ready = false
		}
	}
	return s
}

// LogSummary prints a human-readable readiness report for a dataset.
func LogSummary(path string, s Summary) {
	status := "READY"
	if !s.Ready {
		status = "INCOMPLETE"
	}
	log.Infof("%s [%s]: %d concepts, languages %v", path, status, s.Total, s.Languages)
	for _, lang := range s.Languages {
		pct := 0
		if s.Total > 0 {
			pct = s.Coverage[lang] * 100 / s.Total
		}
		log.Infof("  %s coverage: %d/%d (%d%%)", lang, s.Coverage[lang], s.Total, pct)
	}
	for cluster, n := range s.Clusters {
		log.Debugf("  cluster %s: %d", cluster, n)
	}
}
