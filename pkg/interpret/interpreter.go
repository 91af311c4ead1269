package interpret

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/TheApexWu/lacuna/internal"
	"github.com/TheApexWu/lacuna/pkg/models"
)

const ghostPromptTemplate = `{{.Label}} is structurally marginal in {{.GhostLangs}}: centrality {{.Weights}}, cross-language divergence {{printf "%.2f" .Divergence}}.{{if .Neighbors}} Nearest surviving concepts: {{.Neighbors}}.{{end}}`

// TemplateInterpreter renders a ghost explanation from the computed
// facts alone. Deterministic and offline; a drop-in baseline for an
// LLM-backed provider.
type TemplateInterpreter struct {
	template string
}

func NewTemplateInterpreter() *TemplateInterpreter {
	return &TemplateInterpreter{template: ghostPromptTemplate}
}

type promptData struct {
	Label      string
	GhostLangs string
	Weights    string
	Divergence float64
	Neighbors  string
}

func (ti *TemplateInterpreter) Explain(_ context.Context, facts models.GhostFacts) (string, error) {
	data := promptData{
		Label:      bestLabel(facts),
		GhostLangs: strings.Join(sortedCopy(facts.GhostIn), ", "),
		Weights:    formatWeights(facts.Weights),
		Divergence: facts.Divergence,
		Neighbors:  formatNeighbors(facts),
	}
	return internal.ParsePrompt(ti.template, data)
}

func bestLabel(facts models.GhostFacts) string {
	for _, lang := range []string{"en"} {
		if label := facts.Labels[lang]; label != "" {
			return label
		}
	}
	for _, lang := range sortedKeys(facts.Labels) {
		if facts.Labels[lang] != "" {
			return facts.Labels[lang]
		}
	}
	return facts.ConceptID
}

func formatWeights(weights map[string]float64) string {
	parts := make([]string, 0, len(weights))
	for _, lang := range sortedKeys(weights) {
		parts = append(parts, fmt.Sprintf("%s=%.2f", lang, weights[lang]))
	}
	return strings.Join(parts, ", ")
}

// formatNeighbors names the ghost languages' nearest neighbors, the
// concepts occupying the space where the ghost fails to take hold.
func formatNeighbors(facts models.GhostFacts) string {
	var parts []string
	for _, lang := range sortedCopy(facts.GhostIn) {
		hits := facts.Neighbors[lang]
		if len(hits) == 0 {
			continue
		}
		labels := make([]string, 0, len(hits))
		for _, h := range hits {
			labels = append(labels, h.Label)
		}
		parts = append(parts, fmt.Sprintf("%s: %s", lang, strings.Join(labels, ", ")))
	}
	return strings.Join(parts, "; ")
}

func sortedCopy(v []string) []string {
	out := append([]string(nil), v...)
	sort.Strings(out)
	return out
}

func sortedKeys[M map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
