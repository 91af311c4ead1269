package divergence

import (
	"sort"

	"github.com/viterin/vek/vek32"

	"github.com/TheApexWu/lacuna/config"
	"github.com/TheApexWu/lacuna/internal"
	"github.com/TheApexWu/lacuna/pkg/models"
	"github.com/TheApexWu/lacuna/pkg/validation"
)

var log = internal.GetLogger()

const DirectionNeutral = "neutral"

type Detector struct {
	cfg config.GhostConfig
}

func NewDetector(cfg config.GhostConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Divergence is one minus the cosine similarity of a concept's vectors
// in two languages, clamped to [0,1]. Symmetric by construction.
func Divergence(a, b []float32) float64 {
	d := 1 - float64(vek32.CosineSimilarity(a, b))
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// Compare classifies every surviving concept across every unordered
// language pair. Records are sorted by divergence descending: the
// magnitude of disagreement between languages is the primary signal
// this system exists to surface.
func (d *Detector) Compare(res *validation.Result, langs []string) []models.DivergenceRecord {
	var records []models.DivergenceRecord

	for i := 0; i < len(langs); i++ {
		for j := i + 1; j < len(langs); j++ {
			records = append(records, d.comparePair(res, langs[i], langs[j])...)
		}
	}

	sort.SliceStable(records, func(a, b int) bool {
		if records[a].Divergence == records[b].Divergence {
			return records[a].ConceptID < records[b].ConceptID
		}
		return records[a].Divergence > records[b].Divergence
	})

	return records
}

func (d *Detector) comparePair(
	res *validation.Result,
	langA, langB string,
) []models.DivergenceRecord {
	survA := res.Survivors[langA]
	survB := res.Survivors[langB]
	if survA == nil || survB == nil {
		return nil
	}

	var records []models.DivergenceRecord
	for i, id := range survA.ConceptIDs {
		vecB, ok := survB.Lookup(id)
		if !ok {
			continue
		}
		weightA, okA := res.Weight(id, langA)
		weightB, okB := res.Weight(id, langB)
		if !okA || !okB {
			continue
		}

		rec := models.DivergenceRecord{
			ConceptID:  id,
			LanguageA:  langA,
			LanguageB:  langB,
			Divergence: Divergence(survA.Vectors[i], vecB),
			GhostIn:    map[string]bool{},
		}
		if d.isGhost(weightA, weightB) {
			rec.GhostIn[langB] = true
			log.Infof("GHOST %s in %s: weight %.2f vs %.2f in %s",
				id, langB, weightB, weightA, langA)
		}
		if d.isGhost(weightB, weightA) {
			rec.GhostIn[langA] = true
			log.Infof("GHOST %s in %s: weight %.2f vs %.2f in %s",
				id, langA, weightA, weightB, langB)
		}
		records = append(records, rec)
	}
	return records
}

// isGhost reports whether a concept is a ghost in the language carrying
// weightB, relative to the language carrying weightA. Two independent
// signals, either sufficient: absolute peripherality, and relative
// peripherality against the comparison language. A zero weightB needs
// no ratio guard since the absolute signal already fires.
func (d *Detector) isGhost(weightA, weightB float64) bool {
	if weightB < d.cfg.WeightThreshold {
		return true
	}
	return weightA/weightB > d.cfg.WeightRatio
}

// ProbeResult compares a live user-supplied sentence across one
// language pair.
type ProbeResult struct {
	LanguageA  string  `json:"language_a"`
	LanguageB  string  `json:"language_b"`
	Divergence float64 `json:"divergence"`
	// Direction names the language the gap points at, or "neutral"
	// when the divergence does not clear the noise floor.
	Direction string             `json:"direction"`
	Weights   map[string]float64 `json:"weights"`
}

// CompareProbe scores a probe's per-language embeddings against the
// surviving concept sets. Meaningful asymmetry requires a divergence
// above the noise floor; anything below reports as neutral rather than
// being attributed to either language.
func (d *Detector) CompareProbe(
	res *validation.Result,
	langA, langB string,
	vecA, vecB []float32,
) ProbeResult {
	pr := ProbeResult{
		LanguageA:  langA,
		LanguageB:  langB,
		Divergence: Divergence(vecA, vecB),
		Weights:    map[string]float64{},
	}

	if surv := res.Survivors[langA]; surv != nil {
		pr.Weights[langA] = validation.CentralityOf(vecA, surv.Vectors)
	}
	if surv := res.Survivors[langB]; surv != nil {
		pr.Weights[langB] = validation.CentralityOf(vecB, surv.Vectors)
	}

	switch {
	case pr.Divergence < d.cfg.NeutralDivergence:
		pr.Direction = DirectionNeutral
	case pr.Weights[langA] < pr.Weights[langB]:
		pr.Direction = langA
	default:
		pr.Direction = langB
	}

	return pr
}
