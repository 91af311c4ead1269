package validation

import (
	"sort"

	"github.com/viterin/vek/vek32"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/TheApexWu/lacuna/config"
	"github.com/TheApexWu/lacuna/internal"
	"github.com/TheApexWu/lacuna/pkg/models"
)

var log = internal.GetLogger()

type Validator struct {
	cfg config.ValidationConfig
}

func NewValidator(cfg config.ValidationConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Result holds one run's validation verdicts. Records is keyed by
// concept id then language; Survivors holds each language's surviving
// batch in original order, ready for the divergence and topology stages.
type Result struct {
	Records    map[string]map[string]*models.ValidationRecord
	Survivors  map[string]*models.LanguageVectors
	Uniformity map[string]float64
}

// Rejected reports whether a concept was rejected, and why.
func (r *Result) Rejected(conceptID string) (bool, models.RejectReason) {
	for _, rec := range r.Records[conceptID] {
		if rec.Rejected {
			return true, rec.RejectReason
		}
	}
	return false, models.RejectNone
}

// Weight returns a surviving concept's centrality weight in a language.
func (r *Result) Weight(conceptID, lang string) (float64, bool) {
	rec, ok := r.Records[conceptID][lang]
	if !ok || rec.Rejected {
		return 0, false
	}
	return rec.Weight, true
}

// Validate runs the per-concept checks in order: confidence gate, then
// duplicate detection, then the cross-lingual triviality filter. The
// first failing check wins; a concept is never rejected twice. Weights
// are then computed over each language's surviving batch.
func (v *Validator) Validate(
	set *models.ConceptSet,
	byLang map[string]*models.LanguageVectors,
) *Result {
	res := &Result{
		Records:    map[string]map[string]*models.ValidationRecord{},
		Survivors:  map[string]*models.LanguageVectors{},
		Uniformity: map[string]float64{},
	}

	record := func(conceptID, lang string) *models.ValidationRecord {
		if res.Records[conceptID] == nil {
			res.Records[conceptID] = map[string]*models.ValidationRecord{}
		}
		rec, ok := res.Records[conceptID][lang]
		if !ok {
			rec = &models.ValidationRecord{ConceptID: conceptID, Language: lang}
			res.Records[conceptID][lang] = rec
		}
		return rec
	}

	langs := make([]string, 0, len(byLang))
	for lang := range byLang {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		lv := byLang[lang]
		for _, id := range lv.ConceptIDs {
			record(id, lang)
		}
	}

	reject := func(conceptID string, reason models.RejectReason) {
		for _, rec := range res.Records[conceptID] {
			rec.Rejected = true
			rec.RejectReason = reason
		}
	}
	isRejected := func(conceptID string) bool {
		rejected, _ := res.Rejected(conceptID)
		return rejected
	}

	confidence := map[string]float64{}
	for _, c := range set.Concepts {
		confidence[c.ID] = c.Confidence
	}

	// Confidence gate
	for _, c := range set.Concepts {
		if res.Records[c.ID] == nil {
			continue
		}
		if c.Confidence < v.cfg.ConfidenceMin {
			reject(c.ID, models.RejectLowConfidence)
			log.Infof("REJECT %s: low confidence (%.2f < %.2f)",
				c.ID, c.Confidence, v.cfg.ConfidenceMin)
		}
	}

	// Duplicate detection, per language
	for _, lang := range langs {
		lv := byLang[lang]
		for i := 0; i < len(lv.ConceptIDs); i++ {
			if isRejected(lv.ConceptIDs[i]) {
				continue
			}
			for j := i + 1; j < len(lv.ConceptIDs); j++ {
				if isRejected(lv.ConceptIDs[j]) {
					continue
				}
				sim := vek32.CosineSimilarity(lv.Vectors[i], lv.Vectors[j])
				if sim <= v.cfg.DuplicateThreshold {
					continue
				}
				// Keep the one with higher upstream confidence;
				// batch order breaks ties.
				keep, drop := lv.ConceptIDs[i], lv.ConceptIDs[j]
				if confidence[drop] > confidence[keep] {
					keep, drop = drop, keep
				}
				reject(drop, models.RejectDuplicate)
				for _, rec := range res.Records[drop] {
					rec.IsDuplicateOf = keep
				}
				log.Infof("REJECT %s: duplicate of %s (%s, cos=%.3f)", drop, keep, lang, sim)
				if drop == lv.ConceptIDs[i] {
					break
				}
			}
		}
	}

	// Cross-lingual triviality filter
	for _, c := range set.Concepts {
		if res.Records[c.ID] == nil || isRejected(c.ID) {
			continue
		}
		sim, ok := v.crossLanguageSimilarity(c.ID, langs, byLang)
		if !ok {
			continue
		}
		for _, rec := range res.Records[c.ID] {
			rec.CrossLangSim = sim
		}
		if sim > v.cfg.CrossLangMax {
			reject(c.ID, models.RejectTrivialAcrossLang)
			log.Infof("REJECT %s: too similar across languages (%.3f)", c.ID, sim)
		}
	}

	// Surviving batches and centrality weights
	for _, lang := range langs {
		lv := byLang[lang]
		surv := &models.LanguageVectors{Language: lang}
		for i, id := range lv.ConceptIDs {
			if isRejected(id) {
				continue
			}
			surv.ConceptIDs = append(surv.ConceptIDs, id)
			surv.Vectors = append(surv.Vectors, lv.Vectors[i])
		}
		res.Survivors[lang] = surv

		weights := CentralityWeights(surv.Vectors)
		for i, id := range surv.ConceptIDs {
			res.Records[id][lang].Weight = weights[i]
		}

		res.Uniformity[lang] = UniformityScore(surv.Vectors)
		log.Infof("%s uniformity score: %.3f", lang, res.Uniformity[lang])
		if res.Uniformity[lang] < v.cfg.UniformityMin {
			log.Warnf("%s embeddings are too uniform - definitions may be too generic", lang)
		}
	}

	return res
}

func (v *Validator) crossLanguageSimilarity(
	conceptID string,
	langs []string,
	byLang map[string]*models.LanguageVectors,
) (float32, bool) {
	var vecs [][]float32
	for _, lang := range langs {
		if vec, ok := byLang[lang].Lookup(conceptID); ok {
			vecs = append(vecs, vec)
		}
	}
	if len(vecs) < 2 {
		return 0, false
	}
	var sum float32
	var n int
	for i := 0; i < len(vecs); i++ {
		for j := i + 1; j < len(vecs); j++ {
			sum += vek32.CosineSimilarity(vecs[i], vecs[j])
			n++
		}
	}
	return sum / float32(n), true
}

// CentralityWeights computes each vector's mean cosine similarity to
// every other vector in the batch, min-max normalized to [0,1]. Well
// connected concepts score high, peripheral ones low. Vector norm is
// deliberately not part of the formula: models that L2-normalize their
// output make any norm-based weight collapse to a constant.
func CentralityWeights(vectors [][]float32) []float64 {
	n := len(vectors)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []float64{0.5}
	}

	means := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sum += float64(vek32.CosineSimilarity(vectors[i], vectors[j]))
		}
		means[i] = sum / float64(n-1)
	}

	lo, hi := floats.Min(means), floats.Max(means)
	weights := make([]float64, n)
	if hi-lo < 1e-9 {
		for i := range weights {
			weights[i] = 0.5
		}
		return weights
	}
	for i, m := range means {
		weights[i] = (m - lo) / (hi - lo)
	}
	return weights
}

// CentralityOf scores a single outside vector (a live probe) against a
// language's batch, on the batch's own min-max scale. Values clamp to
// [0,1]: a probe more peripheral than every batch member scores 0.
func CentralityOf(vec []float32, vectors [][]float32) float64 {
	n := len(vectors)
	if n == 0 {
		return 0.5
	}
	var sum float64
	for _, v := range vectors {
		sum += float64(vek32.CosineSimilarity(vec, v))
	}
	mean := sum / float64(n)

	if n == 1 {
		return 0.5
	}
	batchMeans := make([]float64, n)
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			s += float64(vek32.CosineSimilarity(vectors[i], vectors[j]))
		}
		batchMeans[i] = s / float64(n-1)
	}
	lo, hi := floats.Min(batchMeans), floats.Max(batchMeans)
	if hi-lo < 1e-9 {
		return 0.5
	}
	w := (mean - lo) / (hi - lo)
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// UniformityScore measures how spread out a batch is: low values mean
// the embeddings are nearly interchangeable (generic definitions).
// Advisory only; nothing is rejected on it.
func UniformityScore(vectors [][]float32) float64 {
	n := len(vectors)
	if n < 2 {
		return 1.0
	}
	var sims []float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sims = append(sims, float64(vek32.CosineSimilarity(vectors[i], vectors[j])))
		}
	}
	mean := stat.Mean(sims, nil)
	std := 0.0
	if len(sims) > 1 {
		std = stat.StdDev(sims, nil)
	}
	if std > 0.3 {
		std = 0.3
	}
	score := 1 - mean + std
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
