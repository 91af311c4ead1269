package validation

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/TheApexWu/lacuna/config"
	"github.com/TheApexWu/lacuna/pkg/models"
)

func testValidationConfig() config.ValidationConfig {
	return config.ValidationConfig{
		DuplicateThreshold: 0.85,
		CrossLangMax:       0.92,
		ConfidenceMin:      0.5,
		UniformityMin:      0.3,
	}
}

// unitVec returns a unit-norm 4D vector in the plane spanned by the
// first two axes, at the given angle in degrees.
func unitVec(deg float64) []float32 {
	rad := deg * math.Pi / 180
	return []float32{float32(math.Cos(rad)), float32(math.Sin(rad)), 0, 0}
}

func batch(lang string, ids []string, vecs [][]float32) *models.LanguageVectors {
	return &models.LanguageVectors{Language: lang, ConceptIDs: ids, Vectors: vecs}
}

func conceptsWithConfidence(conf map[string]float64) *models.ConceptSet {
	ids := make([]string, 0, len(conf))
	for id := range conf {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	set := &models.ConceptSet{}
	for _, id := range ids {
		set.Concepts = append(set.Concepts, models.Concept{
			ID:         id,
			Labels:     map[string]string{"en": id, "de": id + "-de"},
			Cluster:    "test",
			Confidence: conf[id],
		})
	}
	return set
}

func TestCentralityWeights(t *testing.T) {
	t.Run("WeightsInRange", func(t *testing.T) {
		vecs := [][]float32{
			unitVec(0), unitVec(30), unitVec(60), unitVec(95), {0, 0, 1, 0},
		}
		weights := CentralityWeights(vecs)
		require.Len(t, weights, 5)
		for _, w := range weights {
			assert.GreaterOrEqual(t, w, 0.0)
			assert.LessOrEqual(t, w, 1.0)
		}
	})

	// All inputs are unit-norm here, so any formula leaning on vector
	// magnitude would collapse to a constant. The weights must still
	// separate central from peripheral vectors.
	t.Run("UnitNormVectorsDoNotDegenerate", func(t *testing.T) {
		vecs := [][]float32{
			unitVec(0), unitVec(20), unitVec(40), {0, 0, 1, 0},
		}
		weights := CentralityWeights(vecs)

		allEqual := true
		for _, w := range weights[1:] {
			if math.Abs(w-weights[0]) > 1e-9 {
				allEqual = false
			}
		}
		assert.False(t, allEqual, "weights degenerated to a constant on unit-norm input")
		// The orthogonal outlier is the least connected vector.
		assert.Equal(t, 0.0, weights[3])
	})

	t.Run("CentralVectorScoresHighest", func(t *testing.T) {
		vecs := [][]float32{
			unitVec(0), unitVec(45), unitVec(90),
		}
		weights := CentralityWeights(vecs)
		assert.Equal(t, 1.0, weights[1])
	})

	t.Run("RankStabilityAcrossModels", func(t *testing.T) {
		angles := []float64{0, 18, 40, 55, 80, 110, 150}
		modelA := make([][]float32, len(angles))
		modelB := make([][]float32, len(angles))
		for i, deg := range angles {
			modelA[i] = unitVec(deg)
			// Model B sees the same structure through a mildly
			// warped lens: angles compressed toward zero.
			modelB[i] = unitVec(deg * 0.85)
		}

		wA := CentralityWeights(modelA)
		wB := CentralityWeights(modelB)

		rho := spearman(wA, wB)
		assert.Greater(t, rho, 0.8, "weight ranking should be stable across models")
	})
}

func spearman(x, y []float64) float64 {
	return stat.Correlation(ranks(x), ranks(y), nil)
}

func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })
	r := make([]float64, len(v))
	for rank, i := range idx {
		r[i] = float64(rank)
	}
	return r
}

func TestValidateConfidenceGate(t *testing.T) {
	set := conceptsWithConfidence(map[string]float64{"shaky": 0.2, "solid": 0.9})
	byLang := map[string]*models.LanguageVectors{
		"en": batch("en", []string{"shaky", "solid"}, [][]float32{unitVec(0), unitVec(50)}),
	}

	res := NewValidator(testValidationConfig()).Validate(set, byLang)

	rejected, reason := res.Rejected("shaky")
	assert.True(t, rejected)
	assert.Equal(t, models.RejectLowConfidence, reason)

	rejected, _ = res.Rejected("solid")
	assert.False(t, rejected)
}

func TestValidateDuplicates(t *testing.T) {
	t.Run("KeepsHigherConfidence", func(t *testing.T) {
		set := conceptsWithConfidence(map[string]float64{"first": 0.6, "second": 0.95})
		byLang := map[string]*models.LanguageVectors{
			"en": batch("en",
				[]string{"first", "second"},
				[][]float32{unitVec(10), unitVec(12)}, // cos > 0.85
			),
		}

		res := NewValidator(testValidationConfig()).Validate(set, byLang)

		rejected, reason := res.Rejected("first")
		assert.True(t, rejected)
		assert.Equal(t, models.RejectDuplicate, reason)
		assert.Equal(t, "second", res.Records["first"]["en"].IsDuplicateOf)

		rejected, _ = res.Rejected("second")
		assert.False(t, rejected)
	})

	t.Run("DistinctVectorsSurvive", func(t *testing.T) {
		set := conceptsWithConfidence(map[string]float64{"first": 0.9, "second": 0.9})
		byLang := map[string]*models.LanguageVectors{
			"en": batch("en",
				[]string{"first", "second"},
				[][]float32{unitVec(0), unitVec(60)},
			),
		}

		res := NewValidator(testValidationConfig()).Validate(set, byLang)
		rejected, _ := res.Rejected("first")
		assert.False(t, rejected)
		rejected, _ = res.Rejected("second")
		assert.False(t, rejected)
	})
}

func TestValidateTrivialityFilter(t *testing.T) {
	set := conceptsWithConfidence(map[string]float64{"same": 1.0, "shifted": 1.0})
	byLang := map[string]*models.LanguageVectors{
		"en": batch("en",
			[]string{"same", "shifted"},
			[][]float32{unitVec(0), unitVec(90)},
		),
		"de": batch("de",
			[]string{"same", "shifted"},
			// "same" is near-identical across languages; "shifted"
			// has moved far enough to carry signal.
			[][]float32{unitVec(2), unitVec(140)},
		),
	}

	res := NewValidator(testValidationConfig()).Validate(set, byLang)

	rejected, reason := res.Rejected("same")
	assert.True(t, rejected)
	assert.Equal(t, models.RejectTrivialAcrossLang, reason)

	rejected, _ = res.Rejected("shifted")
	assert.False(t, rejected)
	assert.InDelta(t, math.Cos(50*math.Pi/180),
		float64(res.Records["shifted"]["de"].CrossLangSim), 1e-3)
}

// The gate order is confidence, then duplicates, then triviality; the
// first failing check wins and nothing is double-counted.
func TestValidateOrderFirstFailureWins(t *testing.T) {
	set := conceptsWithConfidence(map[string]float64{"doomed": 0.1, "twin": 1.0})
	byLang := map[string]*models.LanguageVectors{
		// "doomed" is both low-confidence and a duplicate of "twin";
		// it must report LOW_CONFIDENCE.
		"en": batch("en",
			[]string{"doomed", "twin"},
			[][]float32{unitVec(10), unitVec(11)},
		),
		"de": batch("de",
			[]string{"doomed", "twin"},
			[][]float32{unitVec(10), unitVec(52)},
		),
	}

	res := NewValidator(testValidationConfig()).Validate(set, byLang)

	rejected, reason := res.Rejected("doomed")
	assert.True(t, rejected)
	assert.Equal(t, models.RejectLowConfidence, reason)
	assert.Empty(t, res.Records["doomed"]["en"].IsDuplicateOf)

	// The surviving twin is not dragged into the duplicate pair.
	rejected, _ = res.Rejected("twin")
	assert.False(t, rejected)
}

func TestUniformityScore(t *testing.T) {
	t.Run("TightBatchScoresLow", func(t *testing.T) {
		tight := [][]float32{unitVec(0), unitVec(2), unitVec(4)}
		spread := [][]float32{unitVec(0), unitVec(70), unitVec(140)}
		assert.Less(t, UniformityScore(tight), UniformityScore(spread))
	})

	t.Run("SingletonIsPerfectlySpread", func(t *testing.T) {
		assert.Equal(t, 1.0, UniformityScore([][]float32{unitVec(0)}))
	})
}

func TestCentralityOf(t *testing.T) {
	vectors := [][]float32{unitVec(0), unitVec(30), unitVec(60)}

	t.Run("CentralProbe", func(t *testing.T) {
		w := CentralityOf(unitVec(30), vectors)
		assert.Greater(t, w, 0.5)
	})

	t.Run("PeripheralProbeClampsToZero", func(t *testing.T) {
		w := CentralityOf([]float32{0, 0, 1, 0}, vectors)
		assert.Equal(t, 0.0, w)
	})
}
