package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheApexWu/lacuna/pkg/models"
)

func unitVec(deg float64) []float32 {
	rad := deg * math.Pi / 180
	return []float32{float32(math.Cos(rad)), float32(math.Sin(rad))}
}

func testBatch() *models.LanguageVectors {
	return &models.LanguageVectors{
		Language:   "en",
		ConceptIDs: []string{"near", "mid", "far"},
		Vectors:    [][]float32{unitVec(10), unitVec(50), unitVec(120)},
	}
}

func TestNeighbors(t *testing.T) {
	labels := map[string]string{"near": "Near Thing", "mid": "Middle Thing"}

	t.Run("SortedBySimilarityDescending", func(t *testing.T) {
		hits := Neighbors(unitVec(0), testBatch(), labels, 3)
		require.Len(t, hits, 3)
		assert.Equal(t, "near", hits[0].ConceptID)
		assert.Equal(t, "mid", hits[1].ConceptID)
		assert.Equal(t, "far", hits[2].ConceptID)
		assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
	})

	t.Run("TruncatesToK", func(t *testing.T) {
		hits := Neighbors(unitVec(0), testBatch(), labels, 1)
		require.Len(t, hits, 1)
		assert.Equal(t, "near", hits[0].ConceptID)
	})

	t.Run("SkipsNearIdenticalHits", func(t *testing.T) {
		hits := Neighbors(unitVec(10), testBatch(), labels, 3)
		require.Len(t, hits, 2)
		assert.Equal(t, "mid", hits[0].ConceptID)
	})

	t.Run("FallsBackToIDWhenUnlabeled", func(t *testing.T) {
		hits := Neighbors(unitVec(0), testBatch(), labels, 3)
		assert.Equal(t, "Near Thing", hits[0].Label)
		assert.Equal(t, "far", hits[2].Label)
	})

	t.Run("NilBatch", func(t *testing.T) {
		assert.Nil(t, Neighbors(unitVec(0), nil, labels, 3))
	})
}

func TestConceptNeighbors(t *testing.T) {
	t.Run("ExcludesSelf", func(t *testing.T) {
		hits := ConceptNeighbors("mid", testBatch(), nil, 3)
		require.Len(t, hits, 2)
		for _, h := range hits {
			assert.NotEqual(t, "mid", h.ConceptID)
		}
		assert.Equal(t, "near", hits[0].ConceptID)
	})

	t.Run("UnknownConcept", func(t *testing.T) {
		assert.Nil(t, ConceptNeighbors("ghost", testBatch(), nil, 3))
	})
}
