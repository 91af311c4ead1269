package topology

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheApexWu/lacuna/config"
	"github.com/TheApexWu/lacuna/pkg/models"
)

func testTopologyConfig() config.TopologyConfig {
	return config.TopologyConfig{
		Neighbors: 5,
		MinDist:   0.1,
		Epochs:    50,
		Seed:      42,
	}
}

// clusteredBatch generates two well-separated clusters of unit vectors
// with a fixed seed, so every call produces the same batch.
func clusteredBatch(t *testing.T, perCluster, dims int) *models.LanguageVectors {
	t.Helper()
	rng := rand.New(rand.NewSource(7)) //nolint:gosec

	lv := &models.LanguageVectors{Language: "en"}
	for cluster := 0; cluster < 2; cluster++ {
		for i := 0; i < perCluster; i++ {
			vec := make([]float32, dims)
			// Cluster 0 lives near axis 0, cluster 1 near axis 1.
			vec[cluster] = 1
			for c := range vec {
				vec[c] += float32(rng.NormFloat64() * 0.05)
			}
			lv.ConceptIDs = append(lv.ConceptIDs, fmt.Sprintf("c%d-%d", cluster, i))
			lv.Vectors = append(lv.Vectors, vec)
		}
	}
	return lv
}

func TestFitDeterminism(t *testing.T) {
	p := NewProjector(testTopologyConfig())
	lv := clusteredBatch(t, 8, 16)

	first, err := p.Fit(lv)
	require.NoError(t, err)
	second, err := p.Fit(lv)
	require.NoError(t, err)

	require.Equal(t, len(first.Positions), len(second.Positions))
	for i := range first.Positions {
		assert.Equal(t, first.Positions[i].X, second.Positions[i].X, "concept %s", first.ConceptIDs[i])
		assert.Equal(t, first.Positions[i].Z, second.Positions[i].Z, "concept %s", first.ConceptIDs[i])
	}
}

func TestFitSeparatesClusters(t *testing.T) {
	p := NewProjector(testTopologyConfig())
	lv := clusteredBatch(t, 8, 16)

	layout, err := p.Fit(lv)
	require.NoError(t, err)
	require.Len(t, layout.Positions, 16)
	assert.False(t, layout.LowConfidence)

	for i, pos := range layout.Positions {
		require.False(t, math.IsNaN(pos.X) || math.IsNaN(pos.Z), "concept %s", layout.ConceptIDs[i])
		require.False(t, math.IsInf(pos.X, 0) || math.IsInf(pos.Z, 0), "concept %s", layout.ConceptIDs[i])
	}

	// Mean within-cluster distance should be well under the distance
	// between the two cluster centroids.
	centroid := func(lo, hi int) (float64, float64) {
		var x, z float64
		for i := lo; i < hi; i++ {
			x += layout.Positions[i].X
			z += layout.Positions[i].Z
		}
		n := float64(hi - lo)
		return x / n, z / n
	}
	spread := func(lo, hi int, cx, cz float64) float64 {
		var s float64
		for i := lo; i < hi; i++ {
			s += math.Hypot(layout.Positions[i].X-cx, layout.Positions[i].Z-cz)
		}
		return s / float64(hi-lo)
	}

	ax, az := centroid(0, 8)
	bx, bz := centroid(8, 16)
	gap := math.Hypot(ax-bx, az-bz)
	assert.Greater(t, gap, spread(0, 8, ax, az))
	assert.Greater(t, gap, spread(8, 16, bx, bz))
}

func TestFitSmallBatches(t *testing.T) {
	t.Run("DegradedNeighborhoodIsFlagged", func(t *testing.T) {
		cfg := testTopologyConfig()
		cfg.Neighbors = 15
		p := NewProjector(cfg)

		lv := clusteredBatch(t, 3, 8) // 6 points, k degrades to 5
		layout, err := p.Fit(lv)
		require.NoError(t, err)
		assert.True(t, layout.LowConfidence)
		assert.Len(t, layout.Positions, 6)
	})

	t.Run("TooFewPointsFallsBackToComponents", func(t *testing.T) {
		p := NewProjector(testTopologyConfig())
		lv := &models.LanguageVectors{
			Language:   "en",
			ConceptIDs: []string{"solo", "duo"},
			Vectors:    [][]float32{{0.3, 0.7, 0.1}, {0.9, 0.2, 0.4}},
		}

		layout, err := p.Fit(lv)
		var illDefined *models.IllDefinedProjectionError
		require.ErrorAs(t, err, &illDefined)
		assert.True(t, errors.Is(err, models.ErrIllDefinedProjection))
		assert.Equal(t, "en", illDefined.Language)

		require.Len(t, layout.Positions, 2)
		assert.True(t, layout.LowConfidence)
		assert.InDelta(t, 0.3, layout.Positions[0].X, 1e-6)
		assert.InDelta(t, 0.7, layout.Positions[0].Z, 1e-6)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		p := NewProjector(testTopologyConfig())
		layout, err := p.Fit(&models.LanguageVectors{Language: "de"})
		require.NoError(t, err)
		assert.True(t, layout.LowConfidence)
		assert.Empty(t, layout.Positions)
	})
}

func TestFuzzyGraphDeterminism(t *testing.T) {
	lv := clusteredBatch(t, 6, 8)
	dist := cosineDistances(lv.Vectors)

	first := fuzzyGraph(dist, 4)
	second := fuzzyGraph(dist, 4)
	assert.Equal(t, first, second)

	for _, e := range first {
		assert.Less(t, e.from, e.to)
		assert.Greater(t, e.weight, 0.0)
		assert.LessOrEqual(t, e.weight, 1.0)
	}
}

func TestCurveParams(t *testing.T) {
	t.Run("AnchorValues", func(t *testing.T) {
		a, b := curveParams(0.1)
		assert.InDelta(t, 1.577, a, 1e-9)
		assert.InDelta(t, 0.895, b, 1e-9)
	})

	t.Run("InterpolatesBetweenAnchors", func(t *testing.T) {
		a, b := curveParams(0.175)
		assert.Greater(t, a, 1.221)
		assert.Less(t, a, 1.577)
		assert.Greater(t, b, 0.895)
		assert.Less(t, b, 1.010)
	})

	t.Run("ClampsOutOfRange", func(t *testing.T) {
		a, _ := curveParams(-1)
		assert.InDelta(t, 1.929, a, 1e-9)
		a, _ = curveParams(5)
		assert.InDelta(t, 0.483, a, 1e-9)
	})
}
