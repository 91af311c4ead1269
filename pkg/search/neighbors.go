package search

import (
	"sort"

	"github.com/viterin/vek/vek32"

	"github.com/TheApexWu/lacuna/pkg/models"
)

// identicalThreshold filters near-identical hits: a similarity this high
// means the query is the same concept, not a neighbor.
const identicalThreshold = 0.999

// Neighbors returns the top-k cosine neighbors of a query vector within
// one language's concept set, sorted by similarity descending.
func Neighbors(
	query []float32,
	lv *models.LanguageVectors,
	labels map[string]string,
	k int,
) []models.Neighbor {
	if lv == nil || k <= 0 {
		return nil
	}

	hits := make([]models.Neighbor, 0, len(lv.ConceptIDs))
	for i, id := range lv.ConceptIDs {
		sim := vek32.CosineSimilarity(query, lv.Vectors[i])
		if sim > identicalThreshold {
			continue
		}
		label := labels[id]
		if label == "" {
			label = id
		}
		hits = append(hits, models.Neighbor{
			ConceptID:  id,
			Label:      label,
			Similarity: sim,
		})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Similarity > hits[b].Similarity
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// ConceptNeighbors returns the top-k neighbors of a concept already in
// the set, excluding itself.
func ConceptNeighbors(
	conceptID string,
	lv *models.LanguageVectors,
	labels map[string]string,
	k int,
) []models.Neighbor {
	if lv == nil {
		return nil
	}
	query, ok := lv.Lookup(conceptID)
	if !ok {
		return nil
	}

	rest := &models.LanguageVectors{Language: lv.Language}
	for i, id := range lv.ConceptIDs {
		if id == conceptID {
			continue
		}
		rest.ConceptIDs = append(rest.ConceptIDs, id)
		rest.Vectors = append(rest.Vectors, lv.Vectors[i])
	}
	return Neighbors(query, rest, labels, k)
}
