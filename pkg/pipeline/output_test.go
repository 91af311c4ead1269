package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheApexWu/lacuna/pkg/models"
)

func TestWriteResult(t *testing.T) {
	result := &models.RunResult{
		RunID:     "run-1",
		Model:     "test-model",
		Languages: []string{"en", "de"},
		Concepts: []models.ConceptRecord{
			{
				ID:       "wage",
				Labels:   map[string]string{"en": "wage"},
				Cluster:  "extracted",
				Position: map[string][2]float64{"en": {1.5, -2.25}},
				Weight:   map[string]float64{"en": 0.7},
				Ghost:    map[string]bool{"en": false},
			},
		},
		Stats: models.RunStats{Total: 1, Valid: 1},
	}

	path := filepath.Join(t.TempDir(), "out", "result.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, WriteResult(path, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var restored models.RunResult
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, "run-1", restored.RunID)
	require.Len(t, restored.Concepts, 1)
	assert.Equal(t, [2]float64{1.5, -2.25}, restored.Concepts[0].Position["en"])
	assert.Equal(t, 0.7, restored.Concepts[0].Weight["en"])
}
