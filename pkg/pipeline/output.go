package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/TheApexWu/lacuna/pkg/models"
)

// WriteResult writes the run's output document as JSON. Path "-" writes
// to stdout. Concurrent runs against the same output file must be
// serialized by the caller; this core takes no lock.
func WriteResult(path string, result *models.RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run result: %w", err)
	}
	log.Infof("wrote %d concept records to %s", len(result.Concepts), path)
	return nil
}
