package analytics

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogFileDataCollector(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "analytics.log")
	c, err := NewDataCollector(DataCollectorConfig{FileName: fileName, CollectorType: LOG_FILE_DATA_COLLECTOR})
	require.NoError(t, err)

	c.RecordStepCompleted("t1", "mortgage_application", "personal_info", 20, map[string]any{"full_name": "Jane"})
	c.RecordRunOutcome("t1", "r1", "timeout", "no answer")
	require.NoError(t, c.Close())

	f, err := os.Open(fileName)
	require.NoError(t, err)
	defer f.Close()
	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 2)
	require.Equal(t, "step_completed", entries[0]["msg"])
	require.Equal(t, "personal_info", entries[0]["step"])
	require.Equal(t, float64(20), entries[0]["completion"])
	require.Equal(t, "run_outcome", entries[1]["msg"])
	require.Equal(t, "timeout", entries[1]["outcome"])
}

func TestDefaultCollectorIsNoop(t *testing.T) {
	c, err := NewDataCollector(DataCollectorConfig{})
	require.NoError(t, err)
	require.IsType(t, NoopDataCollector{}, c)
	require.NoError(t, c.Close())
}
