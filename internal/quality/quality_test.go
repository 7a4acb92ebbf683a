package quality

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filesift/filesift/internal/fileops"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStandardScenarios_PerfectScore(t *testing.T) {
	a := NewAnalyzer(fileops.DefaultConfig(), quietLogger())
	for _, s := range StandardScenarios() {
		a.Add(s)
	}
	require.Equal(t, len(StandardScenarios()), a.Len())

	report, err := a.Run()
	require.NoError(t, err)

	assert.Empty(t, report.Failures)
	assert.Equal(t, report.Scenarios, report.Correct)
	assert.Equal(t, 1.0, report.Accuracy)
	assert.Equal(t, 1.0, report.Precision)
	assert.Equal(t, 1.0, report.Recall)
	assert.Equal(t, 1.0, report.F1)
	assert.GreaterOrEqual(t, report.MeanConfidence, 0.7)
	assert.Greater(t, report.MeanDetection, time.Duration(0))
}

func TestAnalyzer_OverTightConfidenceFloorHurtsRecall(t *testing.T) {
	cfg := fileops.DefaultConfig()
	cfg.MinConfidence = 0.99

	a := NewAnalyzer(cfg, quietLogger())
	for _, s := range StandardScenarios() {
		a.Add(s)
	}

	report, err := a.Run()
	require.NoError(t, err)

	assert.Less(t, report.Recall, 1.0)
	assert.NotEmpty(t, report.Failures)
}

func TestAnalyzer_Misclassification(t *testing.T) {
	a := NewAnalyzer(fileops.DefaultConfig(), quietLogger())
	a.Add(Scenario{
		Name: "delete labeled as create",
		Events: []fileops.FileEvent{
			{
				Path: "gone.txt",
				Type: fileops.EventDeleted,
				Metadata: fileops.FileEventMetadata{
					Timestamp:      time.Now(),
					SequenceNumber: 1,
				},
			},
		},
		Expected: fileops.OpCreate,
	})

	report, err := a.Run()
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.Accuracy)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, fileops.OpCreate, report.Failures[0].Want)
	assert.Equal(t, fileops.OpDelete, report.Failures[0].Got)
}

func TestAnalyzer_NoScenarios(t *testing.T) {
	a := NewAnalyzer(fileops.DefaultConfig(), quietLogger())
	_, err := a.Run()
	require.Error(t, err)
}

func TestAnalyzer_BadConfig(t *testing.T) {
	cfg := fileops.DetectorConfig{MinConfidence: 2}
	a := NewAnalyzer(cfg, quietLogger())
	a.Add(StandardScenarios()[0])
	_, err := a.Run()
	require.Error(t, err)
}
