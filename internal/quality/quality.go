// Package quality measures how well the detection pipeline classifies known
// event patterns. It replays synthetic scenarios with ground-truth labels
// through a fresh detector and reports the usual classification metrics.
package quality

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/filesift/filesift/internal/fileops"
)

// Scenario is one labeled event sequence: what a tool or editor emitted and
// the operation a perfect detector would reconstruct from it.
type Scenario struct {
	Name     string
	Events   []fileops.FileEvent
	Expected fileops.OperationType

	// ExpectedConfidence is the floor the detector should reach for this
	// pattern. Zero means any confidence is acceptable.
	ExpectedConfidence float64
}

// Failure records one scenario the detector got wrong.
type Failure struct {
	Scenario string
	Want     fileops.OperationType
	Got      fileops.OperationType // OpUnknown when nothing was detected
	Reason   string
}

// Report is the outcome of an analysis run.
type Report struct {
	Scenarios      int
	Correct        int
	Accuracy       float64
	Precision      float64
	Recall         float64
	F1             float64
	MeanConfidence float64
	MeanDetection  time.Duration
	Failures       []Failure
}

// Analyzer replays scenarios against a detector configuration. Each
// scenario runs through a fresh detector so runs are independent.
type Analyzer struct {
	cfg       fileops.DetectorConfig
	logger    *slog.Logger
	scenarios []Scenario
}

// NewAnalyzer builds an analyzer for the given detector configuration.
func NewAnalyzer(cfg fileops.DetectorConfig, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// Add queues a scenario for the next Run.
func (a *Analyzer) Add(s Scenario) {
	a.scenarios = append(a.scenarios, s)
}

// Len returns the number of queued scenarios.
func (a *Analyzer) Len() int {
	return len(a.scenarios)
}

// Run replays every scenario and computes the report.
func (a *Analyzer) Run() (Report, error) {
	if len(a.scenarios) == 0 {
		return Report{}, fmt.Errorf("no scenarios to analyze")
	}

	var (
		truePositives  int
		falsePositives int
		falseNegatives int
		confidenceSum  float64
		confidenceN    int
		elapsed        time.Duration
		failures       []Failure
	)

	for _, s := range a.scenarios {
		det, err := fileops.NewDetector(a.cfg, a.logger, nil)
		if err != nil {
			return Report{}, fmt.Errorf("building detector for scenario %q: %w", s.Name, err)
		}

		start := time.Now()
		ops := det.Detect(s.Events)
		elapsed += time.Since(start)
		det.Close()

		match, found := pickMatch(ops, s.Expected)
		switch {
		case !found && len(ops) == 0:
			falseNegatives++
			failures = append(failures, Failure{
				Scenario: s.Name,
				Want:     s.Expected,
				Got:      fileops.OpUnknown,
				Reason:   "no operation detected",
			})
		case !found:
			falsePositives++
			failures = append(failures, Failure{
				Scenario: s.Name,
				Want:     s.Expected,
				Got:      ops[0].Type,
				Reason:   "misclassified",
			})
		case s.ExpectedConfidence > 0 && match.Confidence < s.ExpectedConfidence:
			falsePositives++
			failures = append(failures, Failure{
				Scenario: s.Name,
				Want:     s.Expected,
				Got:      match.Type,
				Reason: fmt.Sprintf("confidence %.2f below expected %.2f",
					match.Confidence, s.ExpectedConfidence),
			})
		default:
			truePositives++
			confidenceSum += match.Confidence
			confidenceN++
		}
	}

	total := len(a.scenarios)
	report := Report{
		Scenarios:     total,
		Correct:       truePositives,
		Accuracy:      float64(truePositives) / float64(total),
		MeanDetection: elapsed / time.Duration(total),
		Failures:      failures,
	}
	if truePositives+falsePositives > 0 {
		report.Precision = float64(truePositives) / float64(truePositives+falsePositives)
	}
	if truePositives+falseNegatives > 0 {
		report.Recall = float64(truePositives) / float64(truePositives+falseNegatives)
	}
	if report.Precision+report.Recall > 0 {
		report.F1 = 2 * report.Precision * report.Recall / (report.Precision + report.Recall)
	}
	if confidenceN > 0 {
		report.MeanConfidence = confidenceSum / float64(confidenceN)
	}
	return report, nil
}

// pickMatch finds the detected operation of the expected type, if any.
func pickMatch(ops []fileops.FileOperation, want fileops.OperationType) (fileops.FileOperation, bool) {
	for _, op := range ops {
		if op.Type == want {
			return op, true
		}
	}
	return fileops.FileOperation{}, false
}
