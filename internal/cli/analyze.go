package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/filesift/filesift/internal/config"
	"github.com/filesift/filesift/internal/quality"
)

var (
	analyzeWindow        time.Duration
	analyzeMinConfidence float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score the detector against the built-in scenario suite",
	Long: `Replay the built-in labeled scenarios through the detector and report
accuracy, precision, recall and F1. Useful when tuning the time window
or the confidence floor.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().DurationVar(&analyzeWindow, "window", 0, "Override the detection time window")
	analyzeCmd.Flags().Float64Var(&analyzeMinConfidence, "min-confidence", -1, "Override the confidence floor")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	dc := cfg.DetectorConfig()
	if analyzeWindow > 0 {
		dc.TimeWindow = analyzeWindow
	}
	if analyzeMinConfidence >= 0 {
		dc.MinConfidence = analyzeMinConfidence
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	analyzer := quality.NewAnalyzer(dc, quiet)
	for _, s := range quality.StandardScenarios() {
		analyzer.Add(s)
	}

	report, err := analyzer.Run()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scenarios:       %d\n", report.Scenarios)
	fmt.Fprintf(out, "correct:         %d\n", report.Correct)
	fmt.Fprintf(out, "accuracy:        %.2f\n", report.Accuracy)
	fmt.Fprintf(out, "precision:       %.2f\n", report.Precision)
	fmt.Fprintf(out, "recall:          %.2f\n", report.Recall)
	fmt.Fprintf(out, "f1:              %.2f\n", report.F1)
	fmt.Fprintf(out, "mean confidence: %.2f\n", report.MeanConfidence)
	fmt.Fprintf(out, "mean detection:  %s\n", report.MeanDetection)

	if len(report.Failures) > 0 {
		fmt.Fprintln(out, "\nfailures:")
		for _, f := range report.Failures {
			fmt.Fprintf(out, "  %-35s want %-12s got %-12s %s\n",
				f.Scenario, f.Want, f.Got, f.Reason)
		}
	}
	return nil
}
