package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/ports"
	"go.uber.org/zap"
)

// CLIIntake assesses events given on the command line and prints the results
type CLIIntake struct {
	assessor ports.Assessor
	logger   *zap.Logger
	out      io.Writer
	verbose  bool
}

// NewCLIIntake creates a CLI intake that writes its report to out
func NewCLIIntake(assessor ports.Assessor, logger *zap.Logger, out io.Writer, verbose bool) *CLIIntake {
	return &CLIIntake{
		assessor: assessor,
		logger:   logger,
		out:      out,
		verbose:  verbose,
	}
}

// ReadEvent decodes one JSON event from r
func ReadEvent(r io.Reader) (*core.SecurityEvent, error) {
	var event core.SecurityEvent
	if err := json.NewDecoder(r).Decode(&event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &event, nil
}

// ProcessEvent assesses the event and prints a human readable report
func (c *CLIIntake) ProcessEvent(ctx context.Context, event *core.SecurityEvent) (*core.AssessmentRecord, error) {
	c.logger.Debug("Processing event", zap.String("home_id", event.HomeID), zap.String("event_id", event.EventID))

	fmt.Fprintf(c.out, "\n=== Event ===\n")
	fmt.Fprintf(c.out, "Home: %s\n", event.HomeID)
	if event.CameraID != "" {
		fmt.Fprintf(c.out, "Camera: %s\n", event.CameraID)
	}
	fmt.Fprintf(c.out, "Evidence terms: %d\n", len(event.Evidence))
	if c.verbose {
		for _, term := range event.Evidence {
			fmt.Fprintf(c.out, "  %-28s %+.4f\n", term.Factor, term.Weight)
		}
	}

	startTime := time.Now()
	record, err := c.assessor.Assess(ctx, event)
	if err != nil {
		c.logger.Error("Failed to assess event", zap.Error(err))
		return nil, err
	}
	duration := time.Since(startTime)

	a := record.Assessment
	fmt.Fprintf(c.out, "\n=== Assessment ===\n")
	fmt.Fprintf(c.out, "Decision: %s\n", a.Decision)
	fmt.Fprintf(c.out, "Probability: %s\n", a.Probability)
	if a.Defined() {
		fmt.Fprintf(c.out, "Log-odds: %.4f\n", a.LogOdds)
	} else {
		fmt.Fprintf(c.out, "Evidence could not be resolved; fail-safe decision applied\n")
	}

	if len(a.Contributing) > 0 {
		fmt.Fprintf(c.out, "\nContributing factors:\n")
		for _, fw := range a.Contributing {
			fmt.Fprintf(c.out, "  %-28s %+.4f\n", fw.Factor, fw.Weight)
		}
	}
	if len(a.Discarded) > 0 {
		fmt.Fprintf(c.out, "\nDiscarded terms:\n")
		for _, d := range a.Discarded {
			fmt.Fprintf(c.out, "  %-28s %s (%s)\n", d.Factor, d.Value, d.Reason)
		}
	}
	if len(record.UnknownFactors) > 0 {
		fmt.Fprintf(c.out, "\nUnknown factors: %v\n", record.UnknownFactors)
	}

	if cf := record.Counterfactual; cf != nil && len(cf.Steps) > 0 {
		fmt.Fprintf(c.out, "\nWould not have alerted with:\n")
		for _, step := range cf.Steps {
			fmt.Fprintf(c.out, "  %s (%+.1f)\n", step.Description, step.DeltaLLR)
		}
		if !cf.Sufficient {
			fmt.Fprintf(c.out, "  (still above the alert threshold at %s)\n", cf.ResultingProbability)
		}
	}

	if len(record.Questions) > 0 {
		fmt.Fprintf(c.out, "\nMost informative follow-ups:\n")
		for _, q := range record.Questions {
			fmt.Fprintf(c.out, "  %-24s %.4f nats\n", q.Kind, q.ExpectedEntropyReduction)
		}
	}

	if c.verbose {
		fmt.Fprintf(c.out, "\nProcessing time: %v\n", duration)
	}
	return record, nil
}

// Start is a no-op for the CLI intake
func (c *CLIIntake) Start() error {
	return nil
}

// Stop is a no-op for the CLI intake
func (c *CLIIntake) Stop() error {
	return nil
}
