package types

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PlanReport records one executed trade plan.
type PlanReport struct {
	ID               string          `yaml:"id" json:"id"`
	Venue            string          `yaml:"venue" json:"venue"`
	StartedAt        time.Time       `yaml:"started_at" json:"started_at"`
	FinishedAt       time.Time       `yaml:"finished_at" json:"finished_at"`
	Analysis         string          `yaml:"analysis,omitempty" json:"analysis,omitempty"`
	IntervalReason   string          `yaml:"interval_reason,omitempty" json:"interval_reason,omitempty"`
	NextCallInterval time.Duration   `yaml:"next_call_interval" json:"next_call_interval"`
	Total            int             `yaml:"total" json:"total"`
	Succeeded        int             `yaml:"succeeded" json:"succeeded"`
	Failed           int             `yaml:"failed" json:"failed"`
	Outcomes         []ActionOutcome `yaml:"outcomes" json:"outcomes"`
}

// NewPlanReport counts successes and failures of outcomes.
func NewPlanReport(id, venue string, startedAt, finishedAt time.Time, outcomes []ActionOutcome) PlanReport {
	report := PlanReport{
		ID:               id,
		Venue:            venue,
		StartedAt:        startedAt,
		FinishedAt:       finishedAt,
		Analysis:         "",
		IntervalReason:   "",
		NextCallInterval: 0,
		Total:            len(outcomes),
		Succeeded:        0,
		Failed:           0,
		Outcomes:         outcomes,
	}

	for _, outcome := range outcomes {
		if outcome.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	return report
}

// FileName is the report's file name inside the report directory.
func (r PlanReport) FileName() string {
	return r.StartedAt.UTC().Format("20060102T150405Z") + "_" + r.ID + ".yaml"
}

// WritePlanReport writes report as YAML into dir, creating dir if needed, and returns the file path.
func WritePlanReport(dir string, report PlanReport) (string, error) {
	data, err := yaml.Marshal(report)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorageFailed, "failed to marshal plan report", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to create report directory %s", dir)
	}

	path := filepath.Join(dir, report.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to write plan report %s", path)
	}

	return path, nil
}

// ReadPlanReport reads a report written by WritePlanReport.
func ReadPlanReport(path string) (PlanReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PlanReport{}, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read plan report %s", path)
	}

	var report PlanReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return PlanReport{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to parse plan report %s", path)
	}

	return report, nil
}
