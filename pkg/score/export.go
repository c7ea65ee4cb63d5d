package score

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mchmarny/relscore/pkg/data"
)

const exportFileMode = 0644

// Scores is the flat score block of an export.
type Scores struct {
	Total     float64 `json:"total" yaml:"total"`
	Volume    float64 `json:"volume" yaml:"volume"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Temporal  float64 `json:"temporal" yaml:"temporal"`
	Network   float64 `json:"network" yaml:"network"`
	Risk      float64 `json:"risk" yaml:"risk"`
}

// Report is the serialized form of a RelationshipScore.
type Report struct {
	Relationship   data.Pair `json:"relationship" yaml:"relationship"`
	Scores         Scores    `json:"scores" yaml:"scores"`
	Details        Details   `json:"details" yaml:"details"`
	Interpretation string    `json:"interpretation" yaml:"interpretation"`
	Timestamp      string    `json:"timestamp" yaml:"timestamp"`
}

// NewReport wraps r with its interpretation and the evaluation time.
func NewReport(r *RelationshipScore, at time.Time) *Report {
	return &Report{
		Relationship: data.Pair{From: r.From, To: r.To},
		Scores: Scores{
			Total:     r.Total,
			Volume:    r.Volume,
			Frequency: r.Frequency,
			Temporal:  r.Temporal,
			Network:   r.Network,
			Risk:      r.Risk,
		},
		Details:        r.Details,
		Interpretation: Interpret(r.Total),
		Timestamp:      at.Format(time.RFC3339),
	}
}

// Report scores from -> to and returns the export document.
func (s *Scorer) Report(ctx context.Context, from, to string) (*Report, error) {
	r, err := s.Score(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return NewReport(r, s.now()), nil
}

// Export scores from -> to and writes the report as indented JSON to path.
func (s *Scorer) Export(ctx context.Context, from, to, path string) (*Report, error) {
	if path == "" {
		return nil, fmt.Errorf("export path required")
	}

	rep, err := s.Report(ctx, from, to)
	if err != nil {
		return nil, err
	}

	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, b, exportFileMode); err != nil {
		return nil, fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return rep, nil
}
