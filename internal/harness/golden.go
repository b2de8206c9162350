package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/docql/internal/document"
)

// Snapshot captures the observable outcome of a scenario execution.
// It is serialized as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Query        string
	Parameters   []map[string]any
	Documents    []document.Object
	RunError     string
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(scenarioName string, result *Result) *Snapshot {
	params := make([]map[string]any, len(result.Parameters))
	for i, p := range result.Parameters {
		params[i] = map[string]any{
			"name":   p.Name,
			"source": p.Source,
			"value":  p.Value,
		}
	}
	return &Snapshot{
		ScenarioName: scenarioName,
		Query:        result.Query,
		Parameters:   params,
		Documents:    result.Documents,
		RunError:     result.RunError,
	}
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	docs := make([]any, len(s.Documents))
	for i, d := range s.Documents {
		docs[i] = d
	}
	params := make([]any, len(s.Parameters))
	for i, p := range s.Parameters {
		params[i] = p
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"documents":     docs,
	}
	if s.Query != "" {
		result["query"] = s.Query
	}
	if len(params) > 0 {
		result["parameters"] = params
	}
	if s.RunError != "" {
		result["run_error"] = s.RunError
	}
	return result
}

// MarshalCanonical serializes the snapshot.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	return document.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
