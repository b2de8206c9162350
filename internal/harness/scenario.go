package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/docql/internal/planspec"
)

// Scenario defines a conformance test scenario.
// A scenario seeds a fresh store, runs one query plan against it and checks
// the generated query and its results.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the directory holding the CUE entity model.
	// Relative paths are resolved against the scenario file location.
	Model string `yaml:"model"`

	// Seed maps collection names to the documents written before the query
	// runs. Documents of an entity with a key are stored under the key's
	// value; others get sequential IDs.
	Seed map[string][]map[string]any `yaml:"seed,omitempty"`

	// Plan is the query plan to run.
	Plan planspec.Plan `yaml:"plan"`

	// Parameters override the plan's default parameter values.
	Parameters map[string]any `yaml:"parameters,omitempty"`

	// Expect checks the outcome of the run as a whole.
	Expect *Expectation `yaml:"expect,omitempty"`

	// Assertions validate the results and the store.
	// Supported types: result_contains, result_order, result_count,
	// query_contains, stored_document
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expectation specifies the expected outcome of a run.
type Expectation struct {
	// Count is the expected number of result documents.
	Count *int `yaml:"count,omitempty"`

	// Query is the exact expected query text, without parameter comments.
	Query string `yaml:"query,omitempty"`

	// Error is a substring of the expected failure. When set, the run must
	// fail.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates results or stored state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "result_contains": some result document matches Where
	// - "result_order": the Field values of the results equal Values
	// - "result_count": exactly Count result documents match Where
	// - "query_contains": the query text contains Text
	// - "stored_document": the stored document Collection/ID matches Expect
	Type string `yaml:"type"`

	// Where is a subset match on result documents (used by result_contains
	// and result_count).
	Where map[string]any `yaml:"where,omitempty"`

	// Field is a dotted document path (used by result_order).
	Field string `yaml:"field,omitempty"`

	// Values are the expected field values in order (used by result_order).
	Values []any `yaml:"values,omitempty"`

	// Count is the expected number of matches (used by result_count).
	Count int `yaml:"count,omitempty"`

	// Text is the expected query fragment (used by query_contains).
	Text string `yaml:"text,omitempty"`

	// Collection and ID locate a stored document (used by stored_document).
	Collection string `yaml:"collection,omitempty"`
	ID         string `yaml:"id,omitempty"`

	// Expect contains expected field values (used by stored_document).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertResultContains = "result_contains"
	AssertResultOrder    = "result_order"
	AssertResultCount    = "result_count"
	AssertQueryContains  = "query_contains"
	AssertStoredDocument = "stored_document"
)

// LoadScenario reads and parses a scenario YAML file, resolving the model
// path relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the model path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) && basePath != "" {
		scenario.Model = filepath.Join(basePath, scenario.Model)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario with strict field validation (catches
// typos like "assertion:" vs "assertions:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Model == "" {
		return fmt.Errorf("model directory is required")
	}

	if err := s.Plan.Validate(); err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion[%d]: %w", i, err)
		}
	}
	return nil
}

// validateAssertion checks that an assertion has the fields its type needs.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertResultContains:
		if len(a.Where) == 0 {
			return fmt.Errorf("%s requires 'where' field", a.Type)
		}
	case AssertResultOrder:
		if a.Field == "" {
			return fmt.Errorf("%s requires 'field' field", a.Type)
		}
	case AssertResultCount:
		if a.Count < 0 {
			return fmt.Errorf("%s requires non-negative 'count'", a.Type)
		}
	case AssertQueryContains:
		if a.Text == "" {
			return fmt.Errorf("%s requires 'text' field", a.Type)
		}
	case AssertStoredDocument:
		if a.Collection == "" || a.ID == "" {
			return fmt.Errorf("%s requires 'collection' and 'id' fields", a.Type)
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
