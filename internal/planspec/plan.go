package planspec

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan is a parsed query plan. Expression fields keep their YAML nodes so
// they can be built once a model is available.
type Plan struct {
	// Entity is the model entity the plan reads.
	Entity string `yaml:"entity"`

	// FromRaw replaces the collection source with raw query text.
	FromRaw *RawSource `yaml:"from_raw,omitempty"`

	// Parameters declares parameter names and their types, e.g. "[]int".
	Parameters map[string]string `yaml:"parameters,omitempty"`

	// Values holds default parameter values.
	Values map[string]any `yaml:"values,omitempty"`

	Where    yaml.Node    `yaml:"where,omitempty"`
	OrderBy  []Ordering   `yaml:"order_by,omitempty"`
	Select   []Projection `yaml:"select,omitempty"`
	Distinct bool         `yaml:"distinct,omitempty"`
	Skip     yaml.Node    `yaml:"skip,omitempty"`
	Take     yaml.Node    `yaml:"take,omitempty"`
}

// RawSource is raw query text with positional {0}, {1}, ... arguments.
type RawSource struct {
	Text string    `yaml:"text"`
	Args yaml.Node `yaml:"args,omitempty"`
}

// Ordering is one order_by entry.
type Ordering struct {
	Expr yaml.Node `yaml:"expr"`
	Desc bool      `yaml:"desc,omitempty"`
}

// Projection is one select entry.
type Projection struct {
	As   string    `yaml:"as"`
	Expr yaml.Node `yaml:"expr"`
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a plan, rejecting unknown top-level fields.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &p, nil
}

// Validate checks the plan's structure. Expressions are checked when the
// plan is built.
func (p *Plan) Validate() error {
	var errs []error
	if p.Entity == "" {
		errs = append(errs, errors.New("entity is required"))
	}
	if p.FromRaw != nil && strings.TrimSpace(p.FromRaw.Text) == "" {
		errs = append(errs, errors.New("from_raw.text is required"))
	}
	for i, o := range p.OrderBy {
		if isAbsent(&o.Expr) {
			errs = append(errs, fmt.Errorf("order_by[%d].expr is required", i))
		}
	}
	seen := make(map[string]bool, len(p.Select))
	for i, s := range p.Select {
		switch {
		case s.As == "":
			errs = append(errs, fmt.Errorf("select[%d].as is required", i))
		case seen[s.As]:
			errs = append(errs, fmt.Errorf("select[%d]: duplicate alias %q", i, s.As))
		}
		seen[s.As] = true
		if isAbsent(&s.Expr) {
			errs = append(errs, fmt.Errorf("select[%d].expr is required", i))
		}
	}
	for name := range p.Values {
		if _, ok := p.Parameters[name]; !ok {
			errs = append(errs, fmt.Errorf("values.%s: parameter not declared", name))
		}
	}
	return errors.Join(errs...)
}

// ParameterNames returns the declared parameter names, sorted.
func (p *Plan) ParameterNames() []string {
	names := make([]string, 0, len(p.Parameters))
	for name := range p.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParameterValues merges overrides over the plan's default values.
func (p *Plan) ParameterValues(overrides map[string]any) map[string]any {
	out := make(map[string]any, len(p.Values)+len(overrides))
	for k, v := range p.Values {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// ParseAssignment parses a name=value argument. The value is read as YAML,
// so "44" is an int, "[1, 2]" a list and "null" nil.
func ParseAssignment(s string) (string, any, error) {
	name, text, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid parameter %q: expected name=value", s)
	}
	var v any
	if err := yaml.Unmarshal([]byte(text), &v); err != nil {
		return "", nil, fmt.Errorf("invalid parameter %q: %w", s, err)
	}
	return name, v, nil
}

func isAbsent(n *yaml.Node) bool {
	return n.Kind == 0
}
