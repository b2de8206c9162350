package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/roach88/docql/internal/compiler"
	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/planspec"
	"github.com/roach88/docql/internal/query"
	"github.com/roach88/docql/internal/queryir"
	"github.com/roach88/docql/internal/store"
	"github.com/roach88/docql/internal/testutil"
	"github.com/roach88/docql/internal/typemap"
)

// Harness is the test execution engine.
// It runs scenarios against a fresh in-memory store with deterministic
// document and query IDs.
type Harness struct {
	store   *store.Store
	model   *model.Model
	builder *planspec.Builder
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load and compile the CUE model
// 2. Create a fresh in-memory database
// 3. Write the seed documents
// 4. Build and run the plan
// 5. Check the expectation and assertions
//
// A failing query is part of the result, not an error; errors are reserved
// for a scenario that cannot be set up.
func Run(scenario *Scenario) (*Result, error) {
	compiled, _, err := compiler.LoadDir(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	m, err := compiled.Model()
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}

	st, err := store.Open(":memory:", store.WithIDGenerator(sequentialIDs()))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:   st,
		model:   m,
		builder: planspec.NewBuilder(m, queryir.NewFactory(typemap.NewRegistry())),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	if err := Seed(ctx, st, m, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	result := NewResult()
	runErr := h.execute(ctx, scenario, result)
	checkExpectation(result, scenario.Expect, runErr)

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs the plan and records the query and documents.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	exec, err := h.builder.Execute(ctx, &scenario.Plan, h.store, scenario.Parameters,
		query.WithLogger(h.logger),
		query.WithQueryIDGenerator(testutil.NewFixedQueryIDGenerator("scenario-"+scenario.Name)),
	)
	if exec != nil {
		result.setQuery(exec.Query)
		if exec.Documents != nil {
			result.Documents = exec.Documents
		}
	}
	if err != nil {
		result.RunError = err.Error()
		h.logger.Info("scenario run failed", "scenario", scenario.Name, "error", err)
		return err
	}
	h.logger.Info("scenario run completed", "scenario", scenario.Name, "documents", len(result.Documents))
	return nil
}

// checkExpectation validates the run against the scenario's expect clause.
// Without an expect clause the run must simply succeed.
func checkExpectation(result *Result, expect *Expectation, runErr error) {
	if expect != nil && expect.Error != "" {
		switch {
		case runErr == nil:
			result.AddError(fmt.Sprintf("expected error containing %q, run succeeded", expect.Error))
		case !containsFold(runErr.Error(), expect.Error):
			result.AddError(fmt.Sprintf("expected error containing %q, got %q", expect.Error, runErr.Error()))
		}
		return
	}
	if runErr != nil {
		result.AddError(fmt.Sprintf("run failed: %v", runErr))
		return
	}
	if expect == nil {
		return
	}
	if expect.Count != nil && len(result.Documents) != *expect.Count {
		result.AddError(fmt.Sprintf("expected %d documents, got %d", *expect.Count, len(result.Documents)))
	}
	if expect.Query != "" && normalizeQuery(expect.Query) != result.QueryText() {
		result.AddError(fmt.Sprintf("query mismatch\n  Expected: %s\n  Actual: %s", normalizeQuery(expect.Query), result.QueryText()))
	}
}

// Seed writes documents into their collections, collections in name order.
// A document of a keyed entity is stored under its key value; other
// documents get an ID from the store's generator.
func Seed(ctx context.Context, st *store.Store, m *model.Model, seed map[string][]map[string]any) error {
	collections := make([]string, 0, len(seed))
	for name := range seed {
		collections = append(collections, name)
	}
	sort.Strings(collections)

	for _, coll := range collections {
		key := keyFor(m, coll)
		records := make([]store.Record, len(seed[coll]))
		for i, raw := range seed[coll] {
			v, err := document.FromAny(raw)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", coll, i, err)
			}
			doc := v.(document.Object)
			id, err := documentID(doc, key)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", coll, i, err)
			}
			records[i] = store.Record{ID: id, Doc: doc}
		}
		if _, err := st.PutMany(ctx, coll, records); err != nil {
			return err
		}
	}
	return nil
}

// keyFor returns the key property of the root entity stored in collection.
func keyFor(m *model.Model, collection string) string {
	if m == nil {
		return ""
	}
	for _, e := range m.Entities() {
		if e.Base == nil && !e.Owned && e.Collection() == collection {
			return e.Key
		}
	}
	return ""
}

func documentID(doc document.Object, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	v, ok := doc[key]
	if !ok {
		return "", nil
	}
	switch val := v.(type) {
	case document.String:
		return string(val), nil
	case document.Int:
		return strconv.FormatInt(int64(val), 10), nil
	case document.Null:
		return "", nil
	}
	text, err := document.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("key %s: %w", key, err)
	}
	return string(text), nil
}

// sequentialIDs yields "seed-0001", "seed-0002", ... for deterministic
// golden output.
func sequentialIDs() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("seed-%04d", n), nil
	}
}
