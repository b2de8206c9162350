package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/planspec"
	"github.com/roach88/docql/internal/protoschema"
	"github.com/roach88/docql/internal/query"
	"github.com/roach88/docql/internal/querysql"
	"github.com/roach88/docql/internal/store"
	"github.com/roach88/docql/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Params  []string // name=value overrides
	Explain bool     // print the query without executing it
	Stats   bool     // report query metrics after the run
	Proto   bool     // shape results into messages of the model's protobuf schema

	// QueryIDs overrides the per-enumeration query ID generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	QueryIDs query.QueryIDGenerator
}

// RunResult is the outcome of a plan run.
type RunResult struct {
	Query      string               `json:"query"`
	Parameters []querysql.Parameter `json:"parameters,omitempty"`
	Documents  []document.Object    `json:"documents"`
	Messages   []json.RawMessage    `json:"messages,omitempty"`
	Count      int                  `json:"count"`
	Explain    bool                 `json:"explain,omitempty"`
	Stats      []telemetry.Stat     `json:"stats,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <model-dir> <plan-file>",
		Short: "Run a query plan against the store",
		Long: `Build a YAML query plan against the model, translate it to SQLite JSON
SQL and run it against the configured store.

Parameter values come from the plan's values section and may be
overridden with --param. Values are read as YAML.

With --proto, whole-entity results are shaped into messages of a protobuf
schema derived from the model and printed in protobuf JSON form.

Example:
  docql run --db ./shop.db ./models/shop ./plans/by_id.yaml --param id=44
  docql run ./models/shop ./plans/by_status.yaml --param 'ids=[1, 2]' --explain
  docql run --db ./shop.db ./models/shop ./plans/teachers.yaml --proto --stats`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "parameter override name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "print the generated query without executing it")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "report query metrics after the run")
	cmd.Flags().BoolVar(&opts.Proto, "proto", false, "print results as protobuf JSON messages of the model schema")

	return cmd
}

func runPlan(opts *RunOptions, modelDir, planFile string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	settings, err := opts.Settings()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	logger := opts.Logger(cmd.ErrOrStderr(), settings)

	m, err := LoadModel(modelDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, modelErrorCode(err), err.Error(), nil)
	}

	p, err := planspec.Load(planFile)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodePlan, err.Error(), nil)
	}
	params, err := parseParams(p, opts.Params)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodePlan, err.Error(), nil)
	}
	if opts.Proto && len(p.Select) > 0 {
		return formatter.Fail(ExitCommandError, ErrCodePlan, "--proto needs a plan without a select list", nil)
	}

	st, err := settings.OpenStore(logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	tel := telemetry.New(logger)
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("error shutting down telemetry", "error", err)
		}
	}()

	queryOpts := append(settings.QueryOptions(logger), tel.QueryOptions()...)
	if opts.QueryIDs != nil {
		queryOpts = append(queryOpts, query.WithQueryIDGenerator(opts.QueryIDs))
	}
	builder := newBuilder(m)

	if opts.Explain {
		q, err := builder.Prepare(p, st, params, queryOpts...)
		if err != nil {
			return outputQueryError(formatter, err)
		}
		generated, err := q.GenerateQuery()
		if err != nil {
			return outputQueryError(formatter, err)
		}
		return outputRunResult(formatter, &RunResult{
			Query:      generated.ToQueryString(),
			Parameters: generated.Parameters,
			Documents:  []document.Object{},
			Explain:    true,
		})
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("running plan", "plan", planFile, "entity", p.Entity, "database", settings.Database)
	var result *RunResult
	if opts.Proto {
		result, err = runProto(ctx, m, builder, p, st, params, queryOpts)
	} else {
		result, err = runDocuments(ctx, builder, p, st, params, queryOpts)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "query interrupted", err)
		}
		return outputQueryError(formatter, err)
	}
	logger.Info("plan executed", "entity", p.Entity, "documents", result.Count)

	if opts.Stats {
		result.Stats, err = tel.Collect(ctx)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeQuery, err.Error(), nil)
		}
	}
	return outputRunResult(formatter, result)
}

func runDocuments(ctx context.Context, builder *planspec.Builder, p *planspec.Plan, st *store.Store, params map[string]any, opts []query.Option) (*RunResult, error) {
	exec, err := builder.Execute(ctx, p, st, params, opts...)
	if err != nil {
		return nil, err
	}
	docs := exec.Documents
	if docs == nil {
		docs = []document.Object{}
	}
	return &RunResult{
		Query:      exec.Query.ToQueryString(),
		Parameters: exec.Query.Parameters,
		Documents:  docs,
		Count:      len(docs),
	}, nil
}

// runProto shapes each result into a dynamic message of the plan entity's
// schema message.
func runProto(ctx context.Context, m *model.Model, builder *planspec.Builder, p *planspec.Plan, st *store.Store, params map[string]any, opts []query.Option) (*RunResult, error) {
	schema, err := protoschema.Build(m)
	if err != nil {
		return nil, err
	}
	entity, err := builder.Entity(p)
	if err != nil {
		return nil, err
	}
	md, err := schema.Message(entity.Name)
	if err != nil {
		return nil, err
	}

	shaper := query.ProtoShaper(func() *dynamicpb.Message { return dynamicpb.NewMessage(md) })
	q, err := planspec.PrepareAs(builder, p, st, params, shaper, opts...)
	if err != nil {
		return nil, err
	}
	generated, err := q.GenerateQuery()
	if err != nil {
		return nil, fmt.Errorf("generate %s query: %w", p.Entity, err)
	}
	msgs, err := q.ToList(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, len(msgs))
	for i, msg := range msgs {
		data, err := protojson.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		// protojson varies its whitespace from build to build.
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out[i] = buf.Bytes()
	}
	return &RunResult{
		Query:      generated.ToQueryString(),
		Parameters: generated.Parameters,
		Documents:  []document.Object{},
		Messages:   out,
		Count:      len(out),
	}, nil
}

// parseParams reads --param overrides. Each name must be declared by the
// plan.
func parseParams(p *planspec.Plan, assignments []string) (map[string]any, error) {
	params := make(map[string]any, len(assignments))
	for _, a := range assignments {
		name, value, err := planspec.ParseAssignment(a)
		if err != nil {
			return nil, err
		}
		if _, ok := p.Parameters[name]; !ok {
			return nil, fmt.Errorf("parameter %q not declared by plan (declared: %v)", name, p.ParameterNames())
		}
		params[name] = value
	}
	return params, nil
}

// outputQueryError reports a plan that could not be built or run. Plan
// errors carry their location in the plan file.
func outputQueryError(formatter *OutputFormatter, err error) error {
	var details any
	var planErr *planspec.PlanError
	if errors.As(err, &planErr) {
		details = map[string]any{"path": planErr.Path, "line": planErr.Line}
	}
	return formatter.Fail(ExitFailure, ErrCodeQuery, err.Error(), details)
}

func outputRunResult(formatter *OutputFormatter, result *RunResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, result.Query)
	if result.Explain {
		return nil
	}
	fmt.Fprintln(w)
	for _, doc := range result.Documents {
		text, err := document.MarshalCanonical(doc)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(text))
	}
	for _, msg := range result.Messages {
		fmt.Fprintln(w, string(msg))
	}
	fmt.Fprintf(w, "(%d document(s))\n", result.Count)

	if len(result.Stats) > 0 {
		fmt.Fprintln(w, "\nStats:")
		for _, stat := range result.Stats {
			if stat.Count > 0 {
				fmt.Fprintf(w, "  %s: %d (%d recorded)\n", stat.Name, stat.Value, stat.Count)
			} else {
				fmt.Fprintf(w, "  %s: %d\n", stat.Name, stat.Value)
			}
		}
	}
	return nil
}
