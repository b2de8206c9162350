package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/docql/internal/compiler"
	"github.com/roach88/docql/internal/model"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the resolved model as the compile command reports it.
type CompilationResult struct {
	Entities []EntitySummary         `json:"entities"`
	Enums    map[string][]string     `json:"enums,omitempty"`
	Warnings []compiler.CycleWarning `json:"warnings,omitempty"`
}

// EntitySummary describes one resolved entity type.
type EntitySummary struct {
	Name               string              `json:"name"`
	Collection         string              `json:"collection,omitempty"`
	Base               string              `json:"base,omitempty"`
	Abstract           bool                `json:"abstract,omitempty"`
	Owned              bool                `json:"owned,omitempty"`
	Key                string              `json:"key,omitempty"`
	Discriminator      string              `json:"discriminator,omitempty"`
	DiscriminatorValue any                 `json:"discriminator_value,omitempty"`
	Properties         []PropertySummary   `json:"properties,omitempty"`
	Navigations        []NavigationSummary `json:"navigations,omitempty"`
}

// PropertySummary is a property and its type string.
type PropertySummary struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NavigationSummary is an owned navigation.
type NavigationSummary struct {
	Name       string `json:"name"`
	Target     string `json:"target"`
	Collection bool   `json:"collection,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model-dir>",
		Short: "Compile a CUE entity model",
		Long: `Compile the CUE entity model in a directory and print the resolved
entity types: collections, keys, inheritance, discriminators, properties
and owned navigations.

Owned-navigation cycles are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the resolved model as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, modelDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	res, fileCount, err := LoadModelDir(modelDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", fileCount, modelDir)

	m, err := res.Model()
	if err != nil {
		return outputValidationErrors(formatter, collectValidationErrors(res, err))
	}

	result := summarizeModel(m)
	result.Warnings = compiler.AnalyzeCycles(res.Defs)
	for _, e := range result.Entities {
		formatter.VerboseLog("Compiled entity: %s", e.Name)
	}

	if opts.Output != "" {
		if err := writeModelToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// summarizeModel lists entities in declaration order.
func summarizeModel(m *model.Model) *CompilationResult {
	result := &CompilationResult{Entities: []EntitySummary{}}

	for _, e := range m.Entities() {
		s := EntitySummary{
			Name:     e.Name,
			Abstract: e.Abstract,
			Owned:    e.Owned,
			Key:      e.Key,
		}
		if !e.Owned {
			s.Collection = e.Collection()
		}
		if e.Base != nil {
			s.Base = e.Base.Name
		}
		if e.IsInHierarchy() {
			if p := e.DiscriminatorProperty(); p != nil {
				s.Discriminator = p.Name
			}
			if !e.Abstract {
				s.DiscriminatorValue = e.DiscriminatorValue
			}
		}
		for _, p := range e.Properties {
			s.Properties = append(s.Properties, PropertySummary{Name: p.Name, Type: p.Type.String()})
		}
		for _, n := range e.Navigations {
			s.Navigations = append(s.Navigations, NavigationSummary{
				Name:       n.Name,
				Target:     n.Target.Name,
				Collection: n.Collection,
			})
		}
		result.Entities = append(result.Entities, s)
	}

	if names := m.EnumNames(); len(names) > 0 {
		result.Enums = make(map[string][]string, len(names))
		for _, name := range names {
			info, _ := m.Enum(name)
			result.Enums[name] = info.Names
		}
	}
	return result
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d entit%s, %d enum(s)\n\n",
		len(result.Entities), plural(len(result.Entities), "y", "ies"), len(result.Enums))

	fmt.Fprintln(w, "Entities:")
	for _, e := range result.Entities {
		fmt.Fprintf(w, "  %s", e.Name)
		switch {
		case e.Owned:
			fmt.Fprint(w, " (owned)")
		case e.Base != "":
			fmt.Fprintf(w, " : %s in %s", e.Base, e.Collection)
		default:
			fmt.Fprintf(w, " in %s", e.Collection)
		}
		if e.Abstract {
			fmt.Fprint(w, " [abstract]")
		}
		if e.DiscriminatorValue != nil {
			fmt.Fprintf(w, " [%s=%v]", e.Discriminator, e.DiscriminatorValue)
		}
		fmt.Fprintf(w, ": %d propert%s, %d navigation(s)\n",
			len(e.Properties), plural(len(e.Properties), "y", "ies"), len(e.Navigations))
	}
	fmt.Fprintln(w)

	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  %s\n", warning.Message)
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote resolved model to %s\n", outputFile)
	}

	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// outputLoadError reports a model that could not be loaded. Missing or
// unreadable directories are command errors; CUE and type errors in the
// files are validation failures.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	exitCode := ExitFailure
	switch loadErr.Code {
	case compiler.ErrCodeNotFound, compiler.ErrCodeScanError, compiler.ErrCodeNoFiles:
		exitCode = ExitCommandError
	}

	var details any
	if loadErr.Pos.IsValid() {
		details = map[string]any{
			"file":   loadErr.Pos.Filename(),
			"line":   loadErr.Pos.Line(),
			"column": loadErr.Pos.Column(),
		}
	}
	return formatter.Fail(exitCode, loadErr.Code, loadErr.Message, details)
}

// collectValidationErrors re-runs validation to recover the structured
// errors behind a failed Model call.
func collectValidationErrors(res *compiler.Result, err error) []compiler.ValidationError {
	if errs := compiler.Validate(res.Defs, res.Enums); len(errs) > 0 {
		return errs
	}
	return []compiler.ValidationError{{Field: "model", Message: err.Error(), Code: ErrCodeGeneric}}
}

// writeModelToFile writes the compilation result as indented JSON.
func writeModelToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
