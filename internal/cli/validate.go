package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/docql/internal/compiler"
	"github.com/roach88/docql/internal/planspec"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Plans []string // plan files checked against the model
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
	Plans    []string                   `json:"plans,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <model-dir>",
		Short: "Validate a model and, optionally, query plans",
		Long: `Validate the CUE entity model in a directory without printing it.

Reports every validation error at once: missing keys, unknown base or
navigation targets, misplaced discriminators and inheritance cycles.
With --plan, each plan file is also built against the model.

Exit codes:
  0 - Model and plans are valid
  1 - Validation failed
  2 - Command error (directory not found, no CUE files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Plans, "plan", nil, "plan file to build against the model (repeatable)")

	return cmd
}

func runValidate(opts *ValidateOptions, modelDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	res, fileCount, err := LoadModelDir(modelDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", fileCount, modelDir)

	if errs := compiler.Validate(res.Defs, res.Enums); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	m, err := res.Model()
	if err != nil {
		return outputValidationErrors(formatter, collectValidationErrors(res, err))
	}

	var planErrs []compiler.ValidationError
	builder := newBuilder(m)
	for _, path := range opts.Plans {
		formatter.VerboseLog("Building plan: %s", path)
		if err := validatePlan(builder, path); err != nil {
			planErrs = append(planErrs, compiler.ValidationError{
				Field:   path,
				Message: err.Error(),
				Code:    ErrCodePlan,
			})
		}
	}
	if len(planErrs) > 0 {
		return outputValidationErrors(formatter, planErrs)
	}

	return outputValidateSuccess(formatter, ValidationResult{
		Valid:    true,
		Warnings: compiler.AnalyzeCycles(res.Defs),
		Plans:    opts.Plans,
	})
}

func validatePlan(builder *planspec.Builder, path string) error {
	p, err := planspec.Load(path)
	if err != nil {
		return err
	}
	_, err = builder.Build(p)
	return err
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Model valid")
	for _, p := range result.Plans {
		fmt.Fprintf(formatter.Writer, "✓ Plan valid: %s\n", p)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "warning: %s\n", w.Message)
	}
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n", err.Field)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
