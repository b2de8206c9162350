package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/docql/internal/harness"
)

// LoadResult reports the documents written per collection.
type LoadResult struct {
	Database    string         `json:"database"`
	Collections map[string]int `json:"collections"`
	Total       int            `json:"total"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <model-dir> <seed-file>",
		Short: "Load documents into the store",
		Long: `Write documents from a YAML or JSON seed file into the configured store.

The seed file maps collection names to lists of documents:

  Customers:
    - {Id: 44, Name: Ann, Status: Active}
  People:
    - {Id: 1, Kind: Teacher, Name: Tia}

Documents of a keyed entity are stored under their key value, replacing
any existing document with that ID; other documents get generated IDs.

Example:
  docql load --db ./shop.db ./models/shop ./seed.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runLoad(opts *RootOptions, modelDir, seedFile string, cmd *cobra.Command) error {
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

	seed, err := loadSeedFile(seedFile)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSeed, err.Error(), nil)
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

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Debug("seeding store", "database", settings.Database, "collections", len(seed))
	if err := harness.Seed(ctx, st, m, seed); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, err.Error(), nil)
	}

	result := LoadResult{Database: settings.Database, Collections: make(map[string]int, len(seed))}
	for collection, docs := range seed {
		result.Collections[collection] = len(docs)
		result.Total += len(docs)
	}
	logger.Info("documents loaded", "total", result.Total)

	if formatter.JSON() {
		return formatter.Success(result)
	}

	names := make([]string, 0, len(result.Collections))
	for name := range result.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Loaded %d document(s) into %s\n", result.Total, result.Database)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, result.Collections[name])
	}
	return nil
}

// loadSeedFile reads collection-to-documents seed data. JSON files parse
// as YAML.
func loadSeedFile(path string) (map[string][]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed map[string][]map[string]any
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	if len(seed) == 0 {
		return nil, fmt.Errorf("seed file %s has no collections", path)
	}
	return seed, nil
}

// modelErrorCode picks the code of a LoadModel failure.
func modelErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
