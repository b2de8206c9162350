package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/compiler"
)

const treeModel = `package tree

entity: Node: {
	owned: true
	properties: Label: "string"
	navigations: Children: {target: "Node", collection: true}
}

entity: Tree: {
	collection: "Trees"
	key:        "Id"
	properties: Id: "int"
	navigations: Root: "Node"
}
`

func findEntity(t *testing.T, result CompilationResult, name string) EntitySummary {
	t.Helper()
	for _, e := range result.Entities {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("entity %s not in result", name)
	return EntitySummary{}
}

func TestCompile_Text(t *testing.T) {
	out, _, err := execute(t, "compile", shopModel)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 7 entities, 1 enum(s)")
	assert.Contains(t, out, "  Address (owned): 2 properties, 0 navigation(s)")
	assert.Contains(t, out, "  Customer in Customers: 6 properties, 2 navigation(s)")
	assert.Contains(t, out, "  Person in People [abstract]")
	assert.Contains(t, out, "  Professor : Teacher in People [Kind=Professor]")
	assert.NotContains(t, out, "Warnings:")
}

func TestCompile_JSON(t *testing.T) {
	out, _, err := execute(t, "compile", "--format", "json", shopModel)
	require.NoError(t, err)

	var result CompilationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)

	require.Len(t, result.Entities, 7)
	assert.Equal(t, map[string][]string{"Status": {"Active", "Suspended", "Closed"}}, result.Enums)

	customer := findEntity(t, result, "Customer")
	assert.Equal(t, "Customers", customer.Collection)
	assert.Equal(t, "Id", customer.Key)
	assert.Empty(t, customer.Discriminator)
	assert.Contains(t, customer.Properties, PropertySummary{Name: "Status", Type: "enum:Status"})
	assert.Contains(t, customer.Properties, PropertySummary{Name: "Age", Type: "int?"})
	assert.Equal(t, []NavigationSummary{
		{Name: "Address", Target: "Address"},
		{Name: "Orders", Target: "Order", Collection: true},
	}, customer.Navigations)

	address := findEntity(t, result, "Address")
	assert.True(t, address.Owned)
	assert.Empty(t, address.Collection)

	person := findEntity(t, result, "Person")
	assert.True(t, person.Abstract)
	assert.Equal(t, "Kind", person.Discriminator)
	assert.Nil(t, person.DiscriminatorValue)

	professor := findEntity(t, result, "Professor")
	assert.Equal(t, "Teacher", professor.Base)
	assert.Equal(t, "People", professor.Collection)
	assert.Equal(t, "Professor", professor.DiscriminatorValue)
}

func TestCompile_OutputFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "model.json")

	out, _, err := execute(t, "compile", shopModel, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote resolved model to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Entities, 7)
}

func TestCompile_CycleWarnings(t *testing.T) {
	dir := writeModel(t, treeModel)

	out, _, err := execute(t, "compile", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Warnings:")
	assert.Contains(t, out, "Self-nesting owned entity: Node -> Node")

	out, _, err = execute(t, "compile", "--format", "json", dir)
	require.NoError(t, err)
	var result CompilationResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, []string{"Node", "Node"}, result.Warnings[0].Path)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		dir      func(t *testing.T) string
		wantExit int
		wantCode string
	}{
		{
			name:     "missing directory",
			dir:      func(t *testing.T) string { return filepath.Join(t.TempDir(), "none") },
			wantExit: ExitCommandError,
			wantCode: compiler.ErrCodeNotFound,
		},
		{
			name:     "no CUE files",
			dir:      func(t *testing.T) string { return t.TempDir() },
			wantExit: ExitCommandError,
			wantCode: compiler.ErrCodeNoFiles,
		},
		{
			name:     "unsupported property type",
			dir:      func(t *testing.T) string { return brokenModel },
			wantExit: ExitFailure,
			wantCode: compiler.ErrInvalidFieldType,
		},
		{
			name: "validation failure",
			dir: func(t *testing.T) string {
				return writeModel(t, "package m\n\nentity: Customer: {\n\tcollection: \"Customers\"\n\tproperties: Name: \"string\"\n}\n")
			},
			wantExit: ExitFailure,
			wantCode: compiler.ErrMissingKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "compile", "--format", "json", tt.dir(t))
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			resp := decodeResponse(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestCompile_MissingArgs(t *testing.T) {
	_, _, err := execute(t, "compile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"type", compiler.ErrInvalidFieldType},
		{"enum.Status", compiler.ErrInvalidFieldType},
		{"navigations.Address", compiler.ErrUnknownReference},
		{"cue", ErrCodeCUE},
		{"other", ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
