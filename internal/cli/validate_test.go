package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/compiler"
)

const invalidModel = `package m

entity: Customer: {
	collection: "Customers"
	properties: Name: "string"
	navigations: Address: "Address"
}

entity: Student: base: "Person"
`

func TestValidate_Valid(t *testing.T) {
	out, _, err := execute(t, "validate", shopModel)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Model valid")
}

func TestValidate_ValidJSON(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", shopModel)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	dir := writeModel(t, invalidModel)

	out, _, err := execute(t, "validate", "--format", "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with")

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)

	codes := make(map[string]bool)
	for _, e := range result.Errors {
		codes[e.Code] = true
	}
	assert.True(t, codes[compiler.ErrMissingKey], "errors: %v", result.Errors)
	assert.True(t, codes[compiler.ErrUnknownReference], "errors: %v", result.Errors)
	require.NotNil(t, resp.Error)
	assert.Equal(t, result.Errors[0].Code, resp.Error.Code)
}

func TestValidate_Text(t *testing.T) {
	out, _, err := execute(t, "validate", writeModel(t, invalidModel))
	require.Error(t, err)

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "entity.Customer.key")
	assert.Contains(t, out, compiler.ErrMissingKey+": key is required")
}

func TestValidate_Warnings(t *testing.T) {
	out, _, err := execute(t, "validate", writeModel(t, treeModel))
	require.NoError(t, err)
	assert.Contains(t, out, "warning: Self-nesting owned entity: Node -> Node")
}

func TestValidate_Plans(t *testing.T) {
	good := filepath.Join(plansDir, "customer_by_id.yaml")
	teachers := filepath.Join(plansDir, "teachers.yaml")

	out, _, err := execute(t, "validate", shopModel, "--plan", good, "--plan", teachers)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Plan valid: "+good)
	assert.Contains(t, out, "✓ Plan valid: "+teachers)
}

func TestValidate_InvalidPlans(t *testing.T) {
	badProp := filepath.Join(t.TempDir(), "bad_prop.yaml")
	require.NoError(t, os.WriteFile(badProp, []byte("entity: Customer\nwhere:\n  eq: [{prop: Email}, 1]\n"), 0o644))

	tests := []struct {
		name    string
		plan    string
		wantMsg string
	}{
		{"unknown entity", filepath.Join(plansDir, "unknown_entity.yaml"), `unknown entity "Invoice"`},
		{"unknown property", badProp, "Email"},
		{"missing file", filepath.Join(t.TempDir(), "none.yaml"), "failed to read plan file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "validate", "--format", "json", shopModel, "--plan", tt.plan)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var result ValidationResult
			decodeResponse(t, out, &result)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, ErrCodePlan, result.Errors[0].Code)
			assert.Equal(t, tt.plan, result.Errors[0].Field)
			assert.Contains(t, result.Errors[0].Message, tt.wantMsg)
		})
	}
}

func TestValidate_MissingDirectory(t *testing.T) {
	out, _, err := execute(t, "validate", filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+compiler.ErrCodeNotFound+"]")
}
