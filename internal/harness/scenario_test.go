package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join(scenarioDir, "customer_by_id.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "customer_by_id", s.Name)
	assert.Equal(t, filepath.Join(scenarioDir, "../models/shop"), s.Model)
	require.Len(t, s.Seed["Customers"], 3)
	assert.Equal(t, "Customer", s.Plan.Entity)
	assert.Equal(t, map[string]string{"id": "int"}, s.Plan.Parameters)
	assert.Equal(t, map[string]any{"id": 44}, s.Parameters)
	require.NotNil(t, s.Expect)
	require.NotNil(t, s.Expect.Count)
	assert.Equal(t, 1, *s.Expect.Count)
	require.Len(t, s.Assertions, 2)
	assert.Equal(t, AssertStoredDocument, s.Assertions[1].Type)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: s
description: d
model: models/shop
plan: {entity: Customer}
`)

	s, err := LoadScenarioWithBasePath(path, "/base")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/base", "models/shop"), s.Model)

	s, err = LoadScenarioWithBasePath(path, "")
	require.NoError(t, err)
	assert.Equal(t, "models/shop", s.Model)
}

func TestLoadScenario_AbsoluteModel(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: s
description: d
model: /models/shop
plan: {entity: Customer}
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "/models/shop", s.Model)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: s\ndescription: d\nmodel: m\nplan: {entity: C}\nassertion: []\n",
			wantErr: "field assertion not found",
		},
		{
			name:    "unknown plan field",
			content: "name: s\ndescription: d\nmodel: m\nplan: {entity: C, filter: {}}\n",
			wantErr: "field filter not found",
		},
		{
			name:    "missing name",
			content: "description: d\nmodel: m\nplan: {entity: C}\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: s\nmodel: m\nplan: {entity: C}\n",
			wantErr: "description is required",
		},
		{
			name:    "missing model",
			content: "name: s\ndescription: d\nplan: {entity: C}\n",
			wantErr: "model directory is required",
		},
		{
			name:    "missing plan entity",
			content: "name: s\ndescription: d\nmodel: m\n",
			wantErr: "plan: entity is required",
		},
		{
			name:    "assertion without type",
			content: "name: s\ndescription: d\nmodel: m\nplan: {entity: C}\nassertions: [{text: x}]\n",
			wantErr: "assertion[0]: type is required",
		},
		{
			name:    "unknown assertion type",
			content: "name: s\ndescription: d\nmodel: m\nplan: {entity: C}\nassertions: [{type: trace_contains}]\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "contains without where",
			content: "name: s\ndescription: d\nmodel: m\nplan: {entity: C}\nassertions: [{type: result_contains}]\n",
			wantErr: "result_contains requires 'where' field",
		},
		{
			name:    "order without field",
			content: "name: s\ndescription: d\nmodel: m\nplan: {entity: C}\nassertions: [{type: result_order, values: [1]}]\n",
			wantErr: "result_order requires 'field' field",
		},
		{
			name:    "negative count",
			content: "name: s\ndescription: d\nmodel: m\nplan: {entity: C}\nassertions: [{type: result_count, count: -1}]\n",
			wantErr: "non-negative 'count'",
		},
		{
			name:    "query_contains without text",
			content: "name: s\ndescription: d\nmodel: m\nplan: {entity: C}\nassertions: [{type: query_contains}]\n",
			wantErr: "query_contains requires 'text' field",
		},
		{
			name:    "stored_document without id",
			content: "name: s\ndescription: d\nmodel: m\nplan: {entity: C}\nassertions: [{type: stored_document, collection: C}]\n",
			wantErr: "requires 'collection' and 'id' fields",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
