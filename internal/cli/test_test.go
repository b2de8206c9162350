package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario copies the customer_by_id scenario into dir with an
// absolute model path.
func writeScenario(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(scenariosPath, "customer_by_id.yaml"))
	require.NoError(t, err)

	model, err := filepath.Abs(shopModel)
	require.NoError(t, err)
	content := strings.Replace(string(data), "name: customer_by_id", "name: "+name, 1)
	content = strings.Replace(content, "model: ../models/shop", "model: "+model, 1)

	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandScenarios(t *testing.T) {
	out, _, err := execute(t, "test", scenariosPath)
	require.NoError(t, err, "output: %s", out)

	assert.Contains(t, out, "✓ customer_by_id")
	assert.Contains(t, out, "✓ teachers_by_hierarchy")
	assert.Contains(t, out, "Test Summary: 5 passed, 0 failed, 5 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, _, err := execute(t, "test", scenariosPath, "--filter", "customer_*")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ customer_by_id")
	assert.NotContains(t, out, "teachers_by_hierarchy")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, _, err := execute(t, "test", scenariosPath, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestTestCommandJSON(t *testing.T) {
	out, _, err := execute(t, "test", "--format", "json", scenariosPath, "--filter", "*_by_*")
	require.NoError(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Passed)
	for _, sr := range result.Scenarios {
		assert.True(t, sr.Pass, "%s: %v", sr.Name, sr.Errors)
		assert.Contains(t, sr.Query, "SELECT ")
	}
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "ann")

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ ann (golden updated)")

	golden := filepath.Join(dir, "golden", "ann.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"ann"`)

	out, _, err = execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ ann\n")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "ann")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "ann.golden"), []byte("{}\n"), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ ann")
	assert.Contains(t, out, "result does not match golden file")

	out, _, err = execute(t, "test", "--format", "json", dir)
	require.Error(t, err)
	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommandBrokenScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\n"), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios path not found")
}

func TestTestCommandEmptyDirectory(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestFilterScenarios(t *testing.T) {
	files := []string{"a/customer_by_id.yaml", "a/teachers.yaml", "b/customer_list.yml"}

	tests := []struct {
		filter string
		want   []string
	}{
		{"", files},
		{"customer_*", []string{"a/customer_by_id.yaml", "b/customer_list.yml"}},
		{"teachers", []string{"a/teachers.yaml"}},
		{"nothing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got, err := filterScenarios(files, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
