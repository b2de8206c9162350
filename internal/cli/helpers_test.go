package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	shopModel     = filepath.Join("..", "..", "testdata", "models", "shop")
	brokenModel   = filepath.Join("..", "..", "testdata", "models", "broken")
	plansDir      = filepath.Join("..", "..", "testdata", "plans")
	shopSeed      = filepath.Join("..", "..", "testdata", "seed", "shop.yaml")
	scenariosPath = filepath.Join("..", "..", "testdata", "scenarios")
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeModel writes a single-file CUE model into a temp dir.
func writeModel(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.cue"), []byte(content), 0o644))
	return dir
}

// decodeResponse decodes a CLIResponse whose data is unmarshaled into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

// seededDatabase loads the shop seed into a fresh database file.
func seededDatabase(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "shop.db")
	_, _, err := execute(t, "load", "--db", db, shopModel, shopSeed)
	require.NoError(t, err)
	return db
}
