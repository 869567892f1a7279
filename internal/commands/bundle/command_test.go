// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bundle

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crewforge/crewforge/internal/bundle"
	"github.com/crewforge/crewforge/internal/commands/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()
	assert.Equal(t, "bundle <dir>...", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("pattern"))
	assert.NotNil(t, cmd.Flags().Lookup("output"))
	assert.NotNil(t, cmd.Flags().Lookup("cache-ttl"))
}

func TestBundleToStdout(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"a.yaml": "x: 1\n",
		"b.yaml": "# comment\ny: 2",
	})

	stdout, _, err := execute(t, dir)
	require.NoError(t, err)

	blob := strings.TrimSuffix(stdout, "\n")
	assert.Equal(t, "x: 1\ny: 2\n", bundle.Unescape(blob))
}

func TestBundleToFile(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"a.yaml": "x: 1\n"})
	out := filepath.Join(t.TempDir(), "bundle.txt")

	stdout, _, err := execute(t, dir, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "bundled 1 files")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "x: 1\n", bundle.Unescape(string(data)))
}

func TestBundlePatternFilter(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"crews/main.yaml": "crew: main\n",
		"notes.yaml":      "note: skip\n",
	})

	stdout, _, err := execute(t, dir, "--pattern", "crews/*.yaml")
	require.NoError(t, err)
	assert.Contains(t, bundle.Unescape(stdout), "crew: main")
	assert.NotContains(t, stdout, "skip")
}

func TestBundleInvalidFile(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"bad.yaml": "a: [1, 2\n",
	})

	_, stderr, err := execute(t, dir)
	require.Error(t, err)
	var exitErr *shared.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, shared.ExitInvalidDocument, exitErr.Code)
	assert.Contains(t, stderr, "bad.yaml")
}

func TestBundleNoMatches(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := execute(t, dir)
	require.Error(t, err)
	assert.Contains(t, stderr, "no template files matched")
}

func TestBundleMultipleDirs(t *testing.T) {
	dirA := writeTemplates(t, map[string]string{"a.yaml": "first: 1\n"})
	dirB := writeTemplates(t, map[string]string{"b.yaml": "second: 2\n"})

	stdout, _, err := execute(t, dirA, dirB)
	require.NoError(t, err)

	plain := bundle.Unescape(strings.TrimSuffix(stdout, "\n"))
	assert.Equal(t, "first: 1\nsecond: 2\n", plain)
}

func TestBundleCacheTTLRepeatedDir(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"a.yaml": "x: 1\n"})

	stdout, _, err := execute(t, dir, dir, "--cache-ttl", "1m")
	require.NoError(t, err)

	plain := bundle.Unescape(strings.TrimSuffix(stdout, "\n"))
	assert.Equal(t, "x: 1\nx: 1\n", plain)
}

func TestBundleJSONOutput(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"a.yaml": "x: 1\n",
		"b.yaml": "y: 2\n",
	})

	var buf bytes.Buffer
	restore := shared.SetJSONWriterForTest(&buf)
	defer restore()
	shared.SetJSONForTest(true)
	defer shared.SetJSONForTest(false)

	_, _, err := execute(t, dir)
	require.NoError(t, err)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "bundle", resp["command"])
	assert.Len(t, resp["files"], 2)
	assert.Equal(t, "x: 1\ny: 2\n", bundle.Unescape(resp["blob"].(string)))
}
