package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/brain/brain"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "store:\n  path: " + filepath.Join(dir, "db", "brain.sqlite") + "\nembeddings:\n  dimension: 64\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAddSearchGetInfo(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "add",
		"--problem", "cgo build fails on alpine",
		"--solution", "install musl-dev",
		"--explanation", "gcc needs libc headers",
		"--tag", "go", "--tag", "docker")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = execute(t, "--config", cfg, "search", "alpine cgo", "--limit", "3")
	require.NoError(t, err)
	var results []brain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
	assert.Equal(t, []string{"go", "docker"}, results[0].Metadata.Tags)

	out, err = execute(t, "--config", cfg, "search", "alpine cgo", "--exact")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	exactSearch = false

	out, err = execute(t, "--config", cfg, "get", id)
	require.NoError(t, err)
	assert.Contains(t, out, "install musl-dev")

	out, err = execute(t, "--config", cfg, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "notes:")
	assert.Contains(t, out, "sqlite")

	out, err = execute(t, "--config", cfg, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "reindexed 1 notes")
}

func TestAddRequiresContent(t *testing.T) {
	cfg := writeConfig(t)
	problem, solution, explanation = "", "", ""
	_, err := execute(t, "--config", cfg, "add")
	assert.Error(t, err)
}

func TestRelayRequiresNATS(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "--config", cfg, "relay", "--once")
	assert.ErrorContains(t, err, "nats_url")
}
