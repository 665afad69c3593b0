package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "sqlite:///"+filepath.Join(dir, "vectors.db"))
	t.Setenv("SQLALCHEMY_DATABASE_URL", "")
	t.Setenv("SQLALCHEMY_DATABASE_URI", "")
	t.Setenv("POLICYINDEX_EMBEDDING_PROVIDER", "local")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func TestVersionCmd(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "policyindex version test-version-1.0.0")
	assert.Contains(t, out, "Build Mode:")
}

func TestRootCmd_Commands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"build", "query", "list", "serve", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestBuildListQuery(t *testing.T) {
	dir := setupEnv(t)
	docs := filepath.Join(dir, "policies")
	require.NoError(t, os.Mkdir(docs, 0o755))

	out, err := execute(t, "build", "--dir", docs)
	require.NoError(t, err, "empty directory is a warning, not a failure")
	assert.Contains(t, out, "No .pdf or .txt documents found")

	require.NoError(t, os.WriteFile(filepath.Join(docs, "travel.txt"),
		[]byte("Book all flights through the travel portal."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "Leave Policy.txt"),
		[]byte("Employees accrue annual leave monthly.\fSick leave requires a doctor's note."), 0o644))

	out, err = execute(t, "build", "--dir", docs, "--chunk-size", "50", "--overlap", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 of 2 documents (3 chunks")

	out, err = execute(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "Leave Policy.txt\ntravel.txt\n", out)

	out, err = execute(t, "query", "flights", "travel", "--top-k", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] travel.txt p.1")
	assert.NotContains(t, out, "[2]")
}

func TestQuery_EmptyIndex(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "query", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policyindex build")
}
