package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSeeder(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestSeederCommand(t *testing.T) {
	t.Setenv("REGISTRY_PATH", filepath.Join(t.TempDir(), "prompts.db"))
	t.Setenv("LOG_LEVEL", "error")

	out := runSeeder(t, "--stats")
	assert.Contains(t, out, "No personas found in the registry.")

	out = runSeeder(t)
	assert.Contains(t, out, "Total personas: 6")
	assert.Contains(t, out, "- persona-sherlock: Sherlock Holmes (temperature: 0.7)")

	out = runSeeder(t)
	assert.Contains(t, out, "Persona prompts already exist in the registry.")
	assert.Equal(t, 1, strings.Count(out, "Total personas: 6"))
}

func TestSeederRejectsArguments(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}
