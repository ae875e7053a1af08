package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safescan/recall-cli/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"check", "resolve", "sweep", "brands", "patterns", "import", "export", "migrate", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "recall-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCheckCommand_Flags(t *testing.T) {
	require.NotNil(t, checkCmd.Flags().Lookup("brand"))
	require.NotNil(t, checkCmd.Flags().Lookup("country"))
	require.NotNil(t, checkCmd.Flags().Lookup("stdin"))
}

func TestSweepCommand_Flags(t *testing.T) {
	flag := sweepCmd.Flags().Lookup("allow-rescind")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestBrandsCommand_HasSubcommands(t *testing.T) {
	cmds := brandsCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"suggest", "extract", "add", "list", "prune"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestPatternsCommand_HasSubcommands(t *testing.T) {
	cmds := patternsCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"observe", "validate", "list"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestOpenStore_SQLite(t *testing.T) {
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.Path = filepath.Join(t.TempDir(), "recall.db")

	st, err := openStore(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	c := &config.Config{}
	c.Store.Driver = "oracle"

	_, err := openStore(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}
