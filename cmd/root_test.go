package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bubble-cli/internal/geometry"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"generate", "summarize", "runs", "serve", "upload", "postcodes"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "bubble-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestGenerateCommand_Flags(t *testing.T) {
	for flag, def := range map[string]string{
		"type":        "constituencies",
		"kernel":      "geos",
		"limit":       "200",
		"exclusions":  "false",
		"padding":     "0",
		"concurrency": "4",
		"no-images":   "false",
		"no-store":    "false",
	} {
		f := generateCmd.Flags().Lookup(flag)
		require.NotNil(t, f, "generate should have --%s", flag)
		assert.Equal(t, def, f.DefValue, flag)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestUploadCommand_Flags(t *testing.T) {
	for _, name := range []string{"type", "prefix", "daily-budget", "bid-amount", "dry-run"} {
		assert.NotNil(t, uploadCmd.Flags().Lookup(name), "upload should have --%s", name)
	}
}

func TestPostcodesCommand_Flags(t *testing.T) {
	f := postcodesCmd.Flags().Lookup("top")
	require.NotNil(t, f)
	assert.Equal(t, "20", f.DefValue)
	assert.NotNil(t, postcodesCmd.Flags().Lookup("output"))
	assert.Error(t, postcodesCmd.Args(postcodesCmd, nil))
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "expected runs subcommand %q", name)
	}
}

func TestKernelFactory(t *testing.T) {
	for _, name := range []string{"", "planar", "geos"} {
		f, err := kernelFactory(name)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}
	_, err := kernelFactory("cgal")
	assert.Error(t, err)
}

func TestKernelFactory_Kinds(t *testing.T) {
	for _, tt := range []struct {
		name     string
		repairer bool
	}{
		{"", true},
		{"geos", true},
		{"planar", false},
	} {
		f, err := kernelFactory(tt.name)
		require.NoError(t, err, tt.name)
		_, ok := f().(geometry.Repairer)
		assert.Equal(t, tt.repairer, ok, "kernel %q", tt.name)
	}
}
