package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	want := []string{"collect", "process", "match", "geocode", "migrate", "runs"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, have[name], "missing subcommand %s", name)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		cmd  string
		flag string
		def  string
	}{
		{"collect", "source", "[]"},
		{"collect", "sources", ""},
		{"process", "source-type", ""},
		{"process", "source-id", "cli"},
		{"process", "save", "false"},
		{"match", "threshold", "0"},
		{"match", "all", "false"},
		{"runs", "limit", "20"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			c, _, err := rootCmd.Find([]string{tt.cmd})
			require.NoError(t, err)
			f := c.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestCommandArgs(t *testing.T) {
	c, _, err := rootCmd.Find([]string{"match"})
	require.NoError(t, err)
	assert.Error(t, c.Args(c, []string{"only-query"}))
	assert.NoError(t, c.Args(c, []string{"q", "a", "b"}))

	c, _, err = rootCmd.Find([]string{"process"})
	require.NoError(t, err)
	assert.Error(t, c.Args(c, nil))
	assert.NoError(t, c.Args(c, []string{"records.json"}))

	c, _, err = rootCmd.Find([]string{"runs"})
	require.NoError(t, err)
	assert.Error(t, c.Args(c, []string{"a", "b"}))
}
