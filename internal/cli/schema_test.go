package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot() *cobra.Command {
	root := &cobra.Command{Use: "semantrics", Short: "search client"}
	root.PersistentFlags().String("interface-key", "", "Collector interface key")
	AddHelpJSONFlag(root)

	query := &cobra.Command{Use: "query <text>", Short: "Run one search", Run: func(*cobra.Command, []string) {}}
	query.Flags().Int("open", 0, "Click result N")
	query.Flags().Bool("json", false, "Output as JSON")

	hidden := &cobra.Command{Use: "debug", Hidden: true, Run: func(*cobra.Command, []string) {}}

	root.AddCommand(query, hidden)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(testRoot())

	assert.Equal(t, "semantrics", schema.Name)
	require.Len(t, schema.Flags, 1)
	assert.Equal(t, "interface-key", schema.Flags[0].Name)
	assert.True(t, schema.Flags[0].Persistent)

	require.Len(t, schema.Subcommands, 1, "hidden and help commands are skipped")
	query := schema.Subcommands[0]
	assert.Equal(t, "query", query.Name)
	assert.Equal(t, "query <text>", query.Use)

	names := make([]string, 0, len(query.Flags))
	for _, f := range query.Flags {
		names = append(names, f.Name)
		assert.False(t, f.Persistent)
	}
	assert.ElementsMatch(t, []string{"open", "json"}, names)
}

func TestHelpJSONTarget(t *testing.T) {
	root := testRoot()

	_, ok := HelpJSONTarget(root, []string{"query", "react"})
	assert.False(t, ok)

	target, ok := HelpJSONTarget(root, []string{"query", "--help-json"})
	require.True(t, ok)
	assert.Equal(t, "query", target.Name())

	target, ok = HelpJSONTarget(root, []string{"--help-json"})
	require.True(t, ok)
	assert.Equal(t, "semantrics", target.Name())

	target, ok = HelpJSONTarget(root, []string{"unknown", "--help-json"})
	require.True(t, ok)
	assert.Equal(t, "semantrics", target.Name())
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, testRoot()))

	var schema CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))
	assert.Equal(t, "search client", schema.Description)
}
