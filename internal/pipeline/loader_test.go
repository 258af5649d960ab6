package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `
final: report
nodes:
  - name: topic
    template: Name one programming language.
    model: small
  - name: facts
    kind: JSON
    model: large
    template: |
      List facts about {topic} shaped like
      ` + "```json" + `
      {"k": "a fact"}
      ` + "```" + `
    schema:
      type: object
      properties:
        k: {type: string}
      required: [k]
  - name: report
    template: "Write about {topic} using {facts.k}."
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile_DeclaresNodes(t *testing.T) {
	f, err := LoadFile(writeFile(t, sampleFile))
	require.NoError(t, err)
	assert.Equal(t, "report", f.Final)
	require.Len(t, f.Nodes, 3)

	e := newTestEngine(t, nil)
	require.NoError(t, f.Declare(e))
	assert.Equal(t, []string{"topic", "facts", "report"}, e.Names())

	facts, ok := e.Node("facts")
	require.True(t, ok)
	assert.Equal(t, KindJSON, facts.Kind)
	require.NotNil(t, facts.Schema)
	assert.Equal(t, []string{"k"}, facts.Schema.Required)
	assert.Equal(t, []string{"topic"}, Placeholders(facts.Prompt))

	report, _ := e.Node("report")
	assert.Equal(t, "large", report.Model, "no model falls back to the default")
	assert.Equal(t, []string{"facts", "topic"}, report.Dependencies)
}

func TestLoadFile_FinalDefaultsToLastNode(t *testing.T) {
	f, err := LoadFile(writeFile(t, "nodes:\n  - name: a\n    template: hi\n  - name: b\n    template: \"{a}\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "b", f.Final)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(writeFile(t, "final: x\n"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "nodes: [\n"))
	assert.Error(t, err)

	f, err := LoadFile(writeFile(t, "nodes:\n  - name: a\n    kind: xml\n    template: hi\n"))
	require.NoError(t, err)
	var decl *DeclarationError
	assert.ErrorAs(t, f.Declare(newTestEngine(t, nil)), &decl)
}
