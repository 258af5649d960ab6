package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/webwright/webwright/internal/registry"
)

// fakeCompleter answers from a prompt-keyword table and records prompts.
type fakeCompleter struct {
	mu      sync.Mutex
	answers map[string]string // substring of prompt -> reply
	fail    map[string]error
	prompts []string
	json    []bool
}

func (f *fakeCompleter) answer(prompt string, asJSON bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.json = append(f.json, asJSON)
	for key, err := range f.fail {
		if strings.Contains(prompt, key) {
			return "", err
		}
	}
	for key, reply := range f.answers {
		if strings.Contains(prompt, key) {
			return reply, nil
		}
	}
	return "", errors.New("no answer for " + prompt)
}

func (f *fakeCompleter) CompleteWith(_ context.Context, _ string, prompt string) (string, error) {
	return f.answer(prompt, false)
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, _ string, prompt string) (string, error) {
	return f.answer(prompt, true)
}

func declare(t *testing.T, e *Engine, specs ...NodeSpec) {
	t.Helper()
	for _, s := range specs {
		_, err := e.CreateNode(s)
		require.NoError(t, err)
	}
}

func TestRun_PassesValuesDownstream(t *testing.T) {
	fc := &fakeCompleter{answers: map[string]string{
		"pick a city": "Lisbon",
		"facts about": "```json\n{\"k\":\"sunny\",\"list\":[\"tram\",\"fado\"]}\n```",
		"Summarise":   "done",
	}}
	e := newTestEngine(t, NewLLMBackend(fc, 2, zaptest.NewLogger(t)))
	declare(t, e,
		NodeSpec{Name: "city", Template: "pick a city", Model: "small"},
		NodeSpec{Name: "facts", Kind: KindJSON, Template: "facts about {city}", Model: "large", Schema: objectSchema()},
		NodeSpec{Name: "summary", Template: "Summarise {city}: {facts.k}, {facts.list.1}; all {facts}", Model: "small"},
		NodeSpec{Name: "unrelated", Template: "never asked", Model: "small"},
	)

	results, err := e.Run(context.Background(), "summary")
	require.NoError(t, err)
	require.Len(t, results, 3, "only the DAG of summary runs")
	assert.Equal(t, Result{Type: ResultText, Content: "Lisbon"}, results["city"])
	assert.Equal(t, ResultJSON, results["facts"].Type)
	assert.Equal(t, map[string]any{"k": "sunny", "list": []any{"tram", "fado"}}, results["facts"].Content)
	assert.Equal(t, Result{Type: ResultText, Content: "done"}, results["summary"])

	var summaryPrompt string
	for _, p := range fc.prompts {
		if strings.HasPrefix(p, "Summarise") {
			summaryPrompt = p
		}
		assert.NotContains(t, p, "never asked")
	}
	assert.Equal(t, `Summarise Lisbon: sunny, fado; all {"k":"sunny","list":["tram","fado"]}`, summaryPrompt)
}

func TestRun_JSONPromptCarriesSchemaAndExamples(t *testing.T) {
	fc := &fakeCompleter{answers: map[string]string{"Reply": `{"k":"v"}`}}
	e := newTestEngine(t, NewLLMBackend(fc, 1, nil))
	declare(t, e, NodeSpec{
		Name:     "j",
		Kind:     KindJSON,
		Template: "Reply like ```json {\"k\":\"v\"}```",
		Model:    "large",
		Schema:   objectSchema(),
	})

	results, err := e.Run(context.Background(), "j")
	require.NoError(t, err)
	assert.Equal(t, ResultJSON, results["j"].Type)
	require.Len(t, fc.prompts, 1)
	assert.True(t, fc.json[0])
	assert.Contains(t, fc.prompts[0], "Reply like ```json {\"k\":\"v\"}```")
	assert.Contains(t, fc.prompts[0], `"required":["k"]`)
}

func TestRun_FailuresStayLocal(t *testing.T) {
	fc := &fakeCompleter{
		answers: map[string]string{"left": "L", "right": `{"other":1}`, "join": "joined", "after left": "ok"},
		fail:    map[string]error{},
	}
	e := newTestEngine(t, NewLLMBackend(fc, 4, zaptest.NewLogger(t)))
	declare(t, e,
		NodeSpec{Name: "left", Template: "left", Model: "small"},
		NodeSpec{Name: "right", Kind: KindJSON, Template: "right", Model: "large", Schema: objectSchema()},
		NodeSpec{Name: "afterLeft", Template: "after left {left}", Model: "small"},
		NodeSpec{Name: "join", Template: "join {afterLeft} {right.k}", Model: "small"},
	)

	results, err := e.Run(context.Background(), "join")
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, ResultText, results["left"].Type)
	assert.Equal(t, ResultText, results["afterLeft"].Type, "siblings are unaffected")
	assert.Equal(t, ResultError, results["right"].Type, "schema violation")
	assert.Contains(t, results["right"].Content, "schema")
	assert.Equal(t, ResultError, results["join"].Type)
	assert.Contains(t, results["join"].Content, "upstream node right failed")
}

func TestRun_BackendErrorAndMissingPath(t *testing.T) {
	fc := &fakeCompleter{
		answers: map[string]string{"data": `{"k":"v"}`, "use": "x"},
		fail:    map[string]error{"broken": errors.New("503 from provider")},
	}
	e := newTestEngine(t, NewLLMBackend(fc, 2, nil))
	declare(t, e,
		NodeSpec{Name: "broken", Template: "broken", Model: "small"},
		NodeSpec{Name: "data", Kind: KindJSON, Template: "data", Model: "large", Schema: objectSchema()},
		NodeSpec{Name: "use", Template: "use {data.missing} {broken}", Model: "small"},
	)
	results, err := e.Run(context.Background(), "use")
	require.NoError(t, err)
	assert.Equal(t, Result{Type: ResultError, Content: "503 from provider"}, results["broken"])
	assert.Equal(t, ResultError, results["use"].Type)
}

func TestRun_MissingPathFails(t *testing.T) {
	fc := &fakeCompleter{answers: map[string]string{"data": `{"k":"v"}`, "use": "x"}}
	e := newTestEngine(t, NewLLMBackend(fc, 2, nil))
	declare(t, e,
		NodeSpec{Name: "data", Kind: KindJSON, Template: "data", Model: "large", Schema: objectSchema()},
		NodeSpec{Name: "use", Template: "use {data.missing}", Model: "small"},
	)
	results, err := e.Run(context.Background(), "use")
	require.NoError(t, err)
	assert.Equal(t, Result{Type: ResultError, Content: `path "missing" not found in output of data`}, results["use"])
}

func TestRun_CancelledNodesAreUnknown(t *testing.T) {
	fc := &fakeCompleter{answers: map[string]string{"a": "A"}}
	e := newTestEngine(t, NewLLMBackend(fc, 1, nil))
	declare(t, e,
		NodeSpec{Name: "a", Template: "a", Model: "small"},
		NodeSpec{Name: "b", Template: "b {a}", Model: "small"},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := e.Run(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, Result{Type: ResultUnknown}, results["a"])
	assert.Equal(t, Result{Type: ResultUnknown}, results["b"])
	assert.Empty(t, fc.prompts)
}

func TestRun_Errors(t *testing.T) {
	e := newTestEngine(t, NewLLMBackend(&fakeCompleter{}, 1, nil))
	_, err := e.Run(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownNode)

	noBackend := newTestEngine(t, nil)
	_, err = noBackend.Run(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestConnect_RequiresToken(t *testing.T) {
	_, err := Connect("openai", registry.Options{}, 1)
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = Connect("anthropic", registry.Options{APIKey: "  "}, 1)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLevels(t *testing.T) {
	a := &Node{Name: "a"}
	b := &Node{Name: "b"}
	c := &Node{Name: "c", Dependencies: []string{"a", "b"}}
	d := &Node{Name: "d", Dependencies: []string{"a"}}
	got := levels([]*Node{a, b, c, d})
	require.Len(t, got, 2)
	assert.Equal(t, []*Node{a, b}, got[0])
	assert.Equal(t, []*Node{c, d}, got[1])
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFence(` {"a":1} `))
}
