package memory

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/embedding"
	"github.com/webwright/webwright/internal/health"
	"github.com/webwright/webwright/internal/store"
)

// vocabEmbedder gives every distinct token its own dimension so scores are exact.
type vocabEmbedder struct {
	name  string
	vocab map[string]int
}

func newVocabEmbedder(name string) *vocabEmbedder {
	return &vocabEmbedder{name: name, vocab: map[string]int{}}
}

func (v *vocabEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 64)
	for _, tok := range embedding.Tokenize(text) {
		idx, ok := v.vocab[tok]
		if !ok {
			idx = len(v.vocab) % 64
			v.vocab[tok] = idx
		}
		vec[idx]++
	}
	return vec, nil
}

func (v *vocabEmbedder) Name() string    { return v.name }
func (v *vocabEmbedder) Dimensions() int { return 64 }

func newTestLog(t *testing.T) (*Log, *store.DB) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	l, err := Open(ctx, db, newVocabEmbedder("vocab"), nil)
	require.NoError(t, err)
	return l, db
}

func appendAll(t *testing.T, l *Log, entries ...core.Entry) []string {
	t.Helper()
	var ids []string
	for _, e := range entries {
		id, err := l.Append(context.Background(), e)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func user(s string) core.Entry      { return core.Entry{Type: core.EntryUserQuery, Content: s} }
func assistant(s string) core.Entry { return core.Entry{Type: core.EntryLLMResponse, Content: s} }

func TestAppend_AssignsIncreasingTimestamps(t *testing.T) {
	l, _ := newTestLog(t)
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return frozen }

	ids := appendAll(t, l, user("a"), user("b"), user("c"))
	require.Len(t, ids, 3)
	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])
	assert.Equal(t, "2024-05-01T12:00:00.000000Z", ids[0])
	assert.Equal(t, "2024-05-01T12:00:00.000002Z", ids[2])
}

func TestAppend_ExplicitIDIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)

	e := core.Entry{ID: "fixed", Timestamp: "2024-01-01T00:00:00.000000Z", Type: core.EntryUserQuery, Content: "one"}
	id, err := l.Append(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)
	_, err = l.Append(ctx, e)
	require.NoError(t, err)

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAppend_RejectsUnknownType(t *testing.T) {
	l, _ := newTestLog(t)
	_, err := l.Append(context.Background(), core.Entry{Type: "function", Content: "x"})
	assert.ErrorIs(t, err, ErrStore)
}

func TestGet_RoundTripIsCanonical(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)

	inputs := []core.Entry{
		{Timestamp: "2024-01-01T00:00:01.000000Z", Type: core.EntryUserQuery, Content: "read main.go"},
		{Timestamp: "2024-01-01T00:00:02.000000Z", Type: core.EntryToolCall,
			Content: core.ToolCallContent("cat_file", map[string]any{"path": "main.go", "limit": 3, "flags": []any{"a", true}})},
		{ID: "result-1", Timestamp: "2024-01-01T00:00:03.000000Z", Type: core.EntryToolResult,
			Content: core.ToolResultContent("cat_file", map[string]any{"success": true, "content": "package main"})},
		{Timestamp: "2024-01-01T00:00:04.000000Z", Type: core.EntryLLMResponse,
			Content: []any{map[string]any{"name": "ping", "parameters": map[string]any{"host": "example.com"}}}},
	}
	for _, in := range inputs {
		id, err := l.Append(ctx, in)
		require.NoError(t, err)

		got, err := l.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)

		want, err := Canonical(in)
		require.NoError(t, err)
		have, err := Canonical(got)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(have))
	}

	missing, err := l.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecent_IsChronologicalSuffix(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return frozen }

	var all []string
	for i := 0; i < 10; i++ {
		s := fmt.Sprintf("message %d", i)
		all = append(all, s)
		appendAll(t, l, user(s))
	}

	for _, n := range []int{0, 1, 4, 10, 25} {
		got, err := l.Recent(ctx, n)
		require.NoError(t, err)
		want := all[len(all)-min(n, len(all)):]
		var contents []string
		for _, e := range got {
			contents = append(contents, e.Content.(string))
		}
		if n == 0 {
			assert.Empty(t, contents)
			continue
		}
		assert.Equal(t, want, contents, "n=%d", n)
	}
}

func TestRangeAndByType(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)
	appendAll(t, l,
		core.Entry{Timestamp: "2024-01-01T00:00:01.000000Z", Type: core.EntryUserQuery, Content: "q1"},
		core.Entry{Timestamp: "2024-01-02T00:00:00.000000Z", Type: core.EntryLLMResponse, Content: "r1"},
		core.Entry{Timestamp: "2024-01-03T00:00:00.000000Z", Type: core.EntryUserQuery, Content: "q2"},
	)

	got, err := l.Range(ctx, "2024-01-02T00:00:00.000000Z", "2024-01-03T00:00:00.000000Z")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].Content)
	assert.Equal(t, "q2", got[1].Content)

	queries, err := l.ByType(ctx, core.EntryUserQuery)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "q1", queries[0].Content)
}

func TestRange_DateOnlyEndCoversDay(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)
	appendAll(t, l,
		core.Entry{Timestamp: "2023-12-31T23:59:59.999999Z", Type: core.EntryUserQuery, Content: "before"},
		core.Entry{Timestamp: "2024-01-01T09:00:00.000000Z", Type: core.EntryUserQuery, Content: "morning"},
		core.Entry{Timestamp: "2024-01-01T18:30:00.000000Z", Type: core.EntryLLMResponse, Content: "evening"},
		core.Entry{Timestamp: "2024-01-02T00:00:00.000000Z", Type: core.EntryUserQuery, Content: "next day"},
	)

	got, err := l.Range(ctx, "2024-01-01", "2024-01-01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "morning", got[0].Content)
	assert.Equal(t, "evening", got[1].Content)

	got, err = l.Range(ctx, "2024-01-01", "")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = l.Range(ctx, "yesterday", "")
	assert.ErrorIs(t, err, ErrStore)
}

func TestAppend_NormalisesExplicitTimestamps(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)
	ids := appendAll(t, l,
		core.Entry{Timestamp: "2024-01-01T02:00:01Z", Type: core.EntryUserQuery, Content: "deploy steps"},
		core.Entry{Timestamp: "2024-01-01T02:00:01.500000Z", Type: core.EntryLLMResponse, Content: "run make deploy"},
	)
	assert.Equal(t, []string{"2024-01-01T02:00:01.000000Z", "2024-01-01T02:00:01.500000Z"}, ids)

	recent, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "deploy steps", recent[0].Content)
	assert.Equal(t, "2024-01-01T02:00:01.000000Z", recent[0].Timestamp)
	assert.Equal(t, "run make deploy", recent[1].Content)

	matches, err := l.SimilaritySearch(ctx, "deploy", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "deploy steps", matches[0].Entry.Content)
	require.NotNil(t, matches[0].Adjacent)
	assert.Equal(t, "run make deploy", matches[0].Adjacent.Content)

	// offsets are stored in UTC
	id, err := l.Append(ctx, core.Entry{Timestamp: "2024-01-01T04:00:02+02:00", Type: core.EntryUserQuery, Content: "later"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T02:00:02.000000Z", id)

	_, err = l.Append(ctx, core.Entry{Timestamp: "t1", Type: core.EntryUserQuery, Content: "x"})
	assert.ErrorIs(t, err, ErrStore)
}

func TestSimilaritySearch_AdjacentContext(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)
	appendAll(t, l,
		core.Entry{Timestamp: "2024-01-01T00:00:01.000000Z", Type: core.EntryUserQuery, Content: "what is X"},
		core.Entry{Timestamp: "2024-01-01T00:00:02.000000Z", Type: core.EntryLLMResponse, Content: "X is Y"},
		core.Entry{Timestamp: "2024-01-01T00:00:03.000000Z", Type: core.EntryUserQuery, Content: "unrelated"},
	)

	matches, err := l.SimilaritySearch(ctx, "X", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "what is X", matches[0].Entry.Content)
	require.NotNil(t, matches[0].Adjacent)
	assert.Equal(t, "X is Y", matches[0].Adjacent.Content)
	assert.InDelta(t, 1/math.Sqrt(3), matches[0].Score, 1e-6)
}

func TestSimilaritySearch_AdjacencyRule(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)
	appendAll(t, l,
		assistant("orphan reply"),
		user("alpha question"),
		core.Entry{Type: core.EntryToolCall, Content: core.ToolCallContent("ping", map[string]any{"host": "h"})},
		assistant("alpha answer"),
		user("beta question"),
		user("gamma question"),
	)

	matches, err := l.SimilaritySearch(ctx, "question answer reply", 10)
	require.NoError(t, err)
	require.Len(t, matches, 6)

	all, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	for _, m := range matches {
		want := expectedAdjacent(all, m.Entry)
		if want == nil {
			assert.Nil(t, m.Adjacent, "entry %v", m.Entry.Content)
			continue
		}
		require.NotNil(t, m.Adjacent, "entry %v", m.Entry.Content)
		assert.Equal(t, want.Timestamp, m.Adjacent.Timestamp)
	}
}

// expectedAdjacent restates the adjacency rule in terms of timestamps.
func expectedAdjacent(all []core.Entry, e core.Entry) *core.Entry {
	switch e.Type {
	case core.EntryUserQuery:
		for _, c := range all {
			if c.Type == core.EntryLLMResponse && c.Timestamp > e.Timestamp {
				return &c
			}
		}
	case core.EntryLLMResponse:
		var found *core.Entry
		for _, c := range all {
			if c.Type == core.EntryUserQuery && c.Timestamp < e.Timestamp {
				c := c
				found = &c
			}
		}
		return found
	}
	return nil
}

func TestBuildContext_Alternation(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)
	appendAll(t, l,
		assistant("leading reply"),
		assistant("second reply"),
		user("first question"),
		assistant("answer one"),
		assistant("answer two"),
		core.Entry{Type: core.EntryToolCall, Content: core.ToolCallContent("ping", nil)},
		core.Entry{Type: core.EntryToolResult, Content: core.ToolResultContent("ping", "pong")},
		assistant("after tool"),
		assistant("after tool again"),
	)

	window, err := l.BuildContext(ctx, 20, "", 0)
	require.NoError(t, err)
	require.NotEmpty(t, window)
	assert.False(t, window[0].Type.IsAssistant(), "window must not start with a response")
	for i := 1; i < len(window); i++ {
		assert.False(t, window[i].Type.IsAssistant() && window[i-1].Type.IsAssistant(),
			"consecutive responses at %d", i)
	}
	var contents []any
	for _, e := range window {
		contents = append(contents, e.Content)
	}
	assert.Contains(t, contents, "answer one")
	assert.Contains(t, contents, "after tool")
	assert.NotContains(t, contents, "answer two")
}

func TestBuildContext_QueryDedupeAndUnion(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)
	appendAll(t, l,
		user("deploy the service"),
		assistant("service deployed ok"),
		user("weather today"),
		assistant("sunny"),
		user("how do I deploy"),
	)

	// the older deploy question is not recent; it comes in through search
	window, err := l.BuildContext(ctx, 2, "how do I deploy", 2)
	require.NoError(t, err)

	var contents []any
	for _, e := range window {
		contents = append(contents, e.Content)
	}
	assert.Equal(t, []any{"deploy the service", "sunny", "how do I deploy"}, contents)
	assert.Equal(t, core.EntryUserQuery, window[len(window)-1].Type)
}

func TestBuildContext_AppendsQueryWhenMissing(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLog(t)
	appendAll(t, l, user("earlier"), assistant("reply"))

	window, err := l.BuildContext(ctx, 5, "brand new question", 0)
	require.NoError(t, err)
	require.Len(t, window, 3)
	last := window[2]
	assert.Equal(t, core.EntryUserQuery, last.Type)
	assert.Equal(t, "brand new question", last.Content)

	n, err := l.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "the synthetic query entry is not persisted")
}

func TestOpen_ReindexOnEmbedderChange(t *testing.T) {
	ctx := context.Background()
	l, db := newTestLog(t)
	appendAll(t, l, user("hello world"), assistant("hi"))

	reopened, err := Open(ctx, db, embedding.NewHashEngine(32), nil)
	require.NoError(t, err)

	name, ok, err := db.CollectionMeta(ctx, metaEmbedder)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hash", name)

	rows, err := db.LogEntries(ctx, store.LogFilter{WithEmbeddings: true})
	require.NoError(t, err)
	for _, r := range rows {
		assert.Equal(t, "hash", r.Embedder)
		vec, err := DeserializeEmbedding(r.Embedding)
		require.NoError(t, err)
		assert.Len(t, vec, 32)
	}

	matches, err := reopened.SimilaritySearch(ctx, "hello world", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "hello world", matches[0].Entry.Content)
}

func TestHealthCheck(t *testing.T) {
	l, _ := newTestLog(t)
	assert.Equal(t, health.StatusUnknown, l.HealthCheck().Status)
	appendAll(t, l, user("ping"))
	assert.Equal(t, health.StatusOK, l.HealthCheck().Status)
}
