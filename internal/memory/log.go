// Package memory implements the conversation log: an append-only, vectorised
// record of user queries, model responses, tool calls and tool results, with
// recency, similarity and adjacent-turn retrieval.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/health"
	"github.com/webwright/webwright/internal/store"
)

// ErrStore wraps every persistence or embedding failure of the log.
var ErrStore = errors.New("conversation store")

const (
	metaEmbedder   = "embedder"
	metaDimensions = "dimensions"
)

// Log is the conversation log. It is safe for concurrent use; appends are
// serialised so timestamps stay strictly increasing.
type Log struct {
	store    store.EntryStore
	embedder core.Embedder
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	last    time.Time
	tracker health.Tracker
}

var _ core.ConversationLog = (*Log)(nil)

// Open wraps st with embedder. If the collection was built by another
// embedder, every stored entry is re-embedded before Open returns.
func Open(ctx context.Context, st store.EntryStore, embedder core.Embedder, logger *zap.Logger) (*Log, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Log{store: st, embedder: embedder, logger: logger, now: time.Now}

	name, ok, err := st.CollectionMeta(ctx, metaEmbedder)
	if err != nil {
		return nil, fmt.Errorf("%w: reading collection meta: %v", ErrStore, err)
	}
	switch {
	case !ok:
		if err := l.recordEmbedder(ctx); err != nil {
			return nil, err
		}
	case name != embedder.Name():
		logger.Warn("embedder changed, re-embedding collection",
			zap.String("from", name), zap.String("to", embedder.Name()))
		if _, err := l.Reindex(ctx); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Embedder returns the strategy used for new vectors.
func (l *Log) Embedder() core.Embedder { return l.embedder }

func (l *Log) recordEmbedder(ctx context.Context) error {
	if err := l.store.SetCollectionMeta(ctx, metaEmbedder, l.embedder.Name()); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := l.store.SetCollectionMeta(ctx, metaDimensions, strconv.Itoa(l.embedder.Dimensions())); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// nextTimestamp returns now, or one microsecond after the previous stamp when
// the clock has not advanced. Callers hold l.mu.
func (l *Log) nextTimestamp() string {
	t := l.now().UTC().Truncate(time.Microsecond)
	if !t.After(l.last) {
		t = l.last.Add(time.Microsecond)
	}
	l.last = t
	return core.FormatTimestamp(t)
}

// observe keeps the clock ahead of explicitly stamped entries.
func (l *Log) observe(t time.Time) {
	if t = t.UTC(); t.After(l.last) {
		l.last = t
	}
}

// Append persists e and returns its id: e.ID when set, otherwise its timestamp.
// A missing timestamp is assigned. Appending the same id again replaces the row.
func (l *Log) Append(ctx context.Context, e core.Entry) (string, error) {
	if !e.Type.Valid() {
		return "", fmt.Errorf("%w: unknown entry type %q", ErrStore, e.Type)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Timestamp == "" {
		e.Timestamp = l.nextTimestamp()
	} else {
		// stored stamps must be fixed width to sort chronologically
		t, err := core.ParseTimestamp(e.Timestamp)
		if err != nil {
			return "", fmt.Errorf("%w: timestamp %q: %v", ErrStore, e.Timestamp, err)
		}
		e.Timestamp = core.FormatTimestamp(t)
		l.observe(t)
	}
	id := e.ID
	if id == "" {
		id = e.Timestamp
	}

	doc, err := Document(e.Content)
	if err != nil {
		return "", l.fail(fmt.Errorf("%w: encoding content: %v", ErrStore, err))
	}
	meta, err := Canonical(e)
	if err != nil {
		return "", l.fail(fmt.Errorf("%w: encoding entry: %v", ErrStore, err))
	}
	vec, err := l.embedder.Embed(ctx, doc)
	if err != nil {
		return "", l.fail(fmt.Errorf("%w: embedding entry: %v", ErrStore, err))
	}
	blob, err := SerializeEmbedding(vec)
	if err != nil {
		return "", l.fail(fmt.Errorf("%w: %v", ErrStore, err))
	}

	err = l.store.UpsertLogEntry(ctx, store.LogRow{
		ID:        id,
		Timestamp: e.Timestamp,
		Type:      string(e.Type),
		Document:  doc,
		Metadata:  string(meta),
		Embedding: blob,
		Embedder:  l.embedder.Name(),
	})
	if err != nil {
		return "", l.fail(fmt.Errorf("%w: writing entry: %v", ErrStore, err))
	}
	l.tracker.RecordSuccess()
	l.logger.Debug("entry appended", zap.String("id", id), zap.String("type", string(e.Type)))
	return id, nil
}

func (l *Log) fail(err error) error {
	l.tracker.RecordError(err)
	l.logger.Error("conversation log failure", zap.Error(err))
	return err
}

// Get returns the entry stored under id, or nil when there is none.
func (l *Log) Get(ctx context.Context, id string) (*core.Entry, error) {
	row, err := l.store.LogEntryByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if row == nil {
		return nil, nil
	}
	e, err := decodeRow(*row)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Recent returns the n newest entries, oldest first.
func (l *Log) Recent(ctx context.Context, n int) ([]core.Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := l.store.LogEntries(ctx, store.LogFilter{Newest: true, Limit: n})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return decodeRows(rows)
}

// Range returns entries with start <= timestamp <= end in chronological
// order. Empty bounds are open. A date-only end covers that whole day.
func (l *Log) Range(ctx context.Context, start, end string) ([]core.Entry, error) {
	from, err := rangeBound(start, false)
	if err != nil {
		return nil, err
	}
	to, err := rangeBound(end, true)
	if err != nil {
		return nil, err
	}
	rows, err := l.store.LogEntries(ctx, store.LogFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return decodeRows(rows)
}

// rangeBound converts a date or timestamp bound to the stored layout.
func rangeBound(s string, end bool) (string, error) {
	if s == "" {
		return "", nil
	}
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		if end {
			d = d.AddDate(0, 0, 1).Add(-time.Microsecond)
		}
		return core.FormatTimestamp(d), nil
	}
	t, err := core.ParseTimestamp(s)
	if err != nil {
		return "", fmt.Errorf("%w: range bound %q: %v", ErrStore, s, err)
	}
	return core.FormatTimestamp(t), nil
}

// ByType returns all entries of type t in chronological order.
func (l *Log) ByType(ctx context.Context, t core.EntryType) ([]core.Entry, error) {
	rows, err := l.store.LogEntries(ctx, store.LogFilter{Type: string(t)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return decodeRows(rows)
}

// Count returns the number of stored entries.
func (l *Log) Count(ctx context.Context) (int, error) {
	n, err := l.store.CountLogEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return n, nil
}

// SimilaritySearch returns the k entries closest to query, best first, each
// paired with its adjacent turn. Equal scores keep chronological order.
func (l *Log) SimilaritySearch(ctx context.Context, query string, k int) ([]core.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	qvec, err := l.embedder.Embed(ctx, query)
	if err != nil {
		return nil, l.fail(fmt.Errorf("%w: embedding query: %v", ErrStore, err))
	}
	rows, err := l.store.LogEntries(ctx, store.LogFilter{WithEmbeddings: true})
	if err != nil {
		return nil, l.fail(fmt.Errorf("%w: %v", ErrStore, err))
	}
	entries, err := decodeRows(rows)
	if err != nil {
		return nil, err
	}

	type scored struct {
		idx   int
		score float64
	}
	var hits []scored
	skipped := 0
	for i, r := range rows {
		vec, err := DeserializeEmbedding(r.Embedding)
		if err != nil || len(vec) != len(qvec) {
			skipped++
			continue
		}
		hits = append(hits, scored{idx: i, score: CosineSimilarity(qvec, vec)})
	}
	if skipped > 0 {
		l.logger.Warn("similarity search skipped entries without a usable vector", zap.Int("skipped", skipped))
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]core.Match, 0, len(hits))
	for _, h := range hits {
		out = append(out, core.Match{
			Entry:    entries[h.idx],
			Adjacent: adjacent(entries, h.idx),
			Score:    h.score,
		})
	}
	l.tracker.RecordSuccess()
	return out, nil
}

// adjacent finds the counterpart turn of entries[i] in a chronological slice:
// the next llm_response after a user_query, the previous user_query before an
// llm_response. Other entry types have no counterpart.
func adjacent(entries []core.Entry, i int) *core.Entry {
	switch entries[i].Type {
	case core.EntryUserQuery:
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Type == core.EntryLLMResponse {
				e := entries[j]
				return &e
			}
		}
	case core.EntryLLMResponse:
		for j := i - 1; j >= 0; j-- {
			if entries[j].Type == core.EntryUserQuery {
				e := entries[j]
				return &e
			}
		}
	}
	return nil
}

// BuildContext assembles the window handed to the model: the recentN newest
// entries, united with the topK matches for query, de-duplicated by content
// and sorted by timestamp. Response entries never lead the window and never
// follow another response. A non-empty query ends the window as a user entry.
func (l *Log) BuildContext(ctx context.Context, recentN int, query string, topK int) ([]core.Entry, error) {
	window, err := l.Recent(ctx, recentN)
	if err != nil {
		return nil, err
	}
	if query != "" && topK > 0 {
		matches, err := l.SimilaritySearch(ctx, query, topK)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			window = append(window, m.Entry)
		}
	}

	sort.SliceStable(window, func(a, b int) bool { return window[a].Timestamp < window[b].Timestamp })
	window = dedupe(window)

	if query != "" && !endsWithQuery(window, query) {
		kept := window[:0]
		for _, e := range window {
			if e.Type == core.EntryUserQuery && contentKey(e) == query {
				continue
			}
			kept = append(kept, e)
		}
		window = append(kept, core.Entry{
			Timestamp: core.FormatTimestamp(l.now()),
			Type:      core.EntryUserQuery,
			Content:   query,
		})
	}
	return alternate(window), nil
}

// dedupe keeps the last entry for each distinct content.
func dedupe(entries []core.Entry) []core.Entry {
	last := make(map[string]int, len(entries))
	for i, e := range entries {
		last[contentKey(e)] = i
	}
	out := make([]core.Entry, 0, len(last))
	for i, e := range entries {
		if last[contentKey(e)] == i {
			out = append(out, e)
		}
	}
	return out
}

// alternate drops response entries that lead the window or follow another
// response.
func alternate(entries []core.Entry) []core.Entry {
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Type.IsAssistant() && (len(out) == 0 || out[len(out)-1].Type.IsAssistant()) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func endsWithQuery(entries []core.Entry, query string) bool {
	if len(entries) == 0 {
		return false
	}
	last := entries[len(entries)-1]
	return last.Type == core.EntryUserQuery && contentKey(last) == query
}

func contentKey(e core.Entry) string {
	doc, err := Document(e.Content)
	if err != nil {
		return fmt.Sprint(e.Content)
	}
	return doc
}

// Reindex re-embeds every stored entry with the current embedder and records
// it as the collection's embedder. It returns the number of entries updated.
func (l *Log) Reindex(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.store.LogEntries(ctx, store.LogFilter{})
	if err != nil {
		return 0, l.fail(fmt.Errorf("%w: %v", ErrStore, err))
	}
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		vec, err := l.embedder.Embed(ctx, r.Document)
		if err != nil {
			return i, l.fail(fmt.Errorf("%w: re-embedding %s: %v", ErrStore, r.ID, err))
		}
		blob, err := SerializeEmbedding(vec)
		if err != nil {
			return i, l.fail(fmt.Errorf("%w: %v", ErrStore, err))
		}
		if err := l.store.UpdateEmbedding(ctx, r.ID, blob, l.embedder.Name()); err != nil {
			return i, l.fail(fmt.Errorf("%w: %v", ErrStore, err))
		}
	}
	if err := l.recordEmbedder(ctx); err != nil {
		return len(rows), err
	}
	l.logger.Info("collection re-embedded", zap.Int("entries", len(rows)), zap.String("embedder", l.embedder.Name()))
	return len(rows), nil
}

func decodeRow(r store.LogRow) (core.Entry, error) {
	var e core.Entry
	if err := json.Unmarshal([]byte(r.Metadata), &e); err != nil {
		return core.Entry{}, fmt.Errorf("%w: decoding entry %s: %v", ErrStore, r.ID, err)
	}
	return e, nil
}

func decodeRows(rows []store.LogRow) ([]core.Entry, error) {
	out := make([]core.Entry, 0, len(rows))
	for _, r := range rows {
		e, err := decodeRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
