package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/webwright/webwright/internal/llm"
	"github.com/webwright/webwright/internal/registry"
)

// ResultType tags a node outcome.
type ResultType string

const (
	ResultText    ResultType = "text"
	ResultJSON    ResultType = "json"
	ResultError   ResultType = "error"
	ResultUnknown ResultType = "unknown" // not evaluated, e.g. the run was cancelled
)

// Result is one node's outcome. Content is a string for text, the decoded
// value for json and the message for error.
type Result struct {
	Type    ResultType `json:"type"`
	Content any        `json:"content"`
}

func (r Result) ok() bool { return r.Type == ResultText || r.Type == ResultJSON }

// Backend evaluates a DAG given in topological order.
type Backend interface {
	Run(ctx context.Context, nodes []*Node) map[string]Result
}

// Completer is the model access the LLM backend needs. *llm.Adapter implements it.
type Completer interface {
	CompleteWith(ctx context.Context, model, prompt string) (string, error)
	CompleteJSON(ctx context.Context, model, prompt string) (string, error)
}

// DefaultParallelism bounds concurrent node evaluations.
const DefaultParallelism = 4

// LLMBackend evaluates nodes through a Completer, one dependency level at a
// time with the nodes of a level running concurrently.
type LLMBackend struct {
	llm         Completer
	parallelism int
	logger      *zap.Logger
}

// NewLLMBackend wraps c.
func NewLLMBackend(c Completer, parallelism int, logger *zap.Logger) *LLMBackend {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMBackend{llm: c, parallelism: parallelism, logger: logger}
}

// Connect builds a backend on the named provider. Every provider except
// ollama needs an API key.
func Connect(provider string, opts registry.Options, parallelism int) (*LLMBackend, error) {
	if provider != "ollama" && strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w for %s", ErrMissingToken, provider)
	}
	p, err := llm.NewProvider(provider, opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	adapter := llm.NewAdapter(p, llm.Config{Model: opts.Model}, logger)
	return NewLLMBackend(adapter, parallelism, logger), nil
}

// Run never fails as a whole: node failures are error results and their
// dependants fail with an upstream error.
func (b *LLMBackend) Run(ctx context.Context, nodes []*Node) map[string]Result {
	var mu sync.Mutex
	results := make(map[string]Result, len(nodes))
	get := func(name string) (Result, bool) {
		mu.Lock()
		defer mu.Unlock()
		r, ok := results[name]
		return r, ok
	}

	for _, level := range levels(nodes) {
		g := new(errgroup.Group)
		g.SetLimit(b.parallelism)
		for _, n := range level {
			g.Go(func() error {
				r := b.evaluate(ctx, n, get)
				mu.Lock()
				results[n.Name] = r
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

// levels groups nodes so that every node's dependencies sit in earlier groups.
func levels(nodes []*Node) [][]*Node {
	depth := make(map[string]int, len(nodes))
	var out [][]*Node
	for _, n := range nodes {
		d := 0
		for _, dep := range n.Dependencies {
			if dd, ok := depth[dep]; ok && dd+1 > d {
				d = dd + 1
			}
		}
		depth[n.Name] = d
		for len(out) <= d {
			out = append(out, nil)
		}
		out[d] = append(out[d], n)
	}
	return out
}

func (b *LLMBackend) evaluate(ctx context.Context, n *Node, get func(string) (Result, bool)) Result {
	log := b.logger.With(zap.String("node", n.Name))
	if ctx.Err() != nil {
		return Result{Type: ResultUnknown}
	}

	values := make(map[string]string, len(n.Bindings))
	for flat, bind := range n.Bindings {
		dep, ok := get(bind.Root)
		if !ok || dep.Type == ResultUnknown {
			return Result{Type: ResultUnknown}
		}
		if dep.Type == ResultError {
			return errorResult(fmt.Errorf("upstream node %s failed: %v", bind.Root, dep.Content))
		}
		v, err := value(dep, bind)
		if err != nil {
			return errorResult(err)
		}
		values[flat] = v
	}
	prompt := n.Render(values)

	if n.Kind == KindJSON {
		raw, err := b.llm.CompleteJSON(ctx, n.Model, jsonPrompt(prompt, n))
		if err != nil {
			return b.callFailed(ctx, log, err)
		}
		var decoded any
		if err := json.Unmarshal([]byte(stripFence(raw)), &decoded); err != nil {
			log.Warn("json node returned invalid JSON", zap.Error(err))
			return errorResult(fmt.Errorf("node %s: invalid JSON output: %w", n.Name, err))
		}
		if n.resolved != nil {
			if err := n.resolved.Validate(decoded); err != nil {
				log.Warn("json node output does not match schema", zap.Error(err))
				return errorResult(fmt.Errorf("node %s: output does not match schema: %w", n.Name, err))
			}
		}
		log.Debug("node evaluated")
		return Result{Type: ResultJSON, Content: decoded}
	}

	text, err := b.llm.CompleteWith(ctx, n.Model, prompt)
	if err != nil {
		return b.callFailed(ctx, log, err)
	}
	log.Debug("node evaluated", zap.Int("len", len(text)))
	return Result{Type: ResultText, Content: text}
}

func (b *LLMBackend) callFailed(ctx context.Context, log *zap.Logger, err error) Result {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return Result{Type: ResultUnknown}
	}
	log.Error("node failed", zap.Error(err))
	return errorResult(err)
}

func errorResult(err error) Result { return Result{Type: ResultError, Content: err.Error()} }

// value renders a dependency output for substitution. A path selects into a
// JSON output with gjson syntax; text outputs ignore it.
func value(dep Result, bind Binding) (string, error) {
	if dep.Type == ResultText {
		s, _ := dep.Content.(string)
		return s, nil
	}
	raw, err := json.Marshal(dep.Content)
	if err != nil {
		return "", fmt.Errorf("encoding output of %s: %w", bind.Root, err)
	}
	if bind.Path == "" {
		return string(raw), nil
	}
	res := gjson.GetBytes(raw, bind.Path)
	if !res.Exists() {
		return "", fmt.Errorf("path %q not found in output of %s", bind.Path, bind.Root)
	}
	if res.Type == gjson.String {
		return res.Str, nil
	}
	return res.Raw, nil
}

func jsonPrompt(prompt string, n *Node) string {
	if n.Schema == nil {
		return prompt
	}
	schema, err := json.Marshal(n.Schema)
	if err != nil {
		return prompt
	}
	return prompt + "\n\nRespond with a single JSON object that matches this JSON schema:\n" + string(schema)
}

// stripFence removes a surrounding ``` or ```json fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
