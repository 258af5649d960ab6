// Package pipeline declares multi-node LLM workflows whose prompts reference
// the outputs of earlier nodes, and runs them as a DAG.
//
// A template placeholder is {node} or {node.path}; the path selects a field
// of a JSON node's output. Fenced ```json examples in a template are kept
// verbatim and never read as placeholders.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrUnknownNode  = errors.New("unknown pipeline node")
	ErrMissingToken = errors.New("pipeline backend token missing")
)

// DeclarationError rejects a node at declaration time. Nothing is registered.
type DeclarationError struct {
	Node    string
	Missing []string // placeholder roots that name no declared node
	Msg     string
}

func (e *DeclarationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("pipeline node %q: undefined placeholder %s", e.Node, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("pipeline node %q: %s", e.Node, e.Msg)
}

// NodeSpec is what a caller declares.
type NodeSpec struct {
	Name     string
	Template string
	Model    string
	Kind     Kind
	Schema   *jsonschema.Schema
}

// Binding is the source of one renamed placeholder: the output of Root,
// narrowed by Path for JSON nodes.
type Binding struct {
	Root string
	Path string
}

// Node is a declared, validated pipeline step.
type Node struct {
	Name     string
	Kind     Kind
	Model    string
	Template string // as declared
	Prompt   string // renamed placeholders, JSON examples brace-escaped
	Schema   *jsonschema.Schema
	Bindings map[string]Binding
	// Dependencies are the placeholder roots, sorted.
	Dependencies []string

	resolved *jsonschema.Resolved
}

// Render fills the prompt with values keyed by renamed placeholder.
func (n *Node) Render(values map[string]string) string { return render(n.Prompt, values) }

// Engine holds declared nodes and submits DAGs to a Backend.
type Engine struct {
	mu      sync.RWMutex
	nodes   map[string]*Node
	order   []string
	models  Models
	backend Backend
	logger  *zap.Logger
}

// NewEngine returns an engine that validates models against models and runs
// through backend.
func NewEngine(backend Backend, models Models, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		nodes:   map[string]*Node{},
		models:  models,
		backend: backend,
		logger:  logger,
	}
}

// Node returns a declared node.
func (e *Engine) Node(name string) (*Node, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.nodes[name]
	return n, ok
}

// Names lists nodes in declaration order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.order...)
}

// CreateNode analyses spec and registers it. Every placeholder root must name
// an already declared node, so declaration order is a topological order.
func (e *Engine) CreateNode(spec NodeSpec) (*Node, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" || strings.ContainsAny(name, ".{} ") {
		return nil, &DeclarationError{Node: spec.Name, Msg: "name must be non-empty without dots, braces or spaces"}
	}
	kind := spec.Kind
	if kind == "" {
		kind = KindText
	}
	if kind != KindText && kind != KindJSON {
		return nil, &DeclarationError{Node: name, Msg: fmt.Sprintf("unknown kind %q", kind)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.nodes[name]; dup {
		return nil, &DeclarationError{Node: name, Msg: "already declared"}
	}

	masked, examples := maskJSONExamples(spec.Template)

	bindings := map[string]Binding{}
	deps := map[string]bool{}
	var missing []string
	for _, token := range Placeholders(masked) {
		root, path := splitPath(token)
		if _, ok := e.nodes[root]; !ok {
			if !slices.Contains(missing, root) {
				missing = append(missing, root)
			}
			continue
		}
		flat := flatName(token)
		if prev, clash := bindings[flat]; clash && prev != (Binding{Root: root, Path: path}) {
			return nil, &DeclarationError{Node: name, Msg: fmt.Sprintf("placeholders %q and %q collide", prev.Root+"."+prev.Path, token)}
		}
		bindings[flat] = Binding{Root: root, Path: path}
		deps[root] = true
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &DeclarationError{Node: name, Missing: missing}
	}

	node := &Node{
		Name:     name,
		Kind:     kind,
		Template: spec.Template,
		Prompt:   unmaskJSONExamples(rewrite(masked, flatName), examples),
		Schema:   spec.Schema,
		Bindings: bindings,
	}
	for root := range deps {
		node.Dependencies = append(node.Dependencies, root)
	}
	sort.Strings(node.Dependencies)

	if kind == KindJSON {
		if spec.Schema == nil {
			return nil, &DeclarationError{Node: name, Msg: "json nodes need a schema"}
		}
		resolved, err := spec.Schema.Resolve(nil)
		if err != nil {
			return nil, &DeclarationError{Node: name, Msg: "invalid schema: " + err.Error()}
		}
		node.resolved = resolved
	}

	node.Model = spec.Model
	if spec.Model == "" {
		node.Model = e.models.Default
	} else if !e.models.Allowed(kind, spec.Model) {
		e.logger.Warn("model not allowed for node kind; using default",
			zap.String("node", name),
			zap.String("kind", string(kind)),
			zap.String("model", spec.Model),
			zap.String("default", e.models.Default))
		node.Model = e.models.Default
	}

	e.nodes[name] = node
	e.order = append(e.order, name)
	e.logger.Debug("node declared",
		zap.String("node", name),
		zap.Strings("dependencies", node.Dependencies),
		zap.Int("json_examples", len(examples)))
	return node, nil
}

// Run evaluates final and everything it depends on. The result map holds one
// entry per node in the DAG.
func (e *Engine) Run(ctx context.Context, final string) (map[string]Result, error) {
	if e.backend == nil {
		return nil, ErrMissingToken
	}
	e.mu.RLock()
	dag, err := e.collect(final)
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	log := e.logger.With(zap.String("run", runID), zap.String("final", final))
	log.Info("pipeline run started", zap.Int("nodes", len(dag)))

	results := e.backend.Run(ctx, dag)

	failed := 0
	for _, r := range results {
		if r.Type == ResultError || r.Type == ResultUnknown {
			failed++
		}
	}
	log.Info("pipeline run finished", zap.Int("nodes", len(results)), zap.Int("not_ok", failed))
	return results, nil
}

// collect returns final's DAG in declaration order.
func (e *Engine) collect(final string) ([]*Node, error) {
	if _, ok := e.nodes[final]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, final)
	}
	need := map[string]bool{}
	var visit func(string)
	visit = func(name string) {
		if need[name] {
			return
		}
		need[name] = true
		for _, d := range e.nodes[name].Dependencies {
			visit(d)
		}
	}
	visit(final)

	dag := make([]*Node, 0, len(need))
	for _, name := range e.order {
		if need[name] {
			dag = append(dag, e.nodes[name])
		}
	}
	return dag, nil
}
