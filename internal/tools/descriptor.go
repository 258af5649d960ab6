// Package tools holds tool descriptors, the registry that publishes them as
// a function-calling catalogue, and the invocation path used by the
// dispatch loop.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	jsoniter "github.com/json-iterator/go"

	"github.com/webwright/webwright/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SemanticType is the closed set of parameter types a tool may declare.
type SemanticType string

const (
	TypeInteger SemanticType = "integer"
	TypeNumber  SemanticType = "number"
	TypeString  SemanticType = "string"
	TypeBoolean SemanticType = "boolean"
	TypeArray   SemanticType = "array"
	TypeObject  SemanticType = "object"
)

// ParseSemanticType maps a type name to a SemanticType. Common aliases
// (int, float, str, bool, list, dict) are accepted; anything else is an error.
func ParseSemanticType(name string) (SemanticType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "integer", "int":
		return TypeInteger, nil
	case "number", "float":
		return TypeNumber, nil
	case "string", "str":
		return TypeString, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "array", "list":
		return TypeArray, nil
	case "object", "dict", "map":
		return TypeObject, nil
	}
	return "", fmt.Errorf("%w: unknown parameter type %q", ErrInvalidDescriptor, name)
}

// Valid reports whether t is one of the declared constants.
func (t SemanticType) Valid() bool {
	switch t {
	case TypeInteger, TypeNumber, TypeString, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// ContextField names a piece of runtime context a tool may consume.
type ContextField string

const (
	ContextLog        ContextField = "log"         // conversation log
	ContextLLM        ContextField = "llm"         // one-shot model access
	ContextSettings   ContextField = "settings"    // configuration values
	ContextHealth     ContextField = "health"      // component health registry
	ContextSystemLogs ContextField = "system_logs" // persisted warn/error records
)

// Handler is the single tool call signature. Args hold coerced values:
// int64, float64, string, bool, []any or map[string]any.
type Handler func(ctx context.Context, ic InvocationContext, args Args) (any, error)

// Param is one declared tool parameter.
type Param struct {
	Name        string
	Type        SemanticType
	Description string
	HasDefault  bool
	Default     any
}

// Descriptor describes one tool.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
	Consumes    []ContextField
	Handler     Handler
	// Source is "builtin" or the manifest path the tool was loaded from.
	Source string
}

// Param returns the declared parameter called name.
func (d *Descriptor) Param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Schema builds the JSON schema of the parameter object. It depends only on
// the descriptor.
func (d *Descriptor) Schema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(d.Params)),
		Required:   []string{},
	}
	for _, p := range d.Params {
		prop := &jsonschema.Schema{Type: string(p.Type), Description: p.Description}
		if p.Type == TypeArray {
			prop.Items = &jsonschema.Schema{}
		}
		if p.HasDefault {
			if raw, err := json.Marshal(p.Default); err == nil {
				prop.Default = raw
			}
		}
		s.Properties[p.Name] = prop
		if !p.HasDefault {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// Definition is the catalogue entry for d.
func (d *Descriptor) Definition() core.ToolDefinition {
	return core.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Schema()}
}

// Builder assembles a Descriptor. Errors are collected and reported by Build.
type Builder struct {
	d         Descriptor
	paramDocs map[string]string
	errs      []error
}

// New starts a descriptor for the tool called name.
func New(name string) *Builder {
	return &Builder{d: Descriptor{Name: name, Source: "builtin"}}
}

// Doc sets the description from a documentation header. Text before the
// first :param, :type or :return marker becomes the description;
// ":param name: text" lines describe parameters without an explicit one.
func (b *Builder) Doc(doc string) *Builder {
	desc, params := ParseDoc(doc)
	b.d.Description = desc
	b.paramDocs = params
	return b
}

// Param declares a required parameter.
func (b *Builder) Param(name string, t SemanticType, desc string) *Builder {
	return b.add(Param{Name: name, Type: t, Description: desc})
}

// Optional declares a parameter with a default value.
func (b *Builder) Optional(name string, t SemanticType, desc string, def any) *Builder {
	return b.add(Param{Name: name, Type: t, Description: desc, HasDefault: true, Default: def})
}

func (b *Builder) add(p Param) *Builder {
	if p.Name == "" {
		b.errs = append(b.errs, fmt.Errorf("empty parameter name"))
		return b
	}
	if _, dup := b.d.Param(p.Name); dup {
		b.errs = append(b.errs, fmt.Errorf("duplicate parameter %q", p.Name))
		return b
	}
	if !p.Type.Valid() {
		if t, err := ParseSemanticType(string(p.Type)); err == nil {
			p.Type = t
		} else {
			b.errs = append(b.errs, fmt.Errorf("parameter %q: unknown type %q", p.Name, p.Type))
			return b
		}
	}
	if p.HasDefault && p.Default != nil {
		v, err := coerce(p.Type, p.Default)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("parameter %q: default %v: %v", p.Name, p.Default, err))
			return b
		}
		p.Default = v
	}
	b.d.Params = append(b.d.Params, p)
	return b
}

// Uses declares the context fields the handler reads.
func (b *Builder) Uses(fields ...ContextField) *Builder {
	b.d.Consumes = append(b.d.Consumes, fields...)
	return b
}

// Handle sets the tool body.
func (b *Builder) Handle(h Handler) *Builder {
	b.d.Handler = h
	return b
}

// Source records where the tool came from.
func (b *Builder) Source(src string) *Builder {
	b.d.Source = src
	return b
}

// Build validates and returns the descriptor.
func (b *Builder) Build() (*Descriptor, error) {
	if strings.TrimSpace(b.d.Name) == "" {
		return nil, fmt.Errorf("%w: empty tool name", ErrInvalidDescriptor)
	}
	if b.d.Handler == nil {
		b.errs = append(b.errs, fmt.Errorf("no handler"))
	}
	if len(b.errs) > 0 {
		msgs := make([]string, len(b.errs))
		for i, e := range b.errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("%w %s: %s", ErrInvalidDescriptor, b.d.Name, strings.Join(msgs, "; "))
	}
	d := b.d
	d.Params = append([]Param(nil), b.d.Params...)
	for i := range d.Params {
		if d.Params[i].Description == "" {
			d.Params[i].Description = b.paramDocs[d.Params[i].Name]
		}
	}
	return &d, nil
}

// MustBuild is Build for package-level tool tables; it panics on error.
func (b *Builder) MustBuild() *Descriptor {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDoc splits a documentation header into the description and the
// per-parameter descriptions.
func ParseDoc(doc string) (string, map[string]string) {
	params := map[string]string{}
	var desc []string
	inDesc := true
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, ":param "):
			inDesc = false
			rest := strings.TrimPrefix(line, ":param ")
			name, text, ok := strings.Cut(rest, ":")
			if ok {
				// ":param str name: text" carries a type before the name
				fields := strings.Fields(name)
				if len(fields) > 0 {
					params[fields[len(fields)-1]] = strings.TrimSpace(text)
				}
			}
		case strings.HasPrefix(line, ":type"), strings.HasPrefix(line, ":return"), strings.HasPrefix(line, ":rtype"):
			inDesc = false
		case inDesc && line != "":
			desc = append(desc, line)
		}
	}
	return strings.Join(desc, " "), params
}
