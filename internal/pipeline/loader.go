package pipeline

import (
	"fmt"
	"os"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

// File is a pipeline definition on disk:
//
//	final: summary
//	nodes:
//	  - name: facts
//	    kind: json
//	    model: gpt-4o-mini
//	    template: "List facts about {topic}"
//	    schema: {type: object, properties: {facts: {type: array}}}
type File struct {
	Final string     `yaml:"final"`
	Nodes []FileNode `yaml:"nodes"`
}

// FileNode is one node entry of a File.
type FileNode struct {
	Name     string         `yaml:"name"`
	Kind     string         `yaml:"kind"`
	Model    string         `yaml:"model"`
	Template string         `yaml:"template"`
	Schema   map[string]any `yaml:"schema"`
}

// LoadFile reads and parses a pipeline definition.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(f.Nodes) == 0 {
		return nil, fmt.Errorf("%s: no nodes", path)
	}
	if f.Final == "" {
		f.Final = f.Nodes[len(f.Nodes)-1].Name
	}
	return &f, nil
}

// Declare creates every node of f on e in file order.
func (f *File) Declare(e *Engine) error {
	for _, fn := range f.Nodes {
		spec, err := fn.spec()
		if err != nil {
			return err
		}
		if _, err := e.CreateNode(spec); err != nil {
			return err
		}
	}
	return nil
}

func (fn FileNode) spec() (NodeSpec, error) {
	kind, err := ParseKind(fn.Kind)
	if err != nil {
		return NodeSpec{}, &DeclarationError{Node: fn.Name, Msg: err.Error()}
	}
	spec := NodeSpec{Name: fn.Name, Template: fn.Template, Model: fn.Model, Kind: kind}
	if fn.Schema != nil {
		// yaml decodes into map[string]any; go through JSON for the typed schema.
		raw, err := json.Marshal(fn.Schema)
		if err != nil {
			return NodeSpec{}, &DeclarationError{Node: fn.Name, Msg: "schema: " + err.Error()}
		}
		var s jsonschema.Schema
		if err := json.Unmarshal(raw, &s); err != nil {
			return NodeSpec{}, &DeclarationError{Node: fn.Name, Msg: "schema: " + err.Error()}
		}
		spec.Schema = &s
	}
	return spec, nil
}
