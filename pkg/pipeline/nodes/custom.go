package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/driftworks/conduit/pkg/pipeline"
)

// PortDef describes one port of a user-defined node type.
type PortDef struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
}

// Definition describes a user-defined node type: its ports plus the
// assignment logic run per pass. Definitions come from JSON files and are
// registered alongside the built-ins.
type Definition struct {
	Name    string    `json:"name"`
	Tag     string    `json:"tag"`
	Inputs  []PortDef `json:"inputs"`
	Outputs []PortDef `json:"outputs"`
	Logic   string    `json:"logic"`
}

// CustomNode runs user-defined assignment logic over its input ports.
type CustomNode struct {
	pipeline.Base
	prog *program
}

var portTypes = map[string]pipeline.ValueType{
	"number":   pipeline.TypeNumber,
	"sequence": pipeline.TypeSequence,
	"text":     pipeline.TypeText,
	"boolean":  pipeline.TypeBoolean,
	"any":      pipeline.TypeAny,
	"":         pipeline.TypeAny,
}

// NewCustom builds a node from a definition, compiling its logic. Bad
// definitions are configuration errors.
func NewCustom(def Definition) (*CustomNode, error) {
	tag := pipeline.NodeType(def.Tag)
	if def.Tag == "" {
		return nil, &pipeline.ConfigError{Type: "custom", Reason: "definition has no tag"}
	}
	if len(def.Outputs) == 0 {
		return nil, &pipeline.ConfigError{Type: tag, Reason: "definition has no outputs"}
	}

	prog, err := CompileProgram(def.Logic)
	if err != nil {
		return nil, &pipeline.ConfigError{Type: tag, Reason: fmt.Sprintf("bad logic: %v", err)}
	}
	assigned := make(map[string]bool)
	for _, t := range prog.Targets() {
		assigned[t] = true
	}
	for _, out := range def.Outputs {
		if !assigned[out.Name] {
			return nil, &pipeline.ConfigError{Type: tag, Reason: fmt.Sprintf("logic never assigns output %q", out.Name)}
		}
	}

	name := def.Name
	if name == "" {
		name = def.Tag
	}
	n := &CustomNode{Base: pipeline.NewBase(tag, name), prog: prog}
	for _, in := range def.Inputs {
		t, ok := portTypes[in.Type]
		if !ok {
			return nil, &pipeline.ConfigError{Type: tag, Reason: fmt.Sprintf("input %q: unknown type %q", in.Name, in.Type)}
		}
		p := n.AddInput(in.Name, t)
		p.Optional = in.Optional
	}
	for _, out := range def.Outputs {
		t, ok := portTypes[out.Type]
		if !ok {
			return nil, &pipeline.ConfigError{Type: tag, Reason: fmt.Sprintf("output %q: unknown type %q", out.Name, out.Type)}
		}
		n.AddOutput(out.Name, t)
	}
	return n, nil
}

func (n *CustomNode) Process(_ context.Context) bool {
	env := make(map[string]any, len(n.Inputs()))
	for _, p := range n.Inputs() {
		if v, ok := p.Value(); ok {
			env[p.Name] = v
		}
	}
	results, err := n.prog.Run(env)
	if err != nil {
		return false
	}
	for _, p := range n.Outputs() {
		v, ok := results[p.Name]
		if !ok {
			return false
		}
		p.SetValue(v)
	}
	return true
}

// LoadDefinitions reads custom node definitions from a JSON file holding
// either a single definition object or an array of them.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	var defs []Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		var single Definition
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("parse definitions %s: %w", path, err)
		}
		defs = []Definition{single}
	}
	return defs, nil
}

// RegisterDefinitions compiles each definition once up front and registers
// a factory for its tag. The first bad definition aborts registration.
func RegisterDefinitions(r *Registry, defs []Definition) error {
	for _, def := range defs {
		if _, err := NewCustom(def); err != nil {
			return err
		}
		def := def
		r.Register(pipeline.NodeType(def.Tag), func(map[string]any) (pipeline.Node, error) {
			return NewCustom(def)
		})
	}
	return nil
}
