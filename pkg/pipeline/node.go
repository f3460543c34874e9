package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// NodeType identifies the kind of work a node performs. Concrete types
// live in the nodes sub-package; the engine only dispatches on the tag.
type NodeType string

// Node is the contract a processing unit must satisfy to plug into a
// Pipeline. Any type implementing it qualifies; dispatch is by interface,
// not by hierarchy.
type Node interface {
	// ID returns the node's stable identifier within its pipeline.
	ID() string
	// SetID overrides the identifier. Used by the loader to restore
	// persisted graphs; port names are immutable, ids are not.
	SetID(id string)
	Type() NodeType
	Name() string
	// SetName overrides the display name, e.g. when restoring a renamed
	// node from a persisted pipeline.
	SetName(name string)

	// Inputs and Outputs return the node's ports in declaration order.
	Inputs() []*Port
	Outputs() []*Port
	// Input and Output look up a port by name, returning nil if absent.
	Input(name string) *Port
	Output(name string) *Port

	// Position is canvas placement metadata carried for the presentation
	// layer; the engine never interprets it.
	Position() (x, y float64)
	SetPosition(x, y float64)

	// Config returns the node-specific configuration that, together with
	// the type tag, is sufficient to reconstruct the node via a factory.
	Config() map[string]any

	// CanExecute reports whether the node has everything it needs to run.
	// The default policy is "every required input port holds a value";
	// pure sources override it to always return true.
	CanExecute() bool

	// Process consumes input port values, computes, and writes output port
	// values. Returning false means "produced no usable output this pass";
	// the engine records a contained per-node failure and keeps going.
	// Process must only touch this node's own ports and internal state.
	Process(ctx context.Context) bool
}

// Base carries the identity, port bookkeeping, and metadata shared by all
// node implementations. Embed it and implement Process (plus CanExecute
// for sources with no required inputs).
type Base struct {
	id       string
	nodeType NodeType
	name     string

	inputs    []*Port
	outputs   []*Port
	inByName  map[string]*Port
	outByName map[string]*Port

	posX, posY float64
	config     map[string]any
}

// NewBase creates the embeddable core of a node. The id is a fresh UUID;
// loaders overwrite it via SetID.
func NewBase(nodeType NodeType, name string) Base {
	return Base{
		id:        uuid.NewString(),
		nodeType:  nodeType,
		name:      name,
		inByName:  make(map[string]*Port),
		outByName: make(map[string]*Port),
		config:    make(map[string]any),
	}
}

func (b *Base) ID() string          { return b.id }
func (b *Base) SetID(id string)     { b.id = id }
func (b *Base) Type() NodeType      { return b.nodeType }
func (b *Base) Name() string        { return b.name }
func (b *Base) SetName(name string) { b.name = name }

// AddInput declares an input port. Declaring ports after the node has been
// added to a pipeline is not supported.
func (b *Base) AddInput(name string, t ValueType) *Port {
	p := &Port{Name: name, Type: t, Dir: Input}
	b.inputs = append(b.inputs, p)
	b.inByName[name] = p
	return p
}

// AddOptionalInput declares an input port that does not gate readiness.
func (b *Base) AddOptionalInput(name string, t ValueType) *Port {
	p := b.AddInput(name, t)
	p.Optional = true
	return p
}

// AddOutput declares an output port.
func (b *Base) AddOutput(name string, t ValueType) *Port {
	p := &Port{Name: name, Type: t, Dir: Output}
	b.outputs = append(b.outputs, p)
	b.outByName[name] = p
	return p
}

func (b *Base) Inputs() []*Port          { return b.inputs }
func (b *Base) Outputs() []*Port         { return b.outputs }
func (b *Base) Input(name string) *Port  { return b.inByName[name] }
func (b *Base) Output(name string) *Port { return b.outByName[name] }

func (b *Base) Position() (float64, float64) { return b.posX, b.posY }
func (b *Base) SetPosition(x, y float64)     { b.posX, b.posY = x, y }

// SetConfig records a configuration field for serialization.
func (b *Base) SetConfig(key string, value any) { b.config[key] = value }

func (b *Base) Config() map[string]any {
	out := make(map[string]any, len(b.config))
	for k, v := range b.config {
		out[k] = v
	}
	return out
}

// CanExecute implements the default readiness policy: every input port
// that is not marked optional must hold a value.
func (b *Base) CanExecute() bool {
	for _, p := range b.inputs {
		if p.Optional {
			continue
		}
		if _, ok := p.Value(); !ok {
			return false
		}
	}
	return true
}

// InputValue returns the value on the named input port, or nil if the
// port is absent or empty.
func (b *Base) InputValue(name string) any {
	p := b.inByName[name]
	if p == nil {
		return nil
	}
	v, _ := p.Value()
	return v
}

// SetOutputValue writes a value to the named output port, ignoring
// unknown names.
func (b *Base) SetOutputValue(name string, v any) {
	if p := b.outByName[name]; p != nil {
		p.SetValue(v)
	}
}
