package pipeline

// ValueType is the semantic tag of the values a port carries.
type ValueType string

const (
	TypeNumber   ValueType = "number"
	TypeSequence ValueType = "sequence"
	TypeText     ValueType = "text"
	TypeBoolean  ValueType = "boolean"
	TypeAny      ValueType = "any"
)

// Direction distinguishes input ports from output ports.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Port is a named, typed slot on a node. An input port receives its value
// from at most one connection; an output port may fan out to many.
type Port struct {
	Name     string
	Type     ValueType
	Dir      Direction
	Optional bool

	value any
	set   bool
}

// Value returns the port's current value and whether one has been set
// during this execution pass.
func (p *Port) Value() (any, bool) {
	return p.value, p.set
}

// SetValue stores a value on the port.
func (p *Port) SetValue(v any) {
	p.value = v
	p.set = true
}

// Clear removes the port's value. The engine clears every port at the
// start of an execution pass.
func (p *Port) Clear() {
	p.value = nil
	p.set = false
}

// Compatible reports whether a value produced on a port of type src may be
// consumed by a port of type dst: exact match, or either side is "any".
func Compatible(src, dst ValueType) bool {
	return src == dst || src == TypeAny || dst == TypeAny
}
