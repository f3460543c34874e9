package pipeline

import (
	"fmt"

	"github.com/google/uuid"
)

// Connection is a directed edge from one node's output port to another
// node's input port. Endpoints are referenced by identifier and port name,
// never by structural ownership, so removal is pure bookkeeping.
type Connection struct {
	ID         string
	SourceNode string
	SourcePort string
	TargetNode string
	TargetPort string
}

// Pipeline owns a set of nodes and the connections between them. Node
// insertion order is retained for stable iteration, display, and the
// scheduler's tie-break. Mutation and execution must not overlap; the
// engine never mutates structure, only port values.
type Pipeline struct {
	Name string

	nodes     map[string]Node
	nodeOrder []string
	conns     map[string]*Connection
	connOrder []string
}

// New creates an empty pipeline.
func New(name string) *Pipeline {
	return &Pipeline{
		Name:  name,
		nodes: make(map[string]Node),
		conns: make(map[string]*Connection),
	}
}

// AddNode registers a node and returns its identifier.
func (p *Pipeline) AddNode(n Node) string {
	id := n.ID()
	if _, ok := p.nodes[id]; ok {
		return id
	}
	p.nodes[id] = n
	p.nodeOrder = append(p.nodeOrder, id)
	return id
}

// RemoveNode removes a node and cascades removal of every connection that
// touches it. It reports whether the node existed.
func (p *Pipeline) RemoveNode(id string) bool {
	if _, ok := p.nodes[id]; !ok {
		return false
	}
	for _, connID := range p.connOrder {
		c := p.conns[connID]
		if c != nil && (c.SourceNode == id || c.TargetNode == id) {
			delete(p.conns, connID)
		}
	}
	p.connOrder = compactOrder(p.connOrder, p.conns)

	delete(p.nodes, id)
	for i, nid := range p.nodeOrder {
		if nid == id {
			p.nodeOrder = append(p.nodeOrder[:i], p.nodeOrder[i+1:]...)
			break
		}
	}
	return true
}

// Node looks up a node by identifier.
func (p *Pipeline) Node(id string) (Node, bool) {
	n, ok := p.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (p *Pipeline) Nodes() []Node {
	out := make([]Node, 0, len(p.nodeOrder))
	for _, id := range p.nodeOrder {
		out = append(out, p.nodes[id])
	}
	return out
}

// NodeCount returns the number of registered nodes.
func (p *Pipeline) NodeCount() int { return len(p.nodes) }

// Connect creates a validated edge from sourceID's output port to
// targetID's input port and returns the connection id. It fails with a
// *ConnectionError if either endpoint is missing, the port directions are
// wrong, the target input already has an incoming connection, or the
// declared port types are incompatible.
func (p *Pipeline) Connect(sourceID, sourcePort, targetID, targetPort string) (string, error) {
	src := fmt.Sprintf("%s.%s", sourceID, sourcePort)
	dst := fmt.Sprintf("%s.%s", targetID, targetPort)

	sourceNode, ok := p.nodes[sourceID]
	if !ok {
		return "", &ConnectionError{Source: src, Target: dst, Reason: "source node not found"}
	}
	targetNode, ok := p.nodes[targetID]
	if !ok {
		return "", &ConnectionError{Source: src, Target: dst, Reason: "target node not found"}
	}

	out := sourceNode.Output(sourcePort)
	if out == nil {
		if sourceNode.Input(sourcePort) != nil {
			return "", &ConnectionError{Source: src, Target: dst, Reason: "source port is an input, not an output"}
		}
		return "", &ConnectionError{Source: src, Target: dst, Reason: "source port not found"}
	}
	in := targetNode.Input(targetPort)
	if in == nil {
		if targetNode.Output(targetPort) != nil {
			return "", &ConnectionError{Source: src, Target: dst, Reason: "target port is an output, not an input"}
		}
		return "", &ConnectionError{Source: src, Target: dst, Reason: "target port not found"}
	}

	if existing := p.IncomingConnection(targetID, targetPort); existing != nil {
		return "", &ConnectionError{
			Source: src,
			Target: dst,
			Reason: fmt.Sprintf("input already connected from %s.%s", existing.SourceNode, existing.SourcePort),
		}
	}

	if !Compatible(out.Type, in.Type) {
		return "", &ConnectionError{
			Source: src,
			Target: dst,
			Reason: fmt.Sprintf("incompatible port types %s -> %s", out.Type, in.Type),
		}
	}

	c := &Connection{
		ID:         uuid.NewString(),
		SourceNode: sourceID,
		SourcePort: sourcePort,
		TargetNode: targetID,
		TargetPort: targetPort,
	}
	p.conns[c.ID] = c
	p.connOrder = append(p.connOrder, c.ID)
	return c.ID, nil
}

// Disconnect removes an edge by id. Already-propagated port values are
// left in place. It reports whether the connection existed.
func (p *Pipeline) Disconnect(connID string) bool {
	if _, ok := p.conns[connID]; !ok {
		return false
	}
	delete(p.conns, connID)
	p.connOrder = compactOrder(p.connOrder, p.conns)
	return true
}

// Connections returns all connections in creation order.
func (p *Pipeline) Connections() []*Connection {
	out := make([]*Connection, 0, len(p.connOrder))
	for _, id := range p.connOrder {
		out = append(out, p.conns[id])
	}
	return out
}

// OutgoingConnections returns the connections leaving nodeID, in creation
// order.
func (p *Pipeline) OutgoingConnections(nodeID string) []*Connection {
	var out []*Connection
	for _, id := range p.connOrder {
		if c := p.conns[id]; c.SourceNode == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// IncomingConnections returns the connections arriving at nodeID.
func (p *Pipeline) IncomingConnections(nodeID string) []*Connection {
	var out []*Connection
	for _, id := range p.connOrder {
		if c := p.conns[id]; c.TargetNode == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// IncomingConnection returns the single connection feeding the named input
// port of nodeID, or nil.
func (p *Pipeline) IncomingConnection(nodeID, port string) *Connection {
	for _, id := range p.connOrder {
		c := p.conns[id]
		if c.TargetNode == nodeID && c.TargetPort == port {
			return c
		}
	}
	return nil
}

func compactOrder(order []string, live map[string]*Connection) []string {
	out := order[:0]
	for _, id := range order {
		if _, ok := live[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
