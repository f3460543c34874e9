package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// document is the persisted form of a pipeline. Type-specific node
// configuration is inlined in each node object next to the reserved keys.
type document struct {
	Name        string            `json:"name"`
	Nodes       []json.RawMessage `json:"nodes"`
	Connections []connectionDoc   `json:"connections"`
}

type connectionDoc struct {
	ID         string `json:"id"`
	SourceNode string `json:"source_node"`
	SourcePort string `json:"source_port"`
	TargetNode string `json:"target_node"`
	TargetPort string `json:"target_port"`
}

// reservedNodeKeys are the node-object keys owned by the engine; every
// other key is type-specific configuration passed through to the factory.
var reservedNodeKeys = map[string]bool{
	"id":       true,
	"type":     true,
	"name":     true,
	"position": true,
}

// Marshal serializes a pipeline to its persisted JSON form. Nodes appear
// in insertion order, connections in creation order.
func Marshal(p *Pipeline) ([]byte, error) {
	doc := document{Name: p.Name}

	for _, n := range p.Nodes() {
		obj := make(map[string]any)
		for k, v := range n.Config() {
			if reservedNodeKeys[k] {
				return nil, fmt.Errorf("node %q: config key %q collides with a reserved key", n.ID(), k)
			}
			obj[k] = v
		}
		x, y := n.Position()
		obj["id"] = n.ID()
		obj["type"] = string(n.Type())
		obj["name"] = n.Name()
		obj["position"] = []float64{x, y}

		raw, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("node %q: marshal: %w", n.ID(), err)
		}
		doc.Nodes = append(doc.Nodes, raw)
	}

	for _, c := range p.Connections() {
		doc.Connections = append(doc.Connections, connectionDoc{
			ID:         c.ID,
			SourceNode: c.SourceNode,
			SourcePort: c.SourcePort,
			TargetNode: c.TargetNode,
			TargetPort: c.TargetPort,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal reconstructs a pipeline from its persisted JSON form. Nodes
// are rebuilt through the registry, configuration fields are restored, and
// every connection is replayed through the same Connect validation used at
// runtime — a file with an invalid edge fails to load rather than silently
// dropping the edge.
func Unmarshal(data []byte, reg Registry) (*Pipeline, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry must not be nil")
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse pipeline document: %w", err)
	}

	p := New(doc.Name)

	for i, raw := range doc.Nodes {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("node %d: parse: %w", i, err)
		}
		id, _ := obj["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("node %d: missing id", i)
		}
		typeTag, _ := obj["type"].(string)
		if typeTag == "" {
			return nil, fmt.Errorf("node %q: missing type", id)
		}

		config := make(map[string]any)
		for k, v := range obj {
			if !reservedNodeKeys[k] {
				config[k] = v
			}
		}

		node, err := reg.Create(NodeType(typeTag), config)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		node.SetID(id)
		if name, ok := obj["name"].(string); ok && name != "" {
			node.SetName(name)
		}
		if x, y, ok := decodePosition(obj["position"]); ok {
			node.SetPosition(x, y)
		}
		p.AddNode(node)
	}

	for _, cd := range doc.Connections {
		connID, err := p.Connect(cd.SourceNode, cd.SourcePort, cd.TargetNode, cd.TargetPort)
		if err != nil {
			return nil, fmt.Errorf("replay connection %q: %w", cd.ID, err)
		}
		if cd.ID != "" {
			p.renameConnection(connID, cd.ID)
		}
	}

	return p, nil
}

// SaveFile writes the pipeline's JSON form to path.
func SaveFile(p *Pipeline, path string) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write pipeline file: %w", err)
	}
	return nil
}

// LoadFile reads a pipeline JSON file and reconstructs it via reg.
func LoadFile(path string, reg Registry) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline file: %w", err)
	}
	return Unmarshal(data, reg)
}

// renameConnection restores a persisted connection id after replay.
func (p *Pipeline) renameConnection(oldID, newID string) {
	c, ok := p.conns[oldID]
	if !ok {
		return
	}
	delete(p.conns, oldID)
	c.ID = newID
	p.conns[newID] = c
	for i, id := range p.connOrder {
		if id == oldID {
			p.connOrder[i] = newID
		}
	}
}

func decodePosition(v any) (float64, float64, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return 0, 0, false
	}
	x, xok := arr[0].(float64)
	y, yok := arr[1].(float64)
	if !xok || !yok {
		return 0, 0, false
	}
	return x, y, true
}
