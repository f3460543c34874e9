package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
)

// ExportDOT renders the pipeline as a Graphviz digraph for visualization
// and interchange. Node ids become DOT node names; the type tag, display
// name, position, and scalar config fields become attributes; edges carry
// a "sourcePort->targetPort" label.
func ExportDOT(p *Pipeline) string {
	var sb strings.Builder

	name := p.Name
	if name == "" {
		name = "pipeline"
	}
	fmt.Fprintf(&sb, "digraph %s {\n", dotQuote(name))

	for _, n := range p.Nodes() {
		parts := []string{
			"type=" + dotQuote(string(n.Type())),
			"label=" + dotQuote(n.Name()),
		}
		x, y := n.Position()
		if x != 0 || y != 0 {
			parts = append(parts, "pos="+dotQuote(fmt.Sprintf("%g,%g", x, y)))
		}
		cfg := n.Config()
		keys := make([]string, 0, len(cfg))
		for k := range cfg {
			keys = append(keys, k)
		}
		// Sort config keys for deterministic output.
		insertionSortStrings(keys)
		for _, k := range keys {
			if s, ok := scalarString(cfg[k]); ok {
				parts = append(parts, k+"="+dotQuote(s))
			}
		}
		fmt.Fprintf(&sb, "    %s [%s]\n", dotQuote(n.ID()), strings.Join(parts, " "))
	}

	for _, c := range p.Connections() {
		fmt.Fprintf(&sb, "    %s -> %s [label=%s]\n",
			dotQuote(c.SourceNode), dotQuote(c.TargetNode),
			dotQuote(c.SourcePort+"->"+c.TargetPort))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// ImportDOT parses a Graphviz DOT digraph produced by ExportDOT (or
// written by hand in the same convention) back into a Pipeline, rebuilding
// nodes through reg and replaying edges through Connect.
func ImportDOT(src string, reg Registry) (*Pipeline, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry must not be nil")
	}
	graphAst, err := gographviz.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("dot parse error: %w", err)
	}

	// A permissive collector: accepts any attribute name without the
	// strict validation gographviz.Graph performs.
	collector := newDOTCollector()
	if err := gographviz.Analyse(graphAst, collector); err != nil {
		return nil, fmt.Errorf("dot analyse error: %w", err)
	}

	p := New(collector.name)

	for _, id := range collector.nodeOrder {
		attrs := collector.nodes[id]
		typeTag := attrs["type"]
		if typeTag == "" {
			return nil, fmt.Errorf("dot node %q: missing type attribute", id)
		}

		config := make(map[string]any)
		for k, v := range attrs {
			switch k {
			case "type", "label", "pos":
				continue
			}
			config[k] = scalarValue(v)
		}

		node, err := reg.Create(NodeType(typeTag), config)
		if err != nil {
			return nil, fmt.Errorf("dot node %q: %w", id, err)
		}
		node.SetID(id)
		if label := attrs["label"]; label != "" {
			node.SetName(label)
		}
		if pos := attrs["pos"]; pos != "" {
			if x, y, ok := parsePos(pos); ok {
				node.SetPosition(x, y)
			}
		}
		p.AddNode(node)
	}

	for _, e := range collector.edges {
		srcPort, dstPort, err := splitPortLabel(e.label)
		if err != nil {
			return nil, fmt.Errorf("dot edge %s -> %s: %w", e.from, e.to, err)
		}
		if _, err := p.Connect(e.from, srcPort, e.to, dstPort); err != nil {
			return nil, fmt.Errorf("dot edge: %w", err)
		}
	}

	return p, nil
}

// ─── permissive DOT collector ─────────────────────────────────────────────────

type rawEdge struct {
	from, to string
	label    string
}

// dotCollector implements gographviz.Interface without attribute
// validation.
type dotCollector struct {
	name      string
	nodes     map[string]map[string]string
	nodeOrder []string
	edges     []rawEdge
}

func newDOTCollector() *dotCollector {
	return &dotCollector{nodes: make(map[string]map[string]string)}
}

func (c *dotCollector) SetStrict(_ bool) error { return nil }
func (c *dotCollector) SetDir(_ bool) error    { return nil }
func (c *dotCollector) SetName(n string) error { c.name = dotUnquote(n); return nil }
func (c *dotCollector) String() string         { return c.name }

func (c *dotCollector) AddNode(_ string, name string, attrs map[string]string) error {
	id := dotUnquote(name)
	if _, ok := c.nodes[id]; !ok {
		c.nodes[id] = make(map[string]string, len(attrs))
		c.nodeOrder = append(c.nodeOrder, id)
	}
	for k, v := range attrs {
		c.nodes[id][k] = dotUnquote(v)
	}
	return nil
}

func (c *dotCollector) AddEdge(src, dst string, _ bool, attrs map[string]string) error {
	label := ""
	if lbl, ok := attrs["label"]; ok {
		label = dotUnquote(lbl)
	}
	c.edges = append(c.edges, rawEdge{from: dotUnquote(src), to: dotUnquote(dst), label: label})
	return nil
}

func (c *dotCollector) AddPortEdge(src, _, dst, _ string, directed bool, attrs map[string]string) error {
	return c.AddEdge(src, dst, directed, attrs)
}

func (c *dotCollector) AddAttr(_ string, _, _ string) error                { return nil }
func (c *dotCollector) AddSubGraph(_, _ string, _ map[string]string) error { return nil }

// ─── helpers ─────────────────────────────────────────────────────────────────

// dotQuote returns the value as a DOT-safe string, quoting if necessary.
func dotQuote(s string) string {
	needsQuote := s == "" || strings.ContainsAny(s, " \t\n\\\"{}[]<>=;,-.")
	if needsQuote {
		escaped := strings.ReplaceAll(s, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		return `"` + escaped + `"`
	}
	return s
}

// dotUnquote strips surrounding double-quotes from a DOT value.
func dotUnquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// scalarString renders a config value as a DOT attribute string. Complex
// values (sequences, maps) are skipped; the JSON form is the lossless one.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	}
	return "", false
}

// scalarValue parses a DOT attribute string back into a typed config
// value: number, boolean, or string.
func scalarValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func parsePos(s string) (float64, float64, bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}

func splitPortLabel(label string) (string, string, error) {
	idx := strings.Index(label, "->")
	if idx < 0 {
		return "", "", fmt.Errorf("edge label %q is not sourcePort->targetPort", label)
	}
	return strings.TrimSpace(label[:idx]), strings.TrimSpace(label[idx+2:]), nil
}

// insertionSortStrings sorts a small string slice ascending.
func insertionSortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j] < ss[j-1]; j-- {
			ss[j], ss[j-1] = ss[j-1], ss[j]
		}
	}
}
