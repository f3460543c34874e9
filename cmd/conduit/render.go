package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/driftworks/conduit/pkg/pipeline"
)

// truncate shortens s to maxLen chars, appending "…" if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

// renderText produces the human-readable pipeline summary: nodes in
// execution order, then connections.
func renderText(p *pipeline.Pipeline) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Pipeline: %s  (%d nodes, %d connections)\n",
		p.Name, p.NodeCount(), len(p.Connections()))

	order, err := pipeline.Schedule(p)
	if err != nil {
		// A cyclic pipeline still gets a summary, in insertion order.
		order = order[:0]
		for _, n := range p.Nodes() {
			order = append(order, n.ID())
		}
		fmt.Fprintf(&sb, "WARNING: %v\n", err)
	}

	maxIDLen := 4
	for _, id := range order {
		if len(id) > maxIDLen {
			maxIDLen = len(id)
		}
	}

	fmt.Fprintf(&sb, "\nNodes:\n")
	for _, id := range order {
		n, ok := p.Node(id)
		if !ok {
			continue
		}
		cfg := n.Config()
		keys := make([]string, 0, len(cfg))
		for k := range cfg {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var attrParts []string
		for _, k := range keys {
			attrParts = append(attrParts, fmt.Sprintf("%s=%s", k, truncate(fmt.Sprintf("%v", cfg[k]), 60)))
		}
		fmt.Fprintf(&sb, "  %-*s  %-12s  %s\n", maxIDLen, id, string(n.Type()), strings.Join(attrParts, " "))
	}

	fmt.Fprintf(&sb, "\nConnections:\n")
	maxFromLen := 4
	for _, c := range p.Connections() {
		if l := len(c.SourceNode) + len(c.SourcePort) + 1; l > maxFromLen {
			maxFromLen = l
		}
	}
	for _, c := range p.Connections() {
		from := c.SourceNode + "." + c.SourcePort
		fmt.Fprintf(&sb, "  %-*s  →  %s.%s\n", maxFromLen, from, c.TargetNode, c.TargetPort)
	}

	return sb.String()
}

// renderReport produces the post-run summary: per-node status in
// execution order, then totals.
func renderReport(p *pipeline.Pipeline, r *pipeline.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Session %s  (%s)\n\n", r.SessionID, r.Duration.Round(time.Microsecond))

	maxIDLen := 4
	for _, id := range r.Order {
		if len(id) > maxIDLen {
			maxIDLen = len(id)
		}
	}

	for _, id := range r.Order {
		res := r.Results[id]
		if res == nil {
			continue
		}
		name := id
		if n, ok := p.Node(id); ok && n.Name() != "" {
			name = n.Name()
		}
		line := fmt.Sprintf("  %-*s  %-10s", maxIDLen, id, string(res.Status))
		switch res.Status {
		case pipeline.StatusSucceeded:
			line += "  " + truncate(formatOutputs(res.Outputs), 80)
		case pipeline.StatusFailed, pipeline.StatusSkipped:
			line += "  " + res.Reason
		}
		if name != id {
			line += "  (" + name + ")"
		}
		sb.WriteString(line + "\n")
	}

	fmt.Fprintf(&sb, "\n%d succeeded, %d failed, %d skipped\n",
		r.Count(pipeline.StatusSucceeded),
		r.Count(pipeline.StatusFailed),
		r.Count(pipeline.StatusSkipped))
	return sb.String()
}

// formatOutputs renders an output snapshot with sorted port names.
func formatOutputs(outputs map[string]any) string {
	if len(outputs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, outputs[k]))
	}
	return strings.Join(parts, " ")
}
