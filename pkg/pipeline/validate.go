package pipeline

import (
	"fmt"
	"strings"
)

// Issue describes a structural problem in a pipeline.
type Issue struct {
	NodeID  string
	Message string
}

func (i Issue) Error() string {
	if i.NodeID != "" {
		return fmt.Sprintf("node %q: %s", i.NodeID, i.Message)
	}
	return i.Message
}

// Validate checks a pipeline for structural correctness without mutating
// it. Returns all discovered issues (not just the first): dangling
// connection endpoints, wrong port directions, self-loops, and cycles.
// Runs in O(nodes + connections).
func Validate(p *Pipeline) []Issue {
	var issues []Issue

	// Every connection must reference existing ports on existing nodes.
	for _, c := range p.Connections() {
		srcNode, srcOK := p.Node(c.SourceNode)
		if !srcOK {
			issues = append(issues, Issue{Message: fmt.Sprintf("connection %q references unknown source node %q", c.ID, c.SourceNode)})
		} else if srcNode.Output(c.SourcePort) == nil {
			issues = append(issues, Issue{NodeID: c.SourceNode, Message: fmt.Sprintf("connection %q references unknown output port %q", c.ID, c.SourcePort)})
		}
		dstNode, dstOK := p.Node(c.TargetNode)
		if !dstOK {
			issues = append(issues, Issue{Message: fmt.Sprintf("connection %q references unknown target node %q", c.ID, c.TargetNode)})
		} else if dstNode.Input(c.TargetPort) == nil {
			issues = append(issues, Issue{NodeID: c.TargetNode, Message: fmt.Sprintf("connection %q references unknown input port %q", c.ID, c.TargetPort)})
		}
		if c.SourceNode == c.TargetNode {
			issues = append(issues, Issue{NodeID: c.SourceNode, Message: "self-loop connection"})
		}
	}

	for _, cycle := range findCycles(p) {
		issues = append(issues, Issue{
			NodeID:  cycle[0],
			Message: fmt.Sprintf("cycle through nodes [%s]", strings.Join(cycle, ", ")),
		})
	}

	return issues
}

// ValidateErr calls Validate and returns nil if there are no issues, or a
// combined error listing all of them.
func ValidateErr(p *Pipeline) error {
	issues := Validate(p)
	if len(issues) == 0 {
		return nil
	}
	msgs := make([]string, len(issues))
	for i, is := range issues {
		msgs[i] = is.Error()
	}
	return fmt.Errorf("pipeline validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

// dfs colors for cycle detection.
const (
	colorUnvisited = iota
	colorInProgress
	colorDone
)

// findCycles runs a three-color depth-first traversal over the
// node-to-node adjacency implied by the connections. An edge into an
// in-progress node signals a cycle; the participating node ids are
// reported in traversal order. Each cycle is reported once.
func findCycles(p *Pipeline) [][]string {
	color := make(map[string]int, p.NodeCount())
	var stack []string
	var cycles [][]string

	var visit func(id string)
	visit = func(id string) {
		color[id] = colorInProgress
		stack = append(stack, id)

		for _, succ := range successors(p, id) {
			switch color[succ] {
			case colorUnvisited:
				visit(succ)
			case colorInProgress:
				// The cycle is the stack segment from succ onward.
				for i, sid := range stack {
					if sid == succ {
						cycle := make([]string, len(stack)-i)
						copy(cycle, stack[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = colorDone
	}

	for _, n := range p.Nodes() {
		if color[n.ID()] == colorUnvisited {
			visit(n.ID())
		}
	}
	return cycles
}

// successors returns the distinct downstream node ids of nodeID, in
// connection creation order.
func successors(p *Pipeline, nodeID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range p.OutgoingConnections(nodeID) {
		if !seen[c.TargetNode] {
			seen[c.TargetNode] = true
			out = append(out, c.TargetNode)
		}
	}
	return out
}
