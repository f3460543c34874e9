package pipeline

import (
	"fmt"
	"strings"
)

// ConfigError describes malformed node configuration or port declaration.
// It is detected at construction time and is fatal to that node's
// creation, never deferred to execution.
type ConfigError struct {
	Type   NodeType
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("node type %q: %s", e.Type, e.Reason)
	}
	return e.Reason
}

// ConnectionError describes an attempted edge that violates the port
// existence, direction, type, or single-input-writer rules. The pipeline
// structure is left unchanged.
type ConnectionError struct {
	Source string // "nodeID.port"
	Target string
	Reason string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s -> %s: %s", e.Source, e.Target, e.Reason)
}

// CycleError reports that the graph contains at least one cycle. It is
// fatal to the whole execution request; no nodes run.
type CycleError struct {
	NodeIDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("pipeline contains a cycle through nodes [%s]", strings.Join(e.NodeIDs, ", "))
}
