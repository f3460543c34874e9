package nodes

import (
	"sort"

	"github.com/driftworks/conduit/pkg/pipeline"
)

// Factory builds a node from its persisted configuration.
type Factory func(config map[string]any) (pipeline.Node, error)

// Registry maps type tags to node factories. It implements the
// pipeline.Registry interface. Construct one at startup and pass it
// explicitly to the loader and CLI; there is no ambient global registry.
type Registry struct {
	factories map[pipeline.NodeType]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[pipeline.NodeType]Factory)}
}

// Register associates a factory with a type tag, replacing any previous
// registration.
func (r *Registry) Register(tag pipeline.NodeType, f Factory) {
	r.factories[tag] = f
}

// Create builds a node of the given type, or returns a *ConfigError if
// the tag is unknown or the configuration is malformed.
func (r *Registry) Create(tag pipeline.NodeType, config map[string]any) (pipeline.Node, error) {
	f, ok := r.factories[tag]
	if !ok {
		return nil, &pipeline.ConfigError{Type: tag, Reason: "unknown node type"}
	}
	return f(config)
}

// Types returns all registered type tags, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		out = append(out, string(tag))
	}
	sort.Strings(out)
	return out
}

// Default returns a registry with every built-in node type registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(TypeValue, func(cfg map[string]any) (pipeline.Node, error) {
		return NewValue(cfg["data"]), nil
	})
	r.Register(TypeSequence, func(cfg map[string]any) (pipeline.Node, error) {
		return NewSequenceFromConfig(cfg)
	})
	r.Register(TypeMath, func(cfg map[string]any) (pipeline.Node, error) {
		return NewMath(configString(cfg, "op", ""))
	})
	r.Register(TypeTransform, func(cfg map[string]any) (pipeline.Node, error) {
		return NewTransform(configString(cfg, "op", ""))
	})
	r.Register(TypeFilter, func(cfg map[string]any) (pipeline.Node, error) {
		return NewFilter(), nil
	})
	r.Register(TypeAggregate, func(cfg map[string]any) (pipeline.Node, error) {
		return NewAggregate(configString(cfg, "op", ""))
	})
	r.Register(TypeJoin, func(cfg map[string]any) (pipeline.Node, error) {
		return NewJoin(), nil
	})
	r.Register(TypeSplit, func(cfg map[string]any) (pipeline.Node, error) {
		return NewSplit(), nil
	})
	r.Register(TypePrint, func(cfg map[string]any) (pipeline.Node, error) {
		return NewPrint(), nil
	})
	r.Register(TypeMock, func(cfg map[string]any) (pipeline.Node, error) {
		return NewMockFromConfig(cfg)
	})
	r.Register(TypeAIText, func(cfg map[string]any) (pipeline.Node, error) {
		return NewAITextFromConfig(cfg, nil)
	})
	return r
}
