package pipeline

// Registry looks up node constructors by type tag. The concrete
// implementation lives in the nodes sub-package; this interface is defined
// here so that the loader can use it without creating an import cycle.
// Registries are constructed once at startup and passed explicitly rather
// than accessed as ambient global state.
type Registry interface {
	// Create builds a node of the given type with its ports pre-declared,
	// applying the supplied configuration. Returns a *ConfigError for
	// unknown type tags or malformed configuration.
	Create(nodeType NodeType, config map[string]any) (Node, error)
	// Types returns all registered type tags, sorted.
	Types() []string
}
