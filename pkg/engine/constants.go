package engine

// Node types that emit a route via the reserved "_route" output key.
const (
	// NodeTypeConditional represents a route-emitter (conditional/switch) node
	NodeTypeConditional = "conditional"
)

// Default configuration values
const (
	// DefaultMaxParallelism is the default maximum number of concurrent nodes per wave
	DefaultMaxParallelism = 10

	// DefaultNodePriority is the default priority for nodes without explicit priority
	DefaultNodePriority = 0

	// DefaultLoopMaxIterations bounds a loop node's iteration count when its
	// config omits max_iterations.
	DefaultLoopMaxIterations = 100
)
