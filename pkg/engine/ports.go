package engine

// DataType is a port's declared payload type (§4.1). ANY is compatible with
// every other type in either direction.
type DataType string

const (
	DataTypeString   DataType = "STRING"
	DataTypeNumber   DataType = "NUMBER"
	DataTypeBoolean  DataType = "BOOLEAN"
	DataTypeObject   DataType = "OBJECT"
	DataTypeArray    DataType = "ARRAY"
	DataTypeMessages DataType = "MESSAGES"
	DataTypeAny      DataType = "ANY"
)

// Compatible reports whether a value declared as DataType `from` may flow
// into a port declared as DataType `to`. ANY is a wildcard on both sides;
// otherwise the types must match exactly.
func (from DataType) Compatible(to DataType) bool {
	if from == DataTypeAny || to == DataTypeAny {
		return true
	}
	return from == to
}

// PortDecl declares one input or output handle a component exposes, plus the
// capability flags the compiler and validator need to reason about it.
type PortDecl struct {
	Name       string
	Type       DataType
	Required   bool // only meaningful for inputs: GraphCompiler rejects a disconnected required input
	Repeatable bool // this handle accepts more than one incoming edge (e.g. a tool input)
}

// Capabilities describes what a node's component_type can do, independent of
// any particular workflow: its typed ports, whether it can emit `_route`
// (route-emitter), whether it can suspend, and whether it accepts loop
// control edges.
type Capabilities struct {
	ComponentType string
	Inputs        []PortDecl
	Outputs       []PortDecl
	RouteEmitter  bool // may emit `_route`; required for any node targeted by a conditional edge
	CanSuspend    bool // may return SuspendForInput/SuspendForChild/Delay
	IsLoopBody    bool // valid source of a loop_body edge
}

// InputPort looks up a declared input by name.
func (c Capabilities) InputPort(name string) (PortDecl, bool) {
	for _, p := range c.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return PortDecl{}, false
}

// OutputPort looks up a declared output by name.
func (c Capabilities) OutputPort(name string) (PortDecl, bool) {
	for _, p := range c.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return PortDecl{}, false
}

// RequiredInputs returns the subset of declared inputs that must be connected
// for the compiler not to raise BUILD_BROKEN_INPUT.
func (c Capabilities) RequiredInputs() []PortDecl {
	var out []PortDecl
	for _, p := range c.Inputs {
		if p.Required {
			out = append(out, p)
		}
	}
	return out
}

// PortRegistry resolves a node's component_type to its Capabilities. It is
// populated once at startup from the set of registered executor builtins and
// consulted by EdgeValidator and GraphCompiler at compile time.
type PortRegistry struct {
	capabilities map[string]Capabilities
}

// NewPortRegistry returns an empty registry; call Register for each
// component_type the running process supports.
func NewPortRegistry() *PortRegistry {
	return &PortRegistry{capabilities: make(map[string]Capabilities)}
}

// Register records the Capabilities for a component_type, overwriting any
// previous registration for the same type.
func (r *PortRegistry) Register(caps Capabilities) {
	r.capabilities[caps.ComponentType] = caps
}

// Lookup returns the Capabilities registered for a component_type.
func (r *PortRegistry) Lookup(componentType string) (Capabilities, bool) {
	c, ok := r.capabilities[componentType]
	return c, ok
}

// DefaultPortRegistry returns a registry pre-populated with the capability
// declarations for the builtin node types this engine ships (§4.1 examples:
// chat/LLM nodes accept MESSAGES and emit MESSAGES + ANY token usage; switch
// nodes are route-emitters with a single ANY input; sub_workflow nodes can
// suspend; loop nodes accept loop_body/loop_return edges).
func DefaultPortRegistry() *PortRegistry {
	r := NewPortRegistry()

	r.Register(Capabilities{
		ComponentType: "http_request",
		Inputs:        []PortDecl{{Name: "input", Type: DataTypeAny, Required: false}},
		Outputs:       []PortDecl{{Name: "output", Type: DataTypeObject}},
	})
	r.Register(Capabilities{
		ComponentType: "transform",
		Inputs:        []PortDecl{{Name: "input", Type: DataTypeAny, Required: true}},
		Outputs:       []PortDecl{{Name: "output", Type: DataTypeAny}},
	})
	r.Register(Capabilities{
		ComponentType: "llm",
		Inputs:        []PortDecl{{Name: "messages", Type: DataTypeMessages, Required: true}},
		Outputs:       []PortDecl{{Name: "messages", Type: DataTypeMessages}, {Name: "output", Type: DataTypeString}},
	})
	r.Register(Capabilities{
		ComponentType: "switch",
		Inputs:        []PortDecl{{Name: "input", Type: DataTypeAny, Required: true}},
		Outputs:       []PortDecl{{Name: "output", Type: DataTypeAny}},
		RouteEmitter:  true,
	})
	r.Register(Capabilities{
		ComponentType: "human_confirmation",
		Inputs:        []PortDecl{{Name: "prompt", Type: DataTypeString, Required: true}},
		Outputs:       []PortDecl{{Name: "output", Type: DataTypeObject}},
		RouteEmitter:  true,
		CanSuspend:    true,
	})
	r.Register(Capabilities{
		ComponentType: "sub_workflow",
		Inputs:        []PortDecl{{Name: "input", Type: DataTypeAny, Required: false}},
		Outputs:       []PortDecl{{Name: "output", Type: DataTypeAny}},
		CanSuspend:    true,
	})
	r.Register(Capabilities{
		ComponentType: "loop",
		Inputs:        []PortDecl{{Name: "items", Type: DataTypeArray, Required: true}},
		Outputs:       []PortDecl{{Name: "output", Type: DataTypeArray}},
		IsLoopBody:    true,
	})
	r.Register(Capabilities{
		ComponentType: "trigger",
		Outputs:       []PortDecl{{Name: "output", Type: DataTypeObject}},
	})
	r.Register(Capabilities{
		ComponentType: "tool",
		Inputs:        []PortDecl{{Name: "input", Type: DataTypeAny, Required: true, Repeatable: true}},
		Outputs:       []PortDecl{{Name: "output", Type: DataTypeAny}},
	})

	return r
}
