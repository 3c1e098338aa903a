package compiler

import "github.com/chazu/pinvm/pkg/bytecode"

// ---------------------------------------------------------------------------
// Compilation pipeline
// ---------------------------------------------------------------------------

// MaxIdentifiers is the number of distinct variables a program may declare.
const MaxIdentifiers = 255

// Context is the state threaded through the passes of one compilation.
// Passes never mutate the Context they are given; they return a new one.
type Context struct {
	Nodes []Node

	// Identifiers maps a name to its dense slot id. Names lists them in id
	// order.
	Identifiers     map[string]int
	Names           []string
	IdentifierTypes map[string]bytecode.ValueType

	// Labels maps a label name to its offset in the label-free stream.
	Labels map[string]int

	Output []byte
}

// NewContext returns an empty context over nodes.
func NewContext(nodes []Node) Context {
	return Context{
		Nodes:           nodes,
		Identifiers:     make(map[string]int),
		IdentifierTypes: make(map[string]bytecode.ValueType),
		Labels:          make(map[string]int),
	}
}

// Pass is one stage of the pipeline.
type Pass func(Context) (Context, error)

// DefaultPasses returns the standard pass order.
func DefaultPasses() []Pass {
	return []Pass{
		CollectIdentifiers,
		CollectLabels,
		CheckTypes,
		ResolveLabels,
		ResolveIdentifiers,
		SerializeNodes,
	}
}

// Run applies passes in order. The first failing pass aborts the run.
func Run(ctx Context, passes ...Pass) (Context, error) {
	for _, pass := range passes {
		next, err := pass(ctx)
		if err != nil {
			return Context{}, err
		}
		ctx = next
	}
	return ctx, nil
}

// CollectIdentifiers assigns slot ids to declarations in encounter order.
// The whole tree is scanned before any use is resolved, so a use that
// appears textually before its declaration still resolves.
func CollectIdentifiers(ctx Context) (Context, error) {
	ids := make(map[string]int, len(ctx.Identifiers))
	types := make(map[string]bytecode.ValueType, len(ctx.IdentifierTypes))
	var names []string

	for _, n := range ctx.Nodes {
		decl, ok := n.(*Declare)
		if !ok {
			continue
		}
		if decl.Target == nil {
			return ctx, semanticf("Declaration without a name")
		}
		name := decl.Target.Name
		if _, exists := ids[name]; exists {
			return ctx, semanticf("Cannot redeclare identifier: %s", name)
		}
		if len(names) >= MaxIdentifiers {
			return ctx, semanticf("Too many identifiers")
		}
		ids[name] = len(names)
		types[name] = decl.Type
		names = append(names, name)
	}

	ctx.Identifiers = ids
	ctx.IdentifierTypes = types
	ctx.Names = names
	return ctx, nil
}

// CollectLabels records the offset of every label and removes the label
// markers from the node sequence.
func CollectLabels(ctx Context) (Context, error) {
	labels := make(map[string]int)
	nodes := make([]Node, 0, len(ctx.Nodes))
	offset := 0

	for _, n := range ctx.Nodes {
		if label, ok := n.(*Label); ok {
			if _, exists := labels[label.Name]; exists {
				return ctx, semanticf("Cannot redeclare label: %s", label.Name)
			}
			labels[label.Name] = offset
			continue
		}
		size, err := SizeOf(n)
		if err != nil {
			return ctx, err
		}
		offset += size
		nodes = append(nodes, n)
	}

	ctx.Nodes = nodes
	ctx.Labels = labels
	return ctx, nil
}

// CheckTypes rejects declarations and assignments whose value type differs
// from the declared type. There is no coercion.
func CheckTypes(ctx Context) (Context, error) {
	for _, n := range ctx.Nodes {
		switch n := n.(type) {
		case *Declare:
			if n.Value == nil {
				return ctx, semanticf("Missing value for %s", n.Target.Name)
			}
			if n.Value.Type != n.Type {
				return ctx, semanticf("Invalid value. Expected %s but found %s", n.Type, n.Value.Type)
			}

		case *Assign:
			target, ok := ctx.IdentifierTypes[n.Target.Name]
			if !ok {
				return ctx, semanticf("Identifier not found: %s", n.Target.Name)
			}
			actual, err := effectiveType(ctx, n.Value)
			if err != nil {
				return ctx, err
			}
			if actual != target {
				return ctx, semanticf("Invalid value for %s. Expected %s but found %s", n.Target.Name, target, actual)
			}
		}
	}
	return ctx, nil
}

func effectiveType(ctx Context, o Operand) (bytecode.ValueType, error) {
	switch o := o.(type) {
	case *Identifier:
		t, ok := ctx.IdentifierTypes[o.Name]
		if !ok {
			return 0, semanticf("Identifier not found: %s", o.Name)
		}
		return t, nil
	case *Literal:
		return o.Type, nil
	}
	return 0, semanticf("invalid operand %T", o)
}

// ResolveLabels gives every symbolic jump an Address literal.
func ResolveLabels(ctx Context) (Context, error) {
	nodes := make([]Node, len(ctx.Nodes))

	for i, n := range ctx.Nodes {
		switch n := n.(type) {
		case *JumpTo:
			if n.Address == nil {
				addr, err := labelAddress(ctx, n.Label, n.SpanVal)
				if err != nil {
					return ctx, err
				}
				resolved := *n
				resolved.Address = addr
				nodes[i] = &resolved
				continue
			}
		case *JumpIf:
			if n.Address == nil {
				addr, err := labelAddress(ctx, n.Label, n.SpanVal)
				if err != nil {
					return ctx, err
				}
				resolved := *n
				resolved.Address = addr
				nodes[i] = &resolved
				continue
			}
		}
		nodes[i] = n
	}

	ctx.Nodes = nodes
	return ctx, nil
}

func labelAddress(ctx Context, name string, span Span) (*Literal, error) {
	offset, ok := ctx.Labels[name]
	if !ok {
		return nil, semanticf("Label not found: %s", name)
	}
	return &Literal{SpanVal: span, Type: bytecode.TypeAddress, Int: int64(offset)}, nil
}

// ResolveIdentifiers replaces every identifier name with its slot id.
func ResolveIdentifiers(ctx Context) (Context, error) {
	nodes := make([]Node, len(ctx.Nodes))
	r := resolver{ids: ctx.Identifiers}

	for i, n := range ctx.Nodes {
		resolved, err := r.node(n)
		if err != nil {
			return ctx, err
		}
		nodes[i] = resolved
	}

	ctx.Nodes = nodes
	return ctx, nil
}

// SerializeNodes concatenates the encoding of every node into Output.
func SerializeNodes(ctx Context) (Context, error) {
	out := make([]byte, 0, 64)
	for _, n := range ctx.Nodes {
		enc, err := Serialize(n)
		if err != nil {
			return ctx, err
		}
		out = append(out, enc...)
	}
	ctx.Output = out
	return ctx, nil
}
