package compiler

import "github.com/chazu/pinvm/pkg/bytecode"

// Result is the final state of a successful compilation.
type Result struct {
	Code []byte

	// Names lists identifiers in slot order.
	Names  []string
	Types  map[string]bytecode.ValueType
	Labels map[string]int
}

// Compile parses source and runs passes over it, returning the byte stream.
// With no passes given, DefaultPasses is used.
func Compile(source string, passes ...Pass) ([]byte, error) {
	nodes, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return CompileNodes(nodes, passes...)
}

// CompileNodes runs passes over a pre-parsed node sequence.
func CompileNodes(nodes []Node, passes ...Pass) ([]byte, error) {
	ctx, err := compileContext(nodes, passes)
	if err != nil {
		return nil, err
	}
	return ctx.Output, nil
}

// Build compiles source with the default passes and keeps the symbol
// tables alongside the stream.
func Build(source string) (*Result, error) {
	nodes, err := Parse(source)
	if err != nil {
		return nil, err
	}
	ctx, err := compileContext(nodes, nil)
	if err != nil {
		return nil, err
	}

	return &Result{
		Code:   ctx.Output,
		Names:  ctx.Names,
		Types:  ctx.IdentifierTypes,
		Labels: ctx.Labels,
	}, nil
}

func compileContext(nodes []Node, passes []Pass) (Context, error) {
	if len(passes) == 0 {
		passes = DefaultPasses()
	}
	ctx, err := Run(NewContext(nodes), passes...)
	if err != nil {
		return Context{}, err
	}
	if ctx.Output == nil {
		ctx.Output = []byte{}
	}
	return ctx, nil
}
