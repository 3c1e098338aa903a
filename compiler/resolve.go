package compiler

// resolver rewrites identifier names into slot ids. Each variant lists its
// operand slots explicitly; nodes are copied, never modified in place.
type resolver struct {
	ids map[string]int
}

func (r resolver) ident(id *Identifier) (*Identifier, error) {
	if id == nil {
		return nil, nil
	}
	slot, ok := r.ids[id.Name]
	if !ok {
		return nil, semanticf("Identifier not found: %s", id.Name)
	}
	out := *id
	out.ID = uint8(slot)
	out.Resolved = true
	return &out, nil
}

func (r resolver) operand(o Operand) (Operand, error) {
	id, ok := o.(*Identifier)
	if !ok || id == nil {
		return o, nil
	}
	return r.ident(id)
}

// operands resolves each slot in turn, stopping at the first failure.
func (r resolver) operands(slots ...*Operand) error {
	for _, slot := range slots {
		resolved, err := r.operand(*slot)
		if err != nil {
			return err
		}
		*slot = resolved
	}
	return nil
}

func (r resolver) node(n Node) (Node, error) {
	var err error

	switch n := n.(type) {
	case *Declare:
		out := *n
		out.Target, err = r.ident(n.Target)
		return &out, err

	case *Assign:
		out := *n
		if out.Target, err = r.ident(n.Target); err != nil {
			return nil, err
		}
		err = r.operands(&out.Value)
		return &out, err

	case *Unary:
		out := *n
		out.Target, err = r.ident(n.Target)
		return &out, err

	case *Binary:
		out := *n
		if out.Target, err = r.ident(n.Target); err != nil {
			return nil, err
		}
		err = r.operands(&out.Left, &out.Right)
		return &out, err

	case *JumpIf:
		out := *n
		err = r.operands(&out.Condition)
		return &out, err

	case *Print:
		out := *n
		err = r.operands(&out.Value)
		return &out, err
	case *Debug:
		out := *n
		err = r.operands(&out.Value)
		return &out, err
	case *Delay:
		out := *n
		err = r.operands(&out.Value)
		return &out, err
	case *Sleep:
		out := *n
		err = r.operands(&out.Value)
		return &out, err

	case *IoWrite:
		out := *n
		err = r.operands(&out.Pin, &out.Value)
		return &out, err
	case *IoRead:
		out := *n
		if out.Target, err = r.ident(n.Target); err != nil {
			return nil, err
		}
		err = r.operands(&out.Pin)
		return &out, err
	case *IoMode:
		out := *n
		err = r.operands(&out.Pin, &out.Mode)
		return &out, err
	case *IoType:
		out := *n
		err = r.operands(&out.Pin, &out.Kind)
		return &out, err

	case *MemGet:
		out := *n
		if out.Target, err = r.ident(n.Target); err != nil {
			return nil, err
		}
		err = r.operands(&out.Address)
		return &out, err
	case *MemSet:
		out := *n
		err = r.operands(&out.Address, &out.Value)
		return &out, err
	case *MemCopy:
		out := *n
		err = r.operands(&out.Dest, &out.Src, &out.Length)
		return &out, err
	}

	// Remaining variants carry no identifier slots.
	return n, nil
}
