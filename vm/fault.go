package vm

import "fmt"

// Fault is a fatal execution error. Counter is the offset of the
// instruction that raised it.
type Fault struct {
	Counter int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s at %d", f.Message, f.Counter)
}

func (p *Program) faultf(format string, args ...any) *Fault {
	return &Fault{Counter: p.start, Message: fmt.Sprintf(format, args...)}
}
