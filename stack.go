package spanz

// stack is a persistent stack of open spans. The nil *stack is the empty
// stack. Nodes are never modified after construction, so a stack value can
// be shared freely between flows: push and pop build new values and leave
// every other value intact.
type stack struct {
	span *Span
	prev *stack
}

func (s *stack) empty() bool {
	return s == nil
}

func (s *stack) push(span *Span) *stack {
	return &stack{span: span, prev: s}
}

// peek returns the top span, or nil for the empty stack.
func (s *stack) peek() *Span {
	if s == nil {
		return nil
	}
	return s.span
}

// pop returns the top span and the stack below it.
func (s *stack) pop() (*Span, *stack) {
	if s == nil {
		return nil, nil
	}
	return s.span, s.prev
}

func (s *stack) len() int {
	n := 0
	for ; s != nil; s = s.prev {
		n++
	}
	return n
}

// prune pops the contiguous run of ended spans at the top. It returns the
// remaining stack, which is empty or has a live span on top, and the last
// span popped, if any.
func (s *stack) prune() (*stack, *Span) {
	var last *Span
	for !s.empty() && s.peek().Disposed() {
		last, s = s.pop()
	}
	return s, last
}
