package rvar

// ContextStack holds the active context variable overrides and the current
// context init. It belongs to a Runtime and is used from the update
// goroutine only.
//
// Scopes are pushed and popped with guaranteed unwinding, including
// through panics:
//
//	rvar.WithContextVar(theme, darkTheme, func() {
//	    // theme resolves to darkTheme here
//	})
type ContextStack struct {
	frames []*contextFrame
	init   *ContextInit
	root   *ContextInit
}

// contextFrame binds a context variable id to a source for the duration
// of a scope. busy is set while the source is being read, so a source that
// refers back to the same context variable resolves past this frame.
type contextFrame struct {
	id     uint64
	source AnyVar
	busy   int
}

// ContextInit identifies the context in which contextualized variables are
// initialized. Widgets usually hold one each; the same contextualized
// variable produces an independent actual variable per init.
type ContextInit struct {
	id uint64
}

// ID returns the unique id of the init.
func (c *ContextInit) ID() uint64 {
	return c.id
}

func newContextStack() *ContextStack {
	root := &ContextInit{id: nextID()}
	return &ContextStack{init: root, root: root}
}

// Depth returns the number of active override frames.
func (s *ContextStack) Depth() int {
	return len(s.frames)
}

// NewInit creates a new context init.
func (s *ContextStack) NewInit() *ContextInit {
	return &ContextInit{id: nextID()}
}

// CurrentInit returns the active context init.
func (s *ContextStack) CurrentInit() *ContextInit {
	return s.init
}

// WithInit runs fn with init as the current context init.
func (s *ContextStack) WithInit(init *ContextInit, fn func()) {
	prev := s.init
	s.init = init
	defer func() {
		s.init = prev
	}()
	fn()
}

func (s *ContextStack) push(id uint64, source AnyVar) *contextFrame {
	f := &contextFrame{id: id, source: source}
	s.frames = append(s.frames, f)
	return f
}

func (s *ContextStack) pop(f *contextFrame) {
	n := len(s.frames)
	if n == 0 || s.frames[n-1] != f {
		found := uint64(0)
		if n > 0 {
			found = s.frames[n-1].id
		}
		panic(&ContextScopeError{Want: f.id, Found: found})
	}
	s.frames[n-1] = nil
	s.frames = s.frames[:n-1]
}

// resolve returns the innermost frame for id that is not being read.
func (s *ContextStack) resolve(id uint64) *contextFrame {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if f.id == id && f.busy == 0 {
			return f
		}
	}
	return nil
}
