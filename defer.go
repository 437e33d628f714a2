package wandkit

import (
	"context"
	"sync"
)

type deferKey struct{}

// deferStack funcs registered against a request, run last in first out
type deferStack struct {
	fns  []func()
	done bool
	l    sync.Mutex
}

func (s *deferStack) push(fn func()) bool {
	s.l.Lock()
	defer s.l.Unlock()
	if s.done {
		return false
	}
	s.fns = append(s.fns, fn)
	return true
}

func (s *deferStack) run() {
	s.l.Lock()
	fns := s.fns
	s.fns, s.done = nil, true
	s.l.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// DeferContext returns a context whose deferred funcs run once it is done,
// in reverse order of registration
func DeferContext(ctx context.Context) context.Context {
	s := &deferStack{}
	ctx = context.WithValue(ctx, deferKey{}, s)
	context.AfterFunc(ctx, s.run)
	return ctx
}

// Defer registers fn to run at the end of the request.
// Outside a DeferContext, or once it has finished, fn runs as soon as ctx is done.
func Defer(ctx context.Context, fn func()) {
	if s, ok := ctx.Value(deferKey{}).(*deferStack); ok && s.push(fn) {
		return
	}
	context.AfterFunc(ctx, fn)
}
