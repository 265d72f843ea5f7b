package link

import "sync"

// Workspace owns the published link context. Links run one at a time and
// a new context replaces the old one only when a link succeeds.
type Workspace struct {
	linker *Linker
	run    sync.Mutex

	mu      sync.RWMutex
	current *Context
	links   int
}

// NewWorkspace creates a workspace with nothing published.
func NewWorkspace(l *Linker) *Workspace {
	return &Workspace{linker: l}
}

// Link runs a link and publishes its context on success. A failed link
// leaves the previously published context in place.
func (w *Workspace) Link(in Inputs) (*Context, error) {
	w.run.Lock()
	defer w.run.Unlock()

	ctx, err := w.linker.Link(in)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.current = ctx
	w.links++
	w.mu.Unlock()
	return ctx, nil
}

// Context returns the published context, or nil before the first
// successful link.
func (w *Workspace) Context() *Context {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Links returns the number of successful links.
func (w *Workspace) Links() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.links
}
