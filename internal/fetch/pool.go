package fetch

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultPoolSize bounds the number of live sessions in a Pool
const DefaultPoolSize = 256

// Pool hands out one Orchestrator per session so independent callers do not
// supersede each other. Evicted sessions are closed.
type Pool struct {
	opts     Options
	sessions *lru.Cache[string, *Orchestrator]
}

// NewPool creates a pool whose orchestrators share opts (and so their caches)
func NewPool(opts Options, size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	sessions, err := lru.NewWithEvict[string, *Orchestrator](size, func(_ string, o *Orchestrator) {
		o.Close()
	})
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Pool{opts: opts, sessions: sessions}
}

// Session returns the orchestrator for id, creating it on first use
func (p *Pool) Session(id string) *Orchestrator {
	if o, ok := p.sessions.Get(id); ok {
		return o
	}
	o := New(p.opts)
	if prev, ok, _ := p.sessions.PeekOrAdd(id, o); ok {
		o.Close()
		return prev
	}
	return o
}

// Len reports the number of live sessions
func (p *Pool) Len() int {
	return p.sessions.Len()
}

// Close closes every session
func (p *Pool) Close() {
	p.sessions.Purge()
}
