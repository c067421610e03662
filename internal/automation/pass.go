package automation

import (
	"context"
	"sync"

	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
	"github.com/google/uuid"
)

type passKey struct {
	trigger enums.AutomationTrigger
	entity  uuid.UUID
}

// pass is the state of one top-level dispatch and every dispatch its actions
// cause. It travels in the context so re-entrant workflow calls share it.
type pass struct {
	mu     sync.Mutex
	counts map[passKey]int
	halted map[passKey]bool
}

type passCtxKey struct{}

// passFrom returns the pass carried by ctx, starting a new one when absent.
func passFrom(ctx context.Context) (context.Context, *pass) {
	if p, ok := ctx.Value(passCtxKey{}).(*pass); ok {
		return ctx, p
	}
	p := &pass{counts: map[passKey]int{}, halted: map[passKey]bool{}}
	return context.WithValue(ctx, passCtxKey{}, p), p
}

type admission int

const (
	admitted admission = iota
	// haltNow is returned once, for the dispatch that crosses the limit.
	haltNow
	suppressed
)

// enter counts a dispatch of key and decides whether it may run.
func (p *pass) enter(key passKey, maxDepth int) (admission, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.halted[key] {
		return suppressed, p.counts[key]
	}
	p.counts[key]++
	if p.counts[key] > maxDepth {
		p.halted[key] = true
		return haltNow, p.counts[key]
	}
	return admitted, p.counts[key]
}
