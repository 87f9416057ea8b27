package postgres

import (
	"context"
	"sync"
)

type commitHooksKey struct{}

// commitHooks collects work that must only happen once the surrounding
// transaction has committed, such as dropping cached rows.
type commitHooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

func withCommitHooks(ctx context.Context) (context.Context, *commitHooks) {
	h := &commitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, h), h
}

// afterCommit queues fn on the transaction scope carried by ctx. It returns
// false when ctx was not produced by TxManager.WithTx.
func afterCommit(ctx context.Context, fn func(context.Context)) bool {
	h, ok := ctx.Value(commitHooksKey{}).(*commitHooks)
	if !ok {
		return false
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
	return true
}

// run executes the queued hooks in order. They outlive a cancelled request.
func (h *commitHooks) run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	ctx = context.WithoutCancel(ctx)
	for _, fn := range fns {
		fn(ctx)
	}
}
