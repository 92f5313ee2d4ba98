package access

import (
	"context"

	"freightdesk/pkg/domain"
)

// TxRunner runs fn in one transaction carried by the context.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Executor runs privileged writes: authorize first, then the state change and
// its audit entry together in a single transaction.
type Executor struct {
	gate *Gate
	tx   TxRunner
}

func NewExecutor(gate *Gate, tx TxRunner) *Executor {
	return &Executor{gate: gate, tx: tx}
}

func (e *Executor) Gate() *Gate { return e.gate }

// Mutate authorizes capability c and then runs fn in a transaction. Denials
// are returned as errors and no transaction is started.
func (e *Executor) Mutate(ctx context.Context, c domain.Capability, fn func(ctx context.Context, actor *Actor) error) error {
	actor, err := e.gate.Authorize(ctx, c)
	if err != nil {
		return err
	}
	return e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return fn(txCtx, actor)
	})
}

// Atomic runs fn in a transaction without a capability check, for writes
// whose guard is authentication or org membership alone.
func (e *Executor) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return e.tx.RunInTx(ctx, fn)
}

// Query runs a privileged read. Callers lacking c get an empty result rather
// than an error; store failures still propagate.
func Query[T any](ctx context.Context, gate *Gate, c domain.Capability, fn func(ctx context.Context, actor *Actor) ([]T, error)) ([]T, error) {
	actor, ok, err := gate.Permits(ctx, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []T{}, nil
	}
	return fn(ctx, actor)
}
