package infrastructure

import (
	"context"

	"lottoengine/application"
	"lottoengine/domain/interfaces"
)

// publishingUnitOfWork routes EventBus through a commit-gated queue.
// Repository getters come from the embedded transaction.
type publishingUnitOfWork struct {
	application.UnitOfWork
	outbox *NATSTransactionalPublisher
	ctx    context.Context
}

func (u *publishingUnitOfWork) Begin(ctx context.Context) error {
	u.ctx = ctx
	return u.UnitOfWork.Begin(ctx)
}

// Commit flushes the outbox only once the rows are durable.
// A failed publish never fails the commit.
func (u *publishingUnitOfWork) Commit() error {
	if err := u.UnitOfWork.Commit(); err != nil {
		u.outbox.Discard()
		return err
	}
	ctx := u.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_ = u.outbox.Flush(context.WithoutCancel(ctx))
	return nil
}

func (u *publishingUnitOfWork) Rollback() error {
	u.outbox.Discard()
	return u.UnitOfWork.Rollback()
}

func (u *publishingUnitOfWork) EventBus() interfaces.EventPublisher {
	return u.outbox
}
