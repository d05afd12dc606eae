package application

import (
	"context"
	"fmt"
)

// withTenantUoW runs fn inside a tenant-scoped unit of work and commits if fn succeeds.
// Queued events are published only after the commit.
func withTenantUoW[T any](ctx context.Context, factory UnitOfWorkFactory, tenantID int64, deps Dependencies, fn func(*uowServices, UnitOfWork) (T, error)) (T, error) {
	var zero T

	uow := factory.CreateForTenant(tenantID)
	if err := uow.Begin(ctx); err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := fn(newUoWServices(uow, deps), uow)
	if err != nil {
		return zero, err
	}

	if err := uow.Commit(); err != nil {
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}
