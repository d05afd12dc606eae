package application

import (
	"context"

	"lottoengine/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	DrawRepository() interfaces.DrawRepository
	TicketRepository() interfaces.TicketRepository
	TicketClaimEventRepository() interfaces.TicketClaimEventRepository
	TicketClaimRepository() interfaces.TicketClaimRepository
	TicketIdempotencyRepository() interfaces.TicketIdempotencyRepository
	PrizeAwardRepository() interfaces.PrizeAwardRepository
	EntitlementRepository() interfaces.EntitlementRepository
	Wallet() interfaces.Wallet
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// CreateForTenant creates a new UnitOfWork instance scoped to a specific tenant.
	// Tenant 0 is used by workers for cross-tenant scans only.
	CreateForTenant(tenantID int64) UnitOfWork
}
