package repository

import (
	"context"
	"fmt"

	"lottoengine/application"
	"lottoengine/database"
	"lottoengine/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	tenantID               int64
	transactionalPublisher interfaces.TransactionalEventPublisher
	drawRepo               interfaces.DrawRepository
	ticketRepo             interfaces.TicketRepository
	claimEventRepo         interfaces.TicketClaimEventRepository
	claimRepo              interfaces.TicketClaimRepository
	idempotencyRepo        interfaces.TicketIdempotencyRepository
	prizeAwardRepo         interfaces.PrizeAwardRepository
	entitlementRepo        interfaces.EntitlementRepository
	wallet                 interfaces.Wallet
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db: db,
	}
}

type unitOfWorkFactory struct {
	db *database.DB
}

// CreateForTenant creates a new UnitOfWork without event publishing
func (f *unitOfWorkFactory) CreateForTenant(tenantID int64) application.UnitOfWork {
	return &unitOfWork{
		db:       f.db,
		tenantID: tenantID,
	}
}

// CreateForTenantWithPublisher creates a new UnitOfWork with a specific transactional publisher
func (f *unitOfWorkFactory) CreateForTenantWithPublisher(tenantID int64, transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		tenantID:               tenantID,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create tenant-scoped repositories with the transaction
	u.drawRepo = newDrawRepository(tx, u.tenantID)
	u.ticketRepo = newTicketRepository(tx, u.tenantID)
	u.claimEventRepo = newTicketClaimEventRepository(tx, u.tenantID)
	u.claimRepo = newTicketClaimRepository(tx, u.tenantID)
	u.idempotencyRepo = newTicketIdempotencyRepository(tx, u.tenantID)
	u.prizeAwardRepo = newPrizeAwardRepository(tx, u.tenantID)
	u.entitlementRepo = newEntitlementRepositoryWithTx(tx) // Entitlements are keyed by tenant explicitly
	u.wallet = newMemberWalletRepository(tx, u.tenantID)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalPublisher != nil {
		_ = u.transactionalPublisher.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return nil
}

// DrawRepository returns the draw repository for this unit of work
func (u *unitOfWork) DrawRepository() interfaces.DrawRepository {
	if u.drawRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.drawRepo
}

// TicketRepository returns the ticket repository for this unit of work
func (u *unitOfWork) TicketRepository() interfaces.TicketRepository {
	if u.ticketRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ticketRepo
}

// TicketClaimEventRepository returns the claim event repository for this unit of work
func (u *unitOfWork) TicketClaimEventRepository() interfaces.TicketClaimEventRepository {
	if u.claimEventRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.claimEventRepo
}

// TicketClaimRepository returns the claim counter and record repository for this unit of work
func (u *unitOfWork) TicketClaimRepository() interfaces.TicketClaimRepository {
	if u.claimRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.claimRepo
}

// TicketIdempotencyRepository returns the idempotency repository for this unit of work
func (u *unitOfWork) TicketIdempotencyRepository() interfaces.TicketIdempotencyRepository {
	if u.idempotencyRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.idempotencyRepo
}

// PrizeAwardRepository returns the prize award repository for this unit of work
func (u *unitOfWork) PrizeAwardRepository() interfaces.PrizeAwardRepository {
	if u.prizeAwardRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.prizeAwardRepo
}

// EntitlementRepository returns the entitlement repository for this unit of work
func (u *unitOfWork) EntitlementRepository() interfaces.EntitlementRepository {
	if u.entitlementRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.entitlementRepo
}

// Wallet returns the member wallet for this unit of work
func (u *unitOfWork) Wallet() interfaces.Wallet {
	if u.wallet == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.wallet
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalPublisher
}
