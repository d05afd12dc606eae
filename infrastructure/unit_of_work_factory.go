package infrastructure

import (
	"lottoengine/application"
	"lottoengine/database"
	"lottoengine/domain/interfaces"
	"lottoengine/repository"
)

// UnitOfWorkFactory implements the application.UnitOfWorkFactory interface.
// Its units of work hold a database transaction and publish queued events after commit.
type UnitOfWorkFactory struct {
	repoFactory interface {
		CreateForTenant(tenantID int64) application.UnitOfWork
	}
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repository.NewUnitOfWorkFactory(db),
		eventPublisher: eventPublisher,
	}
}

// CreateForTenant creates a new UnitOfWork with a transactional event publisher
func (f *UnitOfWorkFactory) CreateForTenant(tenantID int64) application.UnitOfWork {
	return &publishingUnitOfWork{
		UnitOfWork: f.repoFactory.CreateForTenant(tenantID),
		outbox:     NewNATSTransactionalPublisher(f.eventPublisher),
	}
}
