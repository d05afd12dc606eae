package repository

import (
	"lottoengine/application"
	"lottoengine/database"
	"lottoengine/domain/interfaces"
)

// CreateTestUnitOfWork creates a unit of work for testing with the provided transactional publisher
func CreateTestUnitOfWork(db *database.DB, tenantID int64, transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return NewUnitOfWorkFactory(db).CreateForTenantWithPublisher(tenantID, transactionalPublisher)
}
