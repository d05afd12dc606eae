package repository

import (
	"context"
	"fmt"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// ticketIdempotencyRepository implements stored idempotent response data access
type ticketIdempotencyRepository struct {
	q        Queryable
	tenantID int64
}

// newTicketIdempotencyRepository creates an idempotency repository with a transaction and tenant scope
func newTicketIdempotencyRepository(tx Queryable, tenantID int64) interfaces.TicketIdempotencyRepository {
	return &ticketIdempotencyRepository{
		q:        tx,
		tenantID: tenantID,
	}
}

// LockKey takes a transaction-scoped advisory lock on (tenant, operation, key).
// A waiter wakes after the holder commits and its next read sees the stored record.
func (r *ticketIdempotencyRepository) LockKey(ctx context.Context, operation, key string) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, $2))`, operation+":"+key, r.tenantID)
	if err != nil {
		return fmt.Errorf("failed to lock idempotency key %s/%s: %w", operation, key, err)
	}
	return nil
}

// Get returns the stored record of an operation key, or nil when the key is unused
func (r *ticketIdempotencyRepository) Get(ctx context.Context, operation, key string) (*entities.TicketIdempotencyRecord, error) {
	query := `
		SELECT tenant_id, operation, idempotency_key, request_hash, response_payload, created_at
		FROM ticket_idempotency_records
		WHERE tenant_id = $1 AND operation = $2 AND idempotency_key = $3
	`

	var rec entities.TicketIdempotencyRecord
	err := r.q.QueryRow(ctx, query, r.tenantID, operation, key).Scan(
		&rec.TenantID,
		&rec.Operation,
		&rec.IdempotencyKey,
		&rec.RequestHash,
		&rec.ResponsePayload,
		&rec.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency record %s/%s: %w", operation, key, err)
	}

	return &rec, nil
}

// Create stores the record
func (r *ticketIdempotencyRepository) Create(ctx context.Context, record *entities.TicketIdempotencyRecord) error {
	query := `
		INSERT INTO ticket_idempotency_records (
			tenant_id, operation, idempotency_key, request_hash, response_payload, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.Exec(ctx, query,
		r.tenantID,
		record.Operation,
		record.IdempotencyKey,
		record.RequestHash,
		record.ResponsePayload,
		record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrTicketIdempotencyKeyConflict.WithMessage("key %q already used for %s", record.IdempotencyKey, record.Operation)
		}
		return fmt.Errorf("failed to create idempotency record: %w", err)
	}
	record.TenantID = r.tenantID

	return nil
}
