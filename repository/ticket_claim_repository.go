package repository

import (
	"context"
	"fmt"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const claimRecordColumns = `
	id, tenant_id, event_id, member_id, idempotency_key, request_hash, quantity,
	issued_ticket_ids, created_at`

// ticketClaimRepository implements claim counter and claim record data access
type ticketClaimRepository struct {
	q        Queryable
	tenantID int64
}

// newTicketClaimRepository creates a claim repository with a transaction and tenant scope
func newTicketClaimRepository(tx Queryable, tenantID int64) interfaces.TicketClaimRepository {
	return &ticketClaimRepository{
		q:        tx,
		tenantID: tenantID,
	}
}

// GetOrCreateCounterForUpdate returns the member's counter row, creating it if absent, and locks it
func (r *ticketClaimRepository) GetOrCreateCounterForUpdate(ctx context.Context, eventID uuid.UUID, memberID int64, now time.Time) (*entities.TicketClaimMemberCounter, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO ticket_claim_member_counters (tenant_id, event_id, member_id, claimed_count, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $4)
		ON CONFLICT (event_id, member_id) DO NOTHING
	`, r.tenantID, eventID, memberID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create claim counter: %w", err)
	}

	var c entities.TicketClaimMemberCounter
	err = r.q.QueryRow(ctx, `
		SELECT tenant_id, event_id, member_id, claimed_count, created_at, updated_at
		FROM ticket_claim_member_counters
		WHERE event_id = $1 AND member_id = $2 AND tenant_id = $3
		FOR UPDATE
	`, eventID, memberID, r.tenantID).Scan(
		&c.TenantID,
		&c.EventID,
		&c.MemberID,
		&c.ClaimedCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock claim counter for member %d: %w", memberID, err)
	}

	return &c, nil
}

// UpdateCounter persists the member's claimed count
func (r *ticketClaimRepository) UpdateCounter(ctx context.Context, counter *entities.TicketClaimMemberCounter) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE ticket_claim_member_counters
		SET claimed_count = $4, updated_at = $5
		WHERE event_id = $1 AND member_id = $2 AND tenant_id = $3
	`, counter.EventID, counter.MemberID, r.tenantID, counter.ClaimedCount, counter.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update claim counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("claim counter for member %d not found", counter.MemberID)
	}
	return nil
}

// GetRecordByKey returns the member's claim record on the event carrying the idempotency key
func (r *ticketClaimRepository) GetRecordByKey(ctx context.Context, eventID uuid.UUID, memberID int64, key string) (*entities.TicketClaimRecord, error) {
	query := `
		SELECT` + claimRecordColumns + `
		FROM ticket_claim_records
		WHERE tenant_id = $1 AND event_id = $2 AND member_id = $3 AND idempotency_key = $4
	`

	record, err := scanClaimRecord(r.q.QueryRow(ctx, query, r.tenantID, eventID, memberID, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim record: %w", err)
	}
	return record, nil
}

// CreateRecord appends a claim record
func (r *ticketClaimRepository) CreateRecord(ctx context.Context, record *entities.TicketClaimRecord) error {
	query := `
		INSERT INTO ticket_claim_records (` + claimRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		record.ID,
		r.tenantID,
		record.EventID,
		record.MemberID,
		record.IdempotencyKey,
		record.RequestHash,
		record.Quantity,
		record.IssuedTicketIDs,
		record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrTicketIdempotencyKeyConflict.WithMessage("claim key already used by member %d", record.MemberID)
		}
		return fmt.Errorf("failed to create claim record: %w", err)
	}
	return nil
}

// GetRecordsByEvent returns every claim record of an event in claim order
func (r *ticketClaimRepository) GetRecordsByEvent(ctx context.Context, eventID uuid.UUID) ([]*entities.TicketClaimRecord, error) {
	query := `
		SELECT` + claimRecordColumns + `
		FROM ticket_claim_records
		WHERE tenant_id = $1 AND event_id = $2
		ORDER BY created_at, id
	`

	rows, err := r.q.Query(ctx, query, r.tenantID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query claim records: %w", err)
	}
	defer rows.Close()

	var records []*entities.TicketClaimRecord
	for rows.Next() {
		record, err := scanClaimRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claim records: %w", err)
	}
	return records, nil
}

func scanClaimRecord(row pgx.Row) (*entities.TicketClaimRecord, error) {
	var rec entities.TicketClaimRecord
	err := row.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.EventID,
		&rec.MemberID,
		&rec.IdempotencyKey,
		&rec.RequestHash,
		&rec.Quantity,
		&rec.IssuedTicketIDs,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
