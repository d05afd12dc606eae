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

const claimEventColumns = `
	id, tenant_id, name, game_code, play_type_code, starts_at, ends_at, total_quota,
	total_claimed, per_member_quota, scope_type, scope_id, ticket_template_id, status,
	created_at, updated_at`

// ticketClaimEventRepository implements claim event data access
type ticketClaimEventRepository struct {
	q        Queryable
	tenantID int64
}

// newTicketClaimEventRepository creates a claim event repository with a transaction and tenant scope
func newTicketClaimEventRepository(tx Queryable, tenantID int64) interfaces.TicketClaimEventRepository {
	return &ticketClaimEventRepository{
		q:        tx,
		tenantID: tenantID,
	}
}

// Create inserts a claim event
func (r *ticketClaimEventRepository) Create(ctx context.Context, event *entities.TicketClaimEvent) error {
	query := `
		INSERT INTO ticket_claim_events (` + claimEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.q.Exec(ctx, query,
		event.ID,
		r.tenantID,
		event.Name,
		event.GameCode,
		event.PlayTypeCode,
		event.StartsAt,
		event.EndsAt,
		event.TotalQuota,
		event.TotalClaimed,
		event.PerMemberQuota,
		event.ScopeType,
		event.ScopeID,
		event.TicketTemplateID,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket claim event: %w", err)
	}
	event.TenantID = r.tenantID

	return nil
}

// GetByID retrieves a claim event by its ID
func (r *ticketClaimEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.TicketClaimEvent, error) {
	query := `SELECT` + claimEventColumns + ` FROM ticket_claim_events WHERE id = $1 AND tenant_id = $2`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a claim event and locks its row
func (r *ticketClaimEventRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.TicketClaimEvent, error) {
	query := `SELECT` + claimEventColumns + ` FROM ticket_claim_events WHERE id = $1 AND tenant_id = $2 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *ticketClaimEventRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*entities.TicketClaimEvent, error) {
	event, err := scanClaimEvent(r.q.QueryRow(ctx, query, id, r.tenantID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket claim event %s: %w", id, err)
	}
	return event, nil
}

// Update persists the claim event's counters and status
func (r *ticketClaimEventRepository) Update(ctx context.Context, event *entities.TicketClaimEvent) error {
	query := `
		UPDATE ticket_claim_events SET
			name = $3,
			total_claimed = $4,
			status = $5,
			updated_at = $6
		WHERE id = $1 AND tenant_id = $2
	`

	tag, err := r.q.Exec(ctx, query,
		event.ID,
		event.TenantID,
		event.Name,
		event.TotalClaimed,
		event.Status,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket claim event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ticket claim event %s not found", event.ID)
	}
	return nil
}

// GetExpiredOpenEvents returns active or sold out events past their end across all tenants
func (r *ticketClaimEventRepository) GetExpiredOpenEvents(ctx context.Context, now time.Time) ([]*entities.TicketClaimEvent, error) {
	query := `
		SELECT` + claimEventColumns + `
		FROM ticket_claim_events
		WHERE status IN ('active', 'sold_out')
		  AND ends_at <= $1
		ORDER BY ends_at
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired claim events: %w", err)
	}
	defer rows.Close()

	var events []*entities.TicketClaimEvent
	for rows.Next() {
		event, err := scanClaimEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claim events: %w", err)
	}
	return events, nil
}

func scanClaimEvent(row pgx.Row) (*entities.TicketClaimEvent, error) {
	var e entities.TicketClaimEvent
	err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.Name,
		&e.GameCode,
		&e.PlayTypeCode,
		&e.StartsAt,
		&e.EndsAt,
		&e.TotalQuota,
		&e.TotalClaimed,
		&e.PerMemberQuota,
		&e.ScopeType,
		&e.ScopeID,
		&e.TicketTemplateID,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
