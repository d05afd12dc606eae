package repository

import (
	"context"
	"fmt"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ticketColumns = `
	id, tenant_id, game_code, play_type_code, member_id, ticket_template_id, campaign_id,
	draw_id, issued_at, issued_by_type, issued_by_id, issue_reason, submission_status,
	submitted_at, submitted_by, submission_client_ref, submission_note, cancelled_at,
	expired_at, created_at, updated_at`

const ticketDrawColumns = `
	ticket_id, draw_id, tenant_id, participation_status, invalid_reason, settled_at,
	redeemed_at, cancelled_at, created_at, updated_at`

// ticketRepository implements ticket, line and participation data access
type ticketRepository struct {
	q        Queryable
	tenantID int64
}

// newTicketRepository creates a ticket repository with a transaction and tenant scope
func newTicketRepository(tx Queryable, tenantID int64) interfaces.TicketRepository {
	return &ticketRepository{
		q:        tx,
		tenantID: tenantID,
	}
}

// Create inserts a ticket and any lines it already carries
func (r *ticketRepository) Create(ctx context.Context, ticket *entities.Ticket) error {
	query := `
		INSERT INTO tickets (
			id, tenant_id, game_code, play_type_code, member_id, ticket_template_id, campaign_id,
			draw_id, issued_at, issued_by_type, issued_by_id, issue_reason, submission_status,
			submitted_at, submitted_by, submission_client_ref, submission_note, cancelled_at,
			expired_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := r.q.Exec(ctx, query,
		ticket.ID,
		r.tenantID,
		ticket.GameCode,
		ticket.PlayTypeCode,
		ticket.MemberID,
		ticket.TicketTemplateID,
		ticket.CampaignID,
		ticket.DrawID,
		ticket.IssuedAt,
		ticket.IssuedByType,
		ticket.IssuedByID,
		ticket.IssueReason,
		ticket.SubmissionStatus,
		ticket.SubmittedAt,
		ticket.SubmittedBy,
		ticket.SubmissionRef,
		ticket.SubmissionNote,
		ticket.CancelledAt,
		ticket.ExpiredAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	ticket.TenantID = r.tenantID

	return r.insertLines(ctx, ticket)
}

// GetByID retrieves a ticket with its lines
func (r *ticketRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Ticket, error) {
	return r.getOne(ctx, `SELECT`+ticketColumns+` FROM tickets WHERE id = $1 AND tenant_id = $2`, id)
}

// GetByIDForUpdate retrieves a ticket with its lines and locks the ticket row
func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Ticket, error) {
	return r.getOne(ctx, `SELECT`+ticketColumns+` FROM tickets WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id)
}

func (r *ticketRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*entities.Ticket, error) {
	ticket, err := scanTicket(r.q.QueryRow(ctx, query, id, r.tenantID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket %s: %w", id, err)
	}

	if err := r.loadLines(ctx, map[uuid.UUID]*entities.Ticket{ticket.ID: ticket}); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetByIDs retrieves tickets with their lines, keyed by id
func (r *ticketRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.Ticket, error) {
	tickets := make(map[uuid.UUID]*entities.Ticket, len(ids))
	if len(ids) == 0 {
		return tickets, nil
	}

	query := `SELECT` + ticketColumns + ` FROM tickets WHERE id = ANY($1) AND tenant_id = $2`
	rows, err := r.q.Query(ctx, query, ids, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets[ticket.ID] = ticket
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}
	rows.Close()

	if err := r.loadLines(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Update persists the ticket's status fields and inserts new lines
func (r *ticketRepository) Update(ctx context.Context, ticket *entities.Ticket) error {
	query := `
		UPDATE tickets SET
			submission_status = $3,
			submitted_at = $4,
			submitted_by = $5,
			submission_client_ref = $6,
			submission_note = $7,
			cancelled_at = $8,
			expired_at = $9,
			updated_at = $10
		WHERE id = $1 AND tenant_id = $2
	`

	tag, err := r.q.Exec(ctx, query,
		ticket.ID,
		r.tenantID,
		ticket.SubmissionStatus,
		ticket.SubmittedAt,
		ticket.SubmittedBy,
		ticket.SubmissionRef,
		ticket.SubmissionNote,
		ticket.CancelledAt,
		ticket.ExpiredAt,
		ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ticket %s not found", ticket.ID)
	}

	return r.insertLines(ctx, ticket)
}

// insertLines writes lines that are not stored yet; stored lines are immutable
func (r *ticketRepository) insertLines(ctx context.Context, ticket *entities.Ticket) error {
	for _, line := range ticket.Lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO ticket_lines (ticket_id, line_index, numbers, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (ticket_id, line_index) DO NOTHING
		`, ticket.ID, line.LineIndex, line.Numbers, line.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert line %d of ticket %s: %w", line.LineIndex, ticket.ID, err)
		}
	}
	return nil
}

func (r *ticketRepository) loadLines(ctx context.Context, tickets map[uuid.UUID]*entities.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(tickets))
	for id, t := range tickets {
		ids = append(ids, id)
		t.Lines = nil
	}

	rows, err := r.q.Query(ctx, `
		SELECT ticket_id, line_index, numbers, created_at
		FROM ticket_lines
		WHERE ticket_id = ANY($1)
		ORDER BY ticket_id, line_index
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query ticket lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line entities.TicketLine
		if err := rows.Scan(&line.TicketID, &line.LineIndex, &line.Numbers, &line.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan ticket line: %w", err)
		}
		t := tickets[line.TicketID]
		t.Lines = append(t.Lines, &line)
	}

	return rows.Err()
}

// CreateTicketDraws inserts participation links
func (r *ticketRepository) CreateTicketDraws(ctx context.Context, links []*entities.TicketDraw) error {
	if len(links) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, link := range links {
		batch.Queue(`
			INSERT INTO ticket_draws (`+ticketDrawColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			link.TicketID,
			link.DrawID,
			r.tenantID,
			link.ParticipationStatus,
			link.InvalidReason,
			link.SettledAt,
			link.RedeemedAt,
			link.CancelledAt,
			link.CreatedAt,
			link.UpdatedAt,
		)
	}

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	for range links {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to create ticket draws: %w", err)
		}
	}

	return nil
}

// GetTicketDraws returns every participation of a ticket
func (r *ticketRepository) GetTicketDraws(ctx context.Context, ticketID uuid.UUID) ([]*entities.TicketDraw, error) {
	query := `
		SELECT` + ticketDrawColumns + `
		FROM ticket_draws
		WHERE ticket_id = $1 AND tenant_id = $2
		ORDER BY created_at, draw_id
	`

	return r.listTicketDraws(ctx, query, ticketID, r.tenantID)
}

// GetTicketDrawsByDraw returns participations of a draw in the given statuses, every status when none are given
func (r *ticketRepository) GetTicketDrawsByDraw(ctx context.Context, drawID uuid.UUID, statuses ...entities.TicketParticipationStatus) ([]*entities.TicketDraw, error) {
	query := `
		SELECT` + ticketDrawColumns + `
		FROM ticket_draws
		WHERE draw_id = $1 AND tenant_id = $2
	`
	args := []any{drawID, r.tenantID}

	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		query += ` AND participation_status = ANY($3)`
		args = append(args, values)
	}
	query += ` ORDER BY ticket_id`

	return r.listTicketDraws(ctx, query, args...)
}

// HasTicketDraws reports whether any ticket participates in the draw, in any status
func (r *ticketRepository) HasTicketDraws(ctx context.Context, drawID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM ticket_draws WHERE draw_id = $1 AND tenant_id = $2)
	`, drawID, r.tenantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ticket draws: %w", err)
	}
	return exists, nil
}

func (r *ticketRepository) listTicketDraws(ctx context.Context, query string, args ...any) ([]*entities.TicketDraw, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket draws: %w", err)
	}
	defer rows.Close()

	var links []*entities.TicketDraw
	for rows.Next() {
		var link entities.TicketDraw
		if err := rows.Scan(
			&link.TicketID,
			&link.DrawID,
			&link.TenantID,
			&link.ParticipationStatus,
			&link.InvalidReason,
			&link.SettledAt,
			&link.RedeemedAt,
			&link.CancelledAt,
			&link.CreatedAt,
			&link.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ticket draw: %w", err)
		}
		links = append(links, &link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket draws: %w", err)
	}
	return links, nil
}

// UpdateTicketDraw persists a participation's status fields
func (r *ticketRepository) UpdateTicketDraw(ctx context.Context, link *entities.TicketDraw) error {
	query := `
		UPDATE ticket_draws SET
			participation_status = $4,
			invalid_reason = $5,
			settled_at = $6,
			redeemed_at = $7,
			cancelled_at = $8,
			updated_at = $9
		WHERE ticket_id = $1 AND draw_id = $2 AND tenant_id = $3
	`

	tag, err := r.q.Exec(ctx, query,
		link.TicketID,
		link.DrawID,
		r.tenantID,
		link.ParticipationStatus,
		link.InvalidReason,
		link.SettledAt,
		link.RedeemedAt,
		link.CancelledAt,
		link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket draw: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ticket draw %s/%s not found", link.TicketID, link.DrawID)
	}
	return nil
}

func scanTicket(row pgx.Row) (*entities.Ticket, error) {
	var t entities.Ticket
	err := row.Scan(
		&t.ID,
		&t.TenantID,
		&t.GameCode,
		&t.PlayTypeCode,
		&t.MemberID,
		&t.TicketTemplateID,
		&t.CampaignID,
		&t.DrawID,
		&t.IssuedAt,
		&t.IssuedByType,
		&t.IssuedByID,
		&t.IssueReason,
		&t.SubmissionStatus,
		&t.SubmittedAt,
		&t.SubmittedBy,
		&t.SubmissionRef,
		&t.SubmissionNote,
		&t.CancelledAt,
		&t.ExpiredAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
