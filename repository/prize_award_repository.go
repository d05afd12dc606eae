package repository

import (
	"context"
	"fmt"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
)

// prizeAwardRepository implements prize award data access
type prizeAwardRepository struct {
	q        Queryable
	tenantID int64
}

// newPrizeAwardRepository creates a prize award repository with a transaction and tenant scope
func newPrizeAwardRepository(tx Queryable, tenantID int64) interfaces.PrizeAwardRepository {
	return &prizeAwardRepository{
		q:        tx,
		tenantID: tenantID,
	}
}

// CreateIfAbsent inserts the award unless one exists for its (ticket, draw, line)
func (r *prizeAwardRepository) CreateIfAbsent(ctx context.Context, award *entities.PrizeAward) (bool, error) {
	query := `
		INSERT INTO prize_awards (
			tenant_id, draw_id, ticket_id, line_index, member_id, play_type_code, prize_tier,
			matched_numbers, prize_name, prize_cost, prize_description, redeemable_until, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (ticket_id, draw_id, line_index) DO NOTHING
		RETURNING id
	`

	rows, err := r.q.Query(ctx, query,
		r.tenantID,
		award.DrawID,
		award.TicketID,
		award.LineIndex,
		award.MemberID,
		award.PlayTypeCode,
		award.PrizeTier,
		award.MatchedNumbers,
		award.PrizeName,
		award.PrizeCost,
		award.PrizeDescription,
		award.RedeemableUntil,
		award.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create prize award: %w", err)
	}
	defer rows.Close()

	created := false
	if rows.Next() {
		if err := rows.Scan(&award.ID); err != nil {
			return false, fmt.Errorf("failed to scan prize award id: %w", err)
		}
		created = true
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to create prize award: %w", err)
	}
	award.TenantID = r.tenantID

	return created, nil
}

// GetByDraw returns every award of a draw
func (r *prizeAwardRepository) GetByDraw(ctx context.Context, drawID uuid.UUID) ([]*entities.PrizeAward, error) {
	query := `
		SELECT id, tenant_id, draw_id, ticket_id, line_index, member_id, play_type_code, prize_tier,
		       matched_numbers, prize_name, prize_cost, prize_description, redeemable_until, created_at
		FROM prize_awards
		WHERE tenant_id = $1 AND draw_id = $2
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, r.tenantID, drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prize awards: %w", err)
	}
	defer rows.Close()

	var awards []*entities.PrizeAward
	for rows.Next() {
		var a entities.PrizeAward
		if err := rows.Scan(
			&a.ID,
			&a.TenantID,
			&a.DrawID,
			&a.TicketID,
			&a.LineIndex,
			&a.MemberID,
			&a.PlayTypeCode,
			&a.PrizeTier,
			&a.MatchedNumbers,
			&a.PrizeName,
			&a.PrizeCost,
			&a.PrizeDescription,
			&a.RedeemableUntil,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prize award: %w", err)
		}
		awards = append(awards, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prize awards: %w", err)
	}
	return awards, nil
}
