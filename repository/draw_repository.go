package repository

import (
	"context"
	"fmt"
	"time"

	"lottoengine/database"
	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const drawColumns = `
	id, tenant_id, game_code, draw_code, sales_open_at, sales_close_at, draw_at,
	redeem_valid_days, server_seed_hash, server_seed, algorithm, derived_input,
	winning_numbers, is_manually_closed, manual_close_at, manual_close_reason,
	is_cancelled, cancelled_at, cancel_reason, drawn_at, settled_at, created_at, updated_at`

// drawRepository implements draw data access
type drawRepository struct {
	q        Queryable
	tenantID int64
}

// NewDrawRepository creates a draw repository on the pool, scoped to tenantID
func NewDrawRepository(db *database.DB, tenantID int64) interfaces.DrawRepository {
	return &drawRepository{q: db.Pool, tenantID: tenantID}
}

// newDrawRepository creates a draw repository with a transaction and tenant scope
func newDrawRepository(tx Queryable, tenantID int64) interfaces.DrawRepository {
	return &drawRepository{
		q:        tx,
		tenantID: tenantID,
	}
}

// Create inserts a draw with its enabled play types and prize pool slots
func (r *drawRepository) Create(ctx context.Context, draw *entities.Draw) error {
	query := `
		INSERT INTO draws (
			id, tenant_id, game_code, draw_code, sales_open_at, sales_close_at, draw_at,
			redeem_valid_days, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.Exec(ctx, query,
		draw.ID,
		r.tenantID,
		draw.GameCode,
		draw.DrawCode,
		draw.SalesOpenAt,
		draw.SalesCloseAt,
		draw.DrawAt,
		draw.RedeemValidDays,
		draw.CreatedAt,
		draw.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrDrawCodeDuplicate.WithMessage("draw %s/%s already exists", draw.GameCode, draw.DrawCode)
		}
		return fmt.Errorf("failed to create draw: %w", err)
	}
	draw.TenantID = r.tenantID

	return r.saveChildren(ctx, draw)
}

// GetByID retrieves a draw with its play types and prize pool
func (r *drawRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Draw, error) {
	return r.getOne(ctx, `SELECT`+drawColumns+` FROM draws WHERE id = $1 AND tenant_id = $2`, id)
}

// GetByIDForUpdate retrieves a draw and locks its row
func (r *drawRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Draw, error) {
	return r.getOne(ctx, `SELECT`+drawColumns+` FROM draws WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id)
}

// GetByCode retrieves a draw by game and draw code
func (r *drawRepository) GetByCode(ctx context.Context, gameCode, drawCode string) (*entities.Draw, error) {
	query := `SELECT` + drawColumns + ` FROM draws WHERE game_code = $1 AND draw_code = $2 AND tenant_id = $3`

	draw, err := scanDraw(r.q.QueryRow(ctx, query, gameCode, drawCode, r.tenantID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw %s/%s: %w", gameCode, drawCode, err)
	}

	if err := r.loadChildren(ctx, []*entities.Draw{draw}); err != nil {
		return nil, err
	}
	return draw, nil
}

func (r *drawRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*entities.Draw, error) {
	draw, err := scanDraw(r.q.QueryRow(ctx, query, id, r.tenantID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw %s: %w", id, err)
	}

	if err := r.loadChildren(ctx, []*entities.Draw{draw}); err != nil {
		return nil, err
	}
	return draw, nil
}

// Update persists the draw row, its enabled play types and its prize pool slots
func (r *drawRepository) Update(ctx context.Context, draw *entities.Draw) error {
	query := `
		UPDATE draws SET
			redeem_valid_days = $3,
			server_seed_hash = $4,
			server_seed = $5,
			algorithm = $6,
			derived_input = $7,
			winning_numbers = $8,
			is_manually_closed = $9,
			manual_close_at = $10,
			manual_close_reason = $11,
			is_cancelled = $12,
			cancelled_at = $13,
			cancel_reason = $14,
			drawn_at = $15,
			settled_at = $16,
			updated_at = $17
		WHERE id = $1 AND tenant_id = $2
	`

	tag, err := r.q.Exec(ctx, query,
		draw.ID,
		draw.TenantID,
		draw.RedeemValidDays,
		draw.ServerSeedHash,
		draw.ServerSeed,
		draw.Algorithm,
		draw.DerivedInput,
		draw.WinningNumbersRaw,
		draw.IsManuallyClosed,
		draw.ManualCloseAt,
		draw.ManualCloseReason,
		draw.IsCancelled,
		draw.CancelledAt,
		draw.CancelReason,
		draw.DrawnAt,
		draw.SettledAt,
		draw.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update draw: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("draw %s not found", draw.ID)
	}

	return r.saveChildren(ctx, draw)
}

// AddToGroup links a draw to a draw group
func (r *drawRepository) AddToGroup(ctx context.Context, groupID, drawID uuid.UUID) error {
	query := `
		INSERT INTO draw_group_members (group_id, draw_id, tenant_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, draw_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, groupID, drawID, r.tenantID); err != nil {
		return fmt.Errorf("failed to add draw %s to group %s: %w", drawID, groupID, err)
	}
	return nil
}

// GetByGroup returns every draw linked to a draw group, ordered by draw time
func (r *drawRepository) GetByGroup(ctx context.Context, groupID uuid.UUID) ([]*entities.Draw, error) {
	query := `
		SELECT` + prefixed("d", drawColumns) + `
		FROM draws d
		JOIN draw_group_members g ON g.draw_id = d.id
		WHERE g.group_id = $1 AND d.tenant_id = $2
		ORDER BY d.draw_at, d.id
	`

	return r.list(ctx, query, groupID, r.tenantID)
}

// GetDrawsDueForSalesOpen returns uncommitted draws that open within lead of now and still sell
func (r *drawRepository) GetDrawsDueForSalesOpen(ctx context.Context, now time.Time, lead time.Duration) ([]*entities.Draw, error) {
	query := `
		SELECT` + drawColumns + `
		FROM draws
		WHERE server_seed_hash IS NULL
		  AND is_cancelled = FALSE
		  AND is_manually_closed = FALSE
		  AND drawn_at IS NULL
		  AND sales_open_at <= $1
		  AND sales_close_at > $2
		ORDER BY sales_open_at
	`

	return r.list(ctx, query, now.Add(lead), now)
}

// GetDrawsDueForExecution returns undrawn, uncancelled draws whose draw time has passed
func (r *drawRepository) GetDrawsDueForExecution(ctx context.Context, now time.Time) ([]*entities.Draw, error) {
	query := `
		SELECT` + drawColumns + `
		FROM draws
		WHERE drawn_at IS NULL
		  AND is_cancelled = FALSE
		  AND server_seed_hash IS NOT NULL
		  AND draw_at <= $1
		ORDER BY draw_at
	`

	return r.list(ctx, query, now)
}

// GetDrawsPendingSettlement returns drawn draws that have not been settled
func (r *drawRepository) GetDrawsPendingSettlement(ctx context.Context) ([]*entities.Draw, error) {
	query := `
		SELECT` + drawColumns + `
		FROM draws
		WHERE drawn_at IS NOT NULL
		  AND settled_at IS NULL
		  AND is_cancelled = FALSE
		ORDER BY drawn_at
	`

	return r.list(ctx, query)
}

func (r *drawRepository) list(ctx context.Context, query string, args ...any) ([]*entities.Draw, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	var draws []*entities.Draw
	for rows.Next() {
		draw, err := scanDraw(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		draws = append(draws, draw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draws: %w", err)
	}

	if err := r.loadChildren(ctx, draws); err != nil {
		return nil, err
	}
	return draws, nil
}

// loadChildren fills the enabled play types and prize pool of each draw
func (r *drawRepository) loadChildren(ctx context.Context, draws []*entities.Draw) error {
	if len(draws) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*entities.Draw, len(draws))
	ids := make([]uuid.UUID, 0, len(draws))
	for _, d := range draws {
		byID[d.ID] = d
		ids = append(ids, d.ID)
		d.EnabledPlayTypes = nil
		d.PrizePool = nil
	}

	rows, err := r.q.Query(ctx, `
		SELECT draw_id, play_type_code
		FROM draw_play_types
		WHERE draw_id = ANY($1)
		ORDER BY draw_id, play_type_code
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query draw play types: %w", err)
	}
	for rows.Next() {
		var drawID uuid.UUID
		var code string
		if err := rows.Scan(&drawID, &code); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan draw play type: %w", err)
		}
		byID[drawID].EnabledPlayTypes = append(byID[drawID].EnabledPlayTypes, code)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating draw play types: %w", err)
	}

	rows, err = r.q.Query(ctx, `
		SELECT id, draw_id, play_type_code, prize_tier, prize_name, prize_cost,
		       redeem_valid_days, prize_description, updated_at
		FROM draw_prize_pool_slots
		WHERE draw_id = ANY($1)
		ORDER BY draw_id, play_type_code, prize_tier
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query prize pool slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slot entities.PrizePoolSlot
		var name, description *string
		var cost decimal.NullDecimal
		var redeemDays *int
		if err := rows.Scan(
			&slot.ID,
			&slot.DrawID,
			&slot.PlayTypeCode,
			&slot.PrizeTier,
			&name,
			&cost,
			&redeemDays,
			&description,
			&slot.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to scan prize pool slot: %w", err)
		}
		if name != nil {
			slot.Option = &entities.PrizeOption{
				Name:            *name,
				Cost:            cost.Decimal,
				RedeemValidDays: redeemDays,
			}
			if description != nil {
				slot.Option.Description = *description
			}
		}
		draw := byID[slot.DrawID]
		draw.PrizePool = append(draw.PrizePool, &slot)
	}

	return rows.Err()
}

// saveChildren upserts enabled play types and prize pool slots; both only ever grow
func (r *drawRepository) saveChildren(ctx context.Context, draw *entities.Draw) error {
	for _, code := range draw.EnabledPlayTypes {
		_, err := r.q.Exec(ctx, `
			INSERT INTO draw_play_types (draw_id, play_type_code)
			VALUES ($1, $2)
			ON CONFLICT (draw_id, play_type_code) DO NOTHING
		`, draw.ID, code)
		if err != nil {
			return fmt.Errorf("failed to save play type %s of draw %s: %w", code, draw.ID, err)
		}
	}

	for _, slot := range draw.PrizePool {
		var name, description *string
		var cost decimal.NullDecimal
		var redeemDays *int
		if slot.Option != nil {
			name = &slot.Option.Name
			cost = decimal.NewNullDecimal(slot.Option.Cost)
			redeemDays = slot.Option.RedeemValidDays
			if slot.Option.Description != "" {
				description = &slot.Option.Description
			}
		}

		updatedAt := slot.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = draw.UpdatedAt
		}

		err := r.q.QueryRow(ctx, `
			INSERT INTO draw_prize_pool_slots (
				draw_id, play_type_code, prize_tier, prize_name, prize_cost,
				redeem_valid_days, prize_description, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (draw_id, play_type_code, prize_tier) DO UPDATE SET
				prize_name = EXCLUDED.prize_name,
				prize_cost = EXCLUDED.prize_cost,
				redeem_valid_days = EXCLUDED.redeem_valid_days,
				prize_description = EXCLUDED.prize_description,
				updated_at = EXCLUDED.updated_at
			RETURNING id
		`, draw.ID, slot.PlayTypeCode, slot.PrizeTier, name, cost, redeemDays, description, updatedAt).Scan(&slot.ID)
		if err != nil {
			return fmt.Errorf("failed to save prize pool slot %s/%s of draw %s: %w", slot.PlayTypeCode, slot.PrizeTier, draw.ID, err)
		}
		slot.DrawID = draw.ID
	}

	return nil
}

func scanDraw(row pgx.Row) (*entities.Draw, error) {
	var draw entities.Draw
	err := row.Scan(
		&draw.ID,
		&draw.TenantID,
		&draw.GameCode,
		&draw.DrawCode,
		&draw.SalesOpenAt,
		&draw.SalesCloseAt,
		&draw.DrawAt,
		&draw.RedeemValidDays,
		&draw.ServerSeedHash,
		&draw.ServerSeed,
		&draw.Algorithm,
		&draw.DerivedInput,
		&draw.WinningNumbersRaw,
		&draw.IsManuallyClosed,
		&draw.ManualCloseAt,
		&draw.ManualCloseReason,
		&draw.IsCancelled,
		&draw.CancelledAt,
		&draw.CancelReason,
		&draw.DrawnAt,
		&draw.SettledAt,
		&draw.CreatedAt,
		&draw.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &draw, nil
}
