package repository

import (
	"context"
	"fmt"

	"lottoengine/database"
	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"
)

// entitlementRepository implements tenant game entitlement data access.
// Rows are keyed by tenant explicitly, so it is not tenant scoped.
type entitlementRepository struct {
	q Queryable
}

// NewEntitlementRepository creates an entitlement repository on the pool
func NewEntitlementRepository(db *database.DB) interfaces.EntitlementRepository {
	return &entitlementRepository{q: db.Pool}
}

// newEntitlementRepositoryWithTx creates an entitlement repository with a transaction
func newEntitlementRepositoryWithTx(tx Queryable) interfaces.EntitlementRepository {
	return &entitlementRepository{q: tx}
}

// GetByTenant returns every entitlement row of a tenant
func (r *entitlementRepository) GetByTenant(ctx context.Context, tenantID int64) ([]*entities.TenantGameEntitlement, error) {
	query := `
		SELECT tenant_id, game_code, play_type_code, is_enabled, updated_at
		FROM tenant_game_entitlements
		WHERE tenant_id = $1
		ORDER BY game_code, play_type_code
	`

	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entitlements for tenant %d: %w", tenantID, err)
	}
	defer rows.Close()

	var result []*entities.TenantGameEntitlement
	for rows.Next() {
		var e entities.TenantGameEntitlement
		if err := rows.Scan(&e.TenantID, &e.GameCode, &e.PlayTypeCode, &e.IsEnabled, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		result = append(result, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entitlements: %w", err)
	}
	return result, nil
}

// Upsert creates or replaces one entitlement switch
func (r *entitlementRepository) Upsert(ctx context.Context, e *entities.TenantGameEntitlement) error {
	query := `
		INSERT INTO tenant_game_entitlements (tenant_id, game_code, play_type_code, is_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, game_code, play_type_code) DO UPDATE SET
			is_enabled = EXCLUDED.is_enabled,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.q.Exec(ctx, query, e.TenantID, e.GameCode, e.PlayTypeCode, e.IsEnabled, e.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert entitlement: %w", err)
	}
	return nil
}
