package testutil

import (
	"context"
	"testing"
	"time"

	"lottoengine/database"
	"lottoengine/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestDraw builds an unsaved draw whose sales window is open at now
func CreateTestDraw(t *testing.T, tenantID int64, drawCode string, now time.Time) *entities.Draw {
	t.Helper()
	registry := entities.DefaultPlayRuleRegistry()

	draw, err := entities.NewDraw(tenantID, entities.GameCodeLotto539, drawCode,
		now.Add(-time.Hour), now.Add(time.Hour), now.Add(2*time.Hour), nil, registry, now)
	require.NoError(t, err)
	require.NoError(t, draw.EnablePlayTypes([]string{entities.PlayTypeBasic}, registry, now))

	return draw
}

// ConfigureFullPrizePool sets an option on every slot of the draw
func ConfigureFullPrizePool(t *testing.T, draw *entities.Draw, now time.Time) {
	t.Helper()
	registry := entities.DefaultPlayRuleRegistry()

	for _, slot := range draw.PrizePool {
		option := entities.PrizeOption{
			Name: slot.PlayTypeCode + " " + slot.PrizeTier,
			Cost: decimal.NewFromInt(100),
		}
		require.NoError(t, draw.ConfigurePrizeOption(slot.PlayTypeCode, slot.PrizeTier, option, registry, now))
	}
}

// CreateTestClaimEvent builds an unsaved, active claim event scoped to one draw
func CreateTestClaimEvent(t *testing.T, draw *entities.Draw, totalQuota, perMemberQuota int, now time.Time) *entities.TicketClaimEvent {
	t.Helper()

	event, err := entities.NewTicketClaimEvent(entities.NewTicketClaimEventParams{
		TenantID:       draw.TenantID,
		Name:           "test claim event",
		GameCode:       draw.GameCode,
		PlayTypeCode:   entities.PlayTypeBasic,
		StartsAt:       now.Add(-time.Hour),
		EndsAt:         now.Add(time.Hour),
		TotalQuota:     totalQuota,
		PerMemberQuota: perMemberQuota,
		ScopeType:      entities.TicketClaimScopeSingleDraw,
		ScopeID:        draw.ID,
	}, now)
	require.NoError(t, err)
	require.NoError(t, event.Activate(now))

	return event
}

// GrantEntitlements enables the default game and every play type for a tenant
func GrantEntitlements(t *testing.T, db *database.DB, tenantID int64) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO tenant_game_entitlements (tenant_id, game_code, play_type_code, is_enabled)
		VALUES ($1, $2, '', TRUE)
		ON CONFLICT (tenant_id, game_code, play_type_code) DO UPDATE SET is_enabled = TRUE
	`, tenantID, entities.GameCodeLotto539)
	require.NoError(t, err)
}

// SeedWallet creates a member wallet with an opening balance and its ledger entry
func SeedWallet(t *testing.T, db *database.DB, tenantID, memberID int64, balance decimal.Decimal) {
	t.Helper()

	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		ctx := context.Background()
		if _, err := tx.Exec(ctx, `
			INSERT INTO member_wallets (tenant_id, member_id, balance)
			VALUES ($1, $2, $3)
		`, tenantID, memberID, balance); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO wallet_ledger (tenant_id, member_id, amount, balance_after, reference_type, reference_id)
			VALUES ($1, $2, $3, $3, 'opening_balance', '')
		`, tenantID, memberID, balance)
		return err
	})
	require.NoError(t, err)
}
