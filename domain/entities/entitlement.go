package entities

import "time"

// TenantGameEntitlement enables a game, or one play type of it, for a tenant.
// An empty PlayTypeCode is the game level switch.
type TenantGameEntitlement struct {
	TenantID     int64     `db:"tenant_id"`
	GameCode     string    `db:"game_code"`
	PlayTypeCode string    `db:"play_type_code"`
	IsEnabled    bool      `db:"is_enabled"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// TenantEntitlements is the resolved entitlement set of one tenant
type TenantEntitlements struct {
	TenantID  int64
	games     map[string]bool
	playTypes map[string]map[string]bool
}

// NewTenantEntitlements indexes entitlement rows of one tenant
func NewTenantEntitlements(tenantID int64, rows []*TenantGameEntitlement) *TenantEntitlements {
	te := &TenantEntitlements{
		TenantID:  tenantID,
		games:     make(map[string]bool),
		playTypes: make(map[string]map[string]bool),
	}
	for _, row := range rows {
		if row.PlayTypeCode == "" {
			te.games[row.GameCode] = row.IsEnabled
			continue
		}
		if te.playTypes[row.GameCode] == nil {
			te.playTypes[row.GameCode] = make(map[string]bool)
		}
		te.playTypes[row.GameCode][row.PlayTypeCode] = row.IsEnabled
	}
	return te
}

// EnsureGameEnabled fails with GameNotEntitled unless the game is enabled
func (te *TenantEntitlements) EnsureGameEnabled(gameCode string) error {
	if !te.games[gameCode] {
		return ErrGameNotEntitled.WithMessage("tenant %d is not entitled to game %s", te.TenantID, gameCode)
	}
	return nil
}

// EnsurePlayEnabled fails unless both the game and the play type are enabled.
// A play type without its own row inherits the game switch.
func (te *TenantEntitlements) EnsurePlayEnabled(gameCode, playType string) error {
	if err := te.EnsureGameEnabled(gameCode); err != nil {
		return err
	}
	enabled, ok := te.playTypes[gameCode][playType]
	if ok && !enabled {
		return ErrPlayNotEntitled.WithMessage("tenant %d is not entitled to %s/%s", te.TenantID, gameCode, playType)
	}
	return nil
}
