package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntitlementService checks which games and play types a tenant may use
type EntitlementService interface {
	// EnsureGameEnabled fails with GameNotEntitled when the tenant cannot use the game
	EnsureGameEnabled(ctx context.Context, tenantID int64, gameCode string) error

	// EnsurePlayEnabled fails with GameNotEntitled or PlayNotEntitled
	EnsurePlayEnabled(ctx context.Context, tenantID int64, gameCode, playType string) error

	// Invalidate drops any cached entitlements of the tenant
	Invalidate(tenantID int64)
}

// SeedStore holds raw server seeds between commit and reveal
type SeedStore interface {
	// Store saves the seed unless one is already held for the draw; the first seed wins
	Store(ctx context.Context, drawID uuid.UUID, serverSeed string, ttl time.Duration) error

	// Get returns the held seed; found is false when none is stored or it expired
	Get(ctx context.Context, drawID uuid.UUID) (seed string, found bool, err error)
}

// Wallet debits member balances
type Wallet interface {
	// Debit subtracts amount and returns the new balance, failing MemberNotFound or InsufficientBalance
	Debit(ctx context.Context, tenantID, memberID int64, amount decimal.Decimal, referenceType, referenceID, remark string) (decimal.Decimal, error)
}
