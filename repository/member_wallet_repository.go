package repository

import (
	"context"
	"fmt"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// memberWalletRepository debits member balances and records every change in the wallet ledger
type memberWalletRepository struct {
	q        Queryable
	tenantID int64
}

// newMemberWalletRepository creates a wallet repository with a transaction and tenant scope
func newMemberWalletRepository(tx Queryable, tenantID int64) interfaces.Wallet {
	return &memberWalletRepository{
		q:        tx,
		tenantID: tenantID,
	}
}

// Debit subtracts amount from the member's balance and returns the new balance
func (r *memberWalletRepository) Debit(ctx context.Context, tenantID, memberID int64, amount decimal.Decimal, referenceType, referenceID, remark string) (decimal.Decimal, error) {
	if tenantID != r.tenantID {
		return decimal.Zero, fmt.Errorf("wallet scoped to tenant %d cannot debit tenant %d", r.tenantID, tenantID)
	}

	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT balance
		FROM member_wallets
		WHERE tenant_id = $1 AND member_id = $2
		FOR UPDATE
	`, tenantID, memberID).Scan(&balance)
	if err == pgx.ErrNoRows {
		return decimal.Zero, entities.ErrMemberNotFound.WithMessage("member %d has no wallet", memberID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to lock wallet of member %d: %w", memberID, err)
	}

	if balance.LessThan(amount) {
		return balance, entities.ErrInsufficientBalance.WithMessage("balance %s is below %s", balance.String(), amount.String())
	}

	newBalance := balance.Sub(amount)
	now := time.Now().UTC()

	_, err = r.q.Exec(ctx, `
		UPDATE member_wallets
		SET balance = $3, updated_at = $4
		WHERE tenant_id = $1 AND member_id = $2
	`, tenantID, memberID, newBalance, now)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance of member %d: %w", memberID, err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO wallet_ledger (
			tenant_id, member_id, amount, balance_after, reference_type, reference_id, remark, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tenantID, memberID, amount.Neg(), newBalance, referenceType, referenceID, remark, now)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to record wallet ledger entry: %w", err)
	}

	return newBalance, nil
}
