package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrizeAward is a settled win of one ticket line in one draw.
// (TicketID, DrawID, LineIndex) is unique so settlement retries never pay twice.
type PrizeAward struct {
	ID               int64           `db:"id"`
	TenantID         int64           `db:"tenant_id"`
	DrawID           uuid.UUID       `db:"draw_id"`
	TicketID         uuid.UUID       `db:"ticket_id"`
	LineIndex        int             `db:"line_index"`
	MemberID         int64           `db:"member_id"`
	PlayTypeCode     string          `db:"play_type_code"`
	PrizeTier        string          `db:"prize_tier"`
	MatchedNumbers   string          `db:"matched_numbers"`
	PrizeName        string          `db:"prize_name"`
	PrizeCost        decimal.Decimal `db:"prize_cost"`
	PrizeDescription string          `db:"prize_description"`
	RedeemableUntil  *time.Time      `db:"redeemable_until"`
	CreatedAt        time.Time       `db:"created_at"`
}

// NewPrizeAward snapshots the slot's prize option for a winning line
func NewPrizeAward(draw *Draw, ticket *Ticket, line *TicketLine, tier string, slot *PrizePoolSlot, now time.Time) *PrizeAward {
	award := &PrizeAward{
		TenantID:       draw.TenantID,
		DrawID:         draw.ID,
		TicketID:       ticket.ID,
		LineIndex:      line.LineIndex,
		MemberID:       ticket.MemberID,
		PlayTypeCode:   ticket.PlayTypeCode,
		PrizeTier:      tier,
		MatchedNumbers: line.Numbers,
		CreatedAt:      now,
	}
	if slot != nil && slot.Option != nil {
		award.PrizeName = slot.Option.Name
		award.PrizeCost = slot.Option.Cost
		award.PrizeDescription = slot.Option.Description
		award.RedeemableUntil = draw.RedeemableUntil(slot.Option)
	}
	return award
}
