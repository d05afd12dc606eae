package entities

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlgorithmHMACSHA256 is the published name of the winning number derivation
const AlgorithmHMACSHA256 = "HMACSHA256"

// DrawStatus is derived from a draw's timestamps and flags, never stored
type DrawStatus string

const (
	DrawStatusScheduled   DrawStatus = "scheduled"
	DrawStatusSalesOpen   DrawStatus = "sales_open"
	DrawStatusSalesClosed DrawStatus = "sales_closed"
	DrawStatusDrawn       DrawStatus = "drawn"
	DrawStatusSettled     DrawStatus = "settled"
	DrawStatusCancelled   DrawStatus = "cancelled"
)

// PrizeOption is the prize snapshot attached to one prize pool slot
type PrizeOption struct {
	Name            string          `json:"name"`
	Cost            decimal.Decimal `json:"cost"`
	RedeemValidDays *int            `json:"redeem_valid_days,omitempty"`
	Description     string          `json:"description,omitempty"`
}

// Validate checks the option has a name, a non-negative cost and positive redeem days
func (o *PrizeOption) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return ErrPrizeOptionInvalid.WithMessage("prize name is required")
	}
	if o.Cost.IsNegative() {
		return ErrPrizeOptionInvalid.WithMessage("prize cost cannot be negative")
	}
	if o.RedeemValidDays != nil && *o.RedeemValidDays <= 0 {
		return ErrPrizeOptionInvalid.WithMessage("redeem valid days must be positive")
	}
	return nil
}

// PrizePoolSlot is the prize configured for one (play type, tier) pair of a draw
type PrizePoolSlot struct {
	ID           int64        `db:"id"`
	DrawID       uuid.UUID    `db:"draw_id"`
	PlayTypeCode string       `db:"play_type_code"`
	PrizeTier    string       `db:"prize_tier"`
	Option       *PrizeOption `db:"option"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// IsConfigured returns true once a prize option has been set
func (s *PrizePoolSlot) IsConfigured() bool {
	return s.Option != nil
}

// Draw is one lottery period of one game
type Draw struct {
	ID                uuid.UUID  `db:"id"`
	TenantID          int64      `db:"tenant_id"`
	GameCode          string     `db:"game_code"`
	DrawCode          string     `db:"draw_code"`
	SalesOpenAt       time.Time  `db:"sales_open_at"`
	SalesCloseAt      time.Time  `db:"sales_close_at"`
	DrawAt            time.Time  `db:"draw_at"`
	RedeemValidDays   *int       `db:"redeem_valid_days"`
	ServerSeedHash    *string    `db:"server_seed_hash"` // Committed when sales open
	ServerSeed        *string    `db:"server_seed"`      // NULL until the draw is executed
	Algorithm         *string    `db:"algorithm"`
	DerivedInput      *string    `db:"derived_input"`
	WinningNumbersRaw *string    `db:"winning_numbers"`
	IsManuallyClosed  bool       `db:"is_manually_closed"`
	ManualCloseAt     *time.Time `db:"manual_close_at"`
	ManualCloseReason *string    `db:"manual_close_reason"`
	IsCancelled       bool       `db:"is_cancelled"`
	CancelledAt       *time.Time `db:"cancelled_at"`
	CancelReason      *string    `db:"cancel_reason"`
	DrawnAt           *time.Time `db:"drawn_at"`
	SettledAt         *time.Time `db:"settled_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`

	EnabledPlayTypes []string
	PrizePool        []*PrizePoolSlot
}

// NewDraw creates a draw after validating its identity and timing
func NewDraw(tenantID int64, gameCode, drawCode string, salesOpenAt, salesCloseAt, drawAt time.Time, redeemValidDays *int, registry *PlayRuleRegistry, now time.Time) (*Draw, error) {
	gameCode = strings.TrimSpace(gameCode)
	drawCode = strings.TrimSpace(drawCode)

	if gameCode == "" {
		return nil, ErrGameCodeRequired
	}
	if drawCode == "" {
		return nil, ErrDrawCodeRequired
	}
	if !salesOpenAt.Before(salesCloseAt) || salesCloseAt.After(drawAt) {
		return nil, ErrDrawTimeInvalid
	}
	if redeemValidDays != nil && *redeemValidDays <= 0 {
		return nil, ErrDrawRedeemValidDaysInvalid
	}
	if _, ok := registry.GetGame(gameCode); !ok {
		return nil, ErrGameNotFound.WithMessage("game %s is not in the catalogue", gameCode)
	}

	draw := &Draw{
		ID:              uuid.New(),
		TenantID:        tenantID,
		GameCode:        gameCode,
		DrawCode:        drawCode,
		SalesOpenAt:     salesOpenAt.UTC(),
		SalesCloseAt:    salesCloseAt.UTC(),
		DrawAt:          drawAt.UTC(),
		RedeemValidDays: redeemValidDays,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	draw.ensurePrizePoolSlots(registry)

	return draw, nil
}

// GetEffectiveStatus derives the lifecycle status at the given instant
func (d *Draw) GetEffectiveStatus(now time.Time) DrawStatus {
	switch {
	case d.IsCancelled:
		return DrawStatusCancelled
	case d.SettledAt != nil:
		return DrawStatusSettled
	case d.IsDrawn():
		return DrawStatusDrawn
	case d.IsManuallyClosed:
		return DrawStatusSalesClosed
	case now.Before(d.SalesOpenAt):
		return DrawStatusScheduled
	case now.Before(d.SalesCloseAt):
		return DrawStatusSalesOpen
	default:
		return DrawStatusSalesClosed
	}
}

// IsDrawn returns true once winning numbers have been revealed
func (d *Draw) IsDrawn() bool {
	return d.DrawnAt != nil || (d.WinningNumbersRaw != nil && *d.WinningNumbersRaw != "")
}

// IsSettled returns true once prizes have been settled
func (d *Draw) IsSettled() bool {
	return d.SettledAt != nil
}

// IsWithinSalesWindow returns true if tickets can be sold at the given instant
func (d *Draw) IsWithinSalesWindow(now time.Time) bool {
	return d.GetEffectiveStatus(now) == DrawStatusSalesOpen
}

// IsEffectivelyClosed returns true once sales can no longer happen, for any reason
func (d *Draw) IsEffectivelyClosed(now time.Time) bool {
	status := d.GetEffectiveStatus(now)
	return status != DrawStatusScheduled && status != DrawStatusSalesOpen
}

// IsPlayTypeEnabled reports whether the play type can be sold on this draw
func (d *Draw) IsPlayTypeEnabled(playType string) bool {
	for _, code := range d.EnabledPlayTypes {
		if code == playType {
			return true
		}
	}
	return false
}

// EnablePlayTypes enables play types and creates their empty prize pool slots
func (d *Draw) EnablePlayTypes(codes []string, registry *PlayRuleRegistry, now time.Time) error {
	pending := make(map[string]struct{}, len(codes))
	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		if !registry.IsPlayTypeAllowed(d.GameCode, code) {
			return ErrPlayTypeNotAllowed.WithMessage("play type %s is not allowed for game %s", code, d.GameCode)
		}
		if _, dup := pending[code]; dup || d.IsPlayTypeEnabled(code) {
			return ErrPlayTypeAlreadyEnabled.WithMessage("play type %s is already enabled", code)
		}
		pending[code] = struct{}{}
	}

	for _, raw := range codes {
		d.EnabledPlayTypes = append(d.EnabledPlayTypes, strings.TrimSpace(raw))
	}
	sort.Strings(d.EnabledPlayTypes)
	d.ensurePrizePoolSlots(registry)
	d.UpdatedAt = now

	return nil
}

// ensurePrizePoolSlots creates an empty slot for every enabled play type and rule tier missing one
func (d *Draw) ensurePrizePoolSlots(registry *PlayRuleRegistry) {
	for _, playType := range d.EnabledPlayTypes {
		rule, ok := registry.GetRule(d.GameCode, playType)
		if !ok {
			continue
		}
		for _, tier := range rule.Tiers {
			if d.FindPrizePoolSlot(playType, tier) != nil {
				continue
			}
			d.PrizePool = append(d.PrizePool, &PrizePoolSlot{
				DrawID:       d.ID,
				PlayTypeCode: playType,
				PrizeTier:    tier,
			})
		}
	}
}

// FindPrizePoolSlot returns the slot for the (play type, tier) pair, or nil
func (d *Draw) FindPrizePoolSlot(playType, tier string) *PrizePoolSlot {
	for _, slot := range d.PrizePool {
		if slot.PlayTypeCode == playType && slot.PrizeTier == tier {
			return slot
		}
	}
	return nil
}

// ConfigurePrizeOption overwrites the prize option of one slot
func (d *Draw) ConfigurePrizeOption(playType, tier string, option PrizeOption, registry *PlayRuleRegistry, now time.Time) error {
	if !d.IsPlayTypeEnabled(playType) {
		return ErrTicketPlayTypeNotEnabled.WithMessage("play type %s is not enabled for draw %s", playType, d.DrawCode)
	}
	rule, ok := registry.GetRule(d.GameCode, playType)
	if !ok || !rule.HasTier(tier) {
		return ErrPrizeTierNotAllowed.WithMessage("tier %s is not defined for play type %s", tier, playType)
	}
	if err := option.Validate(); err != nil {
		return err
	}

	slot := d.FindPrizePoolSlot(playType, tier)
	if slot == nil {
		return ErrPrizePoolSlotMissing.WithMessage("no slot for %s/%s", playType, tier)
	}

	opt := option
	slot.Option = &opt
	slot.UpdatedAt = now
	d.UpdatedAt = now

	return nil
}

// EnsurePrizePoolCompleteForSettlement fails unless every enabled play type and tier has a configured slot
func (d *Draw) EnsurePrizePoolCompleteForSettlement(registry *PlayRuleRegistry) error {
	for _, playType := range d.EnabledPlayTypes {
		rule, ok := registry.GetRule(d.GameCode, playType)
		if !ok {
			return ErrPlayTypeNotAllowed.WithMessage("play type %s is not allowed for game %s", playType, d.GameCode)
		}
		for _, tier := range rule.Tiers {
			slot := d.FindPrizePoolSlot(playType, tier)
			if slot == nil {
				return ErrPrizePoolSlotMissing.WithMessage("no slot for %s/%s", playType, tier)
			}
			if !slot.IsConfigured() {
				return ErrPrizePoolNotConfigured.WithMessage("slot %s/%s has no prize option", playType, tier)
			}
		}
	}
	return nil
}

// OpenSales commits the server seed hash; the first committed hash is kept
func (d *Draw) OpenSales(serverSeedHash string, now time.Time) {
	if d.ServerSeedHash != nil && *d.ServerSeedHash != "" {
		return
	}
	hash := serverSeedHash
	d.ServerSeedHash = &hash
	d.UpdatedAt = now
}

// HasCommittedSeed returns true once OpenSales has recorded a seed hash
func (d *Draw) HasCommittedSeed() bool {
	return d.ServerSeedHash != nil && *d.ServerSeedHash != ""
}

// Execute reveals the seed and records the winning numbers.
// Callers must check IsEffectivelyClosed and IsDrawn first.
func (d *Draw) Execute(winning LotteryNumbers, serverSeed, algorithm, derivedInput string, now time.Time) {
	raw := winning.String()
	d.WinningNumbersRaw = &raw
	d.ServerSeed = &serverSeed
	d.Algorithm = &algorithm
	d.DerivedInput = &derivedInput
	d.DrawnAt = &now
	d.IsManuallyClosed = false
	d.ManualCloseAt = nil
	d.ManualCloseReason = nil
	d.UpdatedAt = now
}

// MarkSettled records settlement. Settling a cancelled or undrawn draw is an invariant violation.
func (d *Draw) MarkSettled(now time.Time) error {
	if d.IsCancelled {
		return ErrDrawSettlementInvariant.WithMessage("draw %s is cancelled", d.DrawCode)
	}
	if !d.IsDrawn() {
		return ErrDrawSettlementInvariant.WithMessage("draw %s has not been drawn", d.DrawCode)
	}
	if d.SettledAt != nil {
		return nil
	}
	d.SettledAt = &now
	d.UpdatedAt = now
	return nil
}

// CloseManually stops sales before the scheduled close time
func (d *Draw) CloseManually(reason string, now time.Time) error {
	if d.IsCancelled {
		return ErrDrawCancelled
	}
	if d.IsDrawn() || d.IsSettled() {
		return ErrDrawAlreadySettled
	}
	reason = strings.TrimSpace(reason)
	d.IsManuallyClosed = true
	d.ManualCloseAt = &now
	d.ManualCloseReason = &reason
	d.UpdatedAt = now
	return nil
}

// Reopen removes a manual close so the time-based window applies again
func (d *Draw) Reopen(now time.Time) error {
	if d.IsCancelled {
		return ErrDrawCancelled
	}
	if d.IsDrawn() || d.IsSettled() {
		return ErrDrawAlreadySettled
	}
	d.IsManuallyClosed = false
	d.ManualCloseAt = nil
	d.ManualCloseReason = nil
	d.UpdatedAt = now
	return nil
}

// Cancel voids the draw before it has been drawn
func (d *Draw) Cancel(reason string, now time.Time) error {
	if d.IsCancelled {
		return nil
	}
	if d.IsDrawn() {
		return ErrDrawAlreadyDrawn
	}
	reason = strings.TrimSpace(reason)
	d.IsCancelled = true
	d.CancelledAt = &now
	d.CancelReason = &reason
	d.UpdatedAt = now
	return nil
}

// WinningNumbers parses the stored winning numbers using the game's draw format
func (d *Draw) WinningNumbers(registry *PlayRuleRegistry) (LotteryNumbers, error) {
	if d.WinningNumbersRaw == nil || *d.WinningNumbersRaw == "" {
		return LotteryNumbers{}, ErrDrawNotDrawn
	}
	game, ok := registry.GetGame(d.GameCode)
	if !ok {
		return LotteryNumbers{}, ErrGameNotFound.WithMessage("game %s is not in the catalogue", d.GameCode)
	}
	return ParseLotteryNumbers(*d.WinningNumbersRaw, game.DrawFormat)
}

// RedeemableUntil returns the redemption deadline for a prize option won in this draw
func (d *Draw) RedeemableUntil(option *PrizeOption) *time.Time {
	days := d.RedeemValidDays
	if option != nil && option.RedeemValidDays != nil {
		days = option.RedeemValidDays
	}
	if days == nil || d.DrawnAt == nil {
		return nil
	}
	until := d.DrawnAt.AddDate(0, 0, *days)
	return &until
}

// DrawVerification is the public proof that lets anyone replay a draw
type DrawVerification struct {
	ServerSeedHash string `json:"serverSeedHash"`
	ServerSeed     string `json:"serverSeed"`
	Algorithm      string `json:"algorithm"`
	DerivedInput   string `json:"derivedInput"`
	WinningNumbers []int  `json:"winningNumbers"`
}

// VerificationPayload returns the published proof of a drawn draw
func (d *Draw) VerificationPayload(registry *PlayRuleRegistry) (*DrawVerification, error) {
	if !d.IsDrawn() || d.ServerSeed == nil || d.ServerSeedHash == nil {
		return nil, ErrDrawNotDrawn
	}
	numbers, err := d.WinningNumbers(registry)
	if err != nil {
		return nil, err
	}

	payload := &DrawVerification{
		ServerSeedHash: *d.ServerSeedHash,
		ServerSeed:     *d.ServerSeed,
		WinningNumbers: numbers.Values(),
	}
	if d.Algorithm != nil {
		payload.Algorithm = *d.Algorithm
	}
	if d.DerivedInput != nil {
		payload.DerivedInput = *d.DerivedInput
	}
	return payload, nil
}

// DrawInputFor returns the pre-committed derivation input of a draw id: lowercase hex, no dashes
func DrawInputFor(drawID uuid.UUID) string {
	return strings.ReplaceAll(drawID.String(), "-", "")
}
