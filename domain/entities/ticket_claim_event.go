package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketClaimEventStatus is the stored lifecycle status of a claim event
type TicketClaimEventStatus string

const (
	TicketClaimEventDraft    TicketClaimEventStatus = "draft"
	TicketClaimEventActive   TicketClaimEventStatus = "active"
	TicketClaimEventSoldOut  TicketClaimEventStatus = "sold_out"
	TicketClaimEventEnded    TicketClaimEventStatus = "ended"
	TicketClaimEventDisabled TicketClaimEventStatus = "disabled"
)

// TicketClaimScopeType selects what a claimed ticket is valid for
type TicketClaimScopeType string

const (
	TicketClaimScopeSingleDraw      TicketClaimScopeType = "single_draw"
	TicketClaimScopeSingleDrawGroup TicketClaimScopeType = "single_draw_group"
)

// TicketClaimEvent is a time-boxed, quota-limited free ticket campaign
type TicketClaimEvent struct {
	ID               uuid.UUID              `db:"id"`
	TenantID         int64                  `db:"tenant_id"`
	Name             string                 `db:"name"`
	GameCode         string                 `db:"game_code"`
	PlayTypeCode     string                 `db:"play_type_code"`
	StartsAt         time.Time              `db:"starts_at"`
	EndsAt           time.Time              `db:"ends_at"`
	TotalQuota       int                    `db:"total_quota"`
	TotalClaimed     int                    `db:"total_claimed"`
	PerMemberQuota   int                    `db:"per_member_quota"`
	ScopeType        TicketClaimScopeType   `db:"scope_type"`
	ScopeID          uuid.UUID              `db:"scope_id"` // Draw id or draw group id
	TicketTemplateID *uuid.UUID             `db:"ticket_template_id"`
	Status           TicketClaimEventStatus `db:"status"`
	CreatedAt        time.Time              `db:"created_at"`
	UpdatedAt        time.Time              `db:"updated_at"`
}

// NewTicketClaimEventParams holds the operator supplied fields of a claim event
type NewTicketClaimEventParams struct {
	TenantID         int64
	Name             string
	GameCode         string
	PlayTypeCode     string
	StartsAt         time.Time
	EndsAt           time.Time
	TotalQuota       int
	PerMemberQuota   int
	ScopeType        TicketClaimScopeType
	ScopeID          uuid.UUID
	TicketTemplateID *uuid.UUID
}

// NewTicketClaimEvent validates and creates a draft claim event
func NewTicketClaimEvent(params NewTicketClaimEventParams, now time.Time) (*TicketClaimEvent, error) {
	if !params.EndsAt.After(params.StartsAt) {
		return nil, ErrTicketClaimEventTimeInvalid
	}
	if params.TotalQuota <= 0 || params.PerMemberQuota <= 0 || params.PerMemberQuota > params.TotalQuota {
		return nil, ErrTicketClaimEventQuotaInvalid
	}
	switch params.ScopeType {
	case TicketClaimScopeSingleDraw, TicketClaimScopeSingleDrawGroup:
	default:
		return nil, ErrTicketClaimEventScopeInvalid.WithMessage("unknown scope type %q", params.ScopeType)
	}
	if params.ScopeID == uuid.Nil {
		return nil, ErrTicketClaimEventScopeInvalid.WithMessage("scope id is required")
	}
	gameCode := strings.TrimSpace(params.GameCode)
	if gameCode == "" {
		return nil, ErrGameCodeRequired
	}
	playType := strings.TrimSpace(params.PlayTypeCode)
	if playType == "" {
		return nil, ErrPlayTypeNotAllowed.WithMessage("play type is required")
	}

	return &TicketClaimEvent{
		ID:               uuid.New(),
		TenantID:         params.TenantID,
		Name:             strings.TrimSpace(params.Name),
		GameCode:         gameCode,
		PlayTypeCode:     playType,
		StartsAt:         params.StartsAt.UTC(),
		EndsAt:           params.EndsAt.UTC(),
		TotalQuota:       params.TotalQuota,
		PerMemberQuota:   params.PerMemberQuota,
		ScopeType:        params.ScopeType,
		ScopeID:          params.ScopeID,
		TicketTemplateID: params.TicketTemplateID,
		Status:           TicketClaimEventDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// RemainingQuota returns how many tickets can still be claimed
func (e *TicketClaimEvent) RemainingQuota() int {
	remaining := e.TotalQuota - e.TotalClaimed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Activate opens a draft event for claiming
func (e *TicketClaimEvent) Activate(now time.Time) error {
	if e.Status != TicketClaimEventDraft {
		return ErrTicketClaimEventStatusInvalid.WithMessage("cannot activate a %s event", e.Status)
	}
	e.Status = TicketClaimEventActive
	e.UpdatedAt = now
	return nil
}

// Disable stops an event permanently
func (e *TicketClaimEvent) Disable(now time.Time) error {
	if e.Status == TicketClaimEventDisabled {
		return nil
	}
	if e.Status == TicketClaimEventEnded {
		return ErrTicketClaimEventStatusInvalid.WithMessage("cannot disable an ended event")
	}
	e.Status = TicketClaimEventDisabled
	e.UpdatedAt = now
	return nil
}

// MarkEnded moves an active or sold out event past its window to Ended
func (e *TicketClaimEvent) MarkEnded(now time.Time) bool {
	if e.Status != TicketClaimEventActive && e.Status != TicketClaimEventSoldOut {
		return false
	}
	if now.Before(e.EndsAt) {
		return false
	}
	e.Status = TicketClaimEventEnded
	e.UpdatedAt = now
	return true
}

// EnsureCanClaim checks the event accepts a claim at now. An exhausted
// active event is flipped to SoldOut.
func (e *TicketClaimEvent) EnsureCanClaim(now time.Time) error {
	switch e.Status {
	case TicketClaimEventDisabled:
		return ErrTicketClaimEventDisabled
	case TicketClaimEventDraft:
		return ErrTicketClaimEventNotStarted
	case TicketClaimEventEnded:
		return ErrTicketClaimEventEnded
	case TicketClaimEventSoldOut:
		return ErrTicketClaimEventSoldOut
	}

	if now.Before(e.StartsAt) {
		return ErrTicketClaimEventNotStarted
	}
	if !now.Before(e.EndsAt) {
		return ErrTicketClaimEventEnded
	}
	if e.TotalClaimed >= e.TotalQuota {
		e.markSoldOut(now)
		return ErrTicketClaimEventSoldOut
	}
	return nil
}

// IncreaseClaimed consumes qty units of the total quota
func (e *TicketClaimEvent) IncreaseClaimed(qty int, now time.Time) error {
	if qty <= 0 {
		return ErrTicketQuantityInvalid
	}
	if e.TotalClaimed+qty > e.TotalQuota {
		e.markSoldOut(now)
		return ErrTicketClaimEventSoldOut
	}
	e.TotalClaimed += qty
	e.UpdatedAt = now
	if e.TotalClaimed >= e.TotalQuota {
		e.markSoldOut(now)
	}
	return nil
}

func (e *TicketClaimEvent) markSoldOut(now time.Time) {
	if e.Status == TicketClaimEventActive {
		e.Status = TicketClaimEventSoldOut
		e.UpdatedAt = now
	}
}

// TicketClaimMemberCounter counts one member's claims within one event
type TicketClaimMemberCounter struct {
	TenantID     int64     `db:"tenant_id"`
	EventID      uuid.UUID `db:"event_id"`
	MemberID     int64     `db:"member_id"`
	ClaimedCount int       `db:"claimed_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Increase adds qty claims, failing once perMemberQuota would be exceeded
func (c *TicketClaimMemberCounter) Increase(qty, perMemberQuota int, now time.Time) error {
	if qty <= 0 {
		return ErrTicketQuantityInvalid
	}
	if c.ClaimedCount+qty > perMemberQuota {
		return ErrTicketClaimEventMemberQuotaExceeded.WithMessage("member %d already claimed %d of %d", c.MemberID, c.ClaimedCount, perMemberQuota)
	}
	c.ClaimedCount += qty
	c.UpdatedAt = now
	return nil
}
