package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeDrawCreated       EventType = "draw_created"
	EventTypeDrawSalesOpened   EventType = "draw_sales_opened"
	EventTypeDrawExecuted      EventType = "draw_executed"
	EventTypeDrawSettled       EventType = "draw_settled"
	EventTypeDrawCancelled     EventType = "draw_cancelled"
	EventTypeTicketsIssued     EventType = "tickets_issued"
	EventTypeTicketSubmitted   EventType = "ticket_submitted"
	EventTypeTicketClaimed     EventType = "ticket_claimed"
	EventTypeClaimEventSoldOut EventType = "claim_event_sold_out"
	EventTypeClaimEventEnded   EventType = "claim_event_ended"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// DrawCreatedEvent is published when an operator schedules a draw
type DrawCreatedEvent struct {
	TenantID int64     `json:"tenant_id"`
	DrawID   uuid.UUID `json:"draw_id"`
	GameCode string    `json:"game_code"`
	DrawCode string    `json:"draw_code"`
	DrawAt   time.Time `json:"draw_at"`
}

func (e DrawCreatedEvent) Type() EventType {
	return EventTypeDrawCreated
}

// DrawSalesOpenedEvent carries the published seed commitment
type DrawSalesOpenedEvent struct {
	TenantID       int64     `json:"tenant_id"`
	DrawID         uuid.UUID `json:"draw_id"`
	ServerSeedHash string    `json:"server_seed_hash"`
}

func (e DrawSalesOpenedEvent) Type() EventType {
	return EventTypeDrawSalesOpened
}

// DrawExecutedEvent carries the revealed seed and winning numbers
type DrawExecutedEvent struct {
	TenantID       int64     `json:"tenant_id"`
	DrawID         uuid.UUID `json:"draw_id"`
	WinningNumbers []int     `json:"winning_numbers"`
	ServerSeedHash string    `json:"server_seed_hash"`
	ServerSeed     string    `json:"server_seed"`
	Algorithm      string    `json:"algorithm"`
	DerivedInput   string    `json:"derived_input"`
	DrawnAt        time.Time `json:"drawn_at"`
}

func (e DrawExecutedEvent) Type() EventType {
	return EventTypeDrawExecuted
}

// DrawSettledEvent summarises a completed settlement
type DrawSettledEvent struct {
	TenantID       int64     `json:"tenant_id"`
	DrawID         uuid.UUID `json:"draw_id"`
	LinesEvaluated int       `json:"lines_evaluated"`
	AwardsCreated  int       `json:"awards_created"`
	SettledAt      time.Time `json:"settled_at"`
}

func (e DrawSettledEvent) Type() EventType {
	return EventTypeDrawSettled
}

// DrawCancelledEvent is published when a draw is voided
type DrawCancelledEvent struct {
	TenantID int64     `json:"tenant_id"`
	DrawID   uuid.UUID `json:"draw_id"`
	Reason   string    `json:"reason"`
}

func (e DrawCancelledEvent) Type() EventType {
	return EventTypeDrawCancelled
}

// TicketsIssuedEvent is published for backoffice issuance and bet placement
type TicketsIssuedEvent struct {
	TenantID  int64       `json:"tenant_id"`
	MemberID  int64       `json:"member_id"`
	TicketIDs []uuid.UUID `json:"ticket_ids"`
	IssuedBy  string      `json:"issued_by"`
}

func (e TicketsIssuedEvent) Type() EventType {
	return EventTypeTicketsIssued
}

// TicketSubmittedEvent is published when numbers are submitted on a ticket
type TicketSubmittedEvent struct {
	TenantID int64     `json:"tenant_id"`
	TicketID uuid.UUID `json:"ticket_id"`
	MemberID int64     `json:"member_id"`
	Numbers  string    `json:"numbers"`
}

func (e TicketSubmittedEvent) Type() EventType {
	return EventTypeTicketSubmitted
}

// TicketClaimedEvent is published for every granted claim
type TicketClaimedEvent struct {
	TenantID       int64       `json:"tenant_id"`
	EventID        uuid.UUID   `json:"event_id"`
	MemberID       int64       `json:"member_id"`
	TicketIDs      []uuid.UUID `json:"ticket_ids"`
	RemainingQuota int         `json:"remaining_quota"`
}

func (e TicketClaimedEvent) Type() EventType {
	return EventTypeTicketClaimed
}

// ClaimEventSoldOutEvent is published when the last unit of quota is claimed
type ClaimEventSoldOutEvent struct {
	TenantID int64     `json:"tenant_id"`
	EventID  uuid.UUID `json:"event_id"`
}

func (e ClaimEventSoldOutEvent) Type() EventType {
	return EventTypeClaimEventSoldOut
}

// ClaimEventEndedEvent is published when the sweeper ends an expired event
type ClaimEventEndedEvent struct {
	TenantID     int64     `json:"tenant_id"`
	EventID      uuid.UUID `json:"event_id"`
	TotalClaimed int       `json:"total_claimed"`
}

func (e ClaimEventEndedEvent) Type() EventType {
	return EventTypeClaimEventEnded
}
