package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Idempotent operations sharing the ticket_idempotency_records table
const (
	IdempotencyOperationIssueTickets = "issue_member_tickets"
	IdempotencyOperationPlaceBet     = "place_ticket_bet"
	IdempotencyOperationClaim        = "claim_ticket"
)

// NormalizeIdempotencyKey trims the key; blank keys mean no idempotency
func NormalizeIdempotencyKey(key string) (string, bool) {
	key = strings.TrimSpace(key)
	return key, key != ""
}

// ComputeRequestHash returns the hex SHA-256 of the request fields that define a logical request
func ComputeRequestHash(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TicketIdempotencyRecord stores the response of an idempotent backoffice or member command
type TicketIdempotencyRecord struct {
	TenantID        int64     `db:"tenant_id"`
	Operation       string    `db:"operation"`
	IdempotencyKey  string    `db:"idempotency_key"`
	RequestHash     string    `db:"request_hash"`
	ResponsePayload []byte    `db:"response_payload"`
	CreatedAt       time.Time `db:"created_at"`
}

// EnsureSameRequest fails when the key was first used for a different request
func (r *TicketIdempotencyRecord) EnsureSameRequest(requestHash string) error {
	if r.RequestHash != requestHash {
		return ErrTicketIdempotencyKeyConflict.WithMessage("key %q was used for a different %s request", r.IdempotencyKey, r.Operation)
	}
	return nil
}

// TicketClaimRecord is the append-only ledger entry of a successful claim
type TicketClaimRecord struct {
	ID              uuid.UUID   `db:"id"`
	TenantID        int64       `db:"tenant_id"`
	EventID         uuid.UUID   `db:"event_id"`
	MemberID        int64       `db:"member_id"`
	IdempotencyKey  *string     `db:"idempotency_key"`
	RequestHash     string      `db:"request_hash"`
	Quantity        int         `db:"quantity"`
	IssuedTicketIDs []uuid.UUID `db:"issued_ticket_ids"`
	CreatedAt       time.Time   `db:"created_at"`
}

// ClaimRequestHash hashes the fields that identify a claim request
func ClaimRequestHash(eventID uuid.UUID, memberID int64) string {
	return ComputeRequestHash(IdempotencyOperationClaim, eventID.String(), strconv.FormatInt(memberID, 10))
}

// NewTicketClaimRecord records the tickets issued by one claim
func NewTicketClaimRecord(event *TicketClaimEvent, memberID int64, key string, ticketIDs []uuid.UUID, now time.Time) *TicketClaimRecord {
	record := &TicketClaimRecord{
		ID:              uuid.New(),
		TenantID:        event.TenantID,
		EventID:         event.ID,
		MemberID:        memberID,
		RequestHash:     ClaimRequestHash(event.ID, memberID),
		Quantity:        len(ticketIDs),
		IssuedTicketIDs: append([]uuid.UUID(nil), ticketIDs...),
		CreatedAt:       now,
	}
	if normalized, ok := NormalizeIdempotencyKey(key); ok {
		record.IdempotencyKey = &normalized
	}
	return record
}

// EnsureSameRequest fails when the key was first used to claim from a different event
func (r *TicketClaimRecord) EnsureSameRequest(requestHash string) error {
	if r.RequestHash != requestHash {
		return ErrTicketIdempotencyKeyConflict.WithMessage("claim key was used for event %s", r.EventID)
	}
	return nil
}
