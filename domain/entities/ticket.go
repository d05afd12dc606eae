package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketIssuedByType records who issued a ticket
type TicketIssuedByType string

const (
	TicketIssuedByCustomerService TicketIssuedByType = "customer_service"
	TicketIssuedBySystem          TicketIssuedByType = "system"
	TicketIssuedByDrawGroup       TicketIssuedByType = "draw_group"
	TicketIssuedByBackoffice      TicketIssuedByType = "backoffice"
)

// TicketSubmissionStatus tracks whether numbers were submitted on a ticket
type TicketSubmissionStatus string

const (
	TicketSubmissionNotSubmitted TicketSubmissionStatus = "not_submitted"
	TicketSubmissionSubmitted    TicketSubmissionStatus = "submitted"
	TicketSubmissionCancelled    TicketSubmissionStatus = "cancelled"
	TicketSubmissionExpired      TicketSubmissionStatus = "expired"
)

// Ticket is the issuance unit a member submits numbers on
type Ticket struct {
	ID               uuid.UUID              `db:"id"`
	TenantID         int64                  `db:"tenant_id"`
	GameCode         string                 `db:"game_code"`
	PlayTypeCode     string                 `db:"play_type_code"`
	MemberID         int64                  `db:"member_id"`
	TicketTemplateID *uuid.UUID             `db:"ticket_template_id"`
	CampaignID       *uuid.UUID             `db:"campaign_id"`
	DrawID           *uuid.UUID             `db:"draw_id"` // Primary draw, when the ticket targets one
	IssuedAt         time.Time              `db:"issued_at"`
	IssuedByType     TicketIssuedByType     `db:"issued_by_type"`
	IssuedByID       *string                `db:"issued_by_id"`
	IssueReason      *string                `db:"issue_reason"`
	SubmissionStatus TicketSubmissionStatus `db:"submission_status"`
	SubmittedAt      *time.Time             `db:"submitted_at"`
	SubmittedBy      *string                `db:"submitted_by"`
	SubmissionRef    *string                `db:"submission_client_ref"`
	SubmissionNote   *string                `db:"submission_note"`
	CancelledAt      *time.Time             `db:"cancelled_at"`
	ExpiredAt        *time.Time             `db:"expired_at"`
	CreatedAt        time.Time              `db:"created_at"`
	UpdatedAt        time.Time              `db:"updated_at"`

	Lines []*TicketLine
}

// TicketLine is one number bet on a ticket
type TicketLine struct {
	TicketID  uuid.UUID `db:"ticket_id"`
	LineIndex int       `db:"line_index"`
	Numbers   string    `db:"numbers"`
	CreatedAt time.Time `db:"created_at"`
}

// NewTicketParams holds the fields a ticket is issued with
type NewTicketParams struct {
	TenantID         int64
	GameCode         string
	PlayTypeCode     string
	MemberID         int64
	TicketTemplateID *uuid.UUID
	CampaignID       *uuid.UUID
	DrawID           *uuid.UUID
	IssuedByType     TicketIssuedByType
	IssuedByID       *string
	IssueReason      *string
}

// NewTicket builds an unsubmitted ticket. Draw legality is checked by the caller.
func NewTicket(params NewTicketParams, now time.Time) *Ticket {
	return &Ticket{
		ID:               uuid.New(),
		TenantID:         params.TenantID,
		GameCode:         params.GameCode,
		PlayTypeCode:     params.PlayTypeCode,
		MemberID:         params.MemberID,
		TicketTemplateID: params.TicketTemplateID,
		CampaignID:       params.CampaignID,
		DrawID:           params.DrawID,
		IssuedAt:         now,
		IssuedByType:     params.IssuedByType,
		IssuedByID:       params.IssuedByID,
		IssueReason:      params.IssueReason,
		SubmissionStatus: TicketSubmissionNotSubmitted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsSubmitted returns true once numbers have been submitted
func (t *Ticket) IsSubmitted() bool {
	return t.SubmissionStatus == TicketSubmissionSubmitted
}

// SubmitNumbers records the ticket's only line and marks it submitted
func (t *Ticket) SubmitNumbers(numbers LotteryNumbers, now time.Time, submittedBy, clientRef, note string) error {
	if t.SubmissionStatus != TicketSubmissionNotSubmitted {
		return ErrTicketAlreadySubmitted
	}
	if len(t.Lines) > 0 {
		return ErrTicketNumbersAlreadySubmitted
	}
	if numbers.IsZero() {
		return ErrLotteryNumbersCountInvalid.WithMessage("no numbers submitted")
	}

	t.Lines = append(t.Lines, &TicketLine{
		TicketID:  t.ID,
		LineIndex: 0,
		Numbers:   numbers.String(),
		CreatedAt: now,
	})
	t.SubmissionStatus = TicketSubmissionSubmitted
	t.SubmittedAt = &now
	t.SubmittedBy = optionalString(submittedBy)
	t.SubmissionRef = optionalString(clientRef)
	t.SubmissionNote = optionalString(note)
	t.UpdatedAt = now

	return nil
}

// Cancel voids an unsubmitted ticket
func (t *Ticket) Cancel(now time.Time) error {
	if t.SubmissionStatus != TicketSubmissionNotSubmitted {
		return ErrTicketSubmissionTransitionInvalid.WithMessage("cannot cancel a %s ticket", t.SubmissionStatus)
	}
	t.SubmissionStatus = TicketSubmissionCancelled
	t.CancelledAt = &now
	t.UpdatedAt = now
	return nil
}

// Expire marks an unsubmitted ticket as no longer usable
func (t *Ticket) Expire(now time.Time) error {
	if t.SubmissionStatus != TicketSubmissionNotSubmitted {
		return ErrTicketSubmissionTransitionInvalid.WithMessage("cannot expire a %s ticket", t.SubmissionStatus)
	}
	t.SubmissionStatus = TicketSubmissionExpired
	t.ExpiredAt = &now
	t.UpdatedAt = now
	return nil
}

// ParseNumbers parses a stored line using the given format
func (l *TicketLine) ParseNumbers(format NumberFormat) (LotteryNumbers, error) {
	return ParseLotteryNumbers(l.Numbers, format)
}

// TicketParticipationStatus tracks a ticket's standing in one draw
type TicketParticipationStatus string

const (
	TicketParticipationPending   TicketParticipationStatus = "pending"
	TicketParticipationActive    TicketParticipationStatus = "active"
	TicketParticipationInvalid   TicketParticipationStatus = "invalid"
	TicketParticipationSettled   TicketParticipationStatus = "settled"
	TicketParticipationRedeemed  TicketParticipationStatus = "redeemed"
	TicketParticipationCancelled TicketParticipationStatus = "cancelled"
)

// TicketDraw links a ticket to one draw it participates in
type TicketDraw struct {
	TicketID            uuid.UUID                 `db:"ticket_id"`
	DrawID              uuid.UUID                 `db:"draw_id"`
	TenantID            int64                     `db:"tenant_id"`
	ParticipationStatus TicketParticipationStatus `db:"participation_status"`
	InvalidReason       *string                   `db:"invalid_reason"`
	SettledAt           *time.Time                `db:"settled_at"`
	RedeemedAt          *time.Time                `db:"redeemed_at"`
	CancelledAt         *time.Time                `db:"cancelled_at"`
	CreatedAt           time.Time                 `db:"created_at"`
	UpdatedAt           time.Time                 `db:"updated_at"`
}

// NewTicketDraw creates a pending participation
func NewTicketDraw(tenantID int64, ticketID, drawID uuid.UUID, now time.Time) *TicketDraw {
	return &TicketDraw{
		TicketID:            ticketID,
		DrawID:              drawID,
		TenantID:            tenantID,
		ParticipationStatus: TicketParticipationPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (td *TicketDraw) transitionError(to TicketParticipationStatus) error {
	return ErrTicketParticipationTransitionInvalid.WithMessage("cannot move from %s to %s", td.ParticipationStatus, to)
}

// Activate marks a pending participation as taking part in the draw
func (td *TicketDraw) Activate(now time.Time) error {
	if td.ParticipationStatus != TicketParticipationPending {
		return td.transitionError(TicketParticipationActive)
	}
	td.ParticipationStatus = TicketParticipationActive
	td.UpdatedAt = now
	return nil
}

// Invalidate marks a pending participation as missing the draw
func (td *TicketDraw) Invalidate(reason string, now time.Time) error {
	if td.ParticipationStatus != TicketParticipationPending {
		return td.transitionError(TicketParticipationInvalid)
	}
	td.ParticipationStatus = TicketParticipationInvalid
	td.InvalidReason = optionalString(reason)
	td.UpdatedAt = now
	return nil
}

// Settle records that settlement processed this participation
func (td *TicketDraw) Settle(now time.Time) error {
	switch td.ParticipationStatus {
	case TicketParticipationSettled:
		return nil
	case TicketParticipationActive, TicketParticipationInvalid:
	default:
		return td.transitionError(TicketParticipationSettled)
	}
	td.ParticipationStatus = TicketParticipationSettled
	td.SettledAt = &now
	td.UpdatedAt = now
	return nil
}

// Redeem marks a settled participation's prize as redeemed
func (td *TicketDraw) Redeem(now time.Time) error {
	if td.ParticipationStatus != TicketParticipationSettled {
		return td.transitionError(TicketParticipationRedeemed)
	}
	td.ParticipationStatus = TicketParticipationRedeemed
	td.RedeemedAt = &now
	td.UpdatedAt = now
	return nil
}

// Cancel withdraws the participation; allowed any time before settlement
func (td *TicketDraw) Cancel(now time.Time) error {
	switch td.ParticipationStatus {
	case TicketParticipationPending, TicketParticipationActive, TicketParticipationInvalid:
	default:
		return td.transitionError(TicketParticipationCancelled)
	}
	td.ParticipationStatus = TicketParticipationCancelled
	td.CancelledAt = &now
	td.UpdatedAt = now
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
