package interfaces

import (
	"context"
	"time"

	"lottoengine/domain/entities"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotteryRNGService implements the commit-reveal number derivation
type LotteryRNGService interface {
	// GenerateServerSeed returns 32 CSPRNG bytes as lowercase hex
	GenerateServerSeed() (string, error)

	// ComputeSeedHash returns the hex SHA-256 of the decoded seed bytes
	ComputeSeedHash(serverSeed string) (string, error)

	// DeriveInput returns the pre-committed derivation input of a draw
	DeriveInput(drawID uuid.UUID) string

	// DeriveWinningNumbers deterministically derives the draw result from the revealed seed
	DeriveWinningNumbers(serverSeed, derivedInput string, format entities.NumberFormat) (entities.LotteryNumbers, error)

	// Verify checks a published proof: the seed matches the hash and reproduces the numbers
	Verify(proof *entities.DrawVerification, format entities.NumberFormat) error
}

// CreateDrawRequest holds the operator input for scheduling a draw
type CreateDrawRequest struct {
	TenantID         int64
	GameCode         string
	DrawCode         string
	SalesOpenAt      time.Time
	SalesCloseAt     time.Time
	DrawAt           time.Time
	RedeemValidDays  *int
	EnabledPlayTypes []string
	DrawGroupID      *uuid.UUID
}

// DrawExecutionResult describes a revealed draw
type DrawExecutionResult struct {
	Draw           *entities.Draw
	WinningNumbers entities.LotteryNumbers
	Verification   *entities.DrawVerification
}

// DrawService defines the interface for draw lifecycle operations
type DrawService interface {
	CreateDraw(ctx context.Context, req CreateDrawRequest) (*entities.Draw, error)
	EnablePlayTypes(ctx context.Context, drawID uuid.UUID, playTypes []string) (*entities.Draw, error)
	ConfigurePrizeOption(ctx context.Context, drawID uuid.UUID, playType, tier string, option entities.PrizeOption) (*entities.Draw, error)

	// OpenSales commits the server seed hash; calling it again keeps the first commitment
	OpenSales(ctx context.Context, drawID uuid.UUID) (*entities.Draw, error)

	CloseManually(ctx context.Context, drawID uuid.UUID, reason string) (*entities.Draw, error)
	Reopen(ctx context.Context, drawID uuid.UUID) (*entities.Draw, error)
	CancelDraw(ctx context.Context, drawID uuid.UUID, reason string) (*entities.Draw, error)

	// ExecuteDraw reveals the seed and records the winning numbers
	ExecuteDraw(ctx context.Context, drawID uuid.UUID) (*DrawExecutionResult, error)

	// GetVerification returns the public proof of a drawn draw
	GetVerification(ctx context.Context, drawID uuid.UUID) (*entities.DrawVerification, error)
}

// SettlementResult summarises one settlement run
type SettlementResult struct {
	DrawID         uuid.UUID
	LinesEvaluated int
	AwardsCreated  int
	AlreadySettled bool
}

// SettlementService defines the interface for settling drawn draws
type SettlementService interface {
	SettleDraw(ctx context.Context, drawID uuid.UUID) (*SettlementResult, error)
}

// IssueTicketParams describes a single ticket to issue through the shared issuance routine
type IssueTicketParams struct {
	TenantID         int64
	MemberID         int64
	GameCode         string
	PlayTypeCode     string
	TicketTemplateID *uuid.UUID
	CampaignID       *uuid.UUID
	IssuedByType     entities.TicketIssuedByType
	IssuedByID       *string
	IssueReason      *string
	TargetDraws      []*entities.Draw

	// Numbers, when set, are submitted before the ticket is stored and its participations activated
	Numbers     entities.LotteryNumbers
	SubmittedBy string
	ClientRef   string
}

// IssueMemberTicketsRequest is the backoffice command issuing free tickets to a member
type IssueMemberTicketsRequest struct {
	TenantID       int64
	MemberID       int64
	GameCode       string
	PlayTypeCode   string
	DrawID         uuid.UUID
	Quantity       int
	IssuedByType   entities.TicketIssuedByType
	IssuedByID     string
	Reason         string
	IdempotencyKey string
}

// IssueMemberTicketsResult is the stored, replayable response of an issuance
type IssueMemberTicketsResult struct {
	TicketIDs []uuid.UUID `json:"ticketIds"`
	Replayed  bool        `json:"-"`
}

// PlaceTicketBetRequest is a paid ticket with numbers chosen up front
type PlaceTicketBetRequest struct {
	TenantID       int64
	MemberID       int64
	DrawID         uuid.UUID
	PlayTypeCode   string
	Numbers        []int
	ClientRef      string
	IdempotencyKey string
}

// PlaceTicketBetResult is the stored, replayable response of a bet placement
type PlaceTicketBetResult struct {
	TicketID uuid.UUID       `json:"ticketId"`
	Numbers  string          `json:"numbers"`
	Cost     decimal.Decimal `json:"cost"`
	Balance  decimal.Decimal `json:"balance"`
	Replayed bool            `json:"-"`
}

// SubmitNumbersRequest submits the numbers of an issued ticket
type SubmitNumbersRequest struct {
	TicketID    uuid.UUID
	MemberID    int64
	Numbers     []int
	SubmittedBy string
	ClientRef   string
	Note        string
}

// TicketService defines the interface for ticket issuance and submission
type TicketService interface {
	IssueMemberTickets(ctx context.Context, req IssueMemberTicketsRequest) (*IssueMemberTicketsResult, error)
	PlaceTicketBet(ctx context.Context, req PlaceTicketBetRequest) (*PlaceTicketBetResult, error)
	SubmitNumbers(ctx context.Context, req SubmitNumbersRequest) (*entities.Ticket, error)

	// IssueTicket is the shared issuance routine: one ticket linked to every target draw
	IssueTicket(ctx context.Context, params IssueTicketParams) (*entities.Ticket, []*entities.TicketDraw, error)

	// ResolveTargetDraw returns the draw if it is selling the play type for an entitled tenant
	ResolveTargetDraw(ctx context.Context, tenantID int64, drawID uuid.UUID, gameCode, playType string) (*entities.Draw, error)

	// ResolveGroupDraws returns every draw of the group that is selling the play type for an entitled tenant
	ResolveGroupDraws(ctx context.Context, tenantID int64, groupID uuid.UUID, gameCode, playType string) ([]*entities.Draw, error)
}

// TicketClaimEventService defines the interface for claim event administration
type TicketClaimEventService interface {
	CreateEvent(ctx context.Context, params entities.NewTicketClaimEventParams) (*entities.TicketClaimEvent, error)
	ActivateEvent(ctx context.Context, eventID uuid.UUID) (*entities.TicketClaimEvent, error)
	DisableEvent(ctx context.Context, eventID uuid.UUID) (*entities.TicketClaimEvent, error)

	// EndEventIfExpired locks the event and moves it to Ended once its window has passed
	EndEventIfExpired(ctx context.Context, eventID uuid.UUID) (bool, error)
}

// ClaimTicketRequest is a member's claim against a claim event
type ClaimTicketRequest struct {
	TenantID       int64
	EventID        uuid.UUID
	MemberID       int64
	IdempotencyKey string
}

// ClaimTicketResult is the claim response; a replay returns the same ids
type ClaimTicketResult struct {
	EventID   uuid.UUID   `json:"eventId"`
	TicketIDs []uuid.UUID `json:"ticketIds"`
	Quantity  int         `json:"quantity"`
	Replayed  bool        `json:"-"`
}

// TicketClaimService defines the interface for claiming quota-limited tickets
type TicketClaimService interface {
	Claim(ctx context.Context, req ClaimTicketRequest) (*ClaimTicketResult, error)
}
