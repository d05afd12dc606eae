package interfaces

import (
	"context"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/events"

	"github.com/google/uuid"
)

// DrawRepository defines the interface for draw data access
type DrawRepository interface {
	// Create inserts a draw with its enabled play types and prize pool slots
	Create(ctx context.Context, draw *entities.Draw) error

	// GetByID retrieves a draw with its play types and prize pool
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Draw, error)

	// GetByIDForUpdate retrieves a draw and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Draw, error)

	// GetByCode retrieves a draw by its game and draw code
	GetByCode(ctx context.Context, gameCode, drawCode string) (*entities.Draw, error)

	// Update persists the draw row, its enabled play types and its prize pool slots
	Update(ctx context.Context, draw *entities.Draw) error

	// AddToGroup links a draw to a draw group
	AddToGroup(ctx context.Context, groupID, drawID uuid.UUID) error

	// GetByGroup returns every draw linked to a draw group
	GetByGroup(ctx context.Context, groupID uuid.UUID) ([]*entities.Draw, error)

	// Worker queries, not tenant scoped

	// GetDrawsDueForSalesOpen returns still-sellable draws without a committed seed hash whose
	// sales open within lead of now
	GetDrawsDueForSalesOpen(ctx context.Context, now time.Time, lead time.Duration) ([]*entities.Draw, error)

	// GetDrawsDueForExecution returns undrawn, uncancelled draws whose draw time has passed
	GetDrawsDueForExecution(ctx context.Context, now time.Time) ([]*entities.Draw, error)

	// GetDrawsPendingSettlement returns drawn draws that have not been settled
	GetDrawsPendingSettlement(ctx context.Context) ([]*entities.Draw, error)
}

// TicketRepository defines the interface for ticket, line and participation data access
type TicketRepository interface {
	// Create inserts a ticket and any lines it already carries
	Create(ctx context.Context, ticket *entities.Ticket) error

	// GetByID retrieves a ticket with its lines
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Ticket, error)

	// GetByIDForUpdate retrieves a ticket with its lines and locks the ticket row
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Ticket, error)

	// GetByIDs retrieves tickets with their lines, keyed by id
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.Ticket, error)

	// Update persists the ticket's status fields and inserts new lines
	Update(ctx context.Context, ticket *entities.Ticket) error

	// CreateTicketDraws inserts participation links
	CreateTicketDraws(ctx context.Context, links []*entities.TicketDraw) error

	// GetTicketDraws returns every participation of a ticket
	GetTicketDraws(ctx context.Context, ticketID uuid.UUID) ([]*entities.TicketDraw, error)

	// GetTicketDrawsByDraw returns participations of a draw in the given statuses
	GetTicketDrawsByDraw(ctx context.Context, drawID uuid.UUID, statuses ...entities.TicketParticipationStatus) ([]*entities.TicketDraw, error)

	// HasTicketDraws reports whether any ticket participates in the draw
	HasTicketDraws(ctx context.Context, drawID uuid.UUID) (bool, error)

	// UpdateTicketDraw persists a participation's status fields
	UpdateTicketDraw(ctx context.Context, link *entities.TicketDraw) error
}

// TicketClaimEventRepository defines the interface for claim event data access
type TicketClaimEventRepository interface {
	Create(ctx context.Context, event *entities.TicketClaimEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.TicketClaimEvent, error)

	// GetByIDForUpdate locks the event row; it serializes every claim of the event
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.TicketClaimEvent, error)

	Update(ctx context.Context, event *entities.TicketClaimEvent) error

	// GetExpiredOpenEvents returns active or sold out events past their end, not tenant scoped
	GetExpiredOpenEvents(ctx context.Context, now time.Time) ([]*entities.TicketClaimEvent, error)
}

// TicketClaimRepository defines the interface for claim counters and claim records
type TicketClaimRepository interface {
	// GetOrCreateCounterForUpdate returns the member's counter row, creating it if absent, and locks it
	GetOrCreateCounterForUpdate(ctx context.Context, eventID uuid.UUID, memberID int64, now time.Time) (*entities.TicketClaimMemberCounter, error)

	UpdateCounter(ctx context.Context, counter *entities.TicketClaimMemberCounter) error

	// GetRecordByKey returns the member's claim record on the event carrying the idempotency key
	GetRecordByKey(ctx context.Context, eventID uuid.UUID, memberID int64, key string) (*entities.TicketClaimRecord, error)

	// CreateRecord appends a claim record; a reused key fails TicketIdempotencyKeyConflict
	CreateRecord(ctx context.Context, record *entities.TicketClaimRecord) error

	// GetRecordsByEvent returns every claim record of an event
	GetRecordsByEvent(ctx context.Context, eventID uuid.UUID) ([]*entities.TicketClaimRecord, error)
}

// TicketIdempotencyRepository defines the interface for stored idempotent responses
type TicketIdempotencyRepository interface {
	// LockKey serializes requests sharing an operation key until the transaction ends
	LockKey(ctx context.Context, operation, key string) error

	Get(ctx context.Context, operation, key string) (*entities.TicketIdempotencyRecord, error)

	// Create stores the record; a reused key fails TicketIdempotencyKeyConflict
	Create(ctx context.Context, record *entities.TicketIdempotencyRecord) error
}

// PrizeAwardRepository defines the interface for prize award data access
type PrizeAwardRepository interface {
	// CreateIfAbsent inserts the award unless one exists for its (ticket, draw, line)
	CreateIfAbsent(ctx context.Context, award *entities.PrizeAward) (bool, error)

	GetByDraw(ctx context.Context, drawID uuid.UUID) ([]*entities.PrizeAward, error)
}

// EntitlementRepository defines the interface for tenant game entitlement data access
type EntitlementRepository interface {
	GetByTenant(ctx context.Context, tenantID int64) ([]*entities.TenantGameEntitlement, error)
	Upsert(ctx context.Context, entitlement *entities.TenantGameEntitlement) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding transaction ends
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}
