package application

import (
	"context"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"
	"lottoengine/infrastructure/observability"

	"github.com/google/uuid"
)

// TicketCommands runs ticket and claim event commands, each in its own tenant transaction
type TicketCommands struct {
	uowFactory UnitOfWorkFactory
	deps       Dependencies
}

// NewTicketCommands creates the ticket command handler
func NewTicketCommands(uowFactory UnitOfWorkFactory, deps Dependencies) *TicketCommands {
	return &TicketCommands{
		uowFactory: uowFactory,
		deps:       deps,
	}
}

// IssueMemberTickets issues free tickets to a member; a repeated key replays the first result
func (c *TicketCommands) IssueMemberTickets(ctx context.Context, req interfaces.IssueMemberTicketsRequest) (*interfaces.IssueMemberTicketsResult, error) {
	result, err := withTenantUoW(ctx, c.uowFactory, req.TenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*interfaces.IssueMemberTicketsResult, error) {
		return s.tickets.IssueMemberTickets(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	if !result.Replayed {
		issuedBy := req.IssuedByType
		if issuedBy == "" {
			issuedBy = entities.TicketIssuedByBackoffice
		}
		observability.GetMetrics().RecordTicketsIssued(string(issuedBy), len(result.TicketIDs))
	}
	return result, nil
}

// PlaceTicketBet debits the member wallet and issues a ticket carrying the chosen numbers
func (c *TicketCommands) PlaceTicketBet(ctx context.Context, req interfaces.PlaceTicketBetRequest) (*interfaces.PlaceTicketBetResult, error) {
	result, err := withTenantUoW(ctx, c.uowFactory, req.TenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*interfaces.PlaceTicketBetResult, error) {
		return s.tickets.PlaceTicketBet(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	if !result.Replayed {
		observability.GetMetrics().RecordTicketsIssued(string(entities.TicketIssuedBySystem), 1)
	}
	return result, nil
}

// SubmitNumbers records the numbers of an issued ticket
func (c *TicketCommands) SubmitNumbers(ctx context.Context, tenantID int64, req interfaces.SubmitNumbersRequest) (*entities.Ticket, error) {
	return withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.Ticket, error) {
		return s.tickets.SubmitNumbers(ctx, req)
	})
}

// CreateClaimEvent creates a claim event in the draft state
func (c *TicketCommands) CreateClaimEvent(ctx context.Context, params entities.NewTicketClaimEventParams) (*entities.TicketClaimEvent, error) {
	return withTenantUoW(ctx, c.uowFactory, params.TenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.TicketClaimEvent, error) {
		return s.claimEvents.CreateEvent(ctx, params)
	})
}

// ActivateClaimEvent opens a claim event to members
func (c *TicketCommands) ActivateClaimEvent(ctx context.Context, tenantID int64, eventID uuid.UUID) (*entities.TicketClaimEvent, error) {
	return withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.TicketClaimEvent, error) {
		return s.claimEvents.ActivateEvent(ctx, eventID)
	})
}

// DisableClaimEvent stops further claims against an event
func (c *TicketCommands) DisableClaimEvent(ctx context.Context, tenantID int64, eventID uuid.UUID) (*entities.TicketClaimEvent, error) {
	return withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.TicketClaimEvent, error) {
		return s.claimEvents.DisableEvent(ctx, eventID)
	})
}
