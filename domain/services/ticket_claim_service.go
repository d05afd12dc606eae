package services

import (
	"context"
	"errors"
	"fmt"

	"lottoengine/domain/entities"
	"lottoengine/domain/events"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ticketClaimService grants quota-limited tickets. The event row lock taken in Claim
// serializes every claim of one event; unrelated events never contend.
type ticketClaimService struct {
	eventRepo      interfaces.TicketClaimEventRepository
	claimRepo      interfaces.TicketClaimRepository
	ticketService  interfaces.TicketService
	eventPublisher interfaces.EventPublisher
	now            clock
}

// NewTicketClaimService creates a new ticket claim service
func NewTicketClaimService(
	eventRepo interfaces.TicketClaimEventRepository,
	claimRepo interfaces.TicketClaimRepository,
	ticketService interfaces.TicketService,
	eventPublisher interfaces.EventPublisher,
) interfaces.TicketClaimService {
	return &ticketClaimService{
		eventRepo:      eventRepo,
		claimRepo:      claimRepo,
		ticketService:  ticketService,
		eventPublisher: eventPublisher,
		now:            utcNow,
	}
}

// Claim grants one ticket from the event, or replays the result of an earlier claim with the same key
func (s *ticketClaimService) Claim(ctx context.Context, req interfaces.ClaimTicketRequest) (*interfaces.ClaimTicketResult, error) {
	if req.MemberID <= 0 {
		return nil, entities.ErrTicketMemberRequired
	}

	key, hasKey := entities.NormalizeIdempotencyKey(req.IdempotencyKey)
	requestHash := entities.ClaimRequestHash(req.EventID, req.MemberID)

	// Snapshot read before locking; most requests carry a fresh key
	if hasKey {
		if result, err := s.replay(ctx, req.EventID, req.MemberID, key, requestHash); result != nil || err != nil {
			return result, err
		}
	}

	event, err := s.eventRepo.GetByIDForUpdate(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock claim event: %w", err)
	}
	if event == nil {
		return nil, entities.ErrTicketClaimEventNotFound.WithMessage("claim event %s not found", req.EventID)
	}

	now := s.now()
	counter, err := s.claimRepo.GetOrCreateCounterForUpdate(ctx, event.ID, req.MemberID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to lock claim counter: %w", err)
	}

	// A concurrent request with the same key may have committed while we waited on the lock
	if hasKey {
		if result, err := s.replay(ctx, req.EventID, req.MemberID, key, requestHash); result != nil || err != nil {
			return result, err
		}
	}

	if err := event.EnsureCanClaim(now); err != nil {
		return nil, err
	}
	if err := counter.Increase(1, event.PerMemberQuota, now); err != nil {
		return nil, err
	}
	if err := event.IncreaseClaimed(1, now); err != nil {
		return nil, err
	}

	draws, err := s.resolveDraws(ctx, event)
	if err != nil {
		return nil, err
	}

	issuedBy := entities.TicketIssuedBySystem
	if event.ScopeType == entities.TicketClaimScopeSingleDrawGroup {
		issuedBy = entities.TicketIssuedByDrawGroup
	}
	campaignID := event.ID
	ticket, _, err := s.ticketService.IssueTicket(ctx, interfaces.IssueTicketParams{
		TenantID:         event.TenantID,
		MemberID:         req.MemberID,
		GameCode:         event.GameCode,
		PlayTypeCode:     event.PlayTypeCode,
		TicketTemplateID: event.TicketTemplateID,
		CampaignID:       &campaignID,
		IssuedByType:     issuedBy,
		TargetDraws:      draws,
	})
	if err != nil {
		return nil, err
	}

	if err := s.claimRepo.UpdateCounter(ctx, counter); err != nil {
		return nil, fmt.Errorf("failed to update claim counter: %w", err)
	}
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update claim event: %w", err)
	}

	record := entities.NewTicketClaimRecord(event, req.MemberID, key, []uuid.UUID{ticket.ID}, now)
	if err := s.claimRepo.CreateRecord(ctx, record); err != nil {
		return nil, err
	}

	if err := s.publishClaimed(event, req.MemberID, record.IssuedTicketIDs); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"eventID":      event.ID,
		"memberID":     req.MemberID,
		"ticketID":     ticket.ID,
		"totalClaimed": event.TotalClaimed,
		"totalQuota":   event.TotalQuota,
	}).Info("Ticket claimed")

	return &interfaces.ClaimTicketResult{
		EventID:   event.ID,
		TicketIDs: record.IssuedTicketIDs,
		Quantity:  record.Quantity,
	}, nil
}

func (s *ticketClaimService) replay(ctx context.Context, eventID uuid.UUID, memberID int64, key, requestHash string) (*interfaces.ClaimTicketResult, error) {
	record, err := s.claimRepo.GetRecordByKey(ctx, eventID, memberID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim record: %w", err)
	}
	if record == nil {
		return nil, nil
	}
	if err := record.EnsureSameRequest(requestHash); err != nil {
		return nil, err
	}
	return &interfaces.ClaimTicketResult{
		EventID:   record.EventID,
		TicketIDs: record.IssuedTicketIDs,
		Quantity:  record.Quantity,
		Replayed:  true,
	}, nil
}

// resolveDraws maps the event scope to draws currently selling the event's play type
func (s *ticketClaimService) resolveDraws(ctx context.Context, event *entities.TicketClaimEvent) ([]*entities.Draw, error) {
	switch event.ScopeType {
	case entities.TicketClaimScopeSingleDraw:
		draw, err := s.ticketService.ResolveTargetDraw(ctx, event.TenantID, event.ScopeID, event.GameCode, event.PlayTypeCode)
		switch {
		case err == nil:
			return []*entities.Draw{draw}, nil
		case entities.KindOf(err) == "" || errors.Is(err, entities.ErrTicketDrawNotAvailable):
			return nil, err
		default:
			// missing draw or lapsed entitlement both mean there is nothing to claim into
			return nil, entities.ErrTicketDrawNotAvailable.WithMessage("%v", err)
		}
	case entities.TicketClaimScopeSingleDrawGroup:
		return s.ticketService.ResolveGroupDraws(ctx, event.TenantID, event.ScopeID, event.GameCode, event.PlayTypeCode)
	default:
		return nil, entities.ErrTicketClaimEventScopeInvalid.WithMessage("unknown scope type %q", event.ScopeType)
	}
}

func (s *ticketClaimService) publishClaimed(event *entities.TicketClaimEvent, memberID int64, ticketIDs []uuid.UUID) error {
	if err := s.eventPublisher.Publish(events.TicketClaimedEvent{
		TenantID:       event.TenantID,
		EventID:        event.ID,
		MemberID:       memberID,
		TicketIDs:      ticketIDs,
		RemainingQuota: event.RemainingQuota(),
	}); err != nil {
		return fmt.Errorf("failed to publish ticket claimed event: %w", err)
	}

	if event.Status == entities.TicketClaimEventSoldOut {
		if err := s.eventPublisher.Publish(events.ClaimEventSoldOutEvent{
			TenantID: event.TenantID,
			EventID:  event.ID,
		}); err != nil {
			return fmt.Errorf("failed to publish claim event sold out event: %w", err)
		}
	}
	return nil
}
