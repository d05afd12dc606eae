package services

import (
	"context"
	"fmt"

	"lottoengine/domain/entities"
	"lottoengine/domain/events"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ticketClaimEventService administers claim events
type ticketClaimEventService struct {
	eventRepo      interfaces.TicketClaimEventRepository
	drawRepo       interfaces.DrawRepository
	entitlements   interfaces.EntitlementService
	registry       *entities.PlayRuleRegistry
	eventPublisher interfaces.EventPublisher
	now            clock
}

// NewTicketClaimEventService creates a new claim event service
func NewTicketClaimEventService(
	eventRepo interfaces.TicketClaimEventRepository,
	drawRepo interfaces.DrawRepository,
	entitlements interfaces.EntitlementService,
	registry *entities.PlayRuleRegistry,
	eventPublisher interfaces.EventPublisher,
) interfaces.TicketClaimEventService {
	return &ticketClaimEventService{
		eventRepo:      eventRepo,
		drawRepo:       drawRepo,
		entitlements:   entitlements,
		registry:       registry,
		eventPublisher: eventPublisher,
		now:            utcNow,
	}
}

// CreateEvent validates and stores a draft claim event
func (s *ticketClaimEventService) CreateEvent(ctx context.Context, params entities.NewTicketClaimEventParams) (*entities.TicketClaimEvent, error) {
	event, err := entities.NewTicketClaimEvent(params, s.now())
	if err != nil {
		return nil, err
	}

	if !s.registry.IsPlayTypeAllowed(event.GameCode, event.PlayTypeCode) {
		return nil, entities.ErrPlayTypeNotAllowed.WithMessage("play type %s is not allowed for game %s", event.PlayTypeCode, event.GameCode)
	}
	if err := s.entitlements.EnsurePlayEnabled(ctx, event.TenantID, event.GameCode, event.PlayTypeCode); err != nil {
		return nil, err
	}

	if event.ScopeType == entities.TicketClaimScopeSingleDraw {
		draw, err := s.drawRepo.GetByID(ctx, event.ScopeID)
		if err != nil {
			return nil, fmt.Errorf("failed to get scope draw: %w", err)
		}
		if draw == nil || draw.GameCode != event.GameCode {
			return nil, entities.ErrTicketClaimEventScopeInvalid.WithMessage("draw %s does not exist for game %s", event.ScopeID, event.GameCode)
		}
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create claim event: %w", err)
	}

	log.WithFields(log.Fields{
		"eventID":        event.ID,
		"totalQuota":     event.TotalQuota,
		"perMemberQuota": event.PerMemberQuota,
		"scope":          event.ScopeType,
	}).Info("Claim event created")

	return event, nil
}

// ActivateEvent opens a draft event
func (s *ticketClaimEventService) ActivateEvent(ctx context.Context, eventID uuid.UUID) (*entities.TicketClaimEvent, error) {
	event, err := s.lockEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := event.Activate(s.now()); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update claim event: %w", err)
	}
	return event, nil
}

// DisableEvent stops an event
func (s *ticketClaimEventService) DisableEvent(ctx context.Context, eventID uuid.UUID) (*entities.TicketClaimEvent, error) {
	event, err := s.lockEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := event.Disable(s.now()); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update claim event: %w", err)
	}
	return event, nil
}

// EndEventIfExpired ends an active or sold out event once its window has passed
func (s *ticketClaimEventService) EndEventIfExpired(ctx context.Context, eventID uuid.UUID) (bool, error) {
	event, err := s.lockEvent(ctx, eventID)
	if err != nil {
		return false, err
	}
	if !event.MarkEnded(s.now()) {
		return false, nil
	}
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return false, fmt.Errorf("failed to update claim event: %w", err)
	}

	if err := s.eventPublisher.Publish(events.ClaimEventEndedEvent{
		TenantID:     event.TenantID,
		EventID:      event.ID,
		TotalClaimed: event.TotalClaimed,
	}); err != nil {
		return false, fmt.Errorf("failed to publish claim event ended event: %w", err)
	}
	return true, nil
}

func (s *ticketClaimEventService) lockEvent(ctx context.Context, eventID uuid.UUID) (*entities.TicketClaimEvent, error) {
	event, err := s.eventRepo.GetByIDForUpdate(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock claim event: %w", err)
	}
	if event == nil {
		return nil, entities.ErrTicketClaimEventNotFound.WithMessage("claim event %s not found", eventID)
	}
	return event, nil
}
