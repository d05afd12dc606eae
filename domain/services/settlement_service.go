package services

import (
	"context"
	"fmt"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/events"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// settlementService matches submitted lines against a drawn result and records prize awards
type settlementService struct {
	drawRepo       interfaces.DrawRepository
	ticketRepo     interfaces.TicketRepository
	awardRepo      interfaces.PrizeAwardRepository
	registry       *entities.PlayRuleRegistry
	eventPublisher interfaces.EventPublisher
	now            clock
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	drawRepo interfaces.DrawRepository,
	ticketRepo interfaces.TicketRepository,
	awardRepo interfaces.PrizeAwardRepository,
	registry *entities.PlayRuleRegistry,
	eventPublisher interfaces.EventPublisher,
) interfaces.SettlementService {
	return &settlementService{
		drawRepo:       drawRepo,
		ticketRepo:     ticketRepo,
		awardRepo:      awardRepo,
		registry:       registry,
		eventPublisher: eventPublisher,
		now:            utcNow,
	}
}

// SettleDraw settles a drawn draw under its row lock. Awards are keyed by
// (ticket, draw, line) so a retried settlement inserts nothing twice.
func (s *settlementService) SettleDraw(ctx context.Context, drawID uuid.UUID) (*interfaces.SettlementResult, error) {
	draw, err := s.drawRepo.GetByIDForUpdate(ctx, drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock draw: %w", err)
	}
	if draw == nil {
		return nil, entities.ErrDrawNotFound.WithMessage("draw %s not found", drawID)
	}

	result := &interfaces.SettlementResult{DrawID: draw.ID}
	if draw.IsSettled() {
		result.AlreadySettled = true
		return result, nil
	}
	if draw.IsCancelled {
		return nil, entities.ErrDrawCancelled
	}
	if !draw.IsDrawn() {
		return nil, entities.ErrDrawNotDrawn
	}
	if err := draw.EnsurePrizePoolCompleteForSettlement(s.registry); err != nil {
		return nil, err
	}

	game, ok := s.registry.GetGame(draw.GameCode)
	if !ok {
		return nil, entities.ErrGameNotFound.WithMessage("game %s is not in the catalogue", draw.GameCode)
	}
	winning, err := draw.WinningNumbers(s.registry)
	if err != nil {
		return nil, err
	}

	links, err := s.ticketRepo.GetTicketDrawsByDraw(ctx, draw.ID,
		entities.TicketParticipationPending,
		entities.TicketParticipationActive,
		entities.TicketParticipationInvalid,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket participations: %w", err)
	}

	ticketIDs := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		ticketIDs = append(ticketIDs, link.TicketID)
	}
	tickets, err := s.ticketRepo.GetByIDs(ctx, ticketIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}

	now := s.now()
	for _, link := range links {
		if link.ParticipationStatus == entities.TicketParticipationPending {
			if err := link.Invalidate("numbers not submitted before the draw", now); err != nil {
				return nil, err
			}
		}

		if link.ParticipationStatus == entities.TicketParticipationActive {
			ticket, ok := tickets[link.TicketID]
			if !ok {
				return nil, fmt.Errorf("ticket %s of draw %s is missing", link.TicketID, draw.ID)
			}
			evaluated, created, err := s.settleTicket(ctx, draw, game, ticket, winning, now)
			if err != nil {
				return nil, err
			}
			result.LinesEvaluated += evaluated
			result.AwardsCreated += created
		}

		if err := link.Settle(now); err != nil {
			return nil, err
		}
		if err := s.ticketRepo.UpdateTicketDraw(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to update ticket participation: %w", err)
		}
	}

	if err := draw.MarkSettled(now); err != nil {
		return nil, err
	}
	if err := s.drawRepo.Update(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to update draw: %w", err)
	}

	if err := s.eventPublisher.Publish(events.DrawSettledEvent{
		TenantID:       draw.TenantID,
		DrawID:         draw.ID,
		LinesEvaluated: result.LinesEvaluated,
		AwardsCreated:  result.AwardsCreated,
		SettledAt:      now,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish draw settled event: %w", err)
	}

	log.WithFields(log.Fields{
		"drawID":         draw.ID,
		"participations": len(links),
		"linesEvaluated": result.LinesEvaluated,
		"awardsCreated":  result.AwardsCreated,
	}).Info("Draw settled")

	return result, nil
}

// settleTicket matches every line of one ticket and inserts the missing awards
func (s *settlementService) settleTicket(ctx context.Context, draw *entities.Draw, game *entities.GameDefinition, ticket *entities.Ticket, winning entities.LotteryNumbers, now time.Time) (int, int, error) {
	rule, ok := s.registry.GetRule(draw.GameCode, ticket.PlayTypeCode)
	if !ok || !draw.IsPlayTypeEnabled(ticket.PlayTypeCode) {
		log.WithFields(log.Fields{
			"drawID":   draw.ID,
			"ticketID": ticket.ID,
			"playType": ticket.PlayTypeCode,
		}).Warn("Skipping ticket with a play type the draw does not sell")
		return 0, 0, nil
	}

	format := game.LineFormat(rule)
	evaluated, created := 0, 0
	for _, line := range ticket.Lines {
		numbers, err := line.ParseNumbers(format)
		if err != nil {
			log.WithFields(log.Fields{
				"ticketID":  ticket.ID,
				"lineIndex": line.LineIndex,
			}).WithError(err).Warn("Skipping unparseable ticket line")
			continue
		}
		evaluated++

		tier, won := rule.Match(numbers, winning)
		if !won {
			continue
		}

		slot := draw.FindPrizePoolSlot(ticket.PlayTypeCode, tier)
		award := entities.NewPrizeAward(draw, ticket, line, tier, slot, now)
		inserted, err := s.awardRepo.CreateIfAbsent(ctx, award)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to record prize award: %w", err)
		}
		if inserted {
			created++
		}
	}
	return evaluated, created, nil
}
