package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"lottoengine/domain/entities"
	"lottoengine/domain/events"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const walletReferenceTicketBet = "ticket_bet"

// ticketService implements ticket issuance, bet placement and number submission
type ticketService struct {
	drawRepo        interfaces.DrawRepository
	ticketRepo      interfaces.TicketRepository
	idempotencyRepo interfaces.TicketIdempotencyRepository
	wallet          interfaces.Wallet
	entitlements    interfaces.EntitlementService
	registry        *entities.PlayRuleRegistry
	eventPublisher  interfaces.EventPublisher
	now             clock
}

// NewTicketService creates a new ticket service
func NewTicketService(
	drawRepo interfaces.DrawRepository,
	ticketRepo interfaces.TicketRepository,
	idempotencyRepo interfaces.TicketIdempotencyRepository,
	wallet interfaces.Wallet,
	entitlements interfaces.EntitlementService,
	registry *entities.PlayRuleRegistry,
	eventPublisher interfaces.EventPublisher,
) interfaces.TicketService {
	return &ticketService{
		drawRepo:        drawRepo,
		ticketRepo:      ticketRepo,
		idempotencyRepo: idempotencyRepo,
		wallet:          wallet,
		entitlements:    entitlements,
		registry:        registry,
		eventPublisher:  eventPublisher,
		now:             utcNow,
	}
}

// IssueMemberTickets issues unsubmitted tickets for one draw to a member
func (s *ticketService) IssueMemberTickets(ctx context.Context, req interfaces.IssueMemberTicketsRequest) (*interfaces.IssueMemberTicketsResult, error) {
	if req.MemberID <= 0 {
		return nil, entities.ErrTicketMemberRequired
	}
	if req.Quantity <= 0 {
		return nil, entities.ErrTicketQuantityInvalid
	}

	key, hasKey := entities.NormalizeIdempotencyKey(req.IdempotencyKey)
	requestHash := entities.ComputeRequestHash(
		entities.IdempotencyOperationIssueTickets,
		strconv.FormatInt(req.MemberID, 10),
		req.GameCode,
		req.PlayTypeCode,
		req.DrawID.String(),
		strconv.Itoa(req.Quantity),
		string(req.IssuedByType),
	)

	if hasKey {
		var replay interfaces.IssueMemberTicketsResult
		found, err := s.replay(ctx, entities.IdempotencyOperationIssueTickets, key, requestHash, &replay)
		if err != nil {
			return nil, err
		}
		if found {
			replay.Replayed = true
			return &replay, nil
		}
	}

	draw, err := s.ResolveTargetDraw(ctx, req.TenantID, req.DrawID, req.GameCode, req.PlayTypeCode)
	if err != nil {
		return nil, err
	}

	issuedByType := req.IssuedByType
	if issuedByType == "" {
		issuedByType = entities.TicketIssuedByBackoffice
	}

	result := &interfaces.IssueMemberTicketsResult{TicketIDs: make([]uuid.UUID, 0, req.Quantity)}
	for i := 0; i < req.Quantity; i++ {
		ticket, _, err := s.IssueTicket(ctx, interfaces.IssueTicketParams{
			TenantID:     req.TenantID,
			MemberID:     req.MemberID,
			GameCode:     draw.GameCode,
			PlayTypeCode: req.PlayTypeCode,
			IssuedByType: issuedByType,
			IssuedByID:   nonEmpty(req.IssuedByID),
			IssueReason:  nonEmpty(req.Reason),
			TargetDraws:  []*entities.Draw{draw},
		})
		if err != nil {
			return nil, err
		}
		result.TicketIDs = append(result.TicketIDs, ticket.ID)
	}

	if hasKey {
		if err := s.remember(ctx, req.TenantID, entities.IdempotencyOperationIssueTickets, key, requestHash, result); err != nil {
			return nil, err
		}
	}

	if err := s.eventPublisher.Publish(events.TicketsIssuedEvent{
		TenantID:  req.TenantID,
		MemberID:  req.MemberID,
		TicketIDs: result.TicketIDs,
		IssuedBy:  string(issuedByType),
	}); err != nil {
		return nil, fmt.Errorf("failed to publish tickets issued event: %w", err)
	}

	log.WithFields(log.Fields{
		"memberID": req.MemberID,
		"drawID":   draw.ID,
		"quantity": req.Quantity,
	}).Info("Member tickets issued")

	return result, nil
}

// PlaceTicketBet issues a submitted ticket and debits the play type's unit cost
func (s *ticketService) PlaceTicketBet(ctx context.Context, req interfaces.PlaceTicketBetRequest) (*interfaces.PlaceTicketBetResult, error) {
	if req.MemberID <= 0 {
		return nil, entities.ErrTicketMemberRequired
	}

	draw, err := s.drawRepo.GetByID(ctx, req.DrawID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw: %w", err)
	}
	if draw == nil {
		return nil, entities.ErrDrawNotFound.WithMessage("draw %s not found", req.DrawID)
	}

	game, rule, err := s.lookupRule(draw.GameCode, req.PlayTypeCode)
	if err != nil {
		return nil, err
	}
	numbers, err := entities.NewLotteryNumbers(req.Numbers, game.LineFormat(rule))
	if err != nil {
		return nil, err
	}

	key, hasKey := entities.NormalizeIdempotencyKey(req.IdempotencyKey)
	requestHash := entities.ComputeRequestHash(
		entities.IdempotencyOperationPlaceBet,
		strconv.FormatInt(req.MemberID, 10),
		req.DrawID.String(),
		req.PlayTypeCode,
		numbers.String(),
	)

	if hasKey {
		var replay interfaces.PlaceTicketBetResult
		found, err := s.replay(ctx, entities.IdempotencyOperationPlaceBet, key, requestHash, &replay)
		if err != nil {
			return nil, err
		}
		if found {
			replay.Replayed = true
			return &replay, nil
		}
	}

	if _, err := s.ResolveTargetDraw(ctx, req.TenantID, draw.ID, draw.GameCode, req.PlayTypeCode); err != nil {
		return nil, err
	}

	ticket, _, err := s.IssueTicket(ctx, interfaces.IssueTicketParams{
		TenantID:     req.TenantID,
		MemberID:     req.MemberID,
		GameCode:     draw.GameCode,
		PlayTypeCode: req.PlayTypeCode,
		IssuedByType: entities.TicketIssuedBySystem,
		TargetDraws:  []*entities.Draw{draw},
		Numbers:      numbers,
		SubmittedBy:  strconv.FormatInt(req.MemberID, 10),
		ClientRef:    req.ClientRef,
	})
	if err != nil {
		return nil, err
	}

	balance, err := s.wallet.Debit(ctx, req.TenantID, req.MemberID, rule.UnitCost,
		walletReferenceTicketBet, ticket.ID.String(),
		fmt.Sprintf("%s %s bet on draw %s", draw.GameCode, req.PlayTypeCode, draw.DrawCode))
	if err != nil {
		return nil, err
	}

	result := &interfaces.PlaceTicketBetResult{
		TicketID: ticket.ID,
		Numbers:  numbers.String(),
		Cost:     rule.UnitCost,
		Balance:  balance,
	}

	if hasKey {
		if err := s.remember(ctx, req.TenantID, entities.IdempotencyOperationPlaceBet, key, requestHash, result); err != nil {
			return nil, err
		}
	}

	if err := s.eventPublisher.Publish(events.TicketSubmittedEvent{
		TenantID: req.TenantID,
		TicketID: ticket.ID,
		MemberID: req.MemberID,
		Numbers:  result.Numbers,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish ticket submitted event: %w", err)
	}

	return result, nil
}

// SubmitNumbers records a ticket's numbers and activates its participations in open draws.
// Participations in draws that already closed become invalid.
func (s *ticketService) SubmitNumbers(ctx context.Context, req interfaces.SubmitNumbersRequest) (*entities.Ticket, error) {
	ticket, err := s.ticketRepo.GetByIDForUpdate(ctx, req.TicketID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock ticket: %w", err)
	}
	if ticket == nil || (req.MemberID != 0 && ticket.MemberID != req.MemberID) {
		return nil, entities.ErrTicketNotFound.WithMessage("ticket %s not found", req.TicketID)
	}

	game, rule, err := s.lookupRule(ticket.GameCode, ticket.PlayTypeCode)
	if err != nil {
		return nil, err
	}
	numbers, err := entities.NewLotteryNumbers(req.Numbers, game.LineFormat(rule))
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := ticket.SubmitNumbers(numbers, now, req.SubmittedBy, req.ClientRef, req.Note); err != nil {
		return nil, err
	}

	links, err := s.ticketRepo.GetTicketDraws(ctx, ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket participations: %w", err)
	}

	activated := 0
	for _, link := range links {
		if link.ParticipationStatus != entities.TicketParticipationPending {
			continue
		}
		draw, err := s.drawRepo.GetByID(ctx, link.DrawID)
		if err != nil {
			return nil, fmt.Errorf("failed to get draw: %w", err)
		}
		if draw != nil && draw.IsWithinSalesWindow(now) {
			err = link.Activate(now)
			activated++
		} else {
			err = link.Invalidate("draw closed before numbers were submitted", now)
		}
		if err != nil {
			return nil, err
		}
		if err := s.ticketRepo.UpdateTicketDraw(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to update ticket participation: %w", err)
		}
	}
	if activated == 0 {
		return nil, entities.ErrTicketDrawNotAvailable.WithMessage("no draw of ticket %s is selling", ticket.ID)
	}

	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}

	if err := s.eventPublisher.Publish(events.TicketSubmittedEvent{
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		MemberID: ticket.MemberID,
		Numbers:  numbers.String(),
	}); err != nil {
		return nil, fmt.Errorf("failed to publish ticket submitted event: %w", err)
	}

	return ticket, nil
}

// IssueTicket stores one ticket and links it to every target draw
func (s *ticketService) IssueTicket(ctx context.Context, params interfaces.IssueTicketParams) (*entities.Ticket, []*entities.TicketDraw, error) {
	if params.MemberID <= 0 {
		return nil, nil, entities.ErrTicketMemberRequired
	}
	if len(params.TargetDraws) == 0 {
		return nil, nil, entities.ErrTicketDrawNotAvailable
	}

	now := s.now()
	primary := params.TargetDraws[0].ID
	ticket := entities.NewTicket(entities.NewTicketParams{
		TenantID:         params.TenantID,
		GameCode:         params.GameCode,
		PlayTypeCode:     params.PlayTypeCode,
		MemberID:         params.MemberID,
		TicketTemplateID: params.TicketTemplateID,
		CampaignID:       params.CampaignID,
		DrawID:           &primary,
		IssuedByType:     params.IssuedByType,
		IssuedByID:       params.IssuedByID,
		IssueReason:      params.IssueReason,
	}, now)

	submit := !params.Numbers.IsZero()
	if submit {
		if err := ticket.SubmitNumbers(params.Numbers, now, params.SubmittedBy, params.ClientRef, ""); err != nil {
			return nil, nil, err
		}
	}

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	links := make([]*entities.TicketDraw, 0, len(params.TargetDraws))
	for _, draw := range params.TargetDraws {
		link := entities.NewTicketDraw(params.TenantID, ticket.ID, draw.ID, now)
		if submit {
			if err := link.Activate(now); err != nil {
				return nil, nil, err
			}
		}
		links = append(links, link)
	}
	if err := s.ticketRepo.CreateTicketDraws(ctx, links); err != nil {
		return nil, nil, fmt.Errorf("failed to link ticket to draws: %w", err)
	}

	return ticket, links, nil
}

// ResolveTargetDraw returns the draw if it currently sells the play type to the tenant
func (s *ticketService) ResolveTargetDraw(ctx context.Context, tenantID int64, drawID uuid.UUID, gameCode, playType string) (*entities.Draw, error) {
	draw, err := s.drawRepo.GetByID(ctx, drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw: %w", err)
	}
	if draw == nil {
		return nil, entities.ErrDrawNotFound.WithMessage("draw %s not found", drawID)
	}
	if !s.sells(draw, gameCode, playType) {
		return nil, entities.ErrTicketDrawNotAvailable.WithMessage("draw %s is not selling %s", draw.DrawCode, playType)
	}
	if err := s.entitlements.EnsurePlayEnabled(ctx, tenantID, draw.GameCode, playType); err != nil {
		return nil, err
	}
	return draw, nil
}

// ResolveGroupDraws returns every draw of the group currently selling the play type to the tenant
func (s *ticketService) ResolveGroupDraws(ctx context.Context, tenantID int64, groupID uuid.UUID, gameCode, playType string) ([]*entities.Draw, error) {
	if err := s.entitlements.EnsurePlayEnabled(ctx, tenantID, gameCode, playType); err != nil {
		var de *entities.DomainError
		if errors.As(err, &de) {
			return nil, entities.ErrTicketDrawNotAvailable.WithMessage("tenant is not entitled: %s", de.Code)
		}
		return nil, err
	}

	draws, err := s.drawRepo.GetByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw group: %w", err)
	}

	open := make([]*entities.Draw, 0, len(draws))
	for _, draw := range draws {
		if s.sells(draw, gameCode, playType) {
			open = append(open, draw)
		}
	}
	if len(open) == 0 {
		return nil, entities.ErrTicketDrawNotAvailable.WithMessage("no draw in group %s is selling %s", groupID, playType)
	}
	return open, nil
}

// sells reports whether the draw takes bets for the play type now.
// A draw without a committed seed hash never sells.
func (s *ticketService) sells(draw *entities.Draw, gameCode, playType string) bool {
	return draw.HasCommittedSeed() &&
		draw.GameCode == gameCode &&
		draw.IsPlayTypeEnabled(playType) &&
		draw.IsWithinSalesWindow(s.now())
}

func (s *ticketService) lookupRule(gameCode, playType string) (*entities.GameDefinition, *entities.PlayRule, error) {
	game, ok := s.registry.GetGame(gameCode)
	if !ok {
		return nil, nil, entities.ErrGameNotFound.WithMessage("game %s is not in the catalogue", gameCode)
	}
	rule, ok := s.registry.GetRule(gameCode, playType)
	if !ok {
		return nil, nil, entities.ErrPlayTypeNotAllowed.WithMessage("play type %s is not allowed for game %s", playType, gameCode)
	}
	return game, rule, nil
}

// replay locks the key, then decodes a stored response when the key was already used for the same request.
// A concurrent request with the same key waits on the lock and replays what the first one stored.
func (s *ticketService) replay(ctx context.Context, operation, key, requestHash string, out any) (bool, error) {
	if err := s.idempotencyRepo.LockKey(ctx, operation, key); err != nil {
		return false, err
	}
	record, err := s.idempotencyRepo.Get(ctx, operation, key)
	if err != nil {
		return false, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	if record == nil {
		return false, nil
	}
	if err := record.EnsureSameRequest(requestHash); err != nil {
		return false, err
	}
	if err := json.Unmarshal(record.ResponsePayload, out); err != nil {
		return false, entities.ErrTicketIdempotencyPayloadInvalid.WithMessage("%s/%s: %v", operation, key, err)
	}
	return true, nil
}

func (s *ticketService) remember(ctx context.Context, tenantID int64, operation, key, requestHash string, response any) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotent response: %w", err)
	}
	return s.idempotencyRepo.Create(ctx, &entities.TicketIdempotencyRecord{
		TenantID:        tenantID,
		Operation:       operation,
		IdempotencyKey:  key,
		RequestHash:     requestHash,
		ResponsePayload: payload,
		CreatedAt:       s.now(),
	})
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
