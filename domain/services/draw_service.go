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

// drawService implements the draw lifecycle and the commit-reveal orchestration
type drawService struct {
	drawRepo       interfaces.DrawRepository
	ticketRepo     interfaces.TicketRepository
	seedStore      interfaces.SeedStore
	entitlements   interfaces.EntitlementService
	rng            interfaces.LotteryRNGService
	registry       *entities.PlayRuleRegistry
	eventPublisher interfaces.EventPublisher
	seedTTLGrace   time.Duration
	now            clock
}

// NewDrawService creates a new draw service
func NewDrawService(
	drawRepo interfaces.DrawRepository,
	ticketRepo interfaces.TicketRepository,
	seedStore interfaces.SeedStore,
	entitlements interfaces.EntitlementService,
	rng interfaces.LotteryRNGService,
	registry *entities.PlayRuleRegistry,
	eventPublisher interfaces.EventPublisher,
	seedTTLGrace time.Duration,
) interfaces.DrawService {
	return &drawService{
		drawRepo:       drawRepo,
		ticketRepo:     ticketRepo,
		seedStore:      seedStore,
		entitlements:   entitlements,
		rng:            rng,
		registry:       registry,
		eventPublisher: eventPublisher,
		seedTTLGrace:   seedTTLGrace,
		now:            utcNow,
	}
}

// CreateDraw schedules a draw, optionally enabling play types and joining a draw group
func (s *drawService) CreateDraw(ctx context.Context, req interfaces.CreateDrawRequest) (*entities.Draw, error) {
	now := s.now()

	draw, err := entities.NewDraw(req.TenantID, req.GameCode, req.DrawCode, req.SalesOpenAt, req.SalesCloseAt, req.DrawAt, req.RedeemValidDays, s.registry, now)
	if err != nil {
		return nil, err
	}

	if err := s.entitlements.EnsureGameEnabled(ctx, req.TenantID, draw.GameCode); err != nil {
		return nil, err
	}

	existing, err := s.drawRepo.GetByCode(ctx, draw.GameCode, draw.DrawCode)
	if err != nil {
		return nil, fmt.Errorf("failed to check draw code: %w", err)
	}
	if existing != nil {
		return nil, entities.ErrDrawCodeDuplicate.WithMessage("draw %s/%s already exists", draw.GameCode, draw.DrawCode)
	}

	if len(req.EnabledPlayTypes) > 0 {
		if err := s.ensurePlaysEntitled(ctx, draw, req.EnabledPlayTypes); err != nil {
			return nil, err
		}
		if err := draw.EnablePlayTypes(req.EnabledPlayTypes, s.registry, now); err != nil {
			return nil, err
		}
	}

	if err := s.drawRepo.Create(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to create draw: %w", err)
	}

	if req.DrawGroupID != nil {
		if err := s.drawRepo.AddToGroup(ctx, *req.DrawGroupID, draw.ID); err != nil {
			return nil, fmt.Errorf("failed to add draw to group: %w", err)
		}
	}

	if err := s.eventPublisher.Publish(events.DrawCreatedEvent{
		TenantID: draw.TenantID,
		DrawID:   draw.ID,
		GameCode: draw.GameCode,
		DrawCode: draw.DrawCode,
		DrawAt:   draw.DrawAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish draw created event: %w", err)
	}

	log.WithFields(log.Fields{
		"drawID":   draw.ID,
		"tenantID": draw.TenantID,
		"gameCode": draw.GameCode,
		"drawCode": draw.DrawCode,
	}).Info("Draw created")

	return draw, nil
}

// EnablePlayTypes enables play types on a draw that has not been drawn
func (s *drawService) EnablePlayTypes(ctx context.Context, drawID uuid.UUID, playTypes []string) (*entities.Draw, error) {
	draw, err := s.lockOpenDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}

	if err := s.ensurePlaysEntitled(ctx, draw, playTypes); err != nil {
		return nil, err
	}
	if err := draw.EnablePlayTypes(playTypes, s.registry, s.now()); err != nil {
		return nil, err
	}

	if err := s.drawRepo.Update(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to update draw: %w", err)
	}
	return draw, nil
}

// ConfigurePrizeOption overwrites one prize pool slot; allowed until settlement
func (s *drawService) ConfigurePrizeOption(ctx context.Context, drawID uuid.UUID, playType, tier string, option entities.PrizeOption) (*entities.Draw, error) {
	draw, err := s.lockDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if draw.IsCancelled {
		return nil, entities.ErrDrawCancelled
	}
	if draw.IsSettled() {
		return nil, entities.ErrDrawAlreadySettled
	}

	if err := draw.ConfigurePrizeOption(playType, tier, option, s.registry, s.now()); err != nil {
		return nil, err
	}

	if err := s.drawRepo.Update(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to update draw: %w", err)
	}
	return draw, nil
}

// OpenSales commits the seed hash. A seed already held by the store is reused so a
// retried call never commits a second seed.
func (s *drawService) OpenSales(ctx context.Context, drawID uuid.UUID) (*entities.Draw, error) {
	draw, err := s.lockOpenDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if draw.HasCommittedSeed() {
		return draw, nil
	}

	now := s.now()
	if err := s.ensureCommitBeforeSales(ctx, draw, now); err != nil {
		return nil, err
	}

	seed, err := s.heldOrNewSeed(ctx, draw, now)
	if err != nil {
		return nil, err
	}

	hash, err := s.rng.ComputeSeedHash(seed)
	if err != nil {
		return nil, err
	}
	draw.OpenSales(hash, now)

	if err := s.drawRepo.Update(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to update draw: %w", err)
	}

	if err := s.eventPublisher.Publish(events.DrawSalesOpenedEvent{
		TenantID:       draw.TenantID,
		DrawID:         draw.ID,
		ServerSeedHash: hash,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish sales opened event: %w", err)
	}

	log.WithFields(log.Fields{
		"drawID":         draw.ID,
		"serverSeedHash": hash,
	}).Info("Draw seed committed")

	return draw, nil
}

// ensureCommitBeforeSales rejects a first commitment once bets could be known to the operator
func (s *drawService) ensureCommitBeforeSales(ctx context.Context, draw *entities.Draw, now time.Time) error {
	if draw.IsEffectivelyClosed(now) {
		return entities.ErrDrawSeedCommitClosed.WithMessage("draw %s stopped selling before a seed was committed", draw.DrawCode)
	}
	sold, err := s.ticketRepo.HasTicketDraws(ctx, draw.ID)
	if err != nil {
		return fmt.Errorf("failed to check draw participations: %w", err)
	}
	if sold {
		return entities.ErrDrawSeedCommitClosed.WithMessage("draw %s already has tickets", draw.DrawCode)
	}
	return nil
}

// heldOrNewSeed returns the stored seed for the draw, generating and storing one if needed
func (s *drawService) heldOrNewSeed(ctx context.Context, draw *entities.Draw, now time.Time) (string, error) {
	seed, found, err := s.seedStore.Get(ctx, draw.ID)
	if err != nil {
		return "", fmt.Errorf("failed to read server seed: %w", err)
	}
	if found {
		return seed, nil
	}

	generated, err := s.rng.GenerateServerSeed()
	if err != nil {
		return "", err
	}

	ttl := draw.DrawAt.Sub(now) + s.seedTTLGrace
	if ttl < s.seedTTLGrace {
		ttl = s.seedTTLGrace
	}
	if err := s.seedStore.Store(ctx, draw.ID, generated, ttl); err != nil {
		return "", fmt.Errorf("failed to store server seed: %w", err)
	}

	// Another caller may have stored first; the store keeps that seed
	seed, found, err = s.seedStore.Get(ctx, draw.ID)
	if err != nil {
		return "", fmt.Errorf("failed to read server seed: %w", err)
	}
	if !found {
		return "", entities.ErrDrawSeedNotFound.WithMessage("seed for draw %s vanished after store", draw.ID)
	}
	return seed, nil
}

// CloseManually stops sales ahead of the scheduled close
func (s *drawService) CloseManually(ctx context.Context, drawID uuid.UUID, reason string) (*entities.Draw, error) {
	draw, err := s.lockDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if err := draw.CloseManually(reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.drawRepo.Update(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to update draw: %w", err)
	}
	return draw, nil
}

// Reopen removes a manual close
func (s *drawService) Reopen(ctx context.Context, drawID uuid.UUID) (*entities.Draw, error) {
	draw, err := s.lockDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if err := draw.Reopen(s.now()); err != nil {
		return nil, err
	}
	if err := s.drawRepo.Update(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to update draw: %w", err)
	}
	return draw, nil
}

// CancelDraw voids an undrawn draw and cancels its unsettled participations
func (s *drawService) CancelDraw(ctx context.Context, drawID uuid.UUID, reason string) (*entities.Draw, error) {
	draw, err := s.lockDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if draw.IsCancelled {
		return draw, nil
	}

	now := s.now()
	if err := draw.Cancel(reason, now); err != nil {
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
	for _, link := range links {
		if err := link.Cancel(now); err != nil {
			return nil, err
		}
		if err := s.ticketRepo.UpdateTicketDraw(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to cancel ticket participation: %w", err)
		}
	}

	if err := s.drawRepo.Update(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to update draw: %w", err)
	}

	if err := s.eventPublisher.Publish(events.DrawCancelledEvent{
		TenantID: draw.TenantID,
		DrawID:   draw.ID,
		Reason:   reason,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish draw cancelled event: %w", err)
	}

	log.WithFields(log.Fields{
		"drawID":         draw.ID,
		"participations": len(links),
	}).Info("Draw cancelled")

	return draw, nil
}

// ExecuteDraw reveals the committed seed and records the derived winning numbers
func (s *drawService) ExecuteDraw(ctx context.Context, drawID uuid.UUID) (*interfaces.DrawExecutionResult, error) {
	draw, err := s.lockDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case draw.IsCancelled:
		return nil, entities.ErrDrawCancelled
	case draw.IsDrawn():
		return nil, entities.ErrDrawAlreadyDrawn
	case !draw.IsEffectivelyClosed(now) || now.Before(draw.DrawAt):
		return nil, entities.ErrDrawNotClosed.WithMessage("draw %s executes at %s", draw.DrawCode, draw.DrawAt.Format(time.RFC3339))
	case !draw.HasCommittedSeed():
		return nil, entities.ErrDrawSeedNotCommitted
	}

	game, ok := s.registry.GetGame(draw.GameCode)
	if !ok {
		return nil, entities.ErrGameNotFound.WithMessage("game %s is not in the catalogue", draw.GameCode)
	}

	seed, found, err := s.seedStore.Get(ctx, draw.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read server seed: %w", err)
	}
	if !found {
		return nil, entities.ErrDrawSeedNotFound.WithMessage("no seed held for draw %s", draw.ID)
	}

	hash, err := s.rng.ComputeSeedHash(seed)
	if err != nil {
		return nil, err
	}
	if hash != *draw.ServerSeedHash {
		return nil, entities.ErrDrawSeedMismatch.WithMessage("draw %s", draw.ID)
	}

	input := s.rng.DeriveInput(draw.ID)
	numbers, err := s.rng.DeriveWinningNumbers(seed, input, game.DrawFormat)
	if err != nil {
		return nil, err
	}

	draw.Execute(numbers, seed, entities.AlgorithmHMACSHA256, input, now)

	if err := s.drawRepo.Update(ctx, draw); err != nil {
		return nil, fmt.Errorf("failed to update draw: %w", err)
	}

	proof, err := draw.VerificationPayload(s.registry)
	if err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.DrawExecutedEvent{
		TenantID:       draw.TenantID,
		DrawID:         draw.ID,
		WinningNumbers: proof.WinningNumbers,
		ServerSeedHash: proof.ServerSeedHash,
		ServerSeed:     proof.ServerSeed,
		Algorithm:      proof.Algorithm,
		DerivedInput:   proof.DerivedInput,
		DrawnAt:        now,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish draw executed event: %w", err)
	}

	log.WithFields(log.Fields{
		"drawID":         draw.ID,
		"tenantID":       draw.TenantID,
		"winningNumbers": numbers.String(),
	}).Info("Draw executed")

	return &interfaces.DrawExecutionResult{
		Draw:           draw,
		WinningNumbers: numbers,
		Verification:   proof,
	}, nil
}

// GetVerification returns the public proof of a drawn draw
func (s *drawService) GetVerification(ctx context.Context, drawID uuid.UUID) (*entities.DrawVerification, error) {
	draw, err := s.drawRepo.GetByID(ctx, drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw: %w", err)
	}
	if draw == nil {
		return nil, entities.ErrDrawNotFound
	}
	return draw.VerificationPayload(s.registry)
}

func (s *drawService) lockDraw(ctx context.Context, drawID uuid.UUID) (*entities.Draw, error) {
	draw, err := s.drawRepo.GetByIDForUpdate(ctx, drawID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock draw: %w", err)
	}
	if draw == nil {
		return nil, entities.ErrDrawNotFound.WithMessage("draw %s not found", drawID)
	}
	return draw, nil
}

// lockOpenDraw locks a draw that is neither cancelled nor drawn
func (s *drawService) lockOpenDraw(ctx context.Context, drawID uuid.UUID) (*entities.Draw, error) {
	draw, err := s.lockDraw(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if draw.IsCancelled {
		return nil, entities.ErrDrawCancelled
	}
	if draw.IsDrawn() {
		return nil, entities.ErrDrawAlreadyDrawn
	}
	return draw, nil
}

func (s *drawService) ensurePlaysEntitled(ctx context.Context, draw *entities.Draw, playTypes []string) error {
	for _, playType := range playTypes {
		if err := s.entitlements.EnsurePlayEnabled(ctx, draw.TenantID, draw.GameCode, playType); err != nil {
			return err
		}
	}
	return nil
}
