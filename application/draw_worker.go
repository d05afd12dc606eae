package application

import (
	"context"
	"fmt"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"
	"lottoengine/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// DrawWorker drives the scheduled parts of the lottery: committing seeds ahead of sales opening,
// executing due draws, settling drawn ones and ending expired claim events.
type DrawWorker struct {
	uowFactory   UnitOfWorkFactory
	deps         Dependencies
	pollInterval time.Duration
	commitLead   time.Duration // seeds are committed this far ahead of sales opening
	now          func() time.Time
}

// NewDrawWorker creates a new draw worker
func NewDrawWorker(uowFactory UnitOfWorkFactory, deps Dependencies, pollInterval time.Duration) *DrawWorker {
	return &DrawWorker{
		uowFactory:   uowFactory,
		deps:         deps,
		pollInterval: pollInterval,
		commitLead:   2 * pollInterval,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// workerStats counts per-item outcomes of one pass
type workerStats struct {
	succeeded int
	skipped   int
	failed    int
}

// Start begins the draw worker
func (w *DrawWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("pollInterval", w.pollInterval).Info("Draw worker started")

		for {
			w.RunOnce(ctx)

			select {
			case <-ctx.Done():
				log.Info("Draw worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Draw worker shutting down (stop requested)...")
				return
			case <-time.After(w.pollInterval):
			}
		}
	}()

	// Return cleanup function
	return func() {
		close(stopChan)
	}
}

// RunOnce performs a single pass over every due item across all tenants
func (w *DrawWorker) RunOnce(ctx context.Context) {
	if err := w.openDueSales(ctx); err != nil {
		log.Errorf("Error opening draw sales: %v", err)
	}
	if err := w.executeDueDraws(ctx); err != nil {
		log.Errorf("Error executing due draws: %v", err)
	}
	if err := w.settleDrawnDraws(ctx); err != nil {
		log.Errorf("Error settling draws: %v", err)
	}
	if err := w.endExpiredClaimEvents(ctx); err != nil {
		log.Errorf("Error ending claim events: %v", err)
	}
}

// listDue runs a cross-tenant read in a throwaway transaction
func listDue[T any](ctx context.Context, w *DrawWorker, fn func(UnitOfWork) ([]T, error)) ([]T, error) {
	uow := w.uowFactory.CreateForTenant(0)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return fn(uow)
}

func (w *DrawWorker) openDueSales(ctx context.Context) error {
	draws, err := listDue(ctx, w, func(uow UnitOfWork) ([]*entities.Draw, error) {
		return uow.DrawRepository().GetDrawsDueForSalesOpen(ctx, w.now(), w.commitLead)
	})
	if err != nil {
		return fmt.Errorf("failed to get draws due for sales open: %w", err)
	}
	if len(draws) == 0 {
		return nil
	}

	var stats workerStats
	for _, draw := range draws {
		_, err := withTenantUoW(ctx, w.uowFactory, draw.TenantID, w.deps, func(s *uowServices, _ UnitOfWork) (*entities.Draw, error) {
			return s.draws.OpenSales(ctx, draw.ID)
		})
		if err != nil {
			log.WithFields(log.Fields{
				"drawId":   draw.ID,
				"tenantId": draw.TenantID,
			}).WithError(err).Error("Failed to open draw sales")
			stats.failed++
			continue
		}
		stats.succeeded++
	}

	logPass("open_sales", len(draws), stats)
	return nil
}

func (w *DrawWorker) executeDueDraws(ctx context.Context) error {
	draws, err := listDue(ctx, w, func(uow UnitOfWork) ([]*entities.Draw, error) {
		return uow.DrawRepository().GetDrawsDueForExecution(ctx, w.now())
	})
	if err != nil {
		return fmt.Errorf("failed to get draws due for execution: %w", err)
	}
	if len(draws) == 0 {
		return nil
	}

	var stats workerStats
	for _, draw := range draws {
		fields := log.Fields{
			"drawId":   draw.ID,
			"tenantId": draw.TenantID,
			"drawCode": draw.DrawCode,
		}

		result, err := withTenantUoW(ctx, w.uowFactory, draw.TenantID, w.deps, func(s *uowServices, _ UnitOfWork) (*entities.Draw, error) {
			res, err := s.draws.ExecuteDraw(ctx, draw.ID)
			if err != nil {
				return nil, err
			}
			return res.Draw, nil
		})
		if err != nil {
			if entities.KindOf(err) == entities.KindFatal {
				// Seed loss or tampering needs an operator; the draw stays unexecuted
				log.WithFields(fields).WithError(err).Error("Draw execution halted")
			} else {
				log.WithFields(fields).WithError(err).Error("Failed to execute draw")
			}
			stats.failed++
			continue
		}

		observability.GetMetrics().RecordDrawExecuted(result.GameCode)
		stats.succeeded++
	}

	logPass("execute", len(draws), stats)
	return nil
}

func (w *DrawWorker) settleDrawnDraws(ctx context.Context) error {
	draws, err := listDue(ctx, w, func(uow UnitOfWork) ([]*entities.Draw, error) {
		return uow.DrawRepository().GetDrawsPendingSettlement(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to get draws pending settlement: %w", err)
	}
	if len(draws) == 0 {
		return nil
	}

	var stats workerStats
	for _, draw := range draws {
		fields := log.Fields{
			"drawId":   draw.ID,
			"tenantId": draw.TenantID,
			"drawCode": draw.DrawCode,
		}

		// Operators may still be filling the prize pool; retry on a later pass
		if err := draw.EnsurePrizePoolCompleteForSettlement(w.deps.Registry); err != nil {
			log.WithFields(fields).WithError(err).Debug("Skipping settlement until prize pool is complete")
			stats.skipped++
			continue
		}

		result, err := withTenantUoW(ctx, w.uowFactory, draw.TenantID, w.deps, func(s *uowServices, _ UnitOfWork) (*interfaces.SettlementResult, error) {
			return s.settlement.SettleDraw(ctx, draw.ID)
		})
		if err != nil {
			log.WithFields(fields).WithError(err).Error("Failed to settle draw")
			stats.failed++
			continue
		}

		if !result.AlreadySettled {
			observability.GetMetrics().RecordDrawSettled(draw.GameCode, result.AwardsCreated)
		}
		stats.succeeded++
	}

	logPass("settle", len(draws), stats)
	return nil
}

func (w *DrawWorker) endExpiredClaimEvents(ctx context.Context) error {
	claimEvents, err := listDue(ctx, w, func(uow UnitOfWork) ([]*entities.TicketClaimEvent, error) {
		return uow.TicketClaimEventRepository().GetExpiredOpenEvents(ctx, w.now())
	})
	if err != nil {
		return fmt.Errorf("failed to get expired claim events: %w", err)
	}
	if len(claimEvents) == 0 {
		return nil
	}

	var stats workerStats
	for _, event := range claimEvents {
		ended, err := withTenantUoW(ctx, w.uowFactory, event.TenantID, w.deps, func(s *uowServices, _ UnitOfWork) (bool, error) {
			return s.claimEvents.EndEventIfExpired(ctx, event.ID)
		})
		switch {
		case err != nil:
			log.WithFields(log.Fields{
				"eventId":  event.ID,
				"tenantId": event.TenantID,
			}).WithError(err).Error("Failed to end claim event")
			stats.failed++
		case ended:
			stats.succeeded++
		default:
			stats.skipped++
		}
	}

	logPass("end_claim_events", len(claimEvents), stats)
	return nil
}

func logPass(pass string, total int, stats workerStats) {
	log.WithFields(log.Fields{
		"pass":       pass,
		"total":      total,
		"successful": stats.succeeded,
		"skipped":    stats.skipped,
		"failed":     stats.failed,
	}).Info("Completed draw worker pass")
}
