package application

import (
	"context"
	"errors"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"
	"lottoengine/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// ClaimTicketHandler runs member claims against claim events
type ClaimTicketHandler struct {
	uowFactory  UnitOfWorkFactory
	deps        Dependencies
	lockTimeout time.Duration
}

// NewClaimTicketHandler creates a claim handler; lockTimeout bounds each claim transaction
func NewClaimTicketHandler(uowFactory UnitOfWorkFactory, deps Dependencies, lockTimeout time.Duration) *ClaimTicketHandler {
	return &ClaimTicketHandler{
		uowFactory:  uowFactory,
		deps:        deps,
		lockTimeout: lockTimeout,
	}
}

// Claim grants a ticket from the event. A claim that cannot take its locks before the
// deadline rolls back with nothing written.
func (h *ClaimTicketHandler) Claim(ctx context.Context, req interfaces.ClaimTicketRequest) (*interfaces.ClaimTicketResult, error) {
	start := time.Now()

	if h.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.lockTimeout)
		defer cancel()
	}

	result, err := withTenantUoW(ctx, h.uowFactory, req.TenantID, h.deps, func(s *uowServices, _ UnitOfWork) (*interfaces.ClaimTicketResult, error) {
		return s.claims.Claim(ctx, req)
	})

	outcome := claimOutcome(result, err)
	observability.GetMetrics().RecordClaim(outcome, time.Since(start))

	if err != nil {
		fields := log.Fields{
			"tenantId": req.TenantID,
			"eventId":  req.EventID,
			"memberId": req.MemberID,
			"outcome":  outcome,
		}
		if entities.KindOf(err) == "" {
			log.WithFields(fields).WithError(err).Error("Ticket claim failed")
		} else {
			log.WithFields(fields).Debug("Ticket claim rejected")
		}
		return nil, err
	}
	return result, nil
}

func claimOutcome(result *interfaces.ClaimTicketResult, err error) string {
	switch {
	case err == nil && result.Replayed:
		return observability.ClaimOutcomeReplayed
	case err == nil:
		return observability.ClaimOutcomeClaimed
	case errors.Is(err, context.DeadlineExceeded):
		return observability.ClaimOutcomeTimeout
	}
	if code := entities.CodeOf(err); code != "" {
		return code
	}
	return observability.ClaimOutcomeError
}
