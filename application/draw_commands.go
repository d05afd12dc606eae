package application

import (
	"context"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"
	"lottoengine/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DrawCommands runs operator draw commands, each in its own tenant transaction
type DrawCommands struct {
	uowFactory UnitOfWorkFactory
	deps       Dependencies
}

// NewDrawCommands creates the draw command handler
func NewDrawCommands(uowFactory UnitOfWorkFactory, deps Dependencies) *DrawCommands {
	return &DrawCommands{
		uowFactory: uowFactory,
		deps:       deps,
	}
}

// CreateDraw schedules a draw for the tenant in the request
func (c *DrawCommands) CreateDraw(ctx context.Context, req interfaces.CreateDrawRequest) (*entities.Draw, error) {
	return withTenantUoW(ctx, c.uowFactory, req.TenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.Draw, error) {
		return s.draws.CreateDraw(ctx, req)
	})
}

// EnablePlayTypes enables additional play types on a draw
func (c *DrawCommands) EnablePlayTypes(ctx context.Context, tenantID int64, drawID uuid.UUID, playTypes []string) (*entities.Draw, error) {
	return withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.Draw, error) {
		return s.draws.EnablePlayTypes(ctx, drawID, playTypes)
	})
}

// ConfigurePrizeOption sets the prize option of one (play type, tier) slot
func (c *DrawCommands) ConfigurePrizeOption(ctx context.Context, tenantID int64, drawID uuid.UUID, playType, tier string, option entities.PrizeOption) (*entities.Draw, error) {
	return withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.Draw, error) {
		return s.draws.ConfigurePrizeOption(ctx, drawID, playType, tier, option)
	})
}

// OpenSales commits the server seed of a draw ahead of its schedule
func (c *DrawCommands) OpenSales(ctx context.Context, tenantID int64, drawID uuid.UUID) (*entities.Draw, error) {
	return withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.Draw, error) {
		return s.draws.OpenSales(ctx, drawID)
	})
}

// CloseManually stops sales before the scheduled close
func (c *DrawCommands) CloseManually(ctx context.Context, tenantID int64, drawID uuid.UUID, reason string) (*entities.Draw, error) {
	return withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.Draw, error) {
		return s.draws.CloseManually(ctx, drawID, reason)
	})
}

// Reopen lifts a manual close
func (c *DrawCommands) Reopen(ctx context.Context, tenantID int64, drawID uuid.UUID) (*entities.Draw, error) {
	return withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.Draw, error) {
		return s.draws.Reopen(ctx, drawID)
	})
}

// CancelDraw cancels a draw and every pending participation in it
func (c *DrawCommands) CancelDraw(ctx context.Context, tenantID int64, drawID uuid.UUID, reason string) (*entities.Draw, error) {
	return withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.Draw, error) {
		return s.draws.CancelDraw(ctx, drawID, reason)
	})
}

// ExecuteDraw reveals the seed and records the winning numbers
func (c *DrawCommands) ExecuteDraw(ctx context.Context, tenantID int64, drawID uuid.UUID) (*interfaces.DrawExecutionResult, error) {
	result, err := withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*interfaces.DrawExecutionResult, error) {
		return s.draws.ExecuteDraw(ctx, drawID)
	})
	if err != nil {
		return nil, err
	}

	observability.GetMetrics().RecordDrawExecuted(result.Draw.GameCode)
	log.WithFields(log.Fields{
		"tenantId":       tenantID,
		"drawId":         drawID,
		"winningNumbers": result.WinningNumbers.String(),
	}).Info("Draw executed")
	return result, nil
}

// SettleDraw awards the winning lines of a drawn draw
func (c *DrawCommands) SettleDraw(ctx context.Context, tenantID int64, drawID uuid.UUID) (*interfaces.SettlementResult, error) {
	var gameCode string
	result, err := withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, uow UnitOfWork) (*interfaces.SettlementResult, error) {
		result, err := s.settlement.SettleDraw(ctx, drawID)
		if err != nil {
			return nil, err
		}
		draw, err := uow.DrawRepository().GetByID(ctx, drawID)
		if err != nil {
			return nil, err
		}
		if draw != nil {
			gameCode = draw.GameCode
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadySettled {
		observability.GetMetrics().RecordDrawSettled(gameCode, result.AwardsCreated)
	}
	return result, nil
}

// GetVerification returns the public fairness proof of a drawn draw
func (c *DrawCommands) GetVerification(ctx context.Context, tenantID int64, drawID uuid.UUID) (*entities.DrawVerification, error) {
	return withTenantUoW(ctx, c.uowFactory, tenantID, c.deps, func(s *uowServices, _ UnitOfWork) (*entities.DrawVerification, error) {
		return s.draws.GetVerification(ctx, drawID)
	})
}
