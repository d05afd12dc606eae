package application

import (
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"
	"lottoengine/domain/services"
)

// Dependencies holds the collaborators shared by every unit of work
type Dependencies struct {
	SeedStore    interfaces.SeedStore
	Entitlements interfaces.EntitlementService
	RNG          interfaces.LotteryRNGService
	Registry     *entities.PlayRuleRegistry
	SeedTTLGrace time.Duration
}

// uowServices are the domain services bound to one unit of work
type uowServices struct {
	draws       interfaces.DrawService
	settlement  interfaces.SettlementService
	tickets     interfaces.TicketService
	claimEvents interfaces.TicketClaimEventService
	claims      interfaces.TicketClaimService
}

func newUoWServices(uow UnitOfWork, deps Dependencies) *uowServices {
	tickets := services.NewTicketService(
		uow.DrawRepository(),
		uow.TicketRepository(),
		uow.TicketIdempotencyRepository(),
		uow.Wallet(),
		deps.Entitlements,
		deps.Registry,
		uow.EventBus(),
	)

	return &uowServices{
		draws: services.NewDrawService(
			uow.DrawRepository(),
			uow.TicketRepository(),
			deps.SeedStore,
			deps.Entitlements,
			deps.RNG,
			deps.Registry,
			uow.EventBus(),
			deps.SeedTTLGrace,
		),
		settlement: services.NewSettlementService(
			uow.DrawRepository(),
			uow.TicketRepository(),
			uow.PrizeAwardRepository(),
			deps.Registry,
			uow.EventBus(),
		),
		tickets: tickets,
		claimEvents: services.NewTicketClaimEventService(
			uow.TicketClaimEventRepository(),
			uow.DrawRepository(),
			deps.Entitlements,
			deps.Registry,
			uow.EventBus(),
		),
		claims: services.NewTicketClaimService(
			uow.TicketClaimEventRepository(),
			uow.TicketClaimRepository(),
			tickets,
			uow.EventBus(),
		),
	}
}
