package services

import (
	"context"
	"testing"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSettlementService(m *TestMocks, registry *entities.PlayRuleRegistry) interfaces.SettlementService {
	svc := NewSettlementService(m.DrawRepo, m.TicketRepo, m.AwardRepo, registry, m.EventPublisher).(*settlementService)
	svc.now = fixedClock
	return svc
}

// newDrawnDraw returns a fully configured draw drawn with the given numbers
func newDrawnDraw(t *testing.T, registry *entities.PlayRuleRegistry, winning []int, playTypes ...string) *entities.Draw {
	t.Helper()

	draw := newDueDraw(t, registry, "hash", playTypes...)
	configurePrizePool(t, draw, registry)
	draw.Execute(mustLotteryNumbers(t, winning, lotto539), "seed", entities.AlgorithmHMACSHA256, entities.DrawInputFor(draw.ID), testNow)
	return draw
}

// participation builds a ticket for the draw; nil values leave it unsubmitted
func participation(t *testing.T, registry *entities.PlayRuleRegistry, draw *entities.Draw, playType string, values []int) (*entities.Ticket, *entities.TicketDraw) {
	t.Helper()

	ticket := entities.NewTicket(entities.NewTicketParams{
		TenantID:     draw.TenantID,
		GameCode:     draw.GameCode,
		PlayTypeCode: playType,
		MemberID:     100,
		DrawID:       &draw.ID,
		IssuedByType: entities.TicketIssuedBySystem,
	}, testNow)
	link := entities.NewTicketDraw(draw.TenantID, ticket.ID, draw.ID, testNow)

	if values != nil {
		game, _ := registry.GetGame(draw.GameCode)
		rule, _ := registry.GetRule(draw.GameCode, playType)
		numbers := mustLotteryNumbers(t, values, game.LineFormat(rule))
		require.NoError(t, ticket.SubmitNumbers(numbers, testNow, "member", "", ""))
		require.NoError(t, link.Activate(testNow))
	}
	return ticket, link
}

func TestSettlementService_SettleDraw(t *testing.T) {
	t.Parallel()

	registry := entities.DefaultPlayRuleRegistry()
	m := NewTestMocks()
	draw := newDrawnDraw(t, registry, []int{3, 7, 12, 25, 39}, entities.PlayTypeBasic, entities.PlayTypeStar2)

	jackpot, jackpotLink := participation(t, registry, draw, entities.PlayTypeBasic, []int{3, 7, 12, 25, 39})
	twoHits, twoHitsLink := participation(t, registry, draw, entities.PlayTypeBasic, []int{3, 7, 13, 26, 38})
	star, starLink := participation(t, registry, draw, entities.PlayTypeStar2, []int{7, 39})
	miss, missLink := participation(t, registry, draw, entities.PlayTypeBasic, []int{1, 2, 4, 5, 6})
	unsubmitted, unsubmittedLink := participation(t, registry, draw, entities.PlayTypeBasic, nil)

	links := []*entities.TicketDraw{jackpotLink, twoHitsLink, starLink, missLink, unsubmittedLink}
	tickets := map[uuid.UUID]*entities.Ticket{
		jackpot.ID:     jackpot,
		twoHits.ID:     twoHits,
		star.ID:        star,
		miss.ID:        miss,
		unsubmitted.ID: unsubmitted,
	}

	var awards []*entities.PrizeAward
	m.DrawRepo.On("GetByIDForUpdate", mock.Anything, draw.ID).Return(draw, nil)
	m.TicketRepo.On("GetTicketDrawsByDraw", mock.Anything, draw.ID, mock.Anything).Return(links, nil)
	m.TicketRepo.On("GetByIDs", mock.Anything, mock.Anything).Return(tickets, nil)
	m.AwardRepo.On("CreateIfAbsent", mock.Anything, mock.AnythingOfType("*entities.PrizeAward")).
		Run(func(args mock.Arguments) { awards = append(awards, args.Get(1).(*entities.PrizeAward)) }).
		Return(true, nil)
	m.TicketRepo.On("UpdateTicketDraw", mock.Anything, mock.AnythingOfType("*entities.TicketDraw")).Return(nil).Times(5)
	m.DrawRepo.On("Update", mock.Anything, draw).Return(nil)
	m.EventPublisher.On("Publish", mock.AnythingOfType("events.DrawSettledEvent")).Return(nil)

	result, err := newTestSettlementService(m, registry).SettleDraw(context.Background(), draw.ID)
	require.NoError(t, err)

	assert.Equal(t, 4, result.LinesEvaluated)
	assert.Equal(t, 3, result.AwardsCreated)
	assert.False(t, result.AlreadySettled)
	assert.True(t, draw.IsSettled())

	tiers := make(map[uuid.UUID]string)
	for _, a := range awards {
		tiers[a.TicketID] = a.PrizeTier
		assert.NotEmpty(t, a.PrizeName)
	}
	assert.Equal(t, map[uuid.UUID]string{
		jackpot.ID: entities.PrizeTier1,
		twoHits.ID: entities.PrizeTier4,
		star.ID:    entities.PrizeTier1,
	}, tiers)

	for _, link := range links {
		assert.Equal(t, entities.TicketParticipationSettled, link.ParticipationStatus)
	}
	assert.NotNil(t, unsubmittedLink.InvalidReason)
	m.AssertAllExpectations(t)
}

func TestSettlementService_SettleDrawIsIdempotent(t *testing.T) {
	t.Parallel()

	registry := entities.DefaultPlayRuleRegistry()

	t.Run("settled draw is a no-op", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		draw := newDrawnDraw(t, registry, []int{3, 7, 12, 25, 39}, entities.PlayTypeBasic)
		require.NoError(t, draw.MarkSettled(testNow))
		m.DrawRepo.On("GetByIDForUpdate", mock.Anything, draw.ID).Return(draw, nil)

		result, err := newTestSettlementService(m, registry).SettleDraw(context.Background(), draw.ID)
		require.NoError(t, err)
		assert.True(t, result.AlreadySettled)
		assert.Zero(t, result.AwardsCreated)
		m.AssertAllExpectations(t)
		m.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("awards that already exist are not counted", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		draw := newDrawnDraw(t, registry, []int{3, 7, 12, 25, 39}, entities.PlayTypeBasic)
		ticket, link := participation(t, registry, draw, entities.PlayTypeBasic, []int{3, 7, 12, 25, 39})

		m.DrawRepo.On("GetByIDForUpdate", mock.Anything, draw.ID).Return(draw, nil)
		m.TicketRepo.On("GetTicketDrawsByDraw", mock.Anything, draw.ID, mock.Anything).Return([]*entities.TicketDraw{link}, nil)
		m.TicketRepo.On("GetByIDs", mock.Anything, []uuid.UUID{ticket.ID}).Return(map[uuid.UUID]*entities.Ticket{ticket.ID: ticket}, nil)
		m.AwardRepo.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(false, nil)
		m.TicketRepo.On("UpdateTicketDraw", mock.Anything, link).Return(nil)
		m.DrawRepo.On("Update", mock.Anything, draw).Return(nil)
		m.EventPublisher.On("Publish", mock.AnythingOfType("events.DrawSettledEvent")).Return(nil)

		result, err := newTestSettlementService(m, registry).SettleDraw(context.Background(), draw.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, result.LinesEvaluated)
		assert.Zero(t, result.AwardsCreated)
		m.AssertAllExpectations(t)
	})
}

func TestSettlementService_SettleDrawRejections(t *testing.T) {
	t.Parallel()

	registry := entities.DefaultPlayRuleRegistry()

	tests := []struct {
		name        string
		build       func(t *testing.T) *entities.Draw
		expectedErr error
	}{
		{
			name: "not drawn",
			build: func(t *testing.T) *entities.Draw {
				return newDueDraw(t, registry, "hash", entities.PlayTypeBasic)
			},
			expectedErr: entities.ErrDrawNotDrawn,
		},
		{
			name: "cancelled",
			build: func(t *testing.T) *entities.Draw {
				d := newDueDraw(t, registry, "hash", entities.PlayTypeBasic)
				require.NoError(t, d.Cancel("ops", testNow))
				return d
			},
			expectedErr: entities.ErrDrawCancelled,
		},
		{
			name: "prize pool incomplete",
			build: func(t *testing.T) *entities.Draw {
				d := newDrawnDraw(t, registry, []int{1, 2, 3, 4, 5}, entities.PlayTypeBasic)
				d.FindPrizePoolSlot(entities.PlayTypeBasic, entities.PrizeTier2).Option = nil
				return d
			},
			expectedErr: entities.ErrPrizePoolNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewTestMocks()
			draw := tt.build(t)
			m.DrawRepo.On("GetByIDForUpdate", mock.Anything, draw.ID).Return(draw, nil)

			_, err := newTestSettlementService(m, registry).SettleDraw(context.Background(), draw.ID)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.False(t, draw.IsSettled())
			m.AssertAllExpectations(t)
		})
	}
}
