package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestTicketService(m *TestMocks, registry *entities.PlayRuleRegistry) *ticketService {
	svc := NewTicketService(m.DrawRepo, m.TicketRepo, m.IdempotencyRepo, m.Wallet, m.Entitlements, registry, m.EventPublisher).(*ticketService)
	svc.now = fixedClock
	return svc
}

func TestTicketService_IssueMemberTickets(t *testing.T) {
	t.Parallel()

	registry := entities.DefaultPlayRuleRegistry()
	m := NewTestMocks()
	draw := newSellingDraw(t, registry, entities.PlayTypeBasic)
	svc := newTestTicketService(m, registry)

	req := interfaces.IssueMemberTicketsRequest{
		TenantID:       testTenantID,
		MemberID:       testMemberID,
		GameCode:       entities.GameCodeLotto539,
		PlayTypeCode:   entities.PlayTypeBasic,
		DrawID:         draw.ID,
		Quantity:       3,
		IssuedByID:     "agent-9",
		Reason:         "goodwill",
		IdempotencyKey: "issue-1",
	}

	var stored *entities.TicketIdempotencyRecord
	// the key lock is always taken before the lookup
	mock.InOrder(
		m.IdempotencyRepo.On("LockKey", mock.Anything, entities.IdempotencyOperationIssueTickets, "issue-1").Return(nil).Once(),
		m.IdempotencyRepo.On("Get", mock.Anything, entities.IdempotencyOperationIssueTickets, "issue-1").Return(nil, nil).Once(),
	)
	m.DrawRepo.On("GetByID", mock.Anything, draw.ID).Return(draw, nil)
	m.Entitlements.On("EnsurePlayEnabled", mock.Anything, testTenantID, entities.GameCodeLotto539, entities.PlayTypeBasic).Return(nil)
	m.TicketRepo.On("Create", mock.Anything, mock.MatchedBy(func(tk *entities.Ticket) bool {
		return tk.IssuedByType == entities.TicketIssuedByBackoffice && !tk.IsSubmitted() && *tk.IssueReason == "goodwill"
	})).Return(nil).Times(3)
	m.TicketRepo.On("CreateTicketDraws", mock.Anything, mock.MatchedBy(func(links []*entities.TicketDraw) bool {
		return len(links) == 1 && links[0].ParticipationStatus == entities.TicketParticipationPending
	})).Return(nil).Times(3)
	m.IdempotencyRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.TicketIdempotencyRecord")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*entities.TicketIdempotencyRecord) }).
		Return(nil).Once()
	m.EventPublisher.On("Publish", mock.AnythingOfType("events.TicketsIssuedEvent")).Return(nil).Once()

	first, err := svc.IssueMemberTickets(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, first.TicketIDs, 3)
	assert.False(t, first.Replayed)
	require.NotNil(t, stored)

	// the same key and request replays the stored ids without issuing again
	m.IdempotencyRepo.On("LockKey", mock.Anything, entities.IdempotencyOperationIssueTickets, "issue-1").Return(nil)
	m.IdempotencyRepo.On("Get", mock.Anything, entities.IdempotencyOperationIssueTickets, "issue-1").Return(stored, nil)

	second, err := svc.IssueMemberTickets(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TicketIDs, second.TicketIDs)

	// the same key with a different quantity is a conflict
	req.Quantity = 2
	_, err = svc.IssueMemberTickets(context.Background(), req)
	assert.ErrorIs(t, err, entities.ErrTicketIdempotencyKeyConflict)

	m.AssertAllExpectations(t)
}

func TestTicketService_IssueMemberTicketsKeyLockFailure(t *testing.T) {
	t.Parallel()

	registry := entities.DefaultPlayRuleRegistry()
	m := NewTestMocks()
	lockErr := errors.New("canceling statement due to lock timeout")
	m.IdempotencyRepo.On("LockKey", mock.Anything, entities.IdempotencyOperationIssueTickets, "busy").Return(lockErr)

	_, err := newTestTicketService(m, registry).IssueMemberTickets(context.Background(), interfaces.IssueMemberTicketsRequest{
		TenantID:       testTenantID,
		MemberID:       testMemberID,
		GameCode:       entities.GameCodeLotto539,
		PlayTypeCode:   entities.PlayTypeBasic,
		DrawID:         uuid.New(),
		Quantity:       1,
		IdempotencyKey: "busy",
	})
	assert.ErrorIs(t, err, lockErr)
	m.IdempotencyRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	m.TicketRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTicketService_IssueMemberTicketsValidation(t *testing.T) {
	t.Parallel()

	registry := entities.DefaultPlayRuleRegistry()

	tests := []struct {
		name        string
		req         interfaces.IssueMemberTicketsRequest
		expectedErr error
	}{
		{name: "missing member", req: interfaces.IssueMemberTicketsRequest{Quantity: 1}, expectedErr: entities.ErrTicketMemberRequired},
		{name: "zero quantity", req: interfaces.IssueMemberTicketsRequest{MemberID: 1}, expectedErr: entities.ErrTicketQuantityInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewTestMocks()
			_, err := newTestTicketService(m, registry).IssueMemberTickets(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.expectedErr)
			m.AssertAllExpectations(t)
		})
	}
}

func TestTicketService_PlaceTicketBet(t *testing.T) {
	t.Parallel()

	registry := entities.DefaultPlayRuleRegistry()

	t.Run("debits the unit cost", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		draw := newSellingDraw(t, registry, entities.PlayTypeStar2)

		m.DrawRepo.On("GetByID", mock.Anything, draw.ID).Return(draw, nil)
		m.Entitlements.On("EnsurePlayEnabled", mock.Anything, testTenantID, entities.GameCodeLotto539, entities.PlayTypeStar2).Return(nil)
		m.TicketRepo.On("Create", mock.Anything, mock.MatchedBy(func(tk *entities.Ticket) bool {
			return tk.IsSubmitted() && tk.Lines[0].Numbers == "8,31"
		})).Return(nil)
		m.TicketRepo.On("CreateTicketDraws", mock.Anything, mock.MatchedBy(func(links []*entities.TicketDraw) bool {
			return links[0].ParticipationStatus == entities.TicketParticipationActive
		})).Return(nil)
		m.Wallet.On("Debit", mock.Anything, testTenantID, testMemberID, decimal.NewFromInt(25), walletReferenceTicketBet, mock.Anything, mock.Anything).
			Return(decimal.NewFromInt(75), nil)
		m.EventPublisher.On("Publish", mock.AnythingOfType("events.TicketSubmittedEvent")).Return(nil)

		result, err := newTestTicketService(m, registry).PlaceTicketBet(context.Background(), interfaces.PlaceTicketBetRequest{
			TenantID:     testTenantID,
			MemberID:     testMemberID,
			DrawID:       draw.ID,
			PlayTypeCode: entities.PlayTypeStar2,
			Numbers:      []int{31, 8},
		})
		require.NoError(t, err)
		assert.Equal(t, "8,31", result.Numbers)
		assert.True(t, decimal.NewFromInt(25).Equal(result.Cost))
		assert.True(t, decimal.NewFromInt(75).Equal(result.Balance))
		m.AssertAllExpectations(t)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		draw := newSellingDraw(t, registry, entities.PlayTypeBasic)

		m.DrawRepo.On("GetByID", mock.Anything, draw.ID).Return(draw, nil)
		m.Entitlements.On("EnsurePlayEnabled", mock.Anything, testTenantID, entities.GameCodeLotto539, entities.PlayTypeBasic).Return(nil)
		m.TicketRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		m.TicketRepo.On("CreateTicketDraws", mock.Anything, mock.Anything).Return(nil)
		m.Wallet.On("Debit", mock.Anything, testTenantID, testMemberID, decimal.NewFromInt(50), walletReferenceTicketBet, mock.Anything, mock.Anything).
			Return(decimal.Zero, entities.ErrInsufficientBalance)

		_, err := newTestTicketService(m, registry).PlaceTicketBet(context.Background(), interfaces.PlaceTicketBetRequest{
			TenantID:     testTenantID,
			MemberID:     testMemberID,
			DrawID:       draw.ID,
			PlayTypeCode: entities.PlayTypeBasic,
			Numbers:      []int{1, 2, 3, 4, 5},
		})
		assert.ErrorIs(t, err, entities.ErrInsufficientBalance)
		m.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("play type not sold by the draw", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		draw := newSellingDraw(t, registry, entities.PlayTypeBasic)
		m.DrawRepo.On("GetByID", mock.Anything, draw.ID).Return(draw, nil)

		_, err := newTestTicketService(m, registry).PlaceTicketBet(context.Background(), interfaces.PlaceTicketBetRequest{
			TenantID:     testTenantID,
			MemberID:     testMemberID,
			DrawID:       draw.ID,
			PlayTypeCode: entities.PlayTypeStar3,
			Numbers:      []int{1, 2, 3},
		})
		assert.ErrorIs(t, err, entities.ErrTicketDrawNotAvailable)
		m.Wallet.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTicketService_ResolveTargetDraw(t *testing.T) {
	t.Parallel()

	registry := entities.DefaultPlayRuleRegistry()

	t.Run("committed draw in its window sells", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		draw := newSellingDraw(t, registry, entities.PlayTypeBasic)
		m.DrawRepo.On("GetByID", mock.Anything, draw.ID).Return(draw, nil)
		m.Entitlements.On("EnsurePlayEnabled", mock.Anything, testTenantID, entities.GameCodeLotto539, entities.PlayTypeBasic).Return(nil)

		resolved, err := newTestTicketService(m, registry).ResolveTargetDraw(context.Background(), testTenantID, draw.ID, entities.GameCodeLotto539, entities.PlayTypeBasic)
		require.NoError(t, err)
		assert.Equal(t, draw.ID, resolved.ID)
	})

	t.Run("no sale before the seed hash is committed", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		draw := newUncommittedDraw(t, registry, entities.PlayTypeBasic)
		require.True(t, draw.IsWithinSalesWindow(testNow))
		m.DrawRepo.On("GetByID", mock.Anything, draw.ID).Return(draw, nil)

		svc := newTestTicketService(m, registry)
		_, err := svc.ResolveTargetDraw(context.Background(), testTenantID, draw.ID, entities.GameCodeLotto539, entities.PlayTypeBasic)
		assert.ErrorIs(t, err, entities.ErrTicketDrawNotAvailable)

		_, err = svc.PlaceTicketBet(context.Background(), interfaces.PlaceTicketBetRequest{
			TenantID:     testTenantID,
			MemberID:     testMemberID,
			DrawID:       draw.ID,
			PlayTypeCode: entities.PlayTypeBasic,
			Numbers:      []int{1, 2, 3, 4, 5},
		})
		assert.ErrorIs(t, err, entities.ErrTicketDrawNotAvailable)
		m.TicketRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.Wallet.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("uncommitted group draws are skipped", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		groupID := uuid.New()
		committed := newSellingDraw(t, registry, entities.PlayTypeBasic)
		uncommitted := newUncommittedDraw(t, registry, entities.PlayTypeBasic)
		m.Entitlements.On("EnsurePlayEnabled", mock.Anything, testTenantID, entities.GameCodeLotto539, entities.PlayTypeBasic).Return(nil)
		m.DrawRepo.On("GetByGroup", mock.Anything, groupID).Return([]*entities.Draw{uncommitted, committed}, nil)

		draws, err := newTestTicketService(m, registry).ResolveGroupDraws(context.Background(), testTenantID, groupID, entities.GameCodeLotto539, entities.PlayTypeBasic)
		require.NoError(t, err)
		assert.Equal(t, []*entities.Draw{committed}, draws)
	})
}

func TestTicketService_SubmitNumbers(t *testing.T) {
	t.Parallel()

	registry := entities.DefaultPlayRuleRegistry()
	m := NewTestMocks()
	svc := newTestTicketService(m, registry)

	open := newSellingDraw(t, registry, entities.PlayTypeBasic)
	closed := newDueDraw(t, registry, "hash", entities.PlayTypeBasic)

	ticket := entities.NewTicket(entities.NewTicketParams{
		TenantID:     testTenantID,
		GameCode:     entities.GameCodeLotto539,
		PlayTypeCode: entities.PlayTypeBasic,
		MemberID:     testMemberID,
		DrawID:       &open.ID,
		IssuedByType: entities.TicketIssuedByDrawGroup,
	}, testNow.Add(-time.Hour))
	openLink := entities.NewTicketDraw(testTenantID, ticket.ID, open.ID, testNow)
	closedLink := entities.NewTicketDraw(testTenantID, ticket.ID, closed.ID, testNow)

	m.TicketRepo.On("GetByIDForUpdate", mock.Anything, ticket.ID).Return(ticket, nil)
	m.TicketRepo.On("GetTicketDraws", mock.Anything, ticket.ID).Return([]*entities.TicketDraw{openLink, closedLink}, nil)
	m.DrawRepo.On("GetByID", mock.Anything, open.ID).Return(open, nil)
	m.DrawRepo.On("GetByID", mock.Anything, closed.ID).Return(closed, nil)
	m.TicketRepo.On("UpdateTicketDraw", mock.Anything, mock.Anything).Return(nil).Twice()
	m.TicketRepo.On("Update", mock.Anything, ticket).Return(nil)
	m.EventPublisher.On("Publish", mock.AnythingOfType("events.TicketSubmittedEvent")).Return(nil)

	req := interfaces.SubmitNumbersRequest{
		TicketID:  ticket.ID,
		MemberID:  testMemberID,
		Numbers:   []int{9, 18, 27, 36, 1},
		ClientRef: "app-1",
	}

	submitted, err := svc.SubmitNumbers(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1,9,18,27,36", submitted.Lines[0].Numbers)
	assert.Equal(t, entities.TicketParticipationActive, openLink.ParticipationStatus)
	assert.Equal(t, entities.TicketParticipationInvalid, closedLink.ParticipationStatus)

	_, err = svc.SubmitNumbers(context.Background(), req)
	assert.ErrorIs(t, err, entities.ErrTicketAlreadySubmitted)

	// another member cannot see the ticket
	req.MemberID = testMemberID + 1
	_, err = svc.SubmitNumbers(context.Background(), req)
	assert.ErrorIs(t, err, entities.ErrTicketNotFound)

	m.AssertAllExpectations(t)
}

func TestTicketService_ResolveGroupDraws(t *testing.T) {
	t.Parallel()

	registry := entities.DefaultPlayRuleRegistry()
	groupID := uuid.New()

	selling := newSellingDraw(t, registry, entities.PlayTypeBasic)
	noBasic := newSellingDraw(t, registry, entities.PlayTypeStar2)
	closed := newDueDraw(t, registry, "hash", entities.PlayTypeBasic)

	t.Run("keeps draws selling the play type", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		m.Entitlements.On("EnsurePlayEnabled", mock.Anything, testTenantID, entities.GameCodeLotto539, entities.PlayTypeBasic).Return(nil)
		m.DrawRepo.On("GetByGroup", mock.Anything, groupID).Return([]*entities.Draw{selling, noBasic, closed}, nil)

		draws, err := newTestTicketService(m, registry).ResolveGroupDraws(context.Background(), testTenantID, groupID, entities.GameCodeLotto539, entities.PlayTypeBasic)
		require.NoError(t, err)
		assert.Equal(t, []*entities.Draw{selling}, draws)
	})

	t.Run("entitlement lapse means nothing to claim", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		m.Entitlements.On("EnsurePlayEnabled", mock.Anything, testTenantID, entities.GameCodeLotto539, entities.PlayTypeBasic).Return(entities.ErrPlayNotEntitled)

		_, err := newTestTicketService(m, registry).ResolveGroupDraws(context.Background(), testTenantID, groupID, entities.GameCodeLotto539, entities.PlayTypeBasic)
		assert.ErrorIs(t, err, entities.ErrTicketDrawNotAvailable)
	})

	t.Run("empty group", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		m.Entitlements.On("EnsurePlayEnabled", mock.Anything, testTenantID, entities.GameCodeLotto539, entities.PlayTypeBasic).Return(nil)
		m.DrawRepo.On("GetByGroup", mock.Anything, groupID).Return([]*entities.Draw{closed}, nil)

		_, err := newTestTicketService(m, registry).ResolveGroupDraws(context.Background(), testTenantID, groupID, entities.GameCodeLotto539, entities.PlayTypeBasic)
		assert.ErrorIs(t, err, entities.ErrTicketDrawNotAvailable)
	})
}
