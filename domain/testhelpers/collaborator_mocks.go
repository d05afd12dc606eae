package testhelpers

import (
	"context"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockEntitlementService is a mock implementation of EntitlementService
type MockEntitlementService struct {
	mock.Mock
}

func (m *MockEntitlementService) EnsureGameEnabled(ctx context.Context, tenantID int64, gameCode string) error {
	args := m.Called(ctx, tenantID, gameCode)
	return args.Error(0)
}

func (m *MockEntitlementService) EnsurePlayEnabled(ctx context.Context, tenantID int64, gameCode, playType string) error {
	args := m.Called(ctx, tenantID, gameCode, playType)
	return args.Error(0)
}

func (m *MockEntitlementService) Invalidate(tenantID int64) {
	m.Called(tenantID)
}

// MockSeedStore is a mock implementation of SeedStore
type MockSeedStore struct {
	mock.Mock
}

func (m *MockSeedStore) Store(ctx context.Context, drawID uuid.UUID, serverSeed string, ttl time.Duration) error {
	args := m.Called(ctx, drawID, serverSeed, ttl)
	return args.Error(0)
}

func (m *MockSeedStore) Get(ctx context.Context, drawID uuid.UUID) (string, bool, error) {
	args := m.Called(ctx, drawID)
	return args.String(0), args.Bool(1), args.Error(2)
}

// MockWallet is a mock implementation of Wallet
type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) Debit(ctx context.Context, tenantID, memberID int64, amount decimal.Decimal, referenceType, referenceID, remark string) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, memberID, amount, referenceType, referenceID, remark)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockTicketService is a mock implementation of TicketService
type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) IssueMemberTickets(ctx context.Context, req interfaces.IssueMemberTicketsRequest) (*interfaces.IssueMemberTicketsResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.IssueMemberTicketsResult), args.Error(1)
}

func (m *MockTicketService) PlaceTicketBet(ctx context.Context, req interfaces.PlaceTicketBetRequest) (*interfaces.PlaceTicketBetResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.PlaceTicketBetResult), args.Error(1)
}

func (m *MockTicketService) SubmitNumbers(ctx context.Context, req interfaces.SubmitNumbersRequest) (*entities.Ticket, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Ticket), args.Error(1)
}

func (m *MockTicketService) IssueTicket(ctx context.Context, params interfaces.IssueTicketParams) (*entities.Ticket, []*entities.TicketDraw, error) {
	args := m.Called(ctx, params)
	var links []*entities.TicketDraw
	if args.Get(1) != nil {
		links = args.Get(1).([]*entities.TicketDraw)
	}
	if args.Get(0) == nil {
		return nil, links, args.Error(2)
	}
	return args.Get(0).(*entities.Ticket), links, args.Error(2)
}

func (m *MockTicketService) ResolveTargetDraw(ctx context.Context, tenantID int64, drawID uuid.UUID, gameCode, playType string) (*entities.Draw, error) {
	args := m.Called(ctx, tenantID, drawID, gameCode, playType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Draw), args.Error(1)
}

func (m *MockTicketService) ResolveGroupDraws(ctx context.Context, tenantID int64, groupID uuid.UUID, gameCode, playType string) ([]*entities.Draw, error) {
	args := m.Called(ctx, tenantID, groupID, gameCode, playType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Draw), args.Error(1)
}
