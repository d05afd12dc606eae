package testhelpers

import (
	"context"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockDrawRepository is a mock implementation of DrawRepository
type MockDrawRepository struct {
	mock.Mock
}

func (m *MockDrawRepository) Create(ctx context.Context, draw *entities.Draw) error {
	args := m.Called(ctx, draw)
	return args.Error(0)
}

func (m *MockDrawRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Draw, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Draw), args.Error(1)
}

func (m *MockDrawRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Draw, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Draw), args.Error(1)
}

func (m *MockDrawRepository) GetByCode(ctx context.Context, gameCode, drawCode string) (*entities.Draw, error) {
	args := m.Called(ctx, gameCode, drawCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Draw), args.Error(1)
}

func (m *MockDrawRepository) Update(ctx context.Context, draw *entities.Draw) error {
	args := m.Called(ctx, draw)
	return args.Error(0)
}

func (m *MockDrawRepository) AddToGroup(ctx context.Context, groupID, drawID uuid.UUID) error {
	args := m.Called(ctx, groupID, drawID)
	return args.Error(0)
}

func (m *MockDrawRepository) GetByGroup(ctx context.Context, groupID uuid.UUID) ([]*entities.Draw, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Draw), args.Error(1)
}

func (m *MockDrawRepository) GetDrawsDueForSalesOpen(ctx context.Context, now time.Time, lead time.Duration) ([]*entities.Draw, error) {
	args := m.Called(ctx, now, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Draw), args.Error(1)
}

func (m *MockDrawRepository) GetDrawsDueForExecution(ctx context.Context, now time.Time) ([]*entities.Draw, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Draw), args.Error(1)
}

func (m *MockDrawRepository) GetDrawsPendingSettlement(ctx context.Context) ([]*entities.Draw, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Draw), args.Error(1)
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *entities.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.Ticket, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *entities.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) CreateTicketDraws(ctx context.Context, links []*entities.TicketDraw) error {
	args := m.Called(ctx, links)
	return args.Error(0)
}

func (m *MockTicketRepository) GetTicketDraws(ctx context.Context, ticketID uuid.UUID) ([]*entities.TicketDraw, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TicketDraw), args.Error(1)
}

func (m *MockTicketRepository) GetTicketDrawsByDraw(ctx context.Context, drawID uuid.UUID, statuses ...entities.TicketParticipationStatus) ([]*entities.TicketDraw, error) {
	args := m.Called(ctx, drawID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TicketDraw), args.Error(1)
}

func (m *MockTicketRepository) HasTicketDraws(ctx context.Context, drawID uuid.UUID) (bool, error) {
	args := m.Called(ctx, drawID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTicketRepository) UpdateTicketDraw(ctx context.Context, link *entities.TicketDraw) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

// MockTicketClaimEventRepository is a mock implementation of TicketClaimEventRepository
type MockTicketClaimEventRepository struct {
	mock.Mock
}

func (m *MockTicketClaimEventRepository) Create(ctx context.Context, event *entities.TicketClaimEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockTicketClaimEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.TicketClaimEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TicketClaimEvent), args.Error(1)
}

func (m *MockTicketClaimEventRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.TicketClaimEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TicketClaimEvent), args.Error(1)
}

func (m *MockTicketClaimEventRepository) Update(ctx context.Context, event *entities.TicketClaimEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockTicketClaimEventRepository) GetExpiredOpenEvents(ctx context.Context, now time.Time) ([]*entities.TicketClaimEvent, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TicketClaimEvent), args.Error(1)
}

// MockTicketClaimRepository is a mock implementation of TicketClaimRepository
type MockTicketClaimRepository struct {
	mock.Mock
}

func (m *MockTicketClaimRepository) GetOrCreateCounterForUpdate(ctx context.Context, eventID uuid.UUID, memberID int64, now time.Time) (*entities.TicketClaimMemberCounter, error) {
	args := m.Called(ctx, eventID, memberID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TicketClaimMemberCounter), args.Error(1)
}

func (m *MockTicketClaimRepository) UpdateCounter(ctx context.Context, counter *entities.TicketClaimMemberCounter) error {
	args := m.Called(ctx, counter)
	return args.Error(0)
}

func (m *MockTicketClaimRepository) GetRecordByKey(ctx context.Context, eventID uuid.UUID, memberID int64, key string) (*entities.TicketClaimRecord, error) {
	args := m.Called(ctx, eventID, memberID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TicketClaimRecord), args.Error(1)
}

func (m *MockTicketClaimRepository) CreateRecord(ctx context.Context, record *entities.TicketClaimRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockTicketClaimRepository) GetRecordsByEvent(ctx context.Context, eventID uuid.UUID) ([]*entities.TicketClaimRecord, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TicketClaimRecord), args.Error(1)
}

// MockTicketIdempotencyRepository is a mock implementation of TicketIdempotencyRepository
type MockTicketIdempotencyRepository struct {
	mock.Mock
}

func (m *MockTicketIdempotencyRepository) LockKey(ctx context.Context, operation, key string) error {
	args := m.Called(ctx, operation, key)
	return args.Error(0)
}

func (m *MockTicketIdempotencyRepository) Get(ctx context.Context, operation, key string) (*entities.TicketIdempotencyRecord, error) {
	args := m.Called(ctx, operation, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TicketIdempotencyRecord), args.Error(1)
}

func (m *MockTicketIdempotencyRepository) Create(ctx context.Context, record *entities.TicketIdempotencyRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockPrizeAwardRepository is a mock implementation of PrizeAwardRepository
type MockPrizeAwardRepository struct {
	mock.Mock
}

func (m *MockPrizeAwardRepository) CreateIfAbsent(ctx context.Context, award *entities.PrizeAward) (bool, error) {
	args := m.Called(ctx, award)
	return args.Bool(0), args.Error(1)
}

func (m *MockPrizeAwardRepository) GetByDraw(ctx context.Context, drawID uuid.UUID) ([]*entities.PrizeAward, error) {
	args := m.Called(ctx, drawID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PrizeAward), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
