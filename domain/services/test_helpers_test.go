package services

import (
	"testing"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testTenantID = int64(7)

// testNow is the fixed instant every service under test sees
var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

// TestMocks aggregates the collaborator mocks a domain service test needs
type TestMocks struct {
	DrawRepo        *testhelpers.MockDrawRepository
	TicketRepo      *testhelpers.MockTicketRepository
	ClaimEventRepo  *testhelpers.MockTicketClaimEventRepository
	ClaimRepo       *testhelpers.MockTicketClaimRepository
	IdempotencyRepo *testhelpers.MockTicketIdempotencyRepository
	AwardRepo       *testhelpers.MockPrizeAwardRepository
	SeedStore       *testhelpers.MockSeedStore
	Entitlements    *testhelpers.MockEntitlementService
	Wallet          *testhelpers.MockWallet
	TicketService   *testhelpers.MockTicketService
	EventPublisher  *testhelpers.MockEventPublisher
}

func NewTestMocks() *TestMocks {
	return &TestMocks{
		DrawRepo:        &testhelpers.MockDrawRepository{},
		TicketRepo:      &testhelpers.MockTicketRepository{},
		ClaimEventRepo:  &testhelpers.MockTicketClaimEventRepository{},
		ClaimRepo:       &testhelpers.MockTicketClaimRepository{},
		IdempotencyRepo: &testhelpers.MockTicketIdempotencyRepository{},
		AwardRepo:       &testhelpers.MockPrizeAwardRepository{},
		SeedStore:       &testhelpers.MockSeedStore{},
		Entitlements:    &testhelpers.MockEntitlementService{},
		Wallet:          &testhelpers.MockWallet{},
		TicketService:   &testhelpers.MockTicketService{},
		EventPublisher:  &testhelpers.MockEventPublisher{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.DrawRepo.AssertExpectations(t)
	m.TicketRepo.AssertExpectations(t)
	m.ClaimEventRepo.AssertExpectations(t)
	m.ClaimRepo.AssertExpectations(t)
	m.IdempotencyRepo.AssertExpectations(t)
	m.AwardRepo.AssertExpectations(t)
	m.SeedStore.AssertExpectations(t)
	m.Entitlements.AssertExpectations(t)
	m.Wallet.AssertExpectations(t)
	m.TicketService.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// testCommittedHash stands in for a seed hash committed before sales opened
const testCommittedHash = "committed-hash"

// newUncommittedDraw returns a draw whose sales window contains testNow but has no seed hash yet
func newUncommittedDraw(t *testing.T, registry *entities.PlayRuleRegistry, playTypes ...string) *entities.Draw {
	t.Helper()

	draw, err := entities.NewDraw(testTenantID, entities.GameCodeLotto539, "2026-050",
		testNow.Add(-time.Hour), testNow.Add(time.Hour), testNow.Add(2*time.Hour), nil, registry, testNow.Add(-2*time.Hour))
	require.NoError(t, err)
	if len(playTypes) > 0 {
		require.NoError(t, draw.EnablePlayTypes(playTypes, registry, testNow))
	}
	return draw
}

// newSellingDraw returns a committed draw whose sales window contains testNow
func newSellingDraw(t *testing.T, registry *entities.PlayRuleRegistry, playTypes ...string) *entities.Draw {
	t.Helper()

	draw := newUncommittedDraw(t, registry, playTypes...)
	draw.OpenSales(testCommittedHash, testNow.Add(-2*time.Hour))
	return draw
}

// newDueDraw returns a committed draw whose draw time has passed
func newDueDraw(t *testing.T, registry *entities.PlayRuleRegistry, seedHash string, playTypes ...string) *entities.Draw {
	t.Helper()

	draw, err := entities.NewDraw(testTenantID, entities.GameCodeLotto539, "2026-049",
		testNow.Add(-3*time.Hour), testNow.Add(-2*time.Hour), testNow.Add(-time.Minute), nil, registry, testNow.Add(-4*time.Hour))
	require.NoError(t, err)
	if len(playTypes) > 0 {
		require.NoError(t, draw.EnablePlayTypes(playTypes, registry, testNow))
	}
	draw.OpenSales(seedHash, testNow.Add(-3*time.Hour))
	return draw
}

// configurePrizePool fills every slot of the draw's prize pool
func configurePrizePool(t *testing.T, draw *entities.Draw, registry *entities.PlayRuleRegistry) {
	t.Helper()

	for _, slot := range draw.PrizePool {
		require.NoError(t, draw.ConfigurePrizeOption(slot.PlayTypeCode, slot.PrizeTier,
			entities.PrizeOption{Name: slot.PlayTypeCode + " " + slot.PrizeTier, Cost: decimal.NewFromInt(5)}, registry, testNow))
	}
}

func mustLotteryNumbers(t *testing.T, values []int, format entities.NumberFormat) entities.LotteryNumbers {
	t.Helper()

	numbers, err := entities.NewLotteryNumbers(values, format)
	require.NoError(t, err)
	return numbers
}
