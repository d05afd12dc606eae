package application_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lottoengine/application"
	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"
	"lottoengine/domain/services"
	"lottoengine/infrastructure"
	"lottoengine/repository"
	"lottoengine/repository/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const integrationTenantID = int64(77)

// memorySeedStore keeps seeds in process; the first seed stored for a draw wins
type memorySeedStore struct {
	mu    sync.Mutex
	seeds map[uuid.UUID]string
}

func newMemorySeedStore() *memorySeedStore {
	return &memorySeedStore{seeds: make(map[uuid.UUID]string)}
}

func (s *memorySeedStore) Store(ctx context.Context, drawID uuid.UUID, serverSeed string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seeds[drawID]; !ok {
		s.seeds[drawID] = serverSeed
	}
	return nil
}

func (s *memorySeedStore) Get(ctx context.Context, drawID uuid.UUID) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seed, ok := s.seeds[drawID]
	return seed, ok, nil
}

type lotteryTestEnv struct {
	testDB     *testutil.TestDatabase
	uowFactory application.UnitOfWorkFactory
	deps       application.Dependencies
}

func setupLotteryEnv(t *testing.T) *lotteryTestEnv {
	t.Helper()

	testDB := testutil.SetupTestDatabase(t)
	testutil.GrantEntitlements(t, testDB.DB, integrationTenantID)

	return &lotteryTestEnv{
		testDB:     testDB,
		uowFactory: infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher()),
		deps: application.Dependencies{
			SeedStore:    newMemorySeedStore(),
			Entitlements: infrastructure.NewCachedEntitlementService(repository.NewEntitlementRepository(testDB.DB), 0),
			RNG:          services.NewLotteryRNGService(),
			Registry:     entities.DefaultPlayRuleRegistry(),
			SeedTTLGrace: time.Hour,
		},
	}
}

// inTenant runs fn in a committed tenant unit of work
func (e *lotteryTestEnv) inTenant(t *testing.T, fn func(uow application.UnitOfWork)) {
	t.Helper()
	ctx := context.Background()

	uow := e.uowFactory.CreateForTenant(integrationTenantID)
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	fn(uow)
	require.NoError(t, uow.Commit())
}

// seedClaimEvent persists an open draw and an active claim event scoped to it
func (e *lotteryTestEnv) seedClaimEvent(t *testing.T, totalQuota, perMemberQuota int) *entities.TicketClaimEvent {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	draw := testutil.CreateTestDraw(t, integrationTenantID, "C-"+uuid.NewString()[:8], now)
	event := testutil.CreateTestClaimEvent(t, draw, totalQuota, perMemberQuota, now)

	e.inTenant(t, func(uow application.UnitOfWork) {
		require.NoError(t, uow.DrawRepository().Create(ctx, draw))
		draw.OpenSales("c0ffee", now)
		require.NoError(t, uow.DrawRepository().Update(ctx, draw))
		require.NoError(t, uow.TicketClaimEventRepository().Create(ctx, event))
	})
	return event
}

func (e *lotteryTestEnv) reloadClaimEvent(t *testing.T, eventID uuid.UUID) (*entities.TicketClaimEvent, []*entities.TicketClaimRecord) {
	t.Helper()
	ctx := context.Background()

	var event *entities.TicketClaimEvent
	var records []*entities.TicketClaimRecord
	e.inTenant(t, func(uow application.UnitOfWork) {
		var err error
		event, err = uow.TicketClaimEventRepository().GetByID(ctx, eventID)
		require.NoError(t, err)
		records, err = uow.TicketClaimRepository().GetRecordsByEvent(ctx, eventID)
		require.NoError(t, err)
	})
	return event, records
}

type claimAttempt struct {
	memberID int64
	key      string
}

type attemptOutcome struct {
	result *interfaces.ClaimTicketResult
	err    error
}

// claimConcurrently fires every attempt at once and waits for all of them
func claimConcurrently(handler *application.ClaimTicketHandler, eventID uuid.UUID, attempts []claimAttempt) []attemptOutcome {
	outcomes := make([]attemptOutcome, len(attempts))
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a claimAttempt) {
			defer wg.Done()
			<-start

			res, err := handler.Claim(context.Background(), interfaces.ClaimTicketRequest{
				TenantID:       integrationTenantID,
				EventID:        eventID,
				MemberID:       a.memberID,
				IdempotencyKey: a.key,
			})
			outcomes[i] = attemptOutcome{result: res, err: err}
		}(i, a)
	}
	close(start)
	wg.Wait()

	return outcomes
}

func TestClaimTicketHandler_ConcurrentClaims(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := setupLotteryEnv(t)
	handler := application.NewClaimTicketHandler(env.uowFactory, env.deps, 30*time.Second)

	t.Run("total quota is never exceeded", func(t *testing.T) {
		event := env.seedClaimEvent(t, 5, 1)

		attempts := make([]claimAttempt, 12)
		for i := range attempts {
			attempts[i] = claimAttempt{memberID: int64(1000 + i), key: fmt.Sprintf("quota-%d", i)}
		}

		granted, soldOut := 0, 0
		for _, o := range claimConcurrently(handler, event.ID, attempts) {
			if o.err == nil {
				granted++
				assert.Len(t, o.result.TicketIDs, 1)
				continue
			}
			if assert.ErrorIs(t, o.err, entities.ErrTicketClaimEventSoldOut) {
				soldOut++
			}
		}
		assert.Equal(t, 5, granted)
		assert.Equal(t, 7, soldOut)

		stored, records := env.reloadClaimEvent(t, event.ID)
		assert.Equal(t, 5, stored.TotalClaimed)
		assert.Len(t, records, 5)
	})

	t.Run("per member quota holds across parallel keys", func(t *testing.T) {
		event := env.seedClaimEvent(t, 10, 2)

		attempts := make([]claimAttempt, 4)
		for i := range attempts {
			attempts[i] = claimAttempt{memberID: 2000, key: fmt.Sprintf("member-%d", i)}
		}

		granted := 0
		for _, o := range claimConcurrently(handler, event.ID, attempts) {
			if o.err == nil {
				granted++
				continue
			}
			assert.ErrorIs(t, o.err, entities.ErrTicketClaimEventMemberQuotaExceeded)
		}
		assert.Equal(t, 2, granted)

		stored, _ := env.reloadClaimEvent(t, event.ID)
		assert.Equal(t, 2, stored.TotalClaimed)
	})

	t.Run("same key collapses to one claim", func(t *testing.T) {
		event := env.seedClaimEvent(t, 10, 5)

		attempts := make([]claimAttempt, 6)
		for i := range attempts {
			attempts[i] = claimAttempt{memberID: 3000, key: "same-key"}
		}

		outcomes := claimConcurrently(handler, event.ID, attempts)
		fresh := 0
		var ticketIDs []uuid.UUID
		for _, o := range outcomes {
			require.NoError(t, o.err)
			if !o.result.Replayed {
				fresh++
			}
			if ticketIDs == nil {
				ticketIDs = o.result.TicketIDs
			}
			assert.Equal(t, ticketIDs, o.result.TicketIDs)
		}
		assert.Equal(t, 1, fresh)

		stored, records := env.reloadClaimEvent(t, event.ID)
		assert.Equal(t, 1, stored.TotalClaimed)
		assert.Len(t, records, 1)
	})

	t.Run("two members race for the last ticket", func(t *testing.T) {
		event := env.seedClaimEvent(t, 1, 1)

		outcomes := claimConcurrently(handler, event.ID, []claimAttempt{
			{memberID: 4001, key: "race-a"},
			{memberID: 4002, key: "race-b"},
		})

		var winners, losers int
		for _, o := range outcomes {
			if o.err == nil {
				winners++
				continue
			}
			assert.ErrorIs(t, o.err, entities.ErrTicketClaimEventSoldOut)
			losers++
		}
		assert.Equal(t, 1, winners)
		assert.Equal(t, 1, losers)

		stored, _ := env.reloadClaimEvent(t, event.ID)
		assert.Equal(t, entities.TicketClaimEventSoldOut, stored.Status)
	})
}

func TestTicketCommands_ConcurrentSameKeyIssuance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := setupLotteryEnv(t)
	ctx := context.Background()
	drawCommands := application.NewDrawCommands(env.uowFactory, env.deps)
	ticketCommands := application.NewTicketCommands(env.uowFactory, env.deps)

	now := time.Now().UTC()
	draw, err := drawCommands.CreateDraw(ctx, interfaces.CreateDrawRequest{
		TenantID:         integrationTenantID,
		GameCode:         entities.GameCodeLotto539,
		DrawCode:         "I-" + uuid.NewString()[:8],
		SalesOpenAt:      now.Add(-time.Hour),
		SalesCloseAt:     now.Add(time.Hour),
		DrawAt:           now.Add(2 * time.Hour),
		EnabledPlayTypes: []string{entities.PlayTypeBasic},
	})
	require.NoError(t, err)
	_, err = drawCommands.OpenSales(ctx, integrationTenantID, draw.ID)
	require.NoError(t, err)

	req := interfaces.IssueMemberTicketsRequest{
		TenantID:       integrationTenantID,
		MemberID:       6000,
		GameCode:       entities.GameCodeLotto539,
		PlayTypeCode:   entities.PlayTypeBasic,
		DrawID:         draw.ID,
		Quantity:       2,
		Reason:         "support",
		IdempotencyKey: "issue-same-key",
	}

	const callers = 6
	results := make([]*interfaces.IssueMemberTicketsResult, callers)
	errs := make([]error, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = ticketCommands.IssueMemberTickets(ctx, req)
		}(i)
	}
	close(start)
	wg.Wait()

	fresh := 0
	for i := range results {
		require.NoError(t, errs[i])
		if !results[i].Replayed {
			fresh++
		}
		assert.Equal(t, results[0].TicketIDs, results[i].TicketIDs)
	}
	assert.Equal(t, 1, fresh)
	assert.Len(t, results[0].TicketIDs, 2)

	env.inTenant(t, func(uow application.UnitOfWork) {
		links, err := uow.TicketRepository().GetTicketDrawsByDraw(ctx, draw.ID)
		require.NoError(t, err)
		assert.Len(t, links, 2)
	})

	// The same key with a different request still conflicts
	req.Quantity = 1
	_, err = ticketCommands.IssueMemberTickets(ctx, req)
	assert.ErrorIs(t, err, entities.ErrTicketIdempotencyKeyConflict)
}

func TestDrawWorker_FullLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := setupLotteryEnv(t)
	ctx := context.Background()
	drawCommands := application.NewDrawCommands(env.uowFactory, env.deps)
	ticketCommands := application.NewTicketCommands(env.uowFactory, env.deps)

	now := time.Now().UTC()
	drawAt := now.Add(5 * time.Second)
	draw, err := drawCommands.CreateDraw(ctx, interfaces.CreateDrawRequest{
		TenantID:         integrationTenantID,
		GameCode:         entities.GameCodeLotto539,
		DrawCode:         "L-" + uuid.NewString()[:8],
		SalesOpenAt:      now.Add(-time.Hour),
		SalesCloseAt:     drawAt,
		DrawAt:           drawAt,
		EnabledPlayTypes: []string{entities.PlayTypeBasic},
	})
	require.NoError(t, err)

	rule, ok := env.deps.Registry.GetRule(entities.GameCodeLotto539, entities.PlayTypeBasic)
	require.True(t, ok)
	for _, tier := range rule.Tiers {
		_, err := drawCommands.ConfigurePrizeOption(ctx, integrationTenantID, draw.ID, entities.PlayTypeBasic, tier, entities.PrizeOption{
			Name: "Voucher " + tier,
			Cost: decimal.NewFromInt(10),
		})
		require.NoError(t, err)
	}

	opened, err := drawCommands.OpenSales(ctx, integrationTenantID, draw.ID)
	require.NoError(t, err)
	require.True(t, opened.HasCommittedSeed())
	committedHash := *opened.ServerSeedHash

	// Two paid lines; their awards are checked against the revealed numbers below
	testutil.SeedWallet(t, env.testDB.DB, integrationTenantID, 500, decimal.NewFromInt(200))
	lines := [][]int{{1, 2, 3, 4, 5}, {35, 36, 37, 38, 39}}
	for i, numbers := range lines {
		_, err := ticketCommands.PlaceTicketBet(ctx, interfaces.PlaceTicketBetRequest{
			TenantID:       integrationTenantID,
			MemberID:       500,
			DrawID:         draw.ID,
			PlayTypeCode:   entities.PlayTypeBasic,
			Numbers:        numbers,
			IdempotencyKey: fmt.Sprintf("bet-%d", i),
		})
		require.NoError(t, err)
	}

	time.Sleep(time.Until(drawAt) + 500*time.Millisecond)

	worker := application.NewDrawWorker(env.uowFactory, env.deps, time.Minute)
	worker.RunOnce(ctx)

	proof, err := drawCommands.GetVerification(ctx, integrationTenantID, draw.ID)
	require.NoError(t, err)
	assert.Equal(t, committedHash, proof.ServerSeedHash)

	game, _ := env.deps.Registry.GetGame(entities.GameCodeLotto539)
	require.NoError(t, env.deps.RNG.Verify(proof, game.DrawFormat))

	winning, err := entities.NewLotteryNumbers(proof.WinningNumbers, game.DrawFormat)
	require.NoError(t, err)
	expectedAwards := 0
	for _, numbers := range lines {
		line, err := entities.NewLotteryNumbers(numbers, game.LineFormat(rule))
		require.NoError(t, err)
		if _, won := rule.Match(line, winning); won {
			expectedAwards++
		}
	}

	env.inTenant(t, func(uow application.UnitOfWork) {
		stored, err := uow.DrawRepository().GetByID(ctx, draw.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsSettled())

		awards, err := uow.PrizeAwardRepository().GetByDraw(ctx, draw.ID)
		require.NoError(t, err)
		assert.Len(t, awards, expectedAwards)
	})

	// A second pass finds nothing left to do and settling again is a no-op
	worker.RunOnce(ctx)
	result, err := drawCommands.SettleDraw(ctx, integrationTenantID, draw.ID)
	require.NoError(t, err)
	assert.True(t, result.AlreadySettled)
}
