package services

import (
	"context"
	"testing"
	"time"

	"lottoengine/domain/entities"
	"lottoengine/domain/events"
	"lottoengine/domain/interfaces"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testMemberID = int64(4242)

func newTestClaimService(m *TestMocks) interfaces.TicketClaimService {
	svc := NewTicketClaimService(m.ClaimEventRepo, m.ClaimRepo, m.TicketService, m.EventPublisher).(*ticketClaimService)
	svc.now = fixedClock
	return svc
}

func newOpenClaimEvent(t *testing.T, total, perMember int) *entities.TicketClaimEvent {
	t.Helper()

	event, err := entities.NewTicketClaimEvent(entities.NewTicketClaimEventParams{
		TenantID:       testTenantID,
		Name:           "Weekend giveaway",
		GameCode:       entities.GameCodeLotto539,
		PlayTypeCode:   entities.PlayTypeBasic,
		StartsAt:       testNow.Add(-time.Hour),
		EndsAt:         testNow.Add(time.Hour),
		TotalQuota:     total,
		PerMemberQuota: perMember,
		ScopeType:      entities.TicketClaimScopeSingleDraw,
		ScopeID:        uuid.New(),
	}, testNow.Add(-2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, event.Activate(testNow.Add(-2*time.Hour)))
	return event
}

// expectGrant sets up every call of a claim that passes the quota checks
func expectGrant(m *TestMocks, event *entities.TicketClaimEvent, ticket *entities.Ticket) {
	draw := &entities.Draw{ID: event.ScopeID, TenantID: event.TenantID, GameCode: event.GameCode}
	m.TicketService.On("ResolveTargetDraw", mock.Anything, event.TenantID, event.ScopeID, event.GameCode, event.PlayTypeCode).Return(draw, nil)
	m.TicketService.On("IssueTicket", mock.Anything, mock.MatchedBy(func(p interfaces.IssueTicketParams) bool {
		return p.MemberID == testMemberID && *p.CampaignID == event.ID && len(p.TargetDraws) == 1 &&
			p.IssuedByType == entities.TicketIssuedBySystem
	})).Return(ticket, nil, nil)
	m.ClaimRepo.On("UpdateCounter", mock.Anything, mock.AnythingOfType("*entities.TicketClaimMemberCounter")).Return(nil)
	m.ClaimEventRepo.On("Update", mock.Anything, event).Return(nil)
	m.ClaimRepo.On("CreateRecord", mock.Anything, mock.AnythingOfType("*entities.TicketClaimRecord")).Return(nil)
}

func TestTicketClaimService_Claim(t *testing.T) {
	t.Parallel()

	t.Run("grants one ticket", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		event := newOpenClaimEvent(t, 3, 1)
		ticket := &entities.Ticket{ID: uuid.New()}
		counter := &entities.TicketClaimMemberCounter{EventID: event.ID, MemberID: testMemberID}

		m.ClaimRepo.On("GetRecordByKey", mock.Anything, event.ID, testMemberID, "k1").Return(nil, nil).Twice()
		m.ClaimEventRepo.On("GetByIDForUpdate", mock.Anything, event.ID).Return(event, nil)
		m.ClaimRepo.On("GetOrCreateCounterForUpdate", mock.Anything, event.ID, testMemberID, testNow).Return(counter, nil)
		expectGrant(m, event, ticket)
		m.EventPublisher.On("Publish", events.TicketClaimedEvent{
			TenantID:       testTenantID,
			EventID:        event.ID,
			MemberID:       testMemberID,
			TicketIDs:      []uuid.UUID{ticket.ID},
			RemainingQuota: 2,
		}).Return(nil)

		result, err := newTestClaimService(m).Claim(context.Background(), interfaces.ClaimTicketRequest{
			TenantID:       testTenantID,
			EventID:        event.ID,
			MemberID:       testMemberID,
			IdempotencyKey: " k1 ",
		})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{ticket.ID}, result.TicketIDs)
		assert.Equal(t, 1, result.Quantity)
		assert.False(t, result.Replayed)
		assert.Equal(t, 1, event.TotalClaimed)
		assert.Equal(t, 1, counter.ClaimedCount)
		m.AssertAllExpectations(t)
	})

	t.Run("last ticket sells the event out", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		event := newOpenClaimEvent(t, 1, 1)
		ticket := &entities.Ticket{ID: uuid.New()}

		m.ClaimEventRepo.On("GetByIDForUpdate", mock.Anything, event.ID).Return(event, nil)
		m.ClaimRepo.On("GetOrCreateCounterForUpdate", mock.Anything, event.ID, testMemberID, testNow).
			Return(&entities.TicketClaimMemberCounter{EventID: event.ID, MemberID: testMemberID}, nil)
		expectGrant(m, event, ticket)
		m.EventPublisher.On("Publish", mock.AnythingOfType("events.TicketClaimedEvent")).Return(nil)
		m.EventPublisher.On("Publish", events.ClaimEventSoldOutEvent{TenantID: testTenantID, EventID: event.ID}).Return(nil)

		_, err := newTestClaimService(m).Claim(context.Background(), interfaces.ClaimTicketRequest{
			TenantID: testTenantID,
			EventID:  event.ID,
			MemberID: testMemberID,
		})
		require.NoError(t, err)
		assert.Equal(t, entities.TicketClaimEventSoldOut, event.Status)
		m.AssertAllExpectations(t)
		m.ClaimRepo.AssertNotCalled(t, "GetRecordByKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replays an earlier claim without locking", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		eventID := uuid.New()
		ticketID := uuid.New()
		key := "k1"
		record := &entities.TicketClaimRecord{
			EventID:         eventID,
			MemberID:        testMemberID,
			IdempotencyKey:  &key,
			RequestHash:     entities.ClaimRequestHash(eventID, testMemberID),
			Quantity:        1,
			IssuedTicketIDs: []uuid.UUID{ticketID},
		}
		m.ClaimRepo.On("GetRecordByKey", mock.Anything, eventID, testMemberID, key).Return(record, nil)

		result, err := newTestClaimService(m).Claim(context.Background(), interfaces.ClaimTicketRequest{
			TenantID:       testTenantID,
			EventID:        eventID,
			MemberID:       testMemberID,
			IdempotencyKey: key,
		})
		require.NoError(t, err)
		assert.True(t, result.Replayed)
		assert.Equal(t, []uuid.UUID{ticketID}, result.TicketIDs)
		m.ClaimEventRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
		m.AssertAllExpectations(t)
	})

	t.Run("key reused on another event claims afresh", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		event := newOpenClaimEvent(t, 3, 1)
		ticket := &entities.Ticket{ID: uuid.New()}

		// a record under k1 exists for a different event only, so this event's lookup misses
		m.ClaimRepo.On("GetRecordByKey", mock.Anything, event.ID, testMemberID, "k1").Return(nil, nil).Twice()
		m.ClaimEventRepo.On("GetByIDForUpdate", mock.Anything, event.ID).Return(event, nil)
		m.ClaimRepo.On("GetOrCreateCounterForUpdate", mock.Anything, event.ID, testMemberID, testNow).
			Return(&entities.TicketClaimMemberCounter{EventID: event.ID, MemberID: testMemberID}, nil)
		expectGrant(m, event, ticket)
		m.EventPublisher.On("Publish", mock.AnythingOfType("events.TicketClaimedEvent")).Return(nil)

		result, err := newTestClaimService(m).Claim(context.Background(), interfaces.ClaimTicketRequest{
			TenantID:       testTenantID,
			EventID:        event.ID,
			MemberID:       testMemberID,
			IdempotencyKey: "k1",
		})
		require.NoError(t, err)
		assert.False(t, result.Replayed)
		assert.Equal(t, []uuid.UUID{ticket.ID}, result.TicketIDs)
		m.AssertAllExpectations(t)
	})

	t.Run("stored record for another request conflicts", func(t *testing.T) {
		t.Parallel()

		m := NewTestMocks()
		eventID := uuid.New()
		m.ClaimRepo.On("GetRecordByKey", mock.Anything, eventID, testMemberID, "k1").Return(&entities.TicketClaimRecord{
			EventID:     eventID,
			RequestHash: entities.ClaimRequestHash(eventID, testMemberID+1),
		}, nil)

		_, err := newTestClaimService(m).Claim(context.Background(), interfaces.ClaimTicketRequest{
			TenantID:       testTenantID,
			EventID:        eventID,
			MemberID:       testMemberID,
			IdempotencyKey: "k1",
		})
		assert.ErrorIs(t, err, entities.ErrTicketIdempotencyKeyConflict)
		assert.Equal(t, entities.KindIdempotencyConflict, entities.KindOf(err))
	})
}

func TestTicketClaimService_ClaimRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		event       func(t *testing.T) *entities.TicketClaimEvent
		claimed     int
		resolveErr  error
		expectedErr error
	}{
		{
			name:        "member at per-member limit",
			event:       func(t *testing.T) *entities.TicketClaimEvent { return newOpenClaimEvent(t, 5, 2) },
			claimed:     2,
			expectedErr: entities.ErrTicketClaimEventMemberQuotaExceeded,
		},
		{
			name: "sold out",
			event: func(t *testing.T) *entities.TicketClaimEvent {
				e := newOpenClaimEvent(t, 2, 1)
				e.TotalClaimed = 2
				return e
			},
			expectedErr: entities.ErrTicketClaimEventSoldOut,
		},
		{
			name: "disabled",
			event: func(t *testing.T) *entities.TicketClaimEvent {
				e := newOpenClaimEvent(t, 2, 1)
				require.NoError(t, e.Disable(testNow))
				return e
			},
			expectedErr: entities.ErrTicketClaimEventDisabled,
		},
		{
			name:        "target draw gone",
			event:       func(t *testing.T) *entities.TicketClaimEvent { return newOpenClaimEvent(t, 2, 1) },
			resolveErr:  entities.ErrDrawNotFound,
			expectedErr: entities.ErrTicketDrawNotAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewTestMocks()
			event := tt.event(t)
			counter := &entities.TicketClaimMemberCounter{EventID: event.ID, MemberID: testMemberID, ClaimedCount: tt.claimed}

			m.ClaimEventRepo.On("GetByIDForUpdate", mock.Anything, event.ID).Return(event, nil)
			m.ClaimRepo.On("GetOrCreateCounterForUpdate", mock.Anything, event.ID, testMemberID, testNow).Return(counter, nil)
			if tt.resolveErr != nil {
				m.TicketService.On("ResolveTargetDraw", mock.Anything, event.TenantID, event.ScopeID, event.GameCode, event.PlayTypeCode).
					Return(nil, tt.resolveErr)
			}

			_, err := newTestClaimService(m).Claim(context.Background(), interfaces.ClaimTicketRequest{
				TenantID: testTenantID,
				EventID:  event.ID,
				MemberID: testMemberID,
			})
			assert.ErrorIs(t, err, tt.expectedErr)

			m.TicketService.AssertNotCalled(t, "IssueTicket", mock.Anything, mock.Anything)
			m.ClaimRepo.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything)
			m.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
			m.AssertAllExpectations(t)
		})
	}
}

func TestTicketClaimService_ClaimUnknownEvent(t *testing.T) {
	t.Parallel()

	m := NewTestMocks()
	id := uuid.New()
	m.ClaimEventRepo.On("GetByIDForUpdate", mock.Anything, id).Return(nil, nil)

	_, err := newTestClaimService(m).Claim(context.Background(), interfaces.ClaimTicketRequest{
		TenantID: testTenantID,
		EventID:  id,
		MemberID: testMemberID,
	})
	assert.ErrorIs(t, err, entities.ErrTicketClaimEventNotFound)
	assert.Equal(t, entities.KindNotFound, entities.KindOf(err))
}

func TestTicketClaimService_ClaimRequiresMember(t *testing.T) {
	t.Parallel()

	_, err := newTestClaimService(NewTestMocks()).Claim(context.Background(), interfaces.ClaimTicketRequest{EventID: uuid.New()})
	assert.ErrorIs(t, err, entities.ErrTicketMemberRequired)
}
