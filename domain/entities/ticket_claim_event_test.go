package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validClaimEventParams() NewTicketClaimEventParams {
	return NewTicketClaimEventParams{
		TenantID:       1,
		Name:           " Launch giveaway ",
		GameCode:       GameCodeLotto539,
		PlayTypeCode:   PlayTypeBasic,
		StartsAt:       testEpoch,
		EndsAt:         testEpoch.Add(24 * time.Hour),
		TotalQuota:     10,
		PerMemberQuota: 2,
		ScopeType:      TicketClaimScopeSingleDraw,
		ScopeID:        uuid.New(),
	}
}

func newActiveClaimEvent(t *testing.T, total, perMember int) *TicketClaimEvent {
	t.Helper()

	params := validClaimEventParams()
	params.TotalQuota = total
	params.PerMemberQuota = perMember

	event, err := NewTicketClaimEvent(params, testEpoch)
	require.NoError(t, err)
	require.NoError(t, event.Activate(testEpoch))
	return event
}

func TestNewTicketClaimEvent_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		mutate      func(*NewTicketClaimEventParams)
		expectedErr error
	}{
		{name: "valid"},
		{
			name:        "ends before start",
			mutate:      func(p *NewTicketClaimEventParams) { p.EndsAt = p.StartsAt },
			expectedErr: ErrTicketClaimEventTimeInvalid,
		},
		{
			name:        "zero total quota",
			mutate:      func(p *NewTicketClaimEventParams) { p.TotalQuota = 0 },
			expectedErr: ErrTicketClaimEventQuotaInvalid,
		},
		{
			name:        "per member above total",
			mutate:      func(p *NewTicketClaimEventParams) { p.PerMemberQuota = 11 },
			expectedErr: ErrTicketClaimEventQuotaInvalid,
		},
		{
			name:        "unknown scope",
			mutate:      func(p *NewTicketClaimEventParams) { p.ScopeType = "everything" },
			expectedErr: ErrTicketClaimEventScopeInvalid,
		},
		{
			name:        "missing scope id",
			mutate:      func(p *NewTicketClaimEventParams) { p.ScopeID = uuid.Nil },
			expectedErr: ErrTicketClaimEventScopeInvalid,
		},
		{
			name:        "missing game",
			mutate:      func(p *NewTicketClaimEventParams) { p.GameCode = "" },
			expectedErr: ErrGameCodeRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			params := validClaimEventParams()
			if tt.mutate != nil {
				tt.mutate(&params)
			}

			event, err := NewTicketClaimEvent(params, testEpoch)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TicketClaimEventDraft, event.Status)
			assert.Equal(t, "Launch giveaway", event.Name)
			assert.Equal(t, 10, event.RemainingQuota())
		})
	}
}

func TestTicketClaimEvent_EnsureCanClaim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		mutate      func(*TicketClaimEvent)
		now         time.Time
		expectedErr error
		wantStatus  TicketClaimEventStatus
	}{
		{
			name:       "open",
			now:        testEpoch.Add(time.Hour),
			wantStatus: TicketClaimEventActive,
		},
		{
			name:        "draft",
			mutate:      func(e *TicketClaimEvent) { e.Status = TicketClaimEventDraft },
			now:         testEpoch.Add(time.Hour),
			expectedErr: ErrTicketClaimEventNotStarted,
			wantStatus:  TicketClaimEventDraft,
		},
		{
			name:        "disabled",
			mutate:      func(e *TicketClaimEvent) { e.Status = TicketClaimEventDisabled },
			now:         testEpoch.Add(time.Hour),
			expectedErr: ErrTicketClaimEventDisabled,
			wantStatus:  TicketClaimEventDisabled,
		},
		{
			name:        "before start",
			now:         testEpoch.Add(-time.Second),
			expectedErr: ErrTicketClaimEventNotStarted,
			wantStatus:  TicketClaimEventActive,
		},
		{
			name:        "at end",
			now:         testEpoch.Add(24 * time.Hour),
			expectedErr: ErrTicketClaimEventEnded,
			wantStatus:  TicketClaimEventActive,
		},
		{
			name:        "exhausted active event flips to sold out",
			mutate:      func(e *TicketClaimEvent) { e.TotalClaimed = e.TotalQuota },
			now:         testEpoch.Add(time.Hour),
			expectedErr: ErrTicketClaimEventSoldOut,
			wantStatus:  TicketClaimEventSoldOut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			event := newActiveClaimEvent(t, 3, 1)
			if tt.mutate != nil {
				tt.mutate(event)
			}

			err := event.EnsureCanClaim(tt.now)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStatus, event.Status)
		})
	}
}

func TestTicketClaimEvent_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("activate only from draft", func(t *testing.T) {
		t.Parallel()

		event := newActiveClaimEvent(t, 3, 1)
		assert.ErrorIs(t, event.Activate(testEpoch), ErrTicketClaimEventStatusInvalid)
	})

	t.Run("disable is idempotent but not after end", func(t *testing.T) {
		t.Parallel()

		event := newActiveClaimEvent(t, 3, 1)
		require.NoError(t, event.Disable(testEpoch))
		require.NoError(t, event.Disable(testEpoch))
		assert.False(t, event.MarkEnded(testEpoch.Add(48*time.Hour)))

		ended := newActiveClaimEvent(t, 3, 1)
		require.True(t, ended.MarkEnded(testEpoch.Add(48*time.Hour)))
		assert.ErrorIs(t, ended.Disable(testEpoch), ErrTicketClaimEventStatusInvalid)
	})

	t.Run("sold out events end too", func(t *testing.T) {
		t.Parallel()

		event := newActiveClaimEvent(t, 1, 1)
		require.NoError(t, event.IncreaseClaimed(1, testEpoch))
		assert.Equal(t, TicketClaimEventSoldOut, event.Status)

		assert.False(t, event.MarkEnded(testEpoch.Add(time.Hour)))
		assert.True(t, event.MarkEnded(testEpoch.Add(24*time.Hour)))
		assert.Equal(t, TicketClaimEventEnded, event.Status)
	})
}

func TestTicketClaimMemberCounter_Increase(t *testing.T) {
	t.Parallel()

	counter := &TicketClaimMemberCounter{MemberID: 42}

	require.NoError(t, counter.Increase(1, 2, testEpoch))
	require.NoError(t, counter.Increase(1, 2, testEpoch))
	err := counter.Increase(1, 2, testEpoch)
	assert.ErrorIs(t, err, ErrTicketClaimEventMemberQuotaExceeded)
	assert.Equal(t, 2, counter.ClaimedCount)

	assert.ErrorIs(t, counter.Increase(0, 2, testEpoch), ErrTicketQuantityInvalid)
}

// TestTicketClaimEvent_QuotaModelProperty replays random claim sequences against a
// simple model: total never exceeds quota and no member exceeds its share.
func TestTicketClaimEvent_QuotaModelProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(1, 20).Draw(rt, "total")
		perMember := rapid.IntRange(1, total).Draw(rt, "perMember")

		params := validClaimEventParams()
		params.TotalQuota = total
		params.PerMemberQuota = perMember
		event, err := NewTicketClaimEvent(params, testEpoch)
		if err != nil {
			rt.Fatalf("NewTicketClaimEvent: %v", err)
		}
		if err := event.Activate(testEpoch); err != nil {
			rt.Fatalf("Activate: %v", err)
		}

		counters := make(map[int64]*TicketClaimMemberCounter)
		granted := 0
		now := testEpoch.Add(time.Minute)

		attempts := rapid.SliceOfN(rapid.Int64Range(1, 6), 1, 60).Draw(rt, "members")
		for _, memberID := range attempts {
			counter, ok := counters[memberID]
			if !ok {
				counter = &TicketClaimMemberCounter{MemberID: memberID}
				counters[memberID] = counter
			}

			if err := event.EnsureCanClaim(now); err != nil {
				if CodeOf(err) != ErrTicketClaimEventSoldOut.Code {
					rt.Fatalf("unexpected rejection: %v", err)
				}
				continue
			}
			if err := counter.Increase(1, perMember, now); err != nil {
				continue
			}
			if err := event.IncreaseClaimed(1, now); err != nil {
				rt.Fatalf("IncreaseClaimed after EnsureCanClaim: %v", err)
			}
			granted++

			if event.TotalClaimed > event.TotalQuota {
				rt.Fatalf("total %d exceeds quota %d", event.TotalClaimed, event.TotalQuota)
			}
		}

		if event.TotalClaimed != granted {
			rt.Fatalf("total %d, granted %d", event.TotalClaimed, granted)
		}
		for id, c := range counters {
			if c.ClaimedCount > perMember {
				rt.Fatalf("member %d claimed %d > %d", id, c.ClaimedCount, perMember)
			}
		}
		if (event.Status == TicketClaimEventSoldOut) != (event.TotalClaimed == event.TotalQuota) {
			rt.Fatalf("status %s with %d/%d claimed", event.Status, event.TotalClaimed, event.TotalQuota)
		}
	})
}
