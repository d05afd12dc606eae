package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"lottoengine/domain/entities"
	"lottoengine/domain/interfaces"
	"lottoengine/infrastructure/observability"

	"github.com/stretchr/testify/assert"
)

func TestClaimOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result *interfaces.ClaimTicketResult
		err    error
		want   string
	}{
		{"claimed", &interfaces.ClaimTicketResult{Quantity: 1}, nil, observability.ClaimOutcomeClaimed},
		{"replayed", &interfaces.ClaimTicketResult{Replayed: true}, nil, observability.ClaimOutcomeReplayed},
		{"lock timeout", nil, fmt.Errorf("failed to lock claim event: %w", context.DeadlineExceeded), observability.ClaimOutcomeTimeout},
		{"sold out", nil, entities.ErrTicketClaimEventSoldOut, "TicketClaimEventSoldOut"},
		{"member limit", nil, entities.ErrTicketClaimEventMemberQuotaExceeded.WithMessage("member 9 has 1 of 1"), "TicketClaimEventMemberQuotaExceeded"},
		{"infrastructure", nil, errors.New("connection reset"), observability.ClaimOutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, claimOutcome(tt.result, tt.err))
		})
	}
}
