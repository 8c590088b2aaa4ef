package service

import (
	"context"
	"testing"

	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		roll int
		want Decision
	}{
		{"approved low", 10, Decision{Approved: true}},
		{"approved at edge", 94, Decision{Approved: true}},
		{"threshold is unknown", 95, Decision{Reason: RefusalUnknown}},
		{"first refusal", 96, Decision{Reason: RefusalInsufficientFunds}},
		{"last refusal", 100, Decision{Reason: RefusalLimitExceeded}},
		{"past the list", 101, Decision{Reason: RefusalUnknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decide(tt.roll, 95))
		})
	}
}

func TestRandomAuthorizer_UsesRoll(t *testing.T) {
	a := NewRandomAuthorizer(95)
	a.roll = func() int { return 97 }

	d, err := a.Authorize(context.Background(), domain.Payment{})
	require.NoError(t, err)
	assert.Equal(t, Decision{Reason: RefusalCardExpired}, d)
}

func TestFixedAuthorizers(t *testing.T) {
	d, err := ApproveAll.Authorize(context.Background(), domain.Payment{})
	require.NoError(t, err)
	assert.True(t, d.Approved)

	d, err = DeclineAll("nope").Authorize(context.Background(), domain.Payment{})
	require.NoError(t, err)
	assert.Equal(t, Decision{Reason: "nope"}, d)
}
