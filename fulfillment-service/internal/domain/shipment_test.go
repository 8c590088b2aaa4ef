package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShipment_Transitions(t *testing.T) {
	now := time.Now()
	order := Order{OrderID: "o-1", Items: []Item{{SKU: "A", Quantity: 2}}}

	s := NewShipment(order, now)
	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, order.Items, s.Items)

	changed, err := s.Dispatch(now)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Dispatch(now)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.Cancel("too late", now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestShipment_Cancel(t *testing.T) {
	now := time.Now()
	s := NewShipment(Order{OrderID: "o-1"}, now)

	changed, err := s.Cancel("payment failed", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "payment failed", *s.CancelReason)

	changed, err = s.Cancel("again", now)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.Dispatch(now)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}
