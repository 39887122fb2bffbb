package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusHistoryScan(t *testing.T) {
	raw := []byte(`[{"entry_id":"e1","from_status":"PENDING","to_status":"CONFIRMED","actor_id":"staff_1","actor_role":"staff"}]`)

	var h StatusHistory
	require.NoError(t, h.Scan(raw))
	require.Len(t, h, 1)
	assert.Equal(t, "PENDING", h[0].FromStatus)
	assert.Equal(t, "CONFIRMED", h[0].ToStatus)

	var empty StatusHistory
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)

	assert.Error(t, empty.Scan(42))
}

func TestStatusHistoryValue(t *testing.T) {
	var nilHistory StatusHistory
	v, err := nilHistory.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestLastChange(t *testing.T) {
	e := &Entity{}
	assert.Nil(t, e.LastChange())

	e.StatusHistory = StatusHistory{
		{EntryID: "e1", ToStatus: OrderStatusConfirmed, Timestamp: time.Now()},
		{EntryID: "e2", ToStatus: OrderStatusCancelled, Timestamp: time.Now()},
	}
	last := e.LastChange()
	require.NotNil(t, last)
	assert.Equal(t, "e2", last.EntryID)
}
