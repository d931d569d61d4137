package http

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aretw0/concierge/pkg/domain"
)

func TestStreamManager(t *testing.T) {
	defer goleak.VerifyNone(t)

	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("s1")
	other, cancelOther := sm.Subscribe("s2")
	defer cancelOther()

	status := domain.StatusWaiting
	sm.Publish(context.Background(), &domain.TranscriptDiff{SessionID: "s1", Status: &status})
	sm.Publish(context.Background(), &domain.TranscriptDiff{SessionID: "s1"})
	sm.Publish(context.Background(), nil)

	require.Len(t, ch, 1)
	assert.JSONEq(t, `{"session_id":"s1","status":"waiting"}`, <-ch)
	assert.Empty(t, other)

	for i := 0; i < StreamBuffer+5; i++ {
		sm.Broadcast("s1", "x")
	}
	assert.Len(t, ch, StreamBuffer, "slow subscribers drop overflow")

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("s1"))
	assert.Equal(t, 1, sm.Subscribers("s2"))
}

func TestWatchFilter(t *testing.T) {
	status := `{"session_id":"s","status":"idle"}`
	turns := `{"session_id":"s","appended":[{"id":1,"role":"user","presentation":"text","created_at":"2024-01-01T00:00:00Z"}]}`

	assert.True(t, wanted(status, nil))
	assert.True(t, wanted(status, []string{"status"}))
	assert.False(t, wanted(status, []string{"turns"}))
	assert.True(t, wanted(turns, []string{" turns"}))
	assert.False(t, wanted(turns, []string{"status"}))
}
