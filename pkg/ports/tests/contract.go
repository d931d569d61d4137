package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/ports"
)

// RecordSink is a sink that can also read back what it stored.
type RecordSink interface {
	ports.RecordSink
	ports.RecordLister
}

// RecordSinkContractTest is a reusable test suite that verifies a RecordSink adapter.
func RecordSinkContractTest(t *testing.T, sink RecordSink) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	first := domain.Record{
		FlowID:      "service_booking",
		Reference:   "BK-1234",
		SessionID:   "sess-a",
		Fields:      domain.NewDraft("customerName", "John Doe", "plateNumber", "ABC-1234"),
		CompletedAt: base,
	}
	second := domain.Record{
		FlowID:      "payment",
		Reference:   "PAY-555",
		SessionID:   "sess-a",
		Fields:      domain.NewDraft("amount", "120.00"),
		CompletedAt: base.Add(time.Minute),
	}
	other := domain.Record{
		FlowID:      "lead_create",
		Reference:   "LEAD-101",
		SessionID:   "sess-b",
		Fields:      domain.NewDraft("firstName", "Ana"),
		CompletedAt: base,
	}

	t.Run("Publish", func(t *testing.T) {
		require.NoError(t, sink.Publish(ctx, second))
		require.NoError(t, sink.Publish(ctx, first))
		require.NoError(t, sink.Publish(ctx, other))
	})

	t.Run("Records_OldestFirst", func(t *testing.T) {
		recs, err := sink.Records(ctx, "sess-a")
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "BK-1234", recs[0].Reference)
		assert.Equal(t, "PAY-555", recs[1].Reference)
		assert.Equal(t, []string{"customerName", "plateNumber"}, recs[0].Fields.Keys())
		assert.True(t, recs[0].CompletedAt.Equal(base))
	})

	t.Run("Records_Unknown", func(t *testing.T) {
		recs, err := sink.Records(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}
