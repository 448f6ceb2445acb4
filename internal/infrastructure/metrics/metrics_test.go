package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTabCount(t *testing.T) {
	before := testutil.ToFloat64(TabCountRequests.WithLabelValues("fallback"))

	RecordTabCount("fallback", 20*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(TabCountRequests.WithLabelValues("fallback")))
}

func TestRecordAggregateFallback(t *testing.T) {
	before := testutil.ToFloat64(AggregateFallbacks.WithLabelValues("unavailable"))

	RecordAggregateFallback("unavailable")

	assert.Equal(t, before+1, testutil.ToFloat64(AggregateFallbacks.WithLabelValues("unavailable")))
}

func TestRecordEventPublished(t *testing.T) {
	before := testutil.ToFloat64(EventsPublished.WithLabelValues("new_message"))

	RecordEventPublished("new_message")

	assert.Equal(t, before+1, testutil.ToFloat64(EventsPublished.WithLabelValues("new_message")))
}
