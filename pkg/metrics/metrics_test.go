package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/x", "200", time.Millisecond)
		m.IncSlotFetchFailure("walk_in")
		m.IncBookingConflict("create")
	})
}

func TestCounters(t *testing.T) {
	m := New("clinic-booking")

	m.IncSlotFetchFailure("online_request")
	m.IncSlotFetchFailure("online_request")
	m.IncBookingConflict("create")
	m.ObserveDBQuery("query", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SlotFetchFailuresTotal.WithLabelValues("clinic-booking", "online_request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingConflictsTotal.WithLabelValues("clinic-booking", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrorTotal.WithLabelValues("clinic-booking", "query")))
}
