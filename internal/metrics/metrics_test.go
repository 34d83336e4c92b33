package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinkbreak/internal/core/events"
	"blinkbreak/internal/core/model"
)

func TestCollectorObservesEvents(t *testing.T) {
	collector := NewCollector()
	bus := events.NewBus(events.WithFailureHook(collector.RecordFailure))
	collector.Attach(bus)

	bus.PublishAll([]events.Event{
		{Kind: events.KindWorkStart, DurationSeconds: 1200},
		{Kind: events.KindWorkComplete, DurationSeconds: 1200},
		{Kind: events.KindBreakStart, DurationSeconds: 20},
		{Kind: events.KindActivityComplete, DurationSeconds: 6, Metadata: map[string]string{events.MetaActivity: string(model.ActivityBlink)}},
		{Kind: events.KindBreakComplete, DurationSeconds: 20},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.EventsTotal.WithLabelValues("work_start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.EventsTotal.WithLabelValues("activity_complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.ActivitiesCompleted.WithLabelValues("blink")))
	assert.Equal(t, 3, testutil.CollectAndCount(collector.PhaseDuration))
}

func TestCollectorExportsEverySeriesAtZero(t *testing.T) {
	collector := NewCollector()

	assert.Equal(t, len(events.Kinds()), testutil.CollectAndCount(collector.EventsTotal))
	assert.Equal(t, len(model.ActivityKinds()), testutil.CollectAndCount(collector.ActivitiesCompleted))
	assert.Zero(t, testutil.ToFloat64(collector.EventsTotal.WithLabelValues(string(events.KindBreakComplete))))
}

func TestCollectorCountsSubscriberFailures(t *testing.T) {
	collector := NewCollector()
	bus := events.NewBus(events.WithFailureHook(collector.RecordFailure))
	bus.Subscribe("notifier", func(events.Event) error { return errors.New("no display") })

	bus.Publish(events.Event{Kind: events.KindWorkComplete})
	bus.Publish(events.Event{Kind: events.KindBreakComplete})

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.SubscriberFailures.WithLabelValues("notifier")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	collector := NewCollector()
	require.NoError(t, collector.Observe(events.Event{Kind: events.KindWorkStart}))

	recorder := httptest.NewRecorder()
	collector.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), `blinkbreak_events_total{kind="work_start"} 1`))
}
