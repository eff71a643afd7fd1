package official

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reliefgrid/disaster-aggregator/internal/cache"
	"github.com/reliefgrid/disaster-aggregator/internal/domain"
	"github.com/reliefgrid/disaster-aggregator/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	name    string
	updates []domain.OfficialUpdate
	err     error
	calls   int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, keywords []string) ([]domain.OfficialUpdate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.updates, nil
}

func newTestAggregator(t *testing.T, sources ...Source) *Aggregator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(cache.NewMemoryStore(), logger)
	return NewAggregator(sources, c, time.Hour, 2*time.Second, logger, observability.NewMetricsForTesting())
}

func update(id, source, title, description string) domain.OfficialUpdate {
	return domain.OfficialUpdate{ID: id, Source: source, Title: title, Description: description}
}

func TestAggregator_Updates_MergesSources(t *testing.T) {
	fema := &fakeSource{name: "fema", updates: []domain.OfficialUpdate{
		update("fema_0", "FEMA", "Disaster Declaration", "Federal assistance available"),
	}}
	redcross := &fakeSource{name: "redcross", updates: []domain.OfficialUpdate{
		update("redcross_0", "Red Cross", "Shelter Operations", "Shelters open"),
	}}

	a := newTestAggregator(t, fema, redcross)

	updates := a.Updates(context.Background(), "disaster-1", nil)
	require.Len(t, updates, 2)
}

func TestAggregator_Updates_SourceFailureDropsOnlyThatSource(t *testing.T) {
	fema := &fakeSource{name: "fema", err: errors.New("blocked")}
	redcross := &fakeSource{name: "redcross", updates: []domain.OfficialUpdate{
		update("redcross_0", "Red Cross", "Shelter Operations", "Shelters open"),
	}}

	a := newTestAggregator(t, fema, redcross)

	updates := a.Updates(context.Background(), "disaster-1", nil)
	require.Len(t, updates, 1)
	assert.Equal(t, "redcross_0", updates[0].ID)
}

func TestAggregator_Updates_AllEmpty_Substitute(t *testing.T) {
	fema := &fakeSource{name: "fema"}
	redcross := &fakeSource{name: "redcross", err: errors.New("down")}

	a := newTestAggregator(t, fema, redcross)

	updates := a.Updates(context.Background(), "disaster-1", []string{"Queens"})
	require.Len(t, updates, 5)
	assert.Contains(t, updates[0].Title, "Queens")
	assert.Equal(t, "fema_mock_1", updates[0].ID)
}

func TestAggregator_Updates_SortedNewestFirst(t *testing.T) {
	now := time.Now()
	fema := &fakeSource{name: "fema", updates: []domain.OfficialUpdate{
		{ID: "old", Source: "FEMA", Date: now.Add(-2 * time.Hour)},
		{ID: "new", Source: "FEMA", Date: now},
	}}

	a := newTestAggregator(t, fema)

	updates := a.Updates(context.Background(), "disaster-1", nil)
	require.Len(t, updates, 2)
	assert.Equal(t, "new", updates[0].ID)
	assert.Equal(t, "old", updates[1].ID)
}

func TestAggregator_Updates_Cached(t *testing.T) {
	fema := &fakeSource{name: "fema", updates: []domain.OfficialUpdate{
		update("fema_0", "FEMA", "Disaster Declaration", "details"),
	}}

	a := newTestAggregator(t, fema)

	a.Updates(context.Background(), "disaster-1", []string{"manhattan"})
	a.Updates(context.Background(), "disaster-1", []string{"manhattan"})
	assert.Equal(t, 1, fema.calls)

	a.Updates(context.Background(), "disaster-1", []string{"queens"})
	assert.Equal(t, 2, fema.calls)
}

func TestAggregator_EmergencyAlerts(t *testing.T) {
	fema := &fakeSource{name: "fema", updates: []domain.OfficialUpdate{
		update("u1", "FEMA", "Evacuation Order Issued", "Leave the area now"),
		update("u2", "FEMA", "Recovery Center Hours", "Open 9 to 5"),
		update("u3", "FEMA", "Road Closures", "Critical infrastructure damaged"),
	}}

	a := newTestAggregator(t, fema)

	alerts := a.EmergencyAlerts(context.Background(), nil)
	require.Len(t, alerts, 2)
	ids := []string{alerts[0].ID, alerts[1].ID}
	assert.ElementsMatch(t, []string{"u1", "u3"}, ids)
}

func TestAggregator_EmergencyAlerts_SubstituteDataMatches(t *testing.T) {
	a := newTestAggregator(t)

	alerts := a.EmergencyAlerts(context.Background(), nil)
	require.NotEmpty(t, alerts)
	for _, alert := range alerts {
		assert.NotEmpty(t, alert.ID)
	}
}

func TestAggregator_UpdatesBySource(t *testing.T) {
	fema := &fakeSource{name: "fema", updates: []domain.OfficialUpdate{
		update("fema_0", "FEMA", "Disaster Declaration", "details"),
	}}
	redcross := &fakeSource{name: "redcross", updates: []domain.OfficialUpdate{
		update("redcross_0", "Red Cross", "Shelter Operations", "details"),
	}}

	a := newTestAggregator(t, fema, redcross)

	updates := a.UpdatesBySource(context.Background(), "FEMA")
	require.Len(t, updates, 1)
	assert.Equal(t, "fema_0", updates[0].ID)
	assert.Equal(t, 0, redcross.calls)
}

func TestAggregator_UpdatesBySource_UnknownSource_Substitute(t *testing.T) {
	a := newTestAggregator(t)

	updates := a.UpdatesBySource(context.Background(), "nasa")
	assert.Len(t, updates, 5)
}

func TestAggregator_RunPush(t *testing.T) {
	fema := &fakeSource{name: "fema", updates: []domain.OfficialUpdate{
		update("fema_0", "FEMA", "Disaster Declaration", "details"),
	}}

	clk := clockwork.NewFakeClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New(cache.NewMemoryStore(), logger)
	a := NewAggregator([]Source{fema}, c, time.Hour, 2*time.Second, logger, observability.NewMetricsForTesting()).WithClock(clk)

	ctx, cancel := context.WithCancel(context.Background())
	published := make(chan []domain.OfficialUpdate, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.RunPush(ctx, "disaster-1", nil, time.Minute, func(updates []domain.OfficialUpdate) {
			published <- updates
		})
	}()

	clk.BlockUntil(1)
	clk.Advance(time.Minute)

	select {
	case updates := <-published:
		require.Len(t, updates, 1)
		assert.Equal(t, "fema_0", updates[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("push loop did not publish")
	}

	cancel()
	<-done
}
