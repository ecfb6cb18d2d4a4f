package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"railboard/internal/domain"
	"railboard/pkg/cache"
	apperrors "railboard/pkg/errors"
	"railboard/pkg/logger"
)

type fakeSession struct {
	token       string
	err         error
	held        bool
	tokenCalls  int32
	invalidated int32
}

func (s *fakeSession) Token(ctx context.Context) (string, error) {
	atomic.AddInt32(&s.tokenCalls, 1)
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

func (s *fakeSession) Held() bool { return s.held }

func (s *fakeSession) Invalidate() { atomic.AddInt32(&s.invalidated, 1) }

type fakeFetcher struct {
	rows  map[string][]domain.TransactionRecord
	err   error
	calls int32
}

func windowKey(start, end domain.Date) string {
	return fmt.Sprintf("%s|%s", start, end)
}

func (f *fakeFetcher) FetchTransactions(ctx context.Context, start, end domain.Date, token string) ([]domain.TransactionRecord, int, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, 0, f.err
	}
	rows := f.rows[windowKey(start, end)]
	return rows, len(rows), nil
}

func testStore(t *testing.T) (cache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisStore("redis://"+mr.Addr(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func testController(class domain.RangeClass, session *fakeSession, fetcher *fakeFetcher, store cache.Store, now time.Time) *Controller {
	return NewController(ControllerConfig{
		Class:   class,
		Session: session,
		Fetcher: fetcher,
		Store:   store,
		Keys:    cache.NewKeyBuilder("production"),
		Logger:  logger.NewNop(),
		Now:     func() time.Time { return now },
	})
}

func exitRow(station string, hour int, now time.Time) domain.TransactionRecord {
	return domain.TransactionRecord{
		StationCode:  station,
		CardCategory: "stored-value",
		ExitAt:       domain.ExitTime{Time: time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.Local)},
	}
}

func TestControllerTodayFirstTick(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)
	today := domain.DateOf(now)
	yesterday := today.AddDays(-1)

	session := &fakeSession{token: "tok-1"}
	fetcher := &fakeFetcher{rows: map[string][]domain.TransactionRecord{
		windowKey(today, today): {
			exitRow("A", 8, now),
			exitRow("A", 8, now),
			exitRow("A", 8, now),
			exitRow("B", 8, now),
			exitRow("B", 8, now),
		},
		windowKey(yesterday, yesterday): {},
	}}
	store, _ := testStore(t)
	c := testController(domain.RangeToday, session, fetcher, store, now)

	c.refresh(context.Background())

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.NotNil(t, snap.Report)
	assert.Equal(t, 5, snap.Report.Total)
	require.Contains(t, snap.Report.Stations, "A")
	require.Contains(t, snap.Report.Stations, "B")
	assert.Equal(t, 3, snap.Report.Stations["A"].Total)
	assert.Equal(t, 2, snap.Report.Stations["B"].Total)

	require.NotNil(t, snap.Report.Peak)
	require.NotNil(t, snap.Report.Peak.BusiestHour)
	require.NotNil(t, snap.Report.Peak.QuietestHour)
	assert.Equal(t, 8, *snap.Report.Peak.BusiestHour)
	assert.Equal(t, 8, *snap.Report.Peak.QuietestHour)

	// Both the current day and the comparison day were fetched.
	assert.EqualValues(t, 2, atomic.LoadInt32(&fetcher.calls))

	// The report was written through to the cache.
	entry, err := store.Get(context.Background(), "prod:traffic-today-2026-08-27")
	require.NoError(t, err)
	require.NotNil(t, entry)
}

func TestControllerFreshPastMonthSkipsNetwork(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)
	session := &fakeSession{token: "tok-1"}
	fetcher := &fakeFetcher{}
	store, _ := testStore(t)

	cached := &domain.TrafficReport{
		Class:       domain.RangePreviousMonth,
		Total:       98765,
		GeneratedAt: now.AddDate(0, 0, -10),
	}
	require.NoError(t, store.Put(context.Background(), "prod:traffic-previous-month-2026-07", cached))

	c := testController(domain.RangePreviousMonth, session, fetcher, store, now)
	c.refresh(context.Background())

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.NotNil(t, snap.Report)
	assert.Equal(t, 98765, snap.Report.Total)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fetcher.calls))
	assert.EqualValues(t, 0, atomic.LoadInt32(&session.tokenCalls))
}

func TestControllerMonthClassFetchesCurrentOnly(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)
	start := domain.NewDate(2026, time.August, 1)
	end := domain.NewDate(2026, time.August, 31)

	session := &fakeSession{token: "tok-1"}
	fetcher := &fakeFetcher{rows: map[string][]domain.TransactionRecord{
		windowKey(start, end): {exitRow("A", 9, now), exitRow("B", 10, now)},
	}}
	store, _ := testStore(t)
	c := testController(domain.RangeMonth, session, fetcher, store, now)

	c.refresh(context.Background())

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.NotNil(t, snap.Report)
	assert.Equal(t, 2, snap.Report.Total)
	assert.Nil(t, snap.Report.Stations)
	assert.Nil(t, snap.Report.Daily)
	assert.Nil(t, snap.Report.Peak)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetcher.calls))
}

func TestControllerAuthExpiryInvalidatesSession(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)
	session := &fakeSession{token: "tok-1"}
	fetcher := &fakeFetcher{err: apperrors.NewFetchError("token expired", true, nil)}
	store, _ := testStore(t)
	c := testController(domain.RangeToday, session, fetcher, store, now)

	previous := &domain.TrafficReport{Class: domain.RangeToday, Total: 42, GeneratedAt: now.Add(-time.Hour)}
	c.setReady(previous)

	c.refresh(context.Background())

	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.NotEmpty(t, snap.Error)
	assert.EqualValues(t, 1, atomic.LoadInt32(&session.invalidated))

	// The last good report stays on display through a transient failure.
	require.NotNil(t, snap.Report)
	assert.Equal(t, 42, snap.Report.Total)
}

func TestControllerTodayChangeClearedAtTickStart(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)
	session := &fakeSession{err: apperrors.NewAuthenticationError("login rejected", nil)}
	fetcher := &fakeFetcher{}
	store, _ := testStore(t)
	c := testController(domain.RangeToday, session, fetcher, store, now)

	change := 12.5
	c.setReady(&domain.TrafficReport{
		Class: domain.RangeToday,
		Total: 10,
		Stations: domain.StationSummary{
			"A": &domain.StationStats{Total: 10, ChangeVsYesterday: &change},
		},
		GeneratedAt: now.Add(-time.Hour),
	})

	// The tick fails at authentication, after the change reset.
	c.refresh(context.Background())

	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	require.NotNil(t, snap.Report)
	assert.Nil(t, snap.Report.Stations["A"].ChangeVsYesterday)
}

func TestControllerSkipsAuthenticatingStateWhenSessionHeld(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)
	today := domain.DateOf(now)
	session := &fakeSession{token: "tok-1", held: true}
	fetcher := &fakeFetcher{rows: map[string][]domain.TransactionRecord{
		windowKey(today, today): {exitRow("A", 8, now)},
	}}
	store, _ := testStore(t)
	c := testController(domain.RangeToday, session, fetcher, store, now)

	c.refresh(context.Background())

	// The token is still used even though the state never showed
	// authenticating.
	assert.EqualValues(t, 1, atomic.LoadInt32(&session.tokenCalls))
	assert.Equal(t, StateReady, c.Snapshot().State)
}

func TestControllerStopDiscardsLateResults(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)
	store, _ := testStore(t)
	session := &fakeSession{err: apperrors.NewAuthenticationError("login rejected", nil)}
	c := testController(domain.RangeToday, session, &fakeFetcher{}, store, now)
	c.Start(context.Background())
	c.Stop()

	c.setReady(&domain.TrafficReport{Class: domain.RangeToday, Total: 99})

	snap := c.Snapshot()
	assert.Nil(t, snap.Report)
}

func TestControllerStartInitializesFromFreshCache(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.Local)
	session := &fakeSession{token: "tok-1"}
	fetcher := &fakeFetcher{}
	store, _ := testStore(t)

	cached := &domain.TrafficReport{Class: domain.RangeMonth, Total: 777, GeneratedAt: now}
	require.NoError(t, store.Put(context.Background(), "prod:traffic-month-2026-08", cached))

	c := testController(domain.RangeMonth, session, fetcher, store, now)
	c.Start(context.Background())
	defer c.Stop()

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.NotNil(t, snap.Report)
	assert.Equal(t, 777, snap.Report.Total)
}
