package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"railboard/internal/aggregate"
	"railboard/internal/domain"
	"railboard/internal/repository"
	"railboard/pkg/cache"
	apperrors "railboard/pkg/errors"
	"railboard/pkg/logger"
)

// DefaultRefreshInterval is the tick cadence the dashboard runs at.
const DefaultRefreshInterval = 15 * time.Second

// State is a range controller's position in its refresh cycle.
type State string

const (
	StateIdle           State = "idle"
	StateAuthenticating State = "authenticating"
	StateFetching       State = "fetching"
	StateAggregating    State = "aggregating"
	StateReady          State = "ready"
	StateError          State = "error"
)

// Snapshot is the externally visible state of a controller. Report and
// Error may both be set: a transient failure keeps the previously
// displayed report in place rather than flickering to empty.
type Snapshot struct {
	Class       domain.RangeClass     `json:"range_class"`
	State       State                 `json:"state"`
	Report      *domain.TrafficReport `json:"report,omitempty"`
	Error       string                `json:"error,omitempty"`
	RefreshedAt time.Time             `json:"refreshed_at,omitzero"`
}

// ControllerConfig wires one range controller.
type ControllerConfig struct {
	Class   domain.RangeClass
	Session TokenSource
	Fetcher TransactionFetcher
	Store   cache.Store
	Keys    *cache.KeyBuilder

	// Archive is optional; when set, the today controller hands each
	// successful daily total to it.
	Archive repository.TrafficSnapshotRepository

	Logger   *logger.Logger
	Interval time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Controller drives the refresh cycle for one range class: check cache,
// authenticate if needed, fetch current and comparison periods, aggregate,
// write through the cache and expose the result. Controllers are fully
// independent of each other; each owns its session, its cache namespace
// and its timer.
type Controller struct {
	class    domain.RangeClass
	session  TokenSource
	fetcher  TransactionFetcher
	store    cache.Store
	keys     *cache.KeyBuilder
	archive  repository.TrafficSnapshotRepository
	logger   *logger.Logger
	interval time.Duration
	now      func() time.Time

	mu          sync.RWMutex
	state       State
	report      *domain.TrafficReport
	errMsg      string
	refreshedAt time.Time
	stopped     bool

	ticker  *time.Ticker
	stopCh  chan struct{}
	kickCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewController creates a range controller from its config.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefreshInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		class:    cfg.Class,
		session:  cfg.Session,
		fetcher:  cfg.Fetcher,
		store:    cfg.Store,
		keys:     cfg.Keys,
		archive:  cfg.Archive,
		logger:   cfg.Logger.WithField("range_class", string(cfg.Class)),
		interval: cfg.Interval,
		now:      cfg.Now,
		state:    StateIdle,
		stopCh:   make(chan struct{}),
		kickCh:   make(chan struct{}, 1),
	}
}

// Start resolves the initial state synchronously from the cache, then
// begins the timer-driven refresh loop. With a fresh cache hit the
// controller is Ready before Start returns, so the UI never shows a
// loading indicator on a warm start.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	now := c.now()
	q := domain.QueryFor(c.class, now)
	if report, ok := c.cachedReport(ctx, q, now); ok {
		c.setReady(report)
		c.logger.Debug("Initialized from cache")
	}

	c.ticker = time.NewTicker(c.interval)
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop cancels the timer and discards any in-flight refresh results.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	started := c.started
	c.mu.Unlock()

	if !started {
		return
	}
	c.ticker.Stop()
	close(c.stopCh)
	c.wg.Wait()
}

// ForceRefresh schedules an immediate refresh without waiting for the next
// tick. A refresh already pending absorbs the request.
func (c *Controller) ForceRefresh() {
	select {
	case c.kickCh <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the controller's visible state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Class:       c.class,
		State:       c.state,
		Report:      c.report.Clone(),
		Error:       c.errMsg,
		RefreshedAt: c.refreshedAt,
	}
}

// Class returns the controller's range class.
func (c *Controller) Class() domain.RangeClass {
	return c.class
}

func (c *Controller) run(ctx context.Context) {
	defer c.wg.Done()

	c.refresh(ctx)

	for {
		select {
		case <-c.ticker.C:
			c.refresh(ctx)
		case <-c.kickCh:
			c.refresh(ctx)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// refresh is one full tick of the state machine.
func (c *Controller) refresh(ctx context.Context) {
	now := c.now()
	q := domain.QueryFor(c.class, now)

	// A stale comparison figure is more misleading than a brief gap, so
	// today's change values drop before anything else happens this tick.
	if c.class == domain.RangeToday {
		c.clearChange()
	}

	if report, ok := c.cachedReport(ctx, q, now); ok {
		c.setReady(report)
		return
	}

	if !c.session.Held() {
		c.setState(StateAuthenticating)
	}
	token, err := c.session.Token(ctx)
	if err != nil {
		c.setError(err)
		return
	}

	c.setState(StateFetching)
	rows, total, comparison, err := c.fetchPeriods(ctx, q, now, token)
	if err != nil {
		if apperrors.IsAuthExpired(err) {
			// Next tick re-authenticates; there is no separate retry path.
			c.session.Invalidate()
		}
		c.setError(err)
		return
	}

	c.setState(StateAggregating)
	report := c.buildReport(q, now, rows, total, comparison)

	if c.class == domain.RangeToday && c.archive != nil {
		if err := c.archive.UpsertDailyTotal(ctx, q.Start, report.Total); err != nil {
			c.logger.WithError(err).Warn("Failed to archive daily total")
		}
	}

	key := c.keys.ReportKey(string(c.class), q.PeriodKey)
	if err := c.store.Put(ctx, key, report); err != nil {
		c.logger.WithError(err).Warn("Failed to write report cache")
	}

	c.setReady(report)
}

// cachedReport loads the entry for the query's period and returns it only
// when it is still fresh under the class's staleness policy.
func (c *Controller) cachedReport(ctx context.Context, q domain.RangeQuery, now time.Time) (*domain.TrafficReport, bool) {
	key := c.keys.ReportKey(string(c.class), q.PeriodKey)
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).Warn("Cache read failed")
		return nil, false
	}
	if entry == nil || !q.Fresh(entry.Timestamp, now) {
		return nil, false
	}

	var report domain.TrafficReport
	if err := json.Unmarshal(entry.Payload, &report); err != nil {
		c.logger.WithError(err).Warn("Cached report undecodable, discarding")
		if remErr := c.store.Remove(ctx, key); remErr != nil {
			c.logger.WithError(remErr).Warn("Failed to remove corrupt cache entry")
		}
		return nil, false
	}
	return &report, true
}

// fetchPeriods retrieves the current period and, for the today and week
// classes, the comparison period concurrently. Both fetches must succeed
// for the tick to proceed.
func (c *Controller) fetchPeriods(ctx context.Context, q domain.RangeQuery, now time.Time, token string) (rows []domain.TransactionRecord, total int, comparison []domain.TransactionRecord, err error) {
	cmpStart, cmpEnd, hasComparison := domain.ComparisonFor(c.class, now)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, t, fetchErr := c.fetcher.FetchTransactions(gctx, q.Start, q.End, token)
		if fetchErr != nil {
			return fetchErr
		}
		rows, total = r, t
		return nil
	})
	if hasComparison {
		g.Go(func() error {
			r, _, fetchErr := c.fetcher.FetchTransactions(gctx, cmpStart, cmpEnd, token)
			if fetchErr != nil {
				return fetchErr
			}
			comparison = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, nil, err
	}

	if c.class == domain.RangeToday {
		// A partial today compares against an equally partial yesterday.
		comparison = aggregate.FilterUpToClock(comparison, now)
	}
	return rows, total, comparison, nil
}

// buildReport assembles the class-specific payload from the fetched rows.
func (c *Controller) buildReport(q domain.RangeQuery, now time.Time, rows []domain.TransactionRecord, total int, comparison []domain.TransactionRecord) *domain.TrafficReport {
	report := &domain.TrafficReport{
		Class:       c.class,
		Total:       total,
		GeneratedAt: now,
	}

	switch c.class {
	case domain.RangeToday:
		report.Stations = aggregate.BuildStationSummary(rows)
		aggregate.ApplyChange(report.Stations, comparison)
		peak := aggregate.FindPeakHours(rows)
		report.Peak = &peak
	case domain.RangeWeek:
		report.Stations = aggregate.BuildStationSummary(rows)
		aggregate.ApplyChange(report.Stations, comparison)
		report.Daily = aggregate.BuildDailySeries(rows, q.Start, q.End)
	default:
		// Month classes expose the total only.
	}

	return report
}

// State mutations below all honor the liveness flag: results arriving
// after Stop are discarded.

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.state = s
}

func (c *Controller) setReady(report *domain.TrafficReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.state = StateReady
	c.report = report
	c.errMsg = ""
	c.refreshedAt = c.now()
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.state = StateError
	c.errMsg = err.Error()
	c.logger.WithError(err).Warn("Refresh failed")
}

func (c *Controller) clearChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.report == nil {
		return
	}
	for _, stats := range c.report.Stations {
		stats.ChangeVsYesterday = nil
	}
}
