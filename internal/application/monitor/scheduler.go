package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/adampdxdotcom/GeordiLogger/internal/application"
	"github.com/adampdxdotcom/GeordiLogger/internal/application/appsettings"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/abnormalities"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/analysis"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/containers"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/summaries"
)

// ErrAlreadyRunning is returned by TriggerNow / TriggerSummaryNow when the
// corresponding job is already in flight.
var ErrAlreadyRunning = errors.New("already running")

// ErrNotStarted is returned for control calls before Start.
var ErrNotStarted = errors.New("controller not started")

// State of the controller as exposed to the API layer.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateError   State = "error"
)

// RunStats summarizes the last completed scan for the dashboard.
type RunStats struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Scanned     int       `json:"scanned"`
	Unhealthy   int       `json:"unhealthy"`
	Errors      int       `json:"errors"`
	Cancelled   bool      `json:"cancelled"`
	Err         string    `json:"error,omitempty"`
}

const (
	bootDelay       = 15 * time.Second
	resumeDelay     = 5 * time.Second
	summaryLookback = 24 * time.Hour
)

// Controller owns the scan and summary background jobs: timing, pause and
// resume, manual triggers, single-flight enforcement, and cooperative
// cancellation of the in-flight scan. Exactly one scan is active at a time;
// a timer tick that lands while a scan runs is skipped, never queued.
type Controller struct {
	Provider   containers.LogProvider
	Executor   *Executor
	Settings   *appsettings.Service
	Repo       abnormalities.Repository
	Summaries  summaries.Repository
	Classifier analysis.Classifier
	Clock      application.Clock

	mu             sync.Mutex
	baseCtx        context.Context
	started        bool
	running        bool
	paused         bool
	fatal          error
	cancelRun      context.CancelFunc
	nextScanAt     time.Time
	lastScan       RunStats
	summaryRunning bool
	lastSummaryAt  time.Time
	wakeScan       chan struct{}
}

// Start launches the scan and summary workers. It returns immediately; the
// workers run until ctx is cancelled or a fatal fault occurs.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("controller already started")
	}
	c.started = true
	c.baseCtx = ctx
	c.wakeScan = make(chan struct{}, 1)

	go c.scanLoop(ctx)
	go c.summaryLoop(ctx)
	return nil
}

//
// ==== CONTROL CALLS ====
//

// TriggerNow starts a scan immediately, independent of the timer.
func (c *Controller) TriggerNow() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if c.fatal != nil {
		c.mu.Unlock()
		return c.fatal
	}
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	runCtx, cancel := context.WithCancel(c.baseCtx)
	c.cancelRun = cancel
	c.mu.Unlock()

	go c.runScan(runCtx, cancel, "manual")
	return nil
}

// Pause stops the timer from firing. An in-flight scan is unaffected.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.nextScanAt = time.Time{}
	log.Printf("scan schedule paused")
}

// Resume re-enables the timer; the next scan fires shortly after.
func (c *Controller) Resume() {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = false
	c.mu.Unlock()

	select {
	case c.wakeScan <- struct{}{}:
	default:
	}
	log.Printf("scan schedule resumed")
}

// CancelCurrent signals the in-flight scan to stop and returns immediately.
// Already-dispatched per-container work finishes; the controller goes back
// to idle once the run records its outcomes. Returns false when nothing was
// running.
func (c *Controller) CancelCurrent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelRun == nil {
		return false
	}
	c.cancelRun()
	log.Printf("cancellation signal sent to running scan")
	return true
}

// TriggerSummaryNow generates a health summary immediately.
func (c *Controller) TriggerSummaryNow() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if c.fatal != nil {
		c.mu.Unlock()
		return c.fatal
	}
	if c.summaryRunning {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.summaryRunning = true
	ctx := c.baseCtx
	c.mu.Unlock()

	go c.runSummary(ctx)
	return nil
}

// State reports the controller state machine: error trumps running trumps
// paused.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.fatal != nil:
		return StateError
	case c.running:
		return StateRunning
	case c.paused:
		return StatePaused
	default:
		return StateIdle
	}
}

// NextRunTime returns when the timer fires next; zero while paused or in
// the error state.
func (c *Controller) NextRunTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fatal != nil {
		return time.Time{}
	}
	return c.nextScanAt
}

// LastScan returns stats for the most recently completed scan.
func (c *Controller) LastScan() RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastScan
}

// LastSummaryAt returns when the summary job last ran.
func (c *Controller) LastSummaryAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSummaryAt
}

//
// ==== WORKERS ====
//

func (c *Controller) scanLoop(ctx context.Context) {
	defer c.recoverFault("scan loop")

	delay := bootDelay
	for {
		c.mu.Lock()
		if c.fatal != nil {
			c.mu.Unlock()
			return
		}
		if c.paused {
			c.nextScanAt = time.Time{}
		} else {
			c.nextScanAt = c.Clock.Now().Add(delay)
		}
		c.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.wakeScan:
			// Resume fires the next scan shortly instead of waiting out
			// the full interval.
			timer.Stop()
			delay = resumeDelay
			continue
		case <-timer.C:
		}

		c.mu.Lock()
		skip := c.paused || c.running
		busy := c.running
		c.mu.Unlock()

		if skip {
			if busy {
				log.Printf("scheduled scan skipped: previous run still active")
			}
		} else if err := c.TriggerNow(); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			log.Printf("scheduled scan trigger failed: %v", err)
		}

		delay = time.Duration(c.Settings.Snapshot().ScanIntervalMinutes) * time.Minute
	}
}

func (c *Controller) runScan(ctx context.Context, cancel context.CancelFunc, trigger string) {
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			c.fatal = fmt.Errorf("scan worker panic: %v", r)
			c.running = false
			c.cancelRun = nil
			c.mu.Unlock()
			log.Printf("FATAL scan worker panic, scheduler stopped: %v", r)
		}
	}()

	log.Printf("starting container log scan (trigger=%s)", trigger)
	stats := RunStats{StartedAt: c.Clock.Now().UTC()}

	// Listing and settings refresh use a detached context so CancelCurrent
	// only stops the per-container loop, never an in-flight call.
	ioCtx := context.WithoutCancel(ctx)
	st, err := c.Settings.Load(ioCtx)
	if err != nil {
		log.Printf("settings reload failed, using last known: %v", err)
		st = c.Settings.Snapshot()
	}

	refs, err := c.Provider.ListActive(ioCtx)
	if err != nil {
		stats.Err = fmt.Sprintf("list containers: %v", err)
		stats.CompletedAt = c.Clock.Now().UTC()
		log.Printf("scan failed: %s", stats.Err)
	} else {
		run := c.Executor.RunOnce(ctx, refs, st)
		stats.Scanned = len(run.Outcomes)
		stats.Unhealthy = run.Unhealthy()
		stats.Errors = run.Errors()
		stats.Cancelled = run.Cancelled
		stats.CompletedAt = run.CompletedAt
		log.Printf("scan finished: scanned=%d unhealthy=%d errors=%d cancelled=%v duration=%s",
			stats.Scanned, stats.Unhealthy, stats.Errors, stats.Cancelled,
			stats.CompletedAt.Sub(stats.StartedAt))
	}

	c.mu.Lock()
	c.lastScan = stats
	c.running = false
	c.cancelRun = nil
	c.mu.Unlock()
}

func (c *Controller) summaryLoop(ctx context.Context) {
	defer c.recoverFault("summary loop")

	for {
		interval := time.Duration(c.Settings.Snapshot().SummaryIntervalHours) * time.Hour
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := c.TriggerSummaryNow(); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			log.Printf("scheduled summary trigger failed: %v", err)
			if c.State() == StateError {
				return
			}
		}
	}
}

func (c *Controller) runSummary(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.summaryRunning = false
		c.mu.Unlock()
		if r := recover(); r != nil {
			c.mu.Lock()
			c.fatal = fmt.Errorf("summary worker panic: %v", r)
			c.mu.Unlock()
			log.Printf("FATAL summary worker panic, scheduler stopped: %v", r)
		}
	}()

	now := c.Clock.Now().UTC()
	st := c.Settings.Snapshot()
	rec := &summaries.Summary{GeneratedAt: now}

	recent, err := c.Repo.ListRecentSince(ctx, now.Add(-summaryLookback), 100)
	switch {
	case err != nil:
		rec.Status = summaries.StatusError
		rec.ErrorText = fmt.Sprintf("list recent abnormalities: %v", err)
	case len(recent) == 0:
		rec.Status = summaries.StatusSkipped
		rec.ErrorText = fmt.Sprintf("no abnormalities in the last %s", summaryLookback)
	default:
		text, err := c.Classifier.Summarize(ctx, recent, st.Model)
		if err != nil {
			rec.Status = summaries.StatusError
			rec.ErrorText = fmt.Sprintf("summarize: %v", err)
		} else {
			rec.Status = summaries.StatusSuccess
			rec.Text = text
		}
	}

	if err := c.Summaries.Save(ctx, rec); err != nil {
		log.Printf("save summary history failed: %v", err)
	}
	log.Printf("summary generated: status=%s", rec.Status)

	c.mu.Lock()
	c.lastSummaryAt = now
	c.mu.Unlock()
}

func (c *Controller) recoverFault(worker string) {
	if r := recover(); r != nil {
		c.mu.Lock()
		c.fatal = fmt.Errorf("%s panic: %v", worker, r)
		c.mu.Unlock()
		log.Printf("FATAL %s panic, scheduler stopped: %v", worker, r)
	}
}
