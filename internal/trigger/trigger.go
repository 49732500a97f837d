// Package trigger aggregates the page-change signals that can invalidate the
// control surface: DOM mutations, in-app URL rewrites, history navigations,
// and the initial page load. None of them reconcile directly; every source
// funnels into the engine's request queue so bursts collapse into single
// passes on the reconciliation goroutine.
package trigger

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mailwing/mailwing/internal/config"
	"github.com/mailwing/mailwing/internal/detect"
	"github.com/mailwing/mailwing/internal/dom"
	"github.com/mailwing/mailwing/internal/host"
	"github.com/mailwing/mailwing/internal/surface"
	"github.com/mailwing/mailwing/internal/tracker"
)

// Scheduler is the slice of the engine the aggregator talks to.
type Scheduler interface {
	// Request enqueues a reconciliation pass. Never blocks.
	Request(reason string)
	// Post schedules fn onto the reconciliation goroutine.
	Post(fn func())
}

// Aggregator fans page-change signals into a Scheduler.
type Aggregator struct {
	page     host.Page
	runtime  host.Runtime
	sched    Scheduler
	tracker  *tracker.Tracker
	detector *detect.Detector
	cfg      config.EngineConfig
	logger   *log.Logger

	mu       sync.Mutex
	lastPass time.Time
	pending  *time.Timer
	burst    []*time.Timer

	wg sync.WaitGroup
}

// New builds an aggregator. The tracker is only ever touched through posted
// continuations, never from the trigger goroutines themselves.
func New(page host.Page, runtime host.Runtime, sched Scheduler, trk *tracker.Tracker, det *detect.Detector, cfg config.EngineConfig, logger *log.Logger) *Aggregator {
	return &Aggregator{
		page:     page,
		runtime:  runtime,
		sched:    sched,
		tracker:  trk,
		detector: det,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start launches all trigger sources and returns a stop function that tears
// them down and waits for their goroutines to exit.
func (a *Aggregator) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	unobserve := a.page.Document().Observe(a.onMutation)

	a.wg.Add(3)
	go a.pollURL(ctx)
	go a.watchNavigations(ctx)
	go a.startupBurst(ctx)

	return func() {
		cancel()
		unobserve()
		a.wg.Wait()
		a.stopTimers()
	}
}

func (a *Aggregator) alive() bool {
	return a.runtime == nil || a.runtime.Valid()
}

// onMutation is the MutationObserver callback. Irrelevant churn is filtered
// out first; what remains is throttled so a burst of relevant mutations
// yields one leading pass plus one trailing pass.
func (a *Aggregator) onMutation(m dom.Mutation) {
	if !a.alive() || !a.relevant(m) {
		return
	}
	throttle := a.cfg.MutationThrottle()

	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	if since := now.Sub(a.lastPass); since >= throttle {
		a.lastPass = now
		a.sched.Request("mutation")
		return
	} else if a.pending == nil {
		a.pending = time.AfterFunc(throttle-since, func() {
			a.mu.Lock()
			a.pending = nil
			a.lastPass = time.Now()
			a.mu.Unlock()
			a.sched.Request("mutation")
		})
	}
}

// relevant decides whether a mutation batch can possibly change the
// classification or the surface's liveness. Losing the surface root always
// matters; beyond that, only nodes that look like conversation or compose
// markup do.
func (a *Aggregator) relevant(m dom.Mutation) bool {
	for _, n := range m.Removed {
		if n.Attr(surface.RootMarker) != "" {
			return true
		}
	}
	sels := a.detector.Selectors()
	interesting := make([]string, 0, len(sels.Compose)+len(sels.EmailContent)+len(sels.ReplyAffordance))
	interesting = append(interesting, sels.Compose...)
	interesting = append(interesting, sels.EmailContent...)
	interesting = append(interesting, sels.ReplyAffordance...)
	for _, n := range m.Added {
		if dom.NodeMatchesAny(n, interesting) {
			return true
		}
	}
	for _, n := range m.Removed {
		if dom.NodeMatchesAny(n, interesting) {
			return true
		}
	}
	return false
}

// pollURL watches for in-app location rewrites the host page performs without
// any history event.
func (a *Aggregator) pollURL(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(a.cfg.URLPollInterval())
	defer ticker.Stop()

	last := a.page.URL()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.alive() {
				return
			}
			cur := a.page.URL()
			if cur == last {
				continue
			}
			last = cur
			a.onNavigation("url_change")
		}
	}
}

// watchNavigations listens for explicit history navigation signals.
func (a *Aggregator) watchNavigations(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-a.page.Navigations():
			if !ok || !a.alive() {
				return
			}
			a.onNavigation("history_nav")
		}
	}
}

// onNavigation resets the tracked thread identity, reconciles immediately,
// and schedules the settle burst. The host page renders the new view over
// several frames, so a single immediate pass would attach to (or give up on)
// a half-built DOM.
func (a *Aggregator) onNavigation(reason string) {
	if a.logger != nil {
		a.logger.Printf("navigation detected (%s): %s", reason, a.page.URL())
	}
	a.sched.Post(a.tracker.ResetIdentity)
	a.sched.Request(reason)

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range a.burst {
		t.Stop()
	}
	a.burst = a.burst[:0]
	for _, d := range a.cfg.NavRetryDelays() {
		a.burst = append(a.burst, time.AfterFunc(d, func() {
			if a.alive() {
				a.sched.Request("nav_settle")
			}
		}))
	}
}

// startupBurst covers the window where the content script loaded before the
// host page finished rendering. Bounded: once the retries are spent the
// steady-state triggers take over.
func (a *Aggregator) startupBurst(ctx context.Context) {
	defer a.wg.Done()
	a.sched.Request("startup")

	retries := a.cfg.StartupRetries
	if retries <= 0 {
		return
	}
	ticker := time.NewTicker(a.cfg.StartupRetryInterval())
	defer ticker.Stop()
	for i := 0; i < retries; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.alive() {
				return
			}
			a.sched.Request("startup_retry")
		}
	}
}

func (a *Aggregator) stopTimers() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending != nil {
		a.pending.Stop()
		a.pending = nil
	}
	for _, t := range a.burst {
		t.Stop()
	}
	a.burst = nil
}
