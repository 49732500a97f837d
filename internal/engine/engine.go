// Package engine runs the reconciliation loop. Everything that reads or
// mutates the page goes through a single goroutine: triggers enqueue
// reconciliation requests, asynchronous completions re-enter through Post,
// and the loop applies them one at a time so no DOM access ever races.
package engine

import (
	"context"
	"errors"
	"log"

	"github.com/mailwing/mailwing/internal/detect"
	"github.com/mailwing/mailwing/internal/extract"
	"github.com/mailwing/mailwing/internal/host"
	"github.com/mailwing/mailwing/internal/services"
	"github.com/mailwing/mailwing/internal/tracker"
)

const (
	requestBuffer = 16
	callBuffer    = 64
)

// Engine owns the reconciliation goroutine.
type Engine struct {
	runtime host.Runtime
	page    host.Page
	tracker *tracker.Tracker
	detect  *detect.Detector
	replies services.ReplyService
	logger  *log.Logger

	// maxChars caps how much conversation text is lifted from the page
	// before it is handed to the reply service.
	maxChars int

	reqs  chan string
	calls chan func()

	draftHandler func(threadID, text string)
}

// New builds an engine and wires the tracker's continuation scheduler to it.
func New(runtime host.Runtime, page host.Page, trk *tracker.Tracker, det *detect.Detector, replies services.ReplyService, maxChars int, logger *log.Logger) *Engine {
	e := &Engine{
		runtime:  runtime,
		page:     page,
		tracker:  trk,
		detect:   det,
		replies:  replies,
		logger:   logger,
		maxChars: maxChars,
		reqs:     make(chan string, requestBuffer),
		calls:    make(chan func(), callBuffer),
	}
	trk.SetPost(e.Post)
	return e
}

// SetDraftHandler registers the callback that receives generated drafts. It
// is invoked on the engine goroutine with the thread the draft belongs to.
func (e *Engine) SetDraftHandler(fn func(threadID, text string)) { e.draftHandler = fn }

// Request asks for a reconciliation pass. Non-blocking: a full queue means a
// pass is already pending, and one pass serves any number of requests.
func (e *Engine) Request(reason string) {
	select {
	case e.reqs <- reason:
	default:
	}
}

// Post schedules fn onto the engine goroutine. Safe from any goroutine.
func (e *Engine) Post(fn func()) {
	select {
	case e.calls <- fn:
	default:
		if e.logger != nil {
			e.logger.Printf("call queue full; dropping continuation")
		}
	}
}

// Run processes requests and continuations until the context is canceled or
// the extension runtime is invalidated. On invalidation it returns without
// touching the page again: the orphaned content script must go quiet, not
// throw.
func (e *Engine) Run(ctx context.Context) {
	for {
		if e.runtime != nil && !e.runtime.Valid() {
			if e.logger != nil {
				e.logger.Printf("runtime invalidated; reconciliation loop stopping")
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case reason := <-e.reqs:
			e.drain()
			if e.logger != nil {
				e.logger.Printf("reconcile (trigger=%s)", reason)
			}
			e.tracker.Reconcile(ctx)
		case fn := <-e.calls:
			fn()
		}
	}
}

// drain collapses a burst of queued requests into the pass about to run.
func (e *Engine) drain() {
	for {
		select {
		case <-e.reqs:
		default:
			return
		}
	}
}

// RunOnce performs a single reconciliation pass and applies any continuations
// already queued. Used by the snapshot CLI, which has no long-lived loop.
func (e *Engine) RunOnce(ctx context.Context) {
	e.tracker.Reconcile(ctx)
	for {
		select {
		case fn := <-e.calls:
			fn()
		default:
			return
		}
	}
}

// HandleGenerate services a click on the generate control. It captures the
// conversation text synchronously (DOM access stays on the engine goroutine),
// runs the provider call off-loop, and re-validates thread identity before
// delivering the draft. A draft for a thread the user has already left is
// dropped.
func (e *Engine) HandleGenerate(ctx context.Context) {
	if e.runtime != nil && !e.runtime.Valid() {
		// The user is waiting on this click; tell them instead of
		// going quiet like background work does.
		e.tracker.NotifyRuntimeGone()
		return
	}
	state, tid := e.tracker.State()
	if state != tracker.Attached || e.replies == nil {
		return
	}

	body, err := extract.MessageText(e.page.Document(), e.detect.Selectors().MessageBody, e.maxChars)
	if err != nil {
		if e.logger != nil {
			e.logger.Printf("generate skipped for %q: %v", tid, err)
		}
		return
	}

	go func() {
		result, err := e.replies.GenerateReply(ctx, body, services.ReplyOptions{ThreadID: tid})
		e.Post(func() {
			if err != nil {
				if errors.Is(err, services.ErrRuntimeInvalid) {
					// The runtime died while the provider call was in
					// flight.
					e.tracker.NotifyRuntimeGone()
				}
				if e.logger != nil {
					e.logger.Printf("reply generation failed for %q: %v", tid, err)
				}
				return
			}
			if state, cur := e.tracker.State(); state != tracker.Attached || cur != tid {
				if e.logger != nil {
					e.logger.Printf("dropping draft for %q: thread changed during generation", tid)
				}
				return
			}
			if e.draftHandler != nil {
				e.draftHandler(tid, result.Text)
			}
		})
	}()
}

// HandleToggle forwards a toggle click to the tracker on the engine
// goroutine.
func (e *Engine) HandleToggle(ctx context.Context) {
	e.Post(func() { e.tracker.HandleToggle(ctx) })
}
