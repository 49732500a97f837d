// Package tracker owns the attachment state machine: whether the injected
// control surface exists, whether it is still attached to the live page, and
// whether it belongs to the conversation the page is currently showing. It is
// the only component allowed to create or destroy the surface.
package tracker

import (
	"context"
	"errors"
	"log"

	"github.com/mailwing/mailwing/internal/detect"
	"github.com/mailwing/mailwing/internal/host"
	"github.com/mailwing/mailwing/internal/services"
	"github.com/mailwing/mailwing/internal/surface"
)

// State is the tracker's attachment state.
type State int

const (
	// Detached means no control surface is owned.
	Detached State = iota
	// Attached means a control surface exists for the tracked thread.
	Attached
)

// Tracker reconciles attachment state against the live page. All methods
// must run on the reconciliation goroutine; asynchronous work re-enters
// through the post function with its own re-validation.
type Tracker struct {
	page      host.Page
	detector  *detect.Detector
	presenter surface.Presenter
	prefs     services.PrefsService
	audit     services.AuditService
	logger    *log.Logger

	// post schedules a continuation back onto the reconciliation
	// goroutine. When nil (single-pass use, e.g. the snapshot CLI),
	// asynchronous refreshes run inline instead.
	post func(func())

	state    State
	threadID string
	// epoch increments on every attach/detach/reset so a continuation
	// captured before a transition can recognize it is stale even when the
	// thread identity happens to match again.
	epoch uint64
}

// New builds a tracker over the given collaborators.
func New(page host.Page, detector *detect.Detector, presenter surface.Presenter, prefs services.PrefsService, audit services.AuditService, logger *log.Logger) *Tracker {
	return &Tracker{
		page:      page,
		detector:  detector,
		presenter: presenter,
		prefs:     prefs,
		audit:     audit,
		logger:    logger,
	}
}

// SetPost wires the reconciliation-goroutine scheduler.
func (t *Tracker) SetPost(post func(func())) { t.post = post }

// State returns the current attachment state and tracked thread identity.
func (t *Tracker) State() (State, string) { return t.state, t.threadID }

// ResetIdentity drops the tracked thread identity after a URL change or
// history navigation. The next reconciliation re-derives everything from the
// page instead of trusting state captured before the navigation.
func (t *Tracker) ResetIdentity() {
	if t.state == Attached {
		t.threadID = ""
	}
	t.epoch++
}

// Reconcile runs one full classify → resolve → compare → act pass. It is
// idempotent: with no intervening page change a second pass performs no DOM
// mutation. It never panics; a pass that cannot place the surface leaves the
// tracker Detached for a later trigger to retry.
func (t *Tracker) Reconcile(ctx context.Context) {
	view := t.detector.Classify()

	if view == detect.ListView {
		// Only destroy on an unambiguous list view: mid-navigation the DOM
		// passes through states where content is gone but the next view has
		// not rendered, and destroying there causes flicker.
		if t.state == Attached && t.detector.DefinitelyListView() {
			t.detach(ctx, "list_view")
		}
		return
	}

	tid := t.detector.ThreadID()

	if t.state == Attached && t.threadID != tid {
		// The conversation changed underneath the same page instance.
		t.detach(ctx, "thread_changed")
	}

	if t.state == Detached || !t.presenter.Live() {
		t.attach(ctx, tid, view)
		return
	}

	// Attached to the current thread with a live surface: the only work
	// left is keeping the toggle label in sync with the stored preference.
	t.refreshToggle(ctx, tid)
}

func (t *Tracker) attach(ctx context.Context, tid string, view detect.ViewState) {
	anchor, mode, strategy := t.findAnchor(view)
	if anchor == nil {
		if t.logger != nil {
			t.logger.Printf("no insertion anchor found (view=%s); staying detached", view)
		}
		t.state = Detached
		t.threadID = ""
		t.epoch++
		return
	}
	if err := t.presenter.Attach(anchor, mode); err != nil {
		if t.logger != nil {
			t.logger.Printf("control surface attach failed at %s: %v", strategy, err)
		}
		t.state = Detached
		t.threadID = ""
		t.epoch++
		return
	}
	t.state = Attached
	t.threadID = tid
	t.epoch++
	if t.audit != nil {
		t.audit.Record(ctx, "surface_attached", tid, strategy)
	}
	t.refreshToggle(ctx, tid)
}

func (t *Tracker) detach(ctx context.Context, reason string) {
	t.presenter.Detach()
	if t.audit != nil {
		t.audit.Record(ctx, "surface_detached", t.threadID, reason)
	}
	t.state = Detached
	t.threadID = ""
	t.epoch++
}

// refreshToggle reads the per-thread preference and updates the toggle label.
// The read suspends; by the time it completes the page may show a different
// thread, so the continuation re-validates identity and epoch before touching
// the surface. A stale completion is discarded, never applied.
func (t *Tracker) refreshToggle(ctx context.Context, tid string) {
	if t.prefs == nil {
		return
	}
	if t.post == nil {
		enabled, _ := t.prefs.ThreadEnabled(ctx, tid)
		t.presenter.SetEnabled(enabled)
		return
	}
	epoch := t.epoch
	go func() {
		enabled, _ := t.prefs.ThreadEnabled(ctx, tid)
		t.post(func() {
			if t.state != Attached || t.threadID != tid || t.epoch != epoch {
				return
			}
			if !t.presenter.Live() {
				return
			}
			t.presenter.SetEnabled(enabled)
		})
	}()
}

// HandleToggle flips the per-thread preference in response to a toggle click.
// Must run on the reconciliation goroutine.
func (t *Tracker) HandleToggle(ctx context.Context) {
	if t.state != Attached || t.prefs == nil {
		return
	}
	tid := t.threadID
	epoch := t.epoch
	flip := func() {
		enabled, _ := t.prefs.ThreadEnabled(ctx, tid)
		next := !enabled
		err := t.prefs.SetThreadEnabled(ctx, tid, next)
		if err != nil && t.logger != nil {
			t.logger.Printf("toggle write failed for %q: %v", tid, err)
		}
		if err == nil && t.audit != nil {
			t.audit.Record(ctx, "thread_toggled", tid, boolLabel(next))
		}
		apply := func() {
			if errors.Is(err, services.ErrRuntimeInvalid) {
				// The user clicked and is waiting on this; a dropped
				// write must not dress up as a successful flip.
				t.presenter.NoticeReload()
				return
			}
			if err != nil {
				return
			}
			if t.state != Attached || t.threadID != tid || t.epoch != epoch {
				return
			}
			t.presenter.SetEnabled(next)
		}
		if t.post == nil {
			apply()
		} else {
			t.post(apply)
		}
	}
	if t.post == nil {
		flip()
	} else {
		go flip()
	}
}

// NotifyRuntimeGone surfaces the page-reload notice after a user-initiated
// action hit a torn-down extension runtime. Must run on the reconciliation
// goroutine.
func (t *Tracker) NotifyRuntimeGone() {
	t.presenter.NoticeReload()
}

func boolLabel(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
