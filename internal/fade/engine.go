// Package fade animates window opacity during move/resize interactions.
//
// One Engine tracks every window it has ever animated. Lifecycle events
// arrive on whatever thread the platform event source uses; ticks fire on
// scheduler goroutines. A single mutex serializes the record table and
// the apply-opacity/remember-opacity pair, so a new fade always continues
// from the value that was truly applied last, never from a stale target.
package fade

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vicomannen/winfade/internal/platform"
	"github.com/vicomannen/winfade/internal/sched"
)

// Opaque is the alpha level of a fully visible window.
const Opaque byte = 255

// DefaultTickInterval is the cadence of fade ticks (~60-70 updates/s).
const DefaultTickInterval = 15 * time.Millisecond

// Ticker schedules recurring tick callbacks. *sched.Scheduler implements
// it; tests substitute a fake.
type Ticker interface {
	Schedule(every time.Duration, fn func()) (sched.Task, error)
}

// Options holds the validated settings a fade runs with.
type Options struct {
	DragOpacity  byte          // alpha while moving/resizing
	FadeDuration time.Duration // 0 = instantaneous
	TickInterval time.Duration // defaulted to DefaultTickInterval
}

func (o *Options) normalize() {
	if o.FadeDuration < 0 {
		o.FadeDuration = 0
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
}

// record is the animation state for one window.
type record struct {
	active        bool
	startOpacity  byte
	targetOpacity byte
	startTime     time.Time
	duration      time.Duration

	// lastApplied is the engine's own truth of the alpha last written to
	// the window; it is never re-read from the windowing system.
	lastApplied byte

	// tick is non-nil iff active.
	tick sched.Task
}

// Engine is the fade controller.
type Engine struct {
	mu      sync.Mutex
	records map[platform.Window]*record
	opts    Options
	closed  bool

	ws     platform.WindowSystem
	ticker Ticker
	clock  sched.Clock
	log    *zap.Logger
}

// New creates an engine. A nil ticker disables interpolation: every fade
// is applied instantaneously (the degraded mode used when the tick
// facility could not be created).
func New(ws platform.WindowSystem, ticker Ticker, log *zap.Logger, opts Options) *Engine {
	opts.normalize()
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		records: make(map[platform.Window]*record),
		opts:    opts,
		ws:      ws,
		ticker:  ticker,
		clock:   sched.SystemClock,
		log:     log,
	}
}

// UpdateOptions swaps in new settings. In-flight fades keep their old
// endpoints; the next fade uses the new values.
func (e *Engine) UpdateOptions(opts Options) {
	opts.normalize()
	e.mu.Lock()
	e.opts = opts
	e.mu.Unlock()
	e.log.Info("fade options updated",
		zap.Uint8("drag_opacity", opts.DragOpacity),
		zap.Duration("fade_duration", opts.FadeDuration))
}

// HandleEvent is the inbound event port. When enabled is false the event
// passes through untouched. All fades target the window's root ancestor,
// defensive against events delivered to a child window.
func (e *Engine) HandleEvent(w platform.Window, kind platform.EventKind, enabled bool) {
	if !enabled || w == platform.None {
		return
	}
	root := e.ws.RootAncestor(w)
	if root == platform.None {
		root = w
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	switch {
	case kind == platform.InteractionStarted:
		e.startFadeLocked(root, e.opts.DragOpacity, e.opts.FadeDuration)
	case kind.RestoresOpacity():
		// Redundant restore triggers are idempotent: the tween restarts
		// from lastApplied, so re-targeting 255 mid-restore is safe.
		e.startFadeLocked(root, Opaque, e.opts.FadeDuration)
	case kind == platform.WindowDestroyed:
		e.destroyLocked(root)
	}
}

// StartFade begins (or restarts) a fade of w toward target over dur.
func (e *Engine) StartFade(w platform.Window, target byte, dur time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.startFadeLocked(w, target, dur)
}

func (e *Engine) startFadeLocked(w platform.Window, target byte, dur time.Duration) {
	rec := e.records[w]
	if rec == nil {
		rec = &record{lastApplied: Opaque}
		e.records[w] = rec
	}

	if rec.tick != nil {
		rec.tick.Cancel()
		rec.tick = nil
	}

	// Continuity: interrupting a fade starts from what is on screen now,
	// not from the previous fade's target.
	rec.startOpacity = rec.lastApplied
	rec.targetOpacity = target
	rec.startTime = e.clock.Now()
	if dur < 0 {
		dur = 0
	}
	rec.duration = dur

	if rec.duration == 0 || rec.startOpacity == rec.targetOpacity {
		e.finishLocked(w, rec)
		return
	}

	e.ws.SetTranslucent(w, true)
	rec.active = true

	task, err := e.scheduleTick(w)
	if err != nil {
		// Degraded mode: no interpolation, but never a stuck window.
		e.log.Warn("fade tick unavailable, applying opacity instantly",
			zap.Stringer("window", w), zap.Error(err))
		e.finishLocked(w, rec)
		return
	}
	rec.tick = task
	e.log.Debug("fade started",
		zap.Stringer("window", w),
		zap.Uint8("from", rec.startOpacity),
		zap.Uint8("to", rec.targetOpacity),
		zap.Duration("duration", rec.duration))
}

func (e *Engine) scheduleTick(w platform.Window) (sched.Task, error) {
	if e.ticker == nil {
		return nil, sched.ErrClosed
	}
	return e.ticker.Schedule(e.opts.TickInterval, func() { e.Tick(w) })
}

// finishLocked jumps straight to the record's target and settles.
func (e *Engine) finishLocked(w platform.Window, rec *record) {
	e.applyLocked(w, rec, rec.targetOpacity)
	rec.active = false
	e.settleLocked(w, rec)
}

// applyLocked writes an alpha level to the window and remembers it.
// These two must stay atomic under e.mu: a fade started right after must
// observe exactly this value.
func (e *Engine) applyLocked(w platform.Window, rec *record, alpha byte) {
	e.ws.SetTranslucent(w, true)
	e.ws.SetOpacity(w, alpha)
	rec.lastApplied = alpha
}

// settleLocked clears the translucency bit once a window comes to rest
// fully opaque. Idle windows must not keep the bit: some applications
// misbehave with it set even at alpha 255.
func (e *Engine) settleLocked(w platform.Window, rec *record) {
	if rec.targetOpacity == Opaque {
		e.ws.SetTranslucent(w, false)
		rec.lastApplied = Opaque
	}
}

// Tick advances one animation step for w. Invoked by the scheduler; also
// safe to call after cancellation (a ghost tick finds the record inactive
// and does nothing).
func (e *Engine) Tick(w platform.Window) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !e.ws.IsAlive(w) {
		return
	}
	rec := e.records[w]
	if rec == nil || !rec.active {
		return
	}

	t := 1.0
	if rec.duration > 0 {
		t = float64(e.clock.Now().Sub(rec.startTime)) / float64(rec.duration)
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	v := (1-t)*float64(rec.startOpacity) + t*float64(rec.targetOpacity)
	e.applyLocked(w, rec, clampByte(math.Round(v)))

	if t >= 1 {
		if rec.tick != nil {
			rec.tick.Cancel()
			rec.tick = nil
		}
		rec.active = false
		e.settleLocked(w, rec)
		e.log.Debug("fade complete",
			zap.Stringer("window", w), zap.Uint8("alpha", rec.lastApplied))
	}
}

// StopFade halts any fade on w. With forceToTarget the target opacity is
// applied immediately; otherwise the window stays at its last applied
// value.
func (e *Engine) StopFade(w platform.Window, forceToTarget bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.records[w]
	if rec == nil {
		return
	}
	e.stopLocked(w, rec, forceToTarget)
}

func (e *Engine) stopLocked(w platform.Window, rec *record, forceToTarget bool) {
	if rec.tick != nil {
		rec.tick.Cancel()
		rec.tick = nil
	}
	rec.active = false
	if forceToTarget {
		e.applyLocked(w, rec, rec.targetOpacity)
	}
	e.settleLocked(w, rec)
}

// destroyLocked is the WindowDestroyed path: stop, force opaque, clear
// the bit, drop the record. The restore is unconditional so no window is
// ever left transparent by its own teardown.
func (e *Engine) destroyLocked(w platform.Window) {
	if rec := e.records[w]; rec != nil {
		e.stopLocked(w, rec, false)
	}
	failsafe := &record{targetOpacity: Opaque}
	e.applyLocked(w, failsafe, Opaque)
	e.ws.SetTranslucent(w, false)
	delete(e.records, w)
}

// Close cancels every outstanding tick and restores every tracked window
// to full opacity with the translucency bit cleared. Idempotent. Events
// and ticks arriving after Close are no-ops.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for w, rec := range e.records {
		if rec.tick != nil {
			rec.tick.Cancel()
			rec.tick = nil
		}
		wasIdle := !rec.active && rec.lastApplied == Opaque
		rec.active = false
		if !wasIdle && e.ws.IsAlive(w) {
			e.applyLocked(w, rec, Opaque)
			e.ws.SetTranslucent(w, false)
		}
	}
	e.records = make(map[platform.Window]*record)
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
