package fade

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicomannen/winfade/internal/platform"
	"github.com/vicomannen/winfade/internal/sched"
)

const testWin = platform.Window(0x1234)

type fakeWindowSystem struct {
	mu          sync.Mutex
	root        map[platform.Window]platform.Window
	dead        map[platform.Window]bool
	translucent map[platform.Window]bool
	opacity     map[platform.Window]byte
	applied     []byte
}

func newFakeWindowSystem() *fakeWindowSystem {
	return &fakeWindowSystem{
		root:        make(map[platform.Window]platform.Window),
		dead:        make(map[platform.Window]bool),
		translucent: make(map[platform.Window]bool),
		opacity:     make(map[platform.Window]byte),
	}
}

func (f *fakeWindowSystem) RootAncestor(w platform.Window) platform.Window {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.root[w]; ok {
		return r
	}
	return w
}

func (f *fakeWindowSystem) IsAlive(w platform.Window) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dead[w]
}

func (f *fakeWindowSystem) SetTranslucent(w platform.Window, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.translucent[w] = on
}

func (f *fakeWindowSystem) SetOpacity(w platform.Window, alpha byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opacity[w] = alpha
	f.applied = append(f.applied, alpha)
}

func (f *fakeWindowSystem) appliedValues() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.applied))
	copy(out, f.applied)
	return out
}

func (f *fakeWindowSystem) currentOpacity(w platform.Window) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opacity[w]
}

func (f *fakeWindowSystem) isTranslucent(w platform.Window) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.translucent[w]
}

type fakeTask struct {
	mu        sync.Mutex
	cancelled bool
	fn        func()
}

func (t *fakeTask) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

func (t *fakeTask) isCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

type fakeTicker struct {
	mu    sync.Mutex
	tasks []*fakeTask
	err   error
}

func (f *fakeTicker) Schedule(every time.Duration, fn func()) (sched.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t := &fakeTask{fn: fn}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeTicker) scheduledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *fakeTicker) activeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if !t.isCancelled() {
			n++
		}
	}
	return n
}

func (f *fakeTicker) lastTask() *fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tasks) == 0 {
		return nil
	}
	return f.tasks[len(f.tasks)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T) (*Engine, *fakeWindowSystem, *fakeTicker, *fakeClock) {
	t.Helper()
	ws := newFakeWindowSystem()
	ticker := &fakeTicker{}
	clock := newFakeClock()
	e := New(ws, ticker, nil, Options{DragOpacity: 120, FadeDuration: 100 * time.Millisecond})
	e.clock = clock
	return e, ws, ticker, clock
}

func TestStartFade_ZeroDuration_AppliesSynchronously(t *testing.T) {
	e, ws, ticker, _ := newTestEngine(t)

	e.StartFade(testWin, 120, 0)

	assert.Equal(t, byte(120), ws.currentOpacity(testWin))
	assert.True(t, ws.isTranslucent(testWin))
	assert.Equal(t, 0, ticker.scheduledCount(), "no tick for a zero-duration fade")
}

func TestStartFade_AlreadyAtTarget_NoTick(t *testing.T) {
	e, ws, ticker, _ := newTestEngine(t)

	// A never-animated window starts at 255, so fading to 255 is a no-op
	// fast path that must also leave the translucency bit clear.
	e.StartFade(testWin, Opaque, 100*time.Millisecond)

	assert.Equal(t, 0, ticker.scheduledCount())
	assert.False(t, ws.isTranslucent(testWin))
	assert.Equal(t, byte(Opaque), ws.currentOpacity(testWin))
}

func TestFade_LinearInterpolation(t *testing.T) {
	e, ws, ticker, clock := newTestEngine(t)

	e.StartFade(testWin, 120, 100*time.Millisecond)
	require.Equal(t, 1, ticker.scheduledCount())
	assert.True(t, ws.isTranslucent(testWin))

	task := ticker.lastTask()

	clock.Advance(25 * time.Millisecond)
	task.fn()
	assert.Equal(t, byte(221), ws.currentOpacity(testWin)) // 255 - 0.25*135 = 221.25

	clock.Advance(25 * time.Millisecond)
	task.fn()
	assert.Equal(t, byte(188), ws.currentOpacity(testWin)) // 187.5 rounds up

	clock.Advance(50 * time.Millisecond)
	task.fn()
	assert.Equal(t, byte(120), ws.currentOpacity(testWin))
	assert.True(t, task.isCancelled(), "completed fade cancels its own tick")
	assert.True(t, ws.isTranslucent(testWin), "bit stays set while below 255")
}

func TestFade_BoundsHold(t *testing.T) {
	e, ws, ticker, clock := newTestEngine(t)

	e.StartFade(testWin, 40, 90*time.Millisecond)
	task := ticker.lastTask()
	require.NotNil(t, task)

	for i := 0; i < 12; i++ {
		clock.Advance(10 * time.Millisecond)
		task.fn()
	}

	for _, v := range ws.appliedValues() {
		assert.GreaterOrEqual(t, v, byte(40))
		assert.LessOrEqual(t, v, byte(255))
	}
	assert.Equal(t, byte(40), ws.currentOpacity(testWin))
}

func TestFade_MonotonicConvergence(t *testing.T) {
	e, ws, ticker, clock := newTestEngine(t)

	e.StartFade(testWin, 0, 100*time.Millisecond)
	task := ticker.lastTask()
	require.NotNil(t, task)

	var prev byte = 255
	for i := 0; i < 10; i++ {
		clock.Advance(15 * time.Millisecond)
		task.fn()
		cur := ws.currentOpacity(testWin)
		assert.LessOrEqual(t, cur, prev, "downward fade never moves up")
		prev = cur
	}
	assert.Equal(t, byte(0), ws.currentOpacity(testWin))
}

func TestFade_ToOpaque_ClearsTranslucency(t *testing.T) {
	e, ws, _, clock := newTestEngine(t)

	e.StartFade(testWin, 120, 0)
	require.True(t, ws.isTranslucent(testWin))

	e.StartFade(testWin, Opaque, 50*time.Millisecond)
	clock.Advance(50 * time.Millisecond)
	e.Tick(testWin)

	assert.Equal(t, byte(Opaque), ws.currentOpacity(testWin))
	assert.False(t, ws.isTranslucent(testWin), "opaque at rest releases the bit")
}

func TestReversalContinuity(t *testing.T) {
	e, ws, ticker, clock := newTestEngine(t)

	e.StartFade(testWin, 120, 100*time.Millisecond)
	task := ticker.lastTask()

	clock.Advance(50 * time.Millisecond)
	task.fn()
	mid := ws.currentOpacity(testWin)
	require.Equal(t, byte(188), mid)

	// Reversing mid-fade continues from the value on screen, not from
	// either endpoint.
	e.StartFade(testWin, Opaque, 100*time.Millisecond)
	require.True(t, task.isCancelled())

	rec := e.records[testWin]
	assert.Equal(t, mid, rec.startOpacity)

	task = ticker.lastTask()
	clock.Advance(50 * time.Millisecond)
	task.fn()
	halfway := ws.currentOpacity(testWin)
	assert.GreaterOrEqual(t, halfway, mid)
	assert.Less(t, halfway, byte(255))
}

func TestRestore_Idempotent(t *testing.T) {
	e, ws, ticker, clock := newTestEngine(t)

	e.StartFade(testWin, 120, 0)
	e.StartFade(testWin, Opaque, 100*time.Millisecond)
	e.StartFade(testWin, Opaque, 100*time.Millisecond)

	assert.Equal(t, 1, ticker.activeCount(), "duplicate restore leaves at most one live tick")

	task := ticker.lastTask()
	clock.Advance(100 * time.Millisecond)
	task.fn()

	assert.Equal(t, byte(Opaque), ws.currentOpacity(testWin))
	assert.False(t, ws.isTranslucent(testWin))
}

func TestGhostTick_NoOp(t *testing.T) {
	e, ws, ticker, clock := newTestEngine(t)

	e.StartFade(testWin, 120, 100*time.Millisecond)
	task := ticker.lastTask()

	e.StopFade(testWin, false)
	require.True(t, task.isCancelled())
	before := len(ws.appliedValues())

	// A tick already dispatched when Cancel ran may still fire once; it
	// must see the inactive record and touch nothing.
	clock.Advance(15 * time.Millisecond)
	task.fn()

	assert.Equal(t, before, len(ws.appliedValues()))
}

func TestTick_DeadWindow_NoOp(t *testing.T) {
	e, ws, ticker, clock := newTestEngine(t)

	e.StartFade(testWin, 120, 100*time.Millisecond)
	task := ticker.lastTask()
	before := len(ws.appliedValues())

	ws.mu.Lock()
	ws.dead[testWin] = true
	ws.mu.Unlock()

	clock.Advance(15 * time.Millisecond)
	task.fn()

	assert.Equal(t, before, len(ws.appliedValues()))
}

func TestStopFade_ForceToTarget(t *testing.T) {
	e, ws, _, _ := newTestEngine(t)

	e.StartFade(testWin, 120, 100*time.Millisecond)
	e.StopFade(testWin, true)

	assert.Equal(t, byte(120), ws.currentOpacity(testWin))
	assert.True(t, ws.isTranslucent(testWin))
}

func TestSchedulerFailure_DegradesToInstant(t *testing.T) {
	ws := newFakeWindowSystem()
	ticker := &fakeTicker{err: errors.New("no timers")}
	e := New(ws, ticker, nil, Options{DragOpacity: 120, FadeDuration: 100 * time.Millisecond})

	e.StartFade(testWin, 120, 100*time.Millisecond)

	assert.Equal(t, byte(120), ws.currentOpacity(testWin), "degrades to instantaneous application")
}

func TestNilTicker_DegradesToInstant(t *testing.T) {
	ws := newFakeWindowSystem()
	e := New(ws, nil, nil, Options{DragOpacity: 120, FadeDuration: 100 * time.Millisecond})

	e.StartFade(testWin, 120, 100*time.Millisecond)

	assert.Equal(t, byte(120), ws.currentOpacity(testWin))
}

func TestHandleEvent_Disabled_Passthrough(t *testing.T) {
	e, ws, ticker, _ := newTestEngine(t)

	e.HandleEvent(testWin, platform.InteractionStarted, false)

	assert.Empty(t, ws.appliedValues())
	assert.Equal(t, 0, ticker.scheduledCount())
}

func TestHandleEvent_TargetsRootAncestor(t *testing.T) {
	e, ws, _, clock := newTestEngine(t)
	child := platform.Window(0x5678)
	ws.root[child] = testWin

	e.HandleEvent(child, platform.InteractionStarted, true)
	rec := e.records[testWin]
	require.NotNil(t, rec, "fade is tracked on the root, not the child")

	clock.Advance(100 * time.Millisecond)
	e.Tick(testWin)
	assert.Equal(t, byte(120), ws.currentOpacity(testWin))
	assert.Equal(t, byte(0), ws.currentOpacity(child))
}

func TestHandleEvent_AbortVariantsRestoreOpacity(t *testing.T) {
	kinds := []platform.EventKind{
		platform.InteractionEnded,
		platform.CaptureChanged,
		platform.OperationCancelled,
		platform.CaptionDragRelease,
	}
	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			e, ws, _, clock := newTestEngine(t)

			e.HandleEvent(testWin, platform.InteractionStarted, true)
			clock.Advance(100 * time.Millisecond)
			e.Tick(testWin)
			require.Equal(t, byte(120), ws.currentOpacity(testWin))

			e.HandleEvent(testWin, kind, true)
			clock.Advance(100 * time.Millisecond)
			e.Tick(testWin)

			assert.Equal(t, byte(Opaque), ws.currentOpacity(testWin))
			assert.False(t, ws.isTranslucent(testWin))
		})
	}
}

func TestWindowDestroyed_FailSafe(t *testing.T) {
	e, ws, ticker, clock := newTestEngine(t)

	e.HandleEvent(testWin, platform.InteractionStarted, true)
	task := ticker.lastTask()
	clock.Advance(50 * time.Millisecond)
	task.fn()
	require.Less(t, ws.currentOpacity(testWin), byte(255))

	e.HandleEvent(testWin, platform.WindowDestroyed, true)

	assert.True(t, task.isCancelled())
	assert.Equal(t, byte(Opaque), ws.currentOpacity(testWin))
	assert.False(t, ws.isTranslucent(testWin))
	assert.NotContains(t, e.records, testWin, "record is erased with its window")
}

func TestWindowDestroyed_UntrackedWindow(t *testing.T) {
	e, ws, _, _ := newTestEngine(t)

	// Destruction of a window never animated still forces opacity as a
	// fail-safe.
	e.HandleEvent(testWin, platform.WindowDestroyed, true)

	assert.Equal(t, byte(Opaque), ws.currentOpacity(testWin))
	assert.False(t, ws.isTranslucent(testWin))
}

func TestUpdateOptions_AppliesToNextFade(t *testing.T) {
	e, ws, ticker, _ := newTestEngine(t)

	e.UpdateOptions(Options{DragOpacity: 200, FadeDuration: 0})
	e.HandleEvent(testWin, platform.InteractionStarted, true)

	assert.Equal(t, byte(200), ws.currentOpacity(testWin))
	assert.Equal(t, 0, ticker.scheduledCount())
}

func TestClose_RestoresAndStops(t *testing.T) {
	e, ws, ticker, _ := newTestEngine(t)

	e.StartFade(testWin, 120, 100*time.Millisecond)
	task := ticker.lastTask()

	e.Close()

	assert.True(t, task.isCancelled())
	assert.Equal(t, byte(Opaque), ws.currentOpacity(testWin))
	assert.False(t, ws.isTranslucent(testWin))

	// Post-close events and ticks are no-ops.
	before := len(ws.appliedValues())
	e.StartFade(testWin, 120, 0)
	e.Tick(testWin)
	assert.Equal(t, before, len(ws.appliedValues()))
}
