package consensus

import (
	"sync"
	"time"

	"github.com/tendermint/tendermint/libs/log"

	"dualbft/types"
)

// Tick is what the Timer delivers when a scheduled delay elapses: the
// (height, view) it was armed for, so a Service can discard a stale tick
// that fires after the round already moved on.
type Tick struct {
	Height types.Height
	View   types.View
}

// Timer is a single cancellable delayed event source, generalizing the
// interface shape of consensus/slot.go's Slot (GetSlot/Chan/Reset) from a
// free-running logical clock into an explicit (height, view)-tagged alarm:
// there is exactly one pending tick at a time, and Reset replaces it.
//
// The retrieval pack references a SlotClock implementation of that
// interface (consensus/slot.go, consensus/slot_test.go) that was never
// delivered; this rebuilds the same role directly on time.AfterFunc, the
// mechanism tendermint's own timeoutTicker uses.
type Timer struct {
	mtx    sync.Mutex
	timer  *time.Timer
	ch     chan Tick
	logger log.Logger
}

func NewTimer() *Timer {
	return &Timer{
		ch:     make(chan Tick, 1),
		logger: log.NewNopLogger(),
	}
}

func (t *Timer) SetLogger(logger log.Logger) { t.logger = logger }

// Chan is the channel a Service selects on for timeout events.
func (t *Timer) Chan() <-chan Tick { return t.ch }

// Reset cancels any pending tick and arms a new one for (height, view)
// after d. A non-positive d fires immediately.
func (t *Timer) Reset(d time.Duration, height types.Height, view types.View) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	if d < 0 {
		d = 0
	}
	t.logger.Debug("arming timer", "duration", d, "height", height, "view", view)
	t.timer = time.AfterFunc(d, func() {
		tick := Tick{Height: height, View: view}
		select {
		case t.ch <- tick:
		default:
			// a stale tick nobody drained yet; drop it for the new one
			select {
			case <-t.ch:
			default:
			}
			select {
			case t.ch <- tick:
			default:
			}
		}
	})
}

// Stop cancels any pending tick without arming a new one.
func (t *Timer) Stop() {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
