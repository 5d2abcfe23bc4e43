package highlight

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lingopane/lingopane-backend/internal/logger"
)

type Pane string

const (
	PaneSource      Pane = "source"
	PaneTranslation Pane = "translation"
)

type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateActive  State = "active"
)

const DefaultDebounce = 50 * time.Millisecond

// Coordinator arbitrates the single highlighted block shared by both panes.
// Hover entry is debounced so fast mouse traversal does not flicker; hover
// leave and blur are immediate so the highlight never sticks after the
// pointer is gone. Keyboard focus bypasses the debounce entirely.
//
// Both panes feed events into one Coordinator and render from the same
// active block id, so a hover in either pane highlights the matching block
// in both.
type Coordinator struct {
	mu       sync.Mutex
	log      *logger.Logger
	debounce time.Duration

	state  State
	target uuid.UUID
	pane   Pane

	timer *time.Timer
	// gen invalidates timers canceled after they were scheduled; a fired
	// timer whose generation no longer matches is ignored.
	gen int

	// onChange fires when the active block changes: (id, true) on
	// activation, (uuid.Nil, false) on return to idle.
	onChange func(blockID uuid.UUID, active bool)
}

func NewCoordinator(log *logger.Logger, debounce time.Duration, onChange func(blockID uuid.UUID, active bool)) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Coordinator{
		log:      log.With("component", "HighlightCoordinator"),
		debounce: debounce,
		state:    StateIdle,
		onChange: onChange,
	}
}

// HoverEnter targets a block for highlighting after the debounce window.
// Entering a different block while pending or active cancels and restarts
// the timer against the new block. Entering the block that is already
// targeted (from either pane) is a no-op.
func (c *Coordinator) HoverEnter(blockID uuid.UUID, pane Pane) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle && c.target == blockID {
		c.pane = pane
		return
	}

	wasActive := c.state == StateActive
	c.cancelTimerLocked()
	c.state = StatePending
	c.target = blockID
	c.pane = pane
	if wasActive {
		c.notifyLocked(uuid.Nil, false)
	}
	c.armTimerLocked(blockID)
}

// HoverLeave clears the highlight immediately when the left block is the
// one currently pending or active. Leave is never debounced.
func (c *Coordinator) HoverLeave(blockID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle || c.target != blockID {
		return
	}
	wasActive := c.state == StateActive
	c.cancelTimerLocked()
	c.state = StateIdle
	c.target = uuid.Nil
	if wasActive {
		c.notifyLocked(uuid.Nil, false)
	}
}

// Focus activates the block immediately, bypassing the debounce. Keyboard
// navigation must highlight without delay.
func (c *Coordinator) Focus(blockID uuid.UUID, pane Pane) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateActive && c.target == blockID {
		c.pane = pane
		return
	}
	c.cancelTimerLocked()
	c.state = StateActive
	c.target = blockID
	c.pane = pane
	c.notifyLocked(blockID, true)
}

// Blur clears the highlight if the blurred block is the current target.
func (c *Coordinator) Blur(blockID uuid.UUID) {
	c.HoverLeave(blockID)
}

// Active returns the currently highlighted block id, if any.
func (c *Coordinator) Active() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return uuid.Nil, false
	}
	return c.target, true
}

// Stop cancels any pending timer and resets to idle. Used when the session
// discards its document.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasActive := c.state == StateActive
	c.cancelTimerLocked()
	c.state = StateIdle
	c.target = uuid.Nil
	if wasActive {
		c.notifyLocked(uuid.Nil, false)
	}
}

func (c *Coordinator) armTimerLocked(blockID uuid.UUID) {
	gen := c.gen
	c.timer = time.AfterFunc(c.debounce, func() {
		c.fire(blockID, gen)
	})
}

func (c *Coordinator) fire(blockID uuid.UUID, gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != StatePending || c.target != blockID {
		return
	}
	c.state = StateActive
	c.timer = nil
	c.notifyLocked(blockID, true)
}

func (c *Coordinator) cancelTimerLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) notifyLocked(blockID uuid.UUID, active bool) {
	if c.onChange == nil {
		return
	}
	// Invoked with the lock held; the callback must not call back into
	// the coordinator.
	c.onChange(blockID, active)
}
