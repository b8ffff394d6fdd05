package bufferpool

// PinGuard holds one pin on a frame and releases it exactly once. The
// idiomatic pattern is to acquire it and `defer guard.Release()`
// immediately, the same way the rest of this package defers latch and
// mutex releases, rather than relying on any explicit destructor.
type PinGuard struct {
	frame *Frame
}

// Pin increments frame's pin count and returns a guard for releasing it.
func Pin(f *Frame) *PinGuard {
	f.Pin()
	return &PinGuard{frame: f}
}

// Frame returns the pinned frame, or nil if the guard has already been
// released.
func (g *PinGuard) Frame() *Frame {
	if g == nil {
		return nil
	}
	return g.frame
}

// Release unpins the frame. Safe to call more than once or on a nil guard;
// only the first call has any effect.
func (g *PinGuard) Release() {
	if g == nil || g.frame == nil {
		return
	}
	g.frame.Unpin()
	g.frame = nil
}
