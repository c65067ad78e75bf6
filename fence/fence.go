// Package fence describes the present-fence primitive the display backend
// hands back to the frame timeline. The timeline never creates or signals a
// fence; it only polls one.
package fence

import "time"

// Fence reports when a piece of GPU/display work completed.
//
// SignalTime returns the signal timestamp once known. While unsignaled it
// returns (0, false). A signaled fence's time never changes and is
// monotonic relative to other fences the same caller observes.
type Fence interface {
	SignalTime() (nsecs int64, signaled bool)
}

// Presignaled returns a Fence that reports the given time as already
// signaled. Used where a display frame finalizes with no real fence (a null
// present fence, or the implicit finalize of a prior frame on a new wake-up).
func Presignaled(nsecs int64) Fence {
	return presignaled(nsecs)
}

type presignaled int64

func (p presignaled) SignalTime() (int64, bool) { return int64(p), true }

// Manual is a test/harness fence whose signal time is set explicitly by the
// caller, mirroring how a real display fence transitions from unsignaled to
// signaled asynchronously.
type Manual struct {
	nsecs    int64
	signaled bool
}

// NewManual returns an unsignaled fence.
func NewManual() *Manual {
	return &Manual{}
}

// Signal marks the fence as signaled at t.
func (m *Manual) Signal(t time.Time) {
	m.nsecs = t.UnixNano()
	m.signaled = true
}

// SignalAt marks the fence as signaled at the given absolute nanosecond time.
func (m *Manual) SignalAt(nsecs int64) {
	m.nsecs = nsecs
	m.signaled = true
}

// SignalTime implements Fence.
func (m *Manual) SignalTime() (int64, bool) {
	if !m.signaled {
		return 0, false
	}
	return m.nsecs, true
}
