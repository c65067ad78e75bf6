// Package engine implements the token registry, the SurfaceFrame and
// DisplayFrame state machines, the jank classifier, and the pending-present
// drain that make up the frame timeline engine. It is internal:
// callers use the root frametimeline package, which re-exports the types
// below as a stable contract.
package engine

import "strings"

// InvalidToken is the sentinel token value meaning "no token". The first
// token TokenManager ever issues is InvalidToken+1.
const InvalidToken int64 = -1

// TimelineItem is a (start, end, present) timestamp triple in nanoseconds,
// used for both predictions and actuals. Zero means "not yet set".
type TimelineItem struct {
	StartTime   int64
	EndTime     int64
	PresentTime int64
}

// Equal reports componentwise equality.
func (t TimelineItem) Equal(o TimelineItem) bool {
	return t.StartTime == o.StartTime && t.EndTime == o.EndTime && t.PresentTime == o.PresentTime
}

// baseTime returns the smallest non-zero timestamp in t, or 0 if every
// field is zero.
func (t TimelineItem) baseTime() (int64, bool) {
	min, found := int64(0), false
	consider := func(v int64) {
		if v == 0 {
			return
		}
		if !found || v < min {
			min, found = v, true
		}
	}
	consider(t.StartTime)
	consider(t.EndTime)
	consider(t.PresentTime)
	return min, found
}

// PredictionState describes where a frame's predictions came from.
type PredictionState int8

const (
	// PredictionNone means no token was supplied.
	PredictionNone PredictionState = iota
	// PredictionValid means the predictions were resolved from the live
	// TokenManager registry.
	PredictionValid
	// PredictionExpired means a token was supplied but the registry does
	// not hold it: it has expired, or it was never issued.
	PredictionExpired
)

func (s PredictionState) String() string {
	switch s {
	case PredictionValid:
		return "Valid"
	case PredictionExpired:
		return "Expired"
	default:
		return "None"
	}
}

// PresentState is a SurfaceFrame's disposition once SurfaceFlinger has seen
// its buffer.
type PresentState int8

const (
	// PresentUnknown is the initial state: SurfaceFlinger hasn't seen
	// this buffer yet.
	PresentUnknown PresentState = iota
	// PresentPresented means the buffer was latched and composited.
	PresentPresented
	// PresentDropped means the buffer was latched but superseded, or
	// never shown.
	PresentDropped
)

func (s PresentState) String() string {
	switch s {
	case PresentPresented:
		return "Presented"
	case PresentDropped:
		return "Dropped"
	default:
		return "Unknown"
	}
}

// FrameStartMetadata compares an actual start time to its prediction.
type FrameStartMetadata int8

const (
	UnknownStart FrameStartMetadata = iota
	OnTimeStart
	LateStart
	EarlyStart
)

func (m FrameStartMetadata) String() string {
	switch m {
	case OnTimeStart:
		return "OnTimeStart"
	case LateStart:
		return "LateStart"
	case EarlyStart:
		return "EarlyStart"
	default:
		return "UnknownStart"
	}
}

// FrameReadyMetadata compares an actual finish time to its predicted
// deadline. Early is treated as on time.
type FrameReadyMetadata int8

const (
	UnknownFinish FrameReadyMetadata = iota
	OnTimeFinish
	LateFinish
)

func (m FrameReadyMetadata) String() string {
	switch m {
	case OnTimeFinish:
		return "OnTimeFinish"
	case LateFinish:
		return "LateFinish"
	default:
		return "UnknownFinish"
	}
}

// FramePresentMetadata compares an actual present time to its prediction.
type FramePresentMetadata int8

const (
	UnknownPresent FramePresentMetadata = iota
	OnTimePresent
	LatePresent
	EarlyPresent
)

func (m FramePresentMetadata) String() string {
	switch m {
	case OnTimePresent:
		return "OnTimePresent"
	case LatePresent:
		return "LatePresent"
	case EarlyPresent:
		return "EarlyPresent"
	default:
		return "UnknownPresent"
	}
}

// JankType is a bitmask over the causes a frame can be janky for. Multiple
// bits may be set at once.
type JankType int32

const (
	JankNone                         JankType = 0
	JankAppDeadlineMissed            JankType = 1 << 0
	JankSurfaceFlingerDeadlineMissed JankType = 1 << 1
	JankDisplayHAL                   JankType = 1 << 2
	JankAppBufferStuffing            JankType = 1 << 3
	JankPredictionError              JankType = 1 << 4
	JankSurfaceFlingerScheduling     JankType = 1 << 5
	JankUnknown                      JankType = 1 << 6
)

// Has reports whether every bit in mask is set.
func (j JankType) Has(mask JankType) bool { return j&mask == mask }

func (j JankType) String() string {
	if j == JankNone {
		return "None"
	}
	var names []string
	add := func(bit JankType, name string) {
		if j.Has(bit) {
			names = append(names, name)
		}
	}
	add(JankAppDeadlineMissed, "AppDeadlineMissed")
	add(JankSurfaceFlingerDeadlineMissed, "SurfaceFlingerDeadlineMissed")
	add(JankDisplayHAL, "DisplayHAL")
	add(JankAppBufferStuffing, "AppBufferStuffing")
	add(JankPredictionError, "PredictionError")
	add(JankSurfaceFlingerScheduling, "SurfaceFlingerScheduling")
	add(JankUnknown, "Unknown")
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}

// Thresholds are the jank classification tolerances, expressed in
// nanoseconds to match TimelineItem.
type Thresholds struct {
	StartThreshold    int64
	DeadlineThreshold int64
	PresentThreshold  int64
}

// DefaultThresholds returns the published default 2ms tolerances.
func DefaultThresholds() Thresholds {
	const twoMS = int64(2 * 1_000_000)
	return Thresholds{StartThreshold: twoMS, DeadlineThreshold: twoMS, PresentThreshold: twoMS}
}
