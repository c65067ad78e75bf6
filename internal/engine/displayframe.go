package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/visiona/frametimeline/softerror"
	"github.com/visiona/frametimeline/timestats"
	"github.com/visiona/frametimeline/tracesink"
)

// displayFrameState is the DisplayFrame lifecycle: Open while accepting
// surface frames, AwaitingFence once queued behind its present fence,
// Resolved once that fence has signaled and classification has run.
type displayFrameState int8

const (
	displayFrameOpen displayFrameState = iota
	displayFrameAwaitingFence
	displayFrameResolved
)

// DisplayFrame is the per-vsync aggregate: one compositor timeline plus
// every SurfaceFrame composited into it.
type DisplayFrame struct {
	thresholds Thresholds
	sink       timestats.Sink
	trace      tracesink.Source
	reporter   softerror.Reporter

	mu                   sync.Mutex
	state                displayFrameState
	token                int64
	vsyncPeriod          int64
	predictionState      PredictionState
	predictions          TimelineItem
	actuals              TimelineItem
	gpuComposition       bool
	jankType             JankType
	framePresentMetadata FramePresentMetadata
	frameReadyMetadata   FrameReadyMetadata
	frameStartMetadata   FrameStartMetadata
	surfaceFrames        []*SurfaceFrame
}

func newDisplayFrame(
	token int64,
	vsyncPeriod int64,
	predictionState PredictionState,
	predictions TimelineItem,
	wakeUpTime int64,
	initialCapacity int,
	thresholds Thresholds,
	sink timestats.Sink,
	trace tracesink.Source,
	reporter softerror.Reporter,
) *DisplayFrame {
	df := &DisplayFrame{
		thresholds:           thresholds,
		sink:                 sink,
		trace:                trace,
		reporter:             reporter,
		state:                displayFrameOpen,
		token:                token,
		vsyncPeriod:          vsyncPeriod,
		predictionState:      predictionState,
		predictions:          predictions,
		framePresentMetadata: UnknownPresent,
		frameReadyMetadata:   UnknownFinish,
		frameStartMetadata:   UnknownStart,
		surfaceFrames:        make([]*SurfaceFrame, 0, initialCapacity),
	}
	df.actuals.StartTime = wakeUpTime
	return df
}

// Token returns the token this display frame's predictions resolved from.
func (df *DisplayFrame) Token() int64 { return df.token }

// VsyncPeriod returns the refresh period observed for this vsync.
func (df *DisplayFrame) VsyncPeriod() int64 { return df.vsyncPeriod }

// PredictionState reports where this frame's predictions came from.
func (df *DisplayFrame) PredictionState() PredictionState { return df.predictionState }

// Predictions returns the (immutable) prediction tuple.
func (df *DisplayFrame) Predictions() TimelineItem { return df.predictions }

// Actuals returns a snapshot of the actual timestamps recorded so far.
func (df *DisplayFrame) Actuals() TimelineItem {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.actuals
}

// JankType returns the classified jank bitmask.
func (df *DisplayFrame) JankType() JankType {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.jankType
}

// FramePresentMetadata returns the present classification.
func (df *DisplayFrame) FramePresentMetadata() FramePresentMetadata {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.framePresentMetadata
}

// FrameReadyMetadata returns the ready classification.
func (df *DisplayFrame) FrameReadyMetadata() FrameReadyMetadata {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.frameReadyMetadata
}

// FrameStartMetadata returns the start classification.
func (df *DisplayFrame) FrameStartMetadata() FrameStartMetadata {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.frameStartMetadata
}

// SurfaceFrames returns the surface frames composited into this display
// frame, in arrival order.
func (df *DisplayFrame) SurfaceFrames() []*SurfaceFrame {
	df.mu.Lock()
	defer df.mu.Unlock()
	out := make([]*SurfaceFrame, len(df.surfaceFrames))
	copy(out, df.surfaceFrames)
	return out
}

// SetGpuComposition records whether this display frame's contents were
// composited entirely by the GPU path.
func (df *DisplayFrame) SetGpuComposition(gpu bool) {
	df.mu.Lock()
	defer df.mu.Unlock()
	df.gpuComposition = gpu
}

// GpuComposition reports the GPU composition flag.
func (df *DisplayFrame) GpuComposition() bool {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.gpuComposition
}

// addSurfaceFrame appends in arrival order. Appending after setSfPresent is
// a protocol violation.
func (df *DisplayFrame) addSurfaceFrame(sf *SurfaceFrame) bool {
	df.mu.Lock()
	defer df.mu.Unlock()
	if df.state != displayFrameOpen {
		return false
	}
	df.surfaceFrames = append(df.surfaceFrames, sf)
	return true
}

// finalize transitions Open -> AwaitingFence. It records the actual end
// time and evaluates start/ready metadata against predictions. Returns
// false if the frame was not Open (double setSfPresent).
func (df *DisplayFrame) finalize(endTime int64) bool {
	df.mu.Lock()
	defer df.mu.Unlock()
	if df.state != displayFrameOpen {
		return false
	}
	df.actuals.EndTime = endTime
	if df.predictionState == PredictionValid {
		df.frameStartMetadata = classifyStart(df.predictions.StartTime, df.actuals.StartTime, df.thresholds)
		df.frameReadyMetadata = classifyReady(df.predictions.EndTime, df.actuals.EndTime, df.thresholds)
	}
	df.state = displayFrameAwaitingFence
	return true
}

// onPresent transitions AwaitingFence -> Resolved: sets the actual present
// time, computes present metadata and this display frame's jank bitmask,
// then cascades to every contained surface frame.
func (df *DisplayFrame) onPresent(signalTime int64) {
	df.mu.Lock()
	if df.state == displayFrameResolved {
		df.mu.Unlock()
		return
	}
	df.actuals.PresentTime = signalTime
	if df.predictionState == PredictionValid {
		df.framePresentMetadata = classifyPresent(df.predictions.PresentTime, df.actuals.PresentTime, df.thresholds)
		df.jankType = classifyDisplayFrameJank(
			df.frameReadyMetadata, df.framePresentMetadata,
			df.predictions.PresentTime, df.actuals.PresentTime, df.vsyncPeriod,
		)
	}
	df.state = displayFrameResolved

	jank := df.jankType
	vsyncPeriod := df.vsyncPeriod
	surfaceFrames := make([]*SurfaceFrame, len(df.surfaceFrames))
	copy(surfaceFrames, df.surfaceFrames)

	rec := timestats.DisplayFrameRecord{
		PredictedSfPresent: df.predictions.PresentTime,
		ActualSfPresent:    df.actuals.PresentTime,
		JankType:           int32(jank),
		GpuComposition:     df.gpuComposition,
	}
	df.mu.Unlock()

	for _, sf := range surfaceFrames {
		sf.onPresent(signalTime, jank, vsyncPeriod)
	}

	if df.sink != nil {
		df.sink.RecordDisplayFrame(rec)
	}
}

// baseTime returns the smallest non-zero timestamp across this display
// frame and all of its surface frames.
func (df *DisplayFrame) baseTime() int64 {
	df.mu.Lock()
	predictions, actuals := df.predictions, df.actuals
	surfaceFrames := make([]*SurfaceFrame, len(df.surfaceFrames))
	copy(surfaceFrames, df.surfaceFrames)
	df.mu.Unlock()

	min, found := predictions.baseTime()
	if v, ok := actuals.baseTime(); ok && (!found || v < min) {
		min, found = v, true
	}
	for _, sf := range surfaceFrames {
		if v, ok := sf.baseTime(); ok && (!found || v < min) {
			min, found = v, true
		}
	}
	if !found {
		return 0
	}
	return min
}

// isJanky reports whether this display frame or any contained surface
// frame is janky.
func (df *DisplayFrame) isJanky() bool {
	df.mu.Lock()
	jank := df.jankType
	surfaceFrames := make([]*SurfaceFrame, len(df.surfaceFrames))
	copy(surfaceFrames, df.surfaceFrames)
	df.mu.Unlock()

	if jank != JankNone {
		return true
	}
	for _, sf := range surfaceFrames {
		if sf.isJanky() {
			return true
		}
	}
	return false
}

// dumpAll unconditionally renders the aggregate plus every surface frame.
func (df *DisplayFrame) dumpAll() string {
	base := df.baseTime()
	return df.dump(base)
}

// dumpJank renders this display frame only if it or a contained surface
// frame is janky.
func (df *DisplayFrame) dumpJank() string {
	if !df.isJanky() {
		return ""
	}
	return df.dumpAll()
}

func (df *DisplayFrame) dump(baseTime int64) string {
	df.mu.Lock()
	defer df.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "DisplayFrame token=%d vsyncPeriod=%d predictionState=%s jank=%s gpu=%v\n",
		df.token, df.vsyncPeriod, df.predictionState, df.jankType, df.gpuComposition)
	fmt.Fprintf(&b, "  predicted: start=%d end=%d present=%d\n",
		relative(df.predictions.StartTime, baseTime), relative(df.predictions.EndTime, baseTime), relative(df.predictions.PresentTime, baseTime))
	fmt.Fprintf(&b, "  actual:    start=%d end=%d present=%d\n",
		relative(df.actuals.StartTime, baseTime), relative(df.actuals.EndTime, baseTime), relative(df.actuals.PresentTime, baseTime))
	fmt.Fprintf(&b, "  start=%s ready=%s present=%s\n", df.frameStartMetadata, df.frameReadyMetadata, df.framePresentMetadata)
	for _, sf := range df.surfaceFrames {
		b.WriteString(sf.dump("  ", baseTime))
	}
	return b.String()
}

// emitTrace pushes a trace packet for this display frame, then one per
// contained surface frame.
func (df *DisplayFrame) emitTrace() {
	if df.trace == nil {
		return
	}
	df.mu.Lock()
	pkt := tracesink.DisplayFramePacket{
		Token:       df.token,
		VsyncPeriod: df.vsyncPeriod,
		Predictions: tracesink.TimelineTriple{
			StartTime: df.predictions.StartTime, EndTime: df.predictions.EndTime, PresentTime: df.predictions.PresentTime,
		},
		Actuals: tracesink.TimelineTriple{
			StartTime: df.actuals.StartTime, EndTime: df.actuals.EndTime, PresentTime: df.actuals.PresentTime,
		},
		JankType:             int32(df.jankType),
		FramePresentMetadata: int8(df.framePresentMetadata),
		GpuComposition:       df.gpuComposition,
	}
	surfaceFrames := make([]*SurfaceFrame, len(df.surfaceFrames))
	copy(surfaceFrames, df.surfaceFrames)
	df.mu.Unlock()

	pkt.PacketID = newUUID()
	_ = df.trace.EmitDisplayFrame(pkt)

	for _, sf := range surfaceFrames {
		sf.emitTrace(df.token)
	}
}
