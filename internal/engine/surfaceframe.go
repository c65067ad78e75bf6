package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/visiona/frametimeline/softerror"
	"github.com/visiona/frametimeline/timestats"
	"github.com/visiona/frametimeline/tracesink"
)

// SurfaceFrame is a per-layer, per-buffer timing record. Only the facade
// constructs one (newSurfaceFrame is unexported); everything else is an
// ingest call from the compositor thread or a read from an ancillary
// reader (dump, trace, tests). After onPresent it is frozen.
type SurfaceFrame struct {
	// immutable for the lifetime of the frame
	token           int64
	ownerPid        int32
	ownerUid        int32
	layerName       string
	debugName       string
	predictionState PredictionState
	predictions     TimelineItem
	thresholds      Thresholds
	sink            timestats.Sink
	trace           tracesink.Source
	reporter        softerror.Reporter

	mu                   sync.Mutex
	actuals              TimelineItem
	actualQueueTime      int64
	presentState         PresentState
	lastLatchTime        int64
	gpuComposition       bool
	jankType             JankType
	framePresentMetadata FramePresentMetadata
	frameReadyMetadata   FrameReadyMetadata
	resolved             bool
}

func newSurfaceFrame(
	token int64,
	ownerPid, ownerUid int32,
	layerName, debugName string,
	predictionState PredictionState,
	predictions TimelineItem,
	thresholds Thresholds,
	sink timestats.Sink,
	trace tracesink.Source,
	reporter softerror.Reporter,
) *SurfaceFrame {
	return &SurfaceFrame{
		token:                token,
		ownerPid:             ownerPid,
		ownerUid:             ownerUid,
		layerName:            layerName,
		debugName:            debugName,
		predictionState:      predictionState,
		predictions:          predictions,
		thresholds:           thresholds,
		sink:                 sink,
		trace:                trace,
		reporter:             reporter,
		framePresentMetadata: UnknownPresent,
		frameReadyMetadata:   UnknownFinish,
	}
}

// Token returns the prediction token this frame was created with
// (InvalidToken if none).
func (sf *SurfaceFrame) Token() int64 { return sf.token }

// OwnerPid returns the owning process id.
func (sf *SurfaceFrame) OwnerPid() int32 { return sf.ownerPid }

// OwnerUid returns the owning user id.
func (sf *SurfaceFrame) OwnerUid() int32 { return sf.ownerUid }

// LayerName returns the layer name used for stats grouping.
func (sf *SurfaceFrame) LayerName() string { return sf.layerName }

// DebugName returns the human-readable name used for dump.
func (sf *SurfaceFrame) DebugName() string { return sf.debugName }

// PredictionState reports where this frame's predictions came from.
func (sf *SurfaceFrame) PredictionState() PredictionState { return sf.predictionState }

// Predictions returns the (immutable) prediction tuple.
func (sf *SurfaceFrame) Predictions() TimelineItem { return sf.predictions }

// Actuals returns a snapshot of the actual timestamps recorded so far.
func (sf *SurfaceFrame) Actuals() TimelineItem {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.actuals
}

// ActualQueueTime returns the time the compositor received the buffer.
func (sf *SurfaceFrame) ActualQueueTime() int64 {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.actualQueueTime
}

// PresentState reports the frame's present disposition.
func (sf *SurfaceFrame) PresentState() PresentState {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.presentState
}

// JankType returns the classified jank bitmask. Zero/JankNone until
// onPresent runs.
func (sf *SurfaceFrame) JankType() JankType {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.jankType
}

// FramePresentMetadata returns the present classification.
func (sf *SurfaceFrame) FramePresentMetadata() FramePresentMetadata {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.framePresentMetadata
}

// FrameReadyMetadata returns the ready classification.
func (sf *SurfaceFrame) FrameReadyMetadata() FrameReadyMetadata {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.frameReadyMetadata
}

// LastLatchTime returns the latch time of the previous buffer on this
// layer, used for buffer stuffing detection.
func (sf *SurfaceFrame) LastLatchTime() int64 {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.lastLatchTime
}

// GpuComposition reports whether this surface was composited by the GPU
// path rather than the display HAL's overlay path.
func (sf *SurfaceFrame) GpuComposition() bool {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.gpuComposition
}

// SetGpuComposition records whether this surface went through GPU
// composition. Valid any time before onPresent.
func (sf *SurfaceFrame) SetGpuComposition(gpu bool) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.resolved {
		return
	}
	sf.gpuComposition = gpu
}

// SetActualStartTime records when the app started producing this frame.
func (sf *SurfaceFrame) SetActualStartTime(t int64) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.resolved {
		return
	}
	if t < 0 {
		sf.reportViolation("negative_actual_start_time", map[string]any{"token": sf.token, "value": t})
		return
	}
	sf.actuals.StartTime = t
}

// SetActualQueueTime records when the compositor received the buffer.
func (sf *SurfaceFrame) SetActualQueueTime(t int64) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.resolved {
		return
	}
	if t < 0 {
		sf.reportViolation("negative_actual_queue_time", map[string]any{"token": sf.token, "value": t})
		return
	}
	sf.actualQueueTime = t
}

// SetAcquireFenceTime records when the buffer became visually usable. This
// is the frame's "ready" timestamp and fills TimelineItem.EndTime.
func (sf *SurfaceFrame) SetAcquireFenceTime(t int64) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.resolved {
		return
	}
	if t < 0 {
		sf.reportViolation("negative_acquire_fence_time", map[string]any{"token": sf.token, "value": t})
		return
	}
	sf.actuals.EndTime = t
}

// SetPresentState transitions Unknown -> Presented or Unknown -> Dropped.
// lastLatchTime is retained only for Presented. Re-entry with the same
// state is idempotent; a contradictory transition is a protocol violation
// and is ignored.
func (sf *SurfaceFrame) SetPresentState(state PresentState, lastLatchTime int64) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.resolved {
		return
	}
	if sf.presentState == state {
		if state == PresentPresented {
			sf.lastLatchTime = lastLatchTime
		}
		return
	}
	if sf.presentState != PresentUnknown {
		sf.reportViolation("contradictory_present_state_transition", map[string]any{
			"token": sf.token, "from": sf.presentState.String(), "to": state.String(),
		})
		return
	}
	sf.presentState = state
	if state == PresentPresented {
		sf.lastLatchTime = lastLatchTime
	}
}

// onPresent is invoked by the owning DisplayFrame once the display fence
// has signaled. It is called exactly once; afterward the frame is
// read-only. presentTime is only assigned into actuals when the frame was
// presented (invariant: a Dropped frame carries no present time).
func (sf *SurfaceFrame) onPresent(presentTime int64, displayFrameJank JankType, vsyncPeriod int64) {
	sf.mu.Lock()
	if sf.resolved {
		sf.mu.Unlock()
		return
	}

	if sf.presentState == PresentPresented {
		sf.actuals.PresentTime = presentTime
	}

	ready, present, jank := classifySurfaceFrameJank(
		jankInputs{predicted: sf.predictions, actual: sf.actuals, thresholds: sf.thresholds},
		displayFrameJank,
		vsyncPeriod,
		sf.presentState,
		sf.lastLatchTime,
		sf.predictionState,
	)
	sf.frameReadyMetadata = ready
	sf.framePresentMetadata = present
	sf.jankType = jank
	sf.resolved = true

	rec := timestats.SurfaceFrameRecord{
		OwnerPid:         sf.ownerPid,
		OwnerUid:         sf.ownerUid,
		LayerName:        sf.layerName,
		PredictedPresent: sf.predictions.PresentTime,
		ActualPresent:    sf.actuals.PresentTime,
		JankType:         int32(jank),
		GpuComposition:   sf.gpuComposition,
	}
	sf.mu.Unlock()

	if sf.sink != nil {
		sf.sink.RecordSurfaceFrame(rec)
	}
}

func (sf *SurfaceFrame) reportViolation(kind string, fields map[string]any) {
	slog.Warn("frametimeline: protocol violation", "kind", kind, "fields", fields)
	if sf.reporter != nil {
		sf.reporter.ReportViolation(kind, fields)
	}
}

// baseTime returns the smallest non-zero timestamp across predictions and
// actuals, used for dump.
func (sf *SurfaceFrame) baseTime() (int64, bool) {
	sf.mu.Lock()
	actuals := sf.actuals
	sf.mu.Unlock()

	min, found := sf.predictions.baseTime()
	if v, ok := actuals.baseTime(); ok && (!found || v < min) {
		min, found = v, true
	}
	return min, found
}

// dump renders this frame's timestamps relative to baseTime.
func (sf *SurfaceFrame) dump(indent string, baseTime int64) string {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "%sSurfaceFrame %s (token=%d layer=%q)\n", indent, sf.debugName, sf.token, sf.layerName)
	fmt.Fprintf(&b, "%s  predictionState=%s presentState=%s jank=%s gpu=%v\n",
		indent, sf.predictionState, sf.presentState, sf.jankType, sf.gpuComposition)
	fmt.Fprintf(&b, "%s  predicted: start=%d end=%d present=%d\n", indent,
		relative(sf.predictions.StartTime, baseTime), relative(sf.predictions.EndTime, baseTime), relative(sf.predictions.PresentTime, baseTime))
	fmt.Fprintf(&b, "%s  actual:    start=%d end=%d present=%d queue=%d\n", indent,
		relative(sf.actuals.StartTime, baseTime), relative(sf.actuals.EndTime, baseTime),
		relative(sf.actuals.PresentTime, baseTime), relative(sf.actualQueueTime, baseTime))
	fmt.Fprintf(&b, "%s  ready=%s present=%s\n", indent, sf.frameReadyMetadata, sf.framePresentMetadata)
	return b.String()
}

// isJanky reports whether this frame carries any jank bit.
func (sf *SurfaceFrame) isJanky() bool {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.jankType != JankNone
}

// emitTrace pushes a trace packet for this surface frame, referencing the
// owning display frame by token.
func (sf *SurfaceFrame) emitTrace(displayFrameToken int64) {
	if sf.trace == nil {
		return
	}
	sf.mu.Lock()
	pkt := tracesink.SurfaceFramePacket{
		DisplayFrameToken: displayFrameToken,
		Token:             sf.token,
		OwnerPid:          sf.ownerPid,
		OwnerUid:          sf.ownerUid,
		LayerName:         sf.layerName,
		Predictions: tracesink.TimelineTriple{
			StartTime: sf.predictions.StartTime, EndTime: sf.predictions.EndTime, PresentTime: sf.predictions.PresentTime,
		},
		Actuals: tracesink.TimelineTriple{
			StartTime: sf.actuals.StartTime, EndTime: sf.actuals.EndTime, PresentTime: sf.actuals.PresentTime,
		},
		JankType:       int32(sf.jankType),
		PresentState:   int8(sf.presentState),
		GpuComposition: sf.gpuComposition,
	}
	sf.mu.Unlock()

	pkt.PacketID = newUUID()
	_ = sf.trace.EmitSurfaceFrame(pkt)
}

func relative(t, base int64) int64 {
	if t == 0 {
		return 0
	}
	return t - base
}
