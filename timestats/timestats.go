// Package timestats defines the sink the frame timeline pushes per-surface
// and per-display present summaries to once a present fence resolves. It is
// consumed, never owned: the timeline only ever calls Record*.
package timestats

// SurfaceFrameRecord is the per-surface present summary pushed to the sink
// when a SurfaceFrame is resolved.
type SurfaceFrameRecord struct {
	OwnerPid         int32
	OwnerUid         int32
	LayerName        string
	PredictedPresent int64
	ActualPresent    int64
	JankType         int32
	GpuComposition   bool
}

// DisplayFrameRecord is the per-display present summary pushed to the sink
// when a DisplayFrame resolves.
type DisplayFrameRecord struct {
	PredictedSfPresent int64
	ActualSfPresent    int64
	JankType           int32
	GpuComposition     bool
}

// Sink receives present summaries. Implementations must not block the
// caller for longer than a local aggregation would take; a sink backed by a
// slow external system should buffer and flush asynchronously rather than
// stall the drain that calls it.
type Sink interface {
	RecordSurfaceFrame(rec SurfaceFrameRecord)
	RecordDisplayFrame(rec DisplayFrameRecord)
}

// Noop discards every record. Used when no sink is configured, and in tests
// that only care about jank classification.
type Noop struct{}

// RecordSurfaceFrame implements Sink.
func (Noop) RecordSurfaceFrame(SurfaceFrameRecord) {}

// RecordDisplayFrame implements Sink.
func (Noop) RecordDisplayFrame(DisplayFrameRecord) {}
