// Package tracesink defines the trace data source the frame timeline feeds
// on every present resolution, and a couple of ways to wire it up. The
// timeline treats the data source name and registration as a one-shot,
// process-wide concern (see onBootFinished in the facade) and otherwise
// only ever calls Emit*.
package tracesink

import "github.com/google/uuid"

// DataSourceName is the identifier the trace backend registers under.
const DataSourceName = "android.surfaceflinger.frametimeline"

// TimelineTriple mirrors a (start, end, present) timestamp triple without
// depending on the engine's internal representation. The trace wire
// contract is independent of how the timeline stores it internally.
type TimelineTriple struct {
	StartTime   int64
	EndTime     int64
	PresentTime int64
}

// DisplayFramePacket is emitted once per resolved DisplayFrame.
type DisplayFramePacket struct {
	PacketID             uuid.UUID
	Token                int64
	VsyncPeriod          int64
	Predictions          TimelineTriple
	Actuals              TimelineTriple
	JankType             int32
	FramePresentMetadata int8
	GpuComposition       bool
}

// SurfaceFramePacket is emitted once per SurfaceFrame contained in a
// resolved DisplayFrame, referencing the parent by token.
type SurfaceFramePacket struct {
	PacketID          uuid.UUID
	DisplayFrameToken int64
	Token             int64
	OwnerPid          int32
	OwnerUid          int32
	LayerName         string
	Predictions       TimelineTriple
	Actuals           TimelineTriple
	JankType          int32
	PresentState      int8
	GpuComposition    bool
}

// Source is the trace collector the timeline pushes packets to. OnBootFinished
// registers the data source exactly once per process; Emit* is called once
// per resolved frame/surface-frame.
type Source interface {
	OnBootFinished() error
	EmitDisplayFrame(pkt DisplayFramePacket) error
	EmitSurfaceFrame(pkt SurfaceFramePacket) error
}

// Noop discards every packet and never registers anything. The default for
// tests and for callers who only care about jank classification.
type Noop struct{}

// OnBootFinished implements Source.
func (Noop) OnBootFinished() error { return nil }

// EmitDisplayFrame implements Source.
func (Noop) EmitDisplayFrame(DisplayFramePacket) error { return nil }

// EmitSurfaceFrame implements Source.
func (Noop) EmitSurfaceFrame(SurfaceFramePacket) error { return nil }
