// Package frametimeline is the public facade over the frame timeline
// engine: the token registry, SurfaceFrame/DisplayFrame state machines, and
// fence-driven present resolution. The implementation lives in
// internal/engine; this package only re-exports the types callers need so
// the engine's internals can keep moving without breaking callers.
package frametimeline

import (
	"github.com/visiona/frametimeline/config"
	"github.com/visiona/frametimeline/fence"
	"github.com/visiona/frametimeline/internal/engine"
	"github.com/visiona/frametimeline/softerror"
	"github.com/visiona/frametimeline/timestats"
	"github.com/visiona/frametimeline/tracesink"
)

// InvalidToken is the sentinel token meaning "no prediction".
const InvalidToken = engine.InvalidToken

// TimelineItem is a (start, end, present) timestamp triple in nanoseconds.
type TimelineItem = engine.TimelineItem

// PredictionState, PresentState, and the *Metadata enums classify how an
// actual timestamp compares to its prediction.
type (
	PredictionState      = engine.PredictionState
	PresentState         = engine.PresentState
	FrameStartMetadata   = engine.FrameStartMetadata
	FrameReadyMetadata   = engine.FrameReadyMetadata
	FramePresentMetadata = engine.FramePresentMetadata
	JankType             = engine.JankType
	Thresholds           = engine.Thresholds
)

const (
	PredictionNone    = engine.PredictionNone
	PredictionValid   = engine.PredictionValid
	PredictionExpired = engine.PredictionExpired

	PresentUnknown   = engine.PresentUnknown
	PresentPresented = engine.PresentPresented
	PresentDropped   = engine.PresentDropped
)

const (
	JankNone                         = engine.JankNone
	JankAppDeadlineMissed            = engine.JankAppDeadlineMissed
	JankSurfaceFlingerDeadlineMissed = engine.JankSurfaceFlingerDeadlineMissed
	JankDisplayHAL                   = engine.JankDisplayHAL
	JankAppBufferStuffing            = engine.JankAppBufferStuffing
	JankPredictionError              = engine.JankPredictionError
	JankSurfaceFlingerScheduling     = engine.JankSurfaceFlingerScheduling
	JankUnknown                      = engine.JankUnknown
)

// SurfaceFrame and DisplayFrame are re-exported unchanged; construction
// stays behind the FrameTimeline facade below.
type (
	SurfaceFrame = engine.SurfaceFrame
	DisplayFrame = engine.DisplayFrame
	TokenManager = engine.TokenManager
)

// Options configures a FrameTimeline.
type Options = engine.Options

// FrameTimeline is the ingress API a compositor drives: token generation,
// surface/display frame lifecycle, and present resolution.
type FrameTimeline = engine.FrameTimeline

// New constructs a FrameTimeline from explicit Options.
func New(opts Options) *FrameTimeline { return engine.New(opts) }

// NewFromConfig constructs a FrameTimeline from a loaded Config, wiring its
// thresholds and retention window into engine Options. Sinks are left at
// their no-op defaults; callers that want timestats/trace/soft-error
// backends build Options directly and call New instead.
func NewFromConfig(cfg config.Config) *FrameTimeline {
	return engine.New(Options{
		PredictionRetentionNS:  cfg.PredictionRetention().Nanoseconds(),
		MaxDisplayFrames:       cfg.MaxDisplayFrames,
		InitialSurfaceFrameCap: cfg.InitialSurfaceFrameCapacity,
		Thresholds: Thresholds{
			StartThreshold:    cfg.Thresholds.Start().Nanoseconds(),
			DeadlineThreshold: cfg.Thresholds.Deadline().Nanoseconds(),
			PresentThreshold:  cfg.Thresholds.Present().Nanoseconds(),
		},
	})
}

// Re-exported collaborator types so callers don't need to import the
// sub-packages directly for the common case of passing a Fence or a Sink.
type (
	Fence         = fence.Fence
	TimeStatsSink = timestats.Sink
	TraceSource   = tracesink.Source
	SoftReporter  = softerror.Reporter
)
