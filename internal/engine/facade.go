package engine

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/visiona/frametimeline/fence"
	"github.com/visiona/frametimeline/softerror"
	"github.com/visiona/frametimeline/timestats"
	"github.com/visiona/frametimeline/tracesink"
)

const defaultMaxDisplayFrames = 64

// Options configures a FrameTimeline's tunables and collaborators. Every
// field has a usable zero value except Thresholds, which falls back to
// DefaultThresholds when left zero.
type Options struct {
	PredictionRetentionNS  int64
	MaxDisplayFrames       uint32
	InitialSurfaceFrameCap int
	Thresholds             Thresholds
	TimeStats              timestats.Sink
	Trace                  tracesink.Source
	SoftErrorReporter      softerror.Reporter
}

func (o Options) withDefaults() Options {
	if o.PredictionRetentionNS == 0 {
		o.PredictionRetentionNS = int64(120 * 1_000_000) // 120ms
	}
	if o.MaxDisplayFrames == 0 {
		o.MaxDisplayFrames = defaultMaxDisplayFrames
	}
	if o.InitialSurfaceFrameCap == 0 {
		o.InitialSurfaceFrameCap = 10
	}
	if o.Thresholds == (Thresholds{}) {
		o.Thresholds = DefaultThresholds()
	}
	if o.TimeStats == nil {
		o.TimeStats = timestats.Noop{}
	}
	if o.Trace == nil {
		o.Trace = tracesink.Noop{}
	}
	if o.SoftErrorReporter == nil {
		o.SoftErrorReporter = softerror.Noop{}
	}
	return o
}

// FrameTimeline is the lifecycle owner: it exposes the ingress API to the
// compositor, holds the bounded history, owns the TokenManager, and fans
// out to the timestats/trace sinks. It is safe for concurrent use.
type FrameTimeline struct {
	tokenManager *TokenManager
	opts         Options

	mu               sync.Mutex
	current          *DisplayFrame
	pending          *pendingPresentQueue
	history          []*DisplayFrame
	maxDisplayFrames uint32
}

// bootOnce guards trace data source registration. It is shared by every
// FrameTimeline in the process.
var bootOnce sync.Once

// New constructs a FrameTimeline with the given options, filling in
// defaults for its tunables.
func New(opts Options) *FrameTimeline {
	opts = opts.withDefaults()
	return &FrameTimeline{
		tokenManager:     NewTokenManager(time.Duration(opts.PredictionRetentionNS)),
		opts:             opts,
		pending:          newPendingPresentQueue(),
		maxDisplayFrames: opts.MaxDisplayFrames,
	}
}

// GetTokenManager returns the token registry.
func (ft *FrameTimeline) GetTokenManager() *TokenManager { return ft.tokenManager }

// OnBootFinished registers the trace data source exactly once per process.
// Safe to call repeatedly; only the first call has effect.
func (ft *FrameTimeline) OnBootFinished() {
	bootOnce.Do(func() {
		if err := ft.opts.Trace.OnBootFinished(); err != nil {
			slog.Warn("frametimeline: trace data source registration failed", "error", err)
		}
	})
}

// CreateSurfaceFrameForToken resolves a token's predictions (if any) and
// returns a new SurfaceFrame. A nil token yields PredictionNone with a
// zero prediction tuple; a present token is looked up in the registry and
// yields PredictionValid on a hit or PredictionExpired on a miss.
func (ft *FrameTimeline) CreateSurfaceFrameForToken(
	token *int64,
	ownerPid, ownerUid int32,
	layerName, debugName string,
) *SurfaceFrame {
	var (
		resolvedToken   int64 = InvalidToken
		predictionState       = PredictionNone
		predictions     TimelineItem
	)

	if token != nil {
		resolvedToken = *token
		if pred, ok := ft.tokenManager.GetPredictionsForToken(*token); ok {
			predictionState = PredictionValid
			predictions = pred
		} else {
			predictionState = PredictionExpired
		}
	}

	return newSurfaceFrame(
		resolvedToken, ownerPid, ownerUid, layerName, debugName,
		predictionState, predictions, ft.opts.Thresholds,
		ft.opts.TimeStats, ft.opts.Trace, ft.opts.SoftErrorReporter,
	)
}

// AddSurfaceFrame appends sf to the current open display frame. If no
// frame is currently open, or the current frame has already finalized,
// this is a protocol violation: it is logged and dropped.
func (ft *FrameTimeline) AddSurfaceFrame(sf *SurfaceFrame) {
	ft.mu.Lock()
	current := ft.current
	ft.mu.Unlock()

	if current == nil {
		ft.reportViolation("add_surface_frame_no_open_display_frame", map[string]any{"token": sf.Token()})
		return
	}
	if !current.addSurfaceFrame(sf) {
		ft.reportViolation("add_surface_frame_after_present", map[string]any{"token": sf.Token(), "display_token": current.Token()})
	}
}

// SetSfWakeUp finalizes any previously open display frame that hasn't been
// finalized yet, treating the new wake-up as an implicit finalize with a
// pre-signaled fence at the new wake time, then opens a new one.
func (ft *FrameTimeline) SetSfWakeUp(token int64, wakeUpTime, vsyncPeriod int64) {
	var predictionState = PredictionNone
	var predictions TimelineItem
	if token != InvalidToken {
		if pred, ok := ft.tokenManager.GetPredictionsForToken(token); ok {
			predictionState = PredictionValid
			predictions = pred
		} else {
			predictionState = PredictionExpired
		}
	}

	df := newDisplayFrame(
		token, vsyncPeriod, predictionState, predictions, wakeUpTime,
		ft.opts.InitialSurfaceFrameCap, ft.opts.Thresholds,
		ft.opts.TimeStats, ft.opts.Trace, ft.opts.SoftErrorReporter,
	)

	ft.mu.Lock()
	prior := ft.current
	ft.current = df
	ft.mu.Unlock()

	if prior != nil {
		ft.finalizeAndEnqueue(prior, wakeUpTime, fence.Presignaled(wakeUpTime))
	}
}

// SetSfPresent finalizes the current display frame, enqueues it against
// the present fence, clears the current-frame pointer, then drains any
// signaled fences.
func (ft *FrameTimeline) SetSfPresent(endTime int64, f fence.Fence) {
	ft.mu.Lock()
	current := ft.current
	ft.current = nil
	ft.mu.Unlock()

	if current == nil {
		ft.reportViolation("set_sf_present_no_open_display_frame", map[string]any{"end_time": endTime})
		return
	}
	ft.finalizeAndEnqueue(current, endTime, f)
	ft.flushPendingPresentFences()
}

func (ft *FrameTimeline) finalizeAndEnqueue(df *DisplayFrame, endTime int64, f fence.Fence) {
	if !df.finalize(endTime) {
		ft.reportViolation("double_set_sf_present", map[string]any{"display_token": df.Token()})
		return
	}
	ft.pending.enqueue(f, df)
}

// flushPendingPresentFences walks the pending queue in FIFO order,
// resolving and tracing every display frame whose fence has signaled, then
// appending it to the bounded history.
func (ft *FrameTimeline) flushPendingPresentFences() {
	ft.pending.drain(func(df *DisplayFrame, signalTime int64) {
		df.onPresent(signalTime)
		df.emitTrace()
		ft.appendHistory(df)
	})
}

func (ft *FrameTimeline) appendHistory(df *DisplayFrame) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	ft.history = append(ft.history, df)
	ft.trimHistoryLocked()
}

func (ft *FrameTimeline) trimHistoryLocked() {
	max := int(ft.maxDisplayFrames)
	if len(ft.history) > max {
		ft.history = ft.history[len(ft.history)-max:]
	}
}

// SetMaxDisplayFrames bounds the retained history, trimming immediately if
// the new bound is smaller than the current size.
func (ft *FrameTimeline) SetMaxDisplayFrames(n uint32) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.maxDisplayFrames = n
	ft.trimHistoryLocked()
}

// Reset restores the default history bound and drains whatever pending
// present fences have already signaled, without discarding any display
// frame still genuinely waiting on its fence.
func (ft *FrameTimeline) Reset() {
	ft.flushPendingPresentFences()

	ft.mu.Lock()
	ft.maxDisplayFrames = defaultMaxDisplayFrames
	ft.history = nil
	ft.mu.Unlock()
}

// History returns a snapshot of the retained display frames, oldest first.
func (ft *FrameTimeline) History() []*DisplayFrame {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	out := make([]*DisplayFrame, len(ft.history))
	copy(out, ft.history)
	return out
}

func (ft *FrameTimeline) reportViolation(kind string, fields map[string]any) {
	slog.Warn("frametimeline: protocol violation", "kind", kind, "fields", fields)
	ft.opts.SoftErrorReporter.ReportViolation(kind, fields)
}

// DumpAll renders every display frame retained in history. Only resolved
// frames reach history; frames still waiting on their fence are not shown.
func (ft *FrameTimeline) DumpAll() string {
	var b strings.Builder
	for _, df := range ft.History() {
		b.WriteString(df.dumpAll())
	}
	return b.String()
}

// DumpJank renders only the retained display frames that are janky, either
// directly or through a contained surface frame.
func (ft *FrameTimeline) DumpJank() string {
	var b strings.Builder
	for _, df := range ft.History() {
		b.WriteString(df.dumpJank())
	}
	return b.String()
}

// ParseArgs parses the two flags the frametimeline-dump command accepts:
// -jank restricts the dump to janky frames, -all dumps everything. An
// unrecognized flag produces a usage string as its error.
func (ft *FrameTimeline) ParseArgs(args []string) (string, error) {
	fs := flag.NewFlagSet("frametimeline", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	jank := fs.Bool("jank", false, "only dump janky frames")
	all := fs.Bool("all", false, "dump every retained frame")
	if err := fs.Parse(args); err != nil {
		var b strings.Builder
		fs.SetOutput(&b)
		fs.Usage()
		return "", fmt.Errorf("%w\n%s", err, b.String())
	}
	if *jank && !*all {
		return ft.DumpJank(), nil
	}
	return ft.DumpAll(), nil
}
