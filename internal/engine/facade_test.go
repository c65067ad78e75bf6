package engine

import (
	"testing"
	"time"

	"github.com/visiona/frametimeline/fence"
)

func driveOneFrame(t *testing.T, ft *FrameTimeline, wakeUp int64, lateBy int64) (*DisplayFrame, *SurfaceFrame) {
	t.Helper()

	pred := TimelineItem{
		StartTime:   wakeUp,
		EndTime:     wakeUp + 8_000_000,
		PresentTime: wakeUp + testVsyncPeriod,
	}
	token := ft.GetTokenManager().GenerateTokenForPredictions(pred)

	sf := ft.CreateSurfaceFrameForToken(&token, 1, 2, "Layer", "Layer#0")
	sf.SetActualStartTime(wakeUp)
	sf.SetAcquireFenceTime(pred.EndTime + lateBy)

	ft.SetSfWakeUp(token, wakeUp, testVsyncPeriod)
	ft.AddSurfaceFrame(sf)
	// No previous buffer on this layer, so no buffer stuffing.
	sf.SetPresentState(PresentPresented, 0)

	f := fence.NewManual()
	f.SignalAt(pred.PresentTime + lateBy)
	ft.SetSfPresent(pred.EndTime+lateBy, f)

	history := ft.History()
	return history[len(history)-1], sf
}

func TestFrameTimelineOnTimeFrameIsJankFree(t *testing.T) {
	ft := New(Options{})
	df, sf := driveOneFrame(t, ft, 0, 0)

	if df.JankType() != JankNone {
		t.Errorf("expected an on-time display frame, got %s", df.JankType())
	}
	if sf.JankType() != JankNone {
		t.Errorf("expected an on-time surface frame, got %s", sf.JankType())
	}
}

func TestFrameTimelineCompositorMissedDeadline(t *testing.T) {
	ft := New(Options{})
	lateBy := DefaultThresholds().DeadlineThreshold + testVsyncPeriod
	df, _ := driveOneFrame(t, ft, 0, lateBy)

	if !df.JankType().Has(JankSurfaceFlingerDeadlineMissed) {
		t.Errorf("expected SurfaceFlingerDeadlineMissed, got %s", df.JankType())
	}
}

func TestFrameTimelineExpiredTokenYieldsPredictionExpired(t *testing.T) {
	defer func() { nowFunc = time.Now }()
	base := time.Unix(0, 0)
	nowFunc = func() time.Time { return base }

	ft := New(Options{PredictionRetentionNS: int64(120 * time.Millisecond)})
	token := ft.GetTokenManager().GenerateTokenForPredictions(TimelineItem{StartTime: 1})

	nowFunc = func() time.Time { return base.Add(200 * time.Millisecond) }

	sf := ft.CreateSurfaceFrameForToken(&token, 1, 2, "Layer", "Layer#0")
	if sf.PredictionState() != PredictionExpired {
		t.Errorf("expected PredictionExpired, got %s", sf.PredictionState())
	}
}

func TestFrameTimelineNoTokenYieldsPredictionNone(t *testing.T) {
	ft := New(Options{})
	sf := ft.CreateSurfaceFrameForToken(nil, 1, 2, "Layer", "Layer#0")
	if sf.PredictionState() != PredictionNone {
		t.Errorf("expected PredictionNone, got %s", sf.PredictionState())
	}
	if sf.Token() != InvalidToken {
		t.Errorf("expected InvalidToken for a tokenless surface frame, got %d", sf.Token())
	}
}

func TestFrameTimelineHistoryBound(t *testing.T) {
	ft := New(Options{MaxDisplayFrames: 2})

	for i := int64(0); i < 5; i++ {
		driveOneFrame(t, ft, i*testVsyncPeriod, 0)
	}

	history := ft.History()
	if len(history) != 2 {
		t.Fatalf("expected history bounded to 2 entries, got %d", len(history))
	}
}

func TestFrameTimelineSetMaxDisplayFramesTrimsImmediately(t *testing.T) {
	ft := New(Options{})
	for i := int64(0); i < 5; i++ {
		driveOneFrame(t, ft, i*testVsyncPeriod, 0)
	}

	ft.SetMaxDisplayFrames(1)
	if got := len(ft.History()); got != 1 {
		t.Fatalf("expected SetMaxDisplayFrames to trim existing history, got %d entries", got)
	}
}

func TestFrameTimelineDoubleWakeUpImplicitlyFinalizesPrior(t *testing.T) {
	ft := New(Options{})

	ft.SetSfWakeUp(InvalidToken, 0, testVsyncPeriod)
	ft.SetSfWakeUp(InvalidToken, testVsyncPeriod, testVsyncPeriod)

	if got := ft.pending.len(); got != 1 {
		t.Fatalf("expected the first display frame to be enqueued via implicit finalize, got %d pending", got)
	}
}

func TestFrameTimelineResetPreservesUnresolvedPending(t *testing.T) {
	ft := New(Options{})

	pred := TimelineItem{StartTime: 0, EndTime: 8_000_000, PresentTime: testVsyncPeriod}
	token := ft.GetTokenManager().GenerateTokenForPredictions(pred)
	ft.SetSfWakeUp(token, 0, testVsyncPeriod)

	unsignaled := fence.NewManual()
	ft.SetSfPresent(pred.EndTime, unsignaled)

	ft.Reset()

	if got := ft.pending.len(); got != 1 {
		t.Fatalf("expected Reset to leave an unsignaled fence pending, got %d", got)
	}
	if got := len(ft.History()); got != 0 {
		t.Fatalf("expected Reset to clear history, got %d entries", got)
	}
}

func TestFrameTimelineParseArgsJankFiltersCleanFrames(t *testing.T) {
	ft := New(Options{})
	driveOneFrame(t, ft, 0, 0)

	out, err := ft.ParseArgs([]string{"-jank"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected no output for an all-clean history, got %q", out)
	}
}

func TestFrameTimelineParseArgsAll(t *testing.T) {
	ft := New(Options{})
	driveOneFrame(t, ft, 0, 0)

	out, err := ft.ParseArgs([]string{"-all"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Error("expected -all to render the retained display frame")
	}
}

func TestFrameTimelineParseArgsUnknownFlag(t *testing.T) {
	ft := New(Options{})
	if _, err := ft.ParseArgs([]string{"-bogus"}); err == nil {
		t.Fatal("expected an unrecognized flag to produce an error")
	}
}
