package engine

import "testing"

const testVsyncPeriod = int64(16_666_667)

func TestClassifyStart(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		name       string
		pred, act  int64
		want       FrameStartMetadata
	}{
		{"on time", 1000, 1000, OnTimeStart},
		{"within threshold", 1000, 1000 + th.StartThreshold, OnTimeStart},
		{"late", 1000, 1000 + th.StartThreshold + 1, LateStart},
		{"early", 1000, 1000 - th.StartThreshold - 1, EarlyStart},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := classifyStart(c.pred, c.act, th); got != c.want {
				t.Errorf("classifyStart(%d, %d) = %s, want %s", c.pred, c.act, got, c.want)
			}
		})
	}
}

func TestClassifyReadyTreatsEarlyAsOnTime(t *testing.T) {
	th := DefaultThresholds()
	if got := classifyReady(1000, 500, th); got != OnTimeFinish {
		t.Errorf("expected an early finish to classify OnTimeFinish, got %s", got)
	}
}

func TestClassifyReadyLate(t *testing.T) {
	th := DefaultThresholds()
	if got := classifyReady(1000, 1000+th.DeadlineThreshold+1, th); got != LateFinish {
		t.Errorf("expected a late finish, got %s", got)
	}
}

func TestClassifyPresent(t *testing.T) {
	th := DefaultThresholds()
	if got := classifyPresent(1000, 1000, th); got != OnTimePresent {
		t.Errorf("expected OnTimePresent, got %s", got)
	}
	if got := classifyPresent(1000, 1000+th.PresentThreshold+1, th); got != LatePresent {
		t.Errorf("expected LatePresent, got %s", got)
	}
	if got := classifyPresent(1000, 1000-th.PresentThreshold-1, th); got != EarlyPresent {
		t.Errorf("expected EarlyPresent, got %s", got)
	}
}

func TestClassifyDisplayFrameJankOnTime(t *testing.T) {
	jank := classifyDisplayFrameJank(OnTimeFinish, OnTimePresent, 1000, 1000, testVsyncPeriod)
	if jank != JankNone {
		t.Errorf("expected JankNone for an on-time frame, got %s", jank)
	}
}

func TestClassifyDisplayFrameJankSurfaceFlingerDeadlineMissed(t *testing.T) {
	jank := classifyDisplayFrameJank(LateFinish, LatePresent, 1000, 1000+testVsyncPeriod, testVsyncPeriod)
	if !jank.Has(JankSurfaceFlingerDeadlineMissed) {
		t.Errorf("expected SurfaceFlingerDeadlineMissed, got %s", jank)
	}
}

func TestClassifyDisplayFrameJankDisplayHAL(t *testing.T) {
	jank := classifyDisplayFrameJank(OnTimeFinish, LatePresent, 1000, 1000+3_000_000, testVsyncPeriod)
	if !jank.Has(JankDisplayHAL) {
		t.Errorf("expected DisplayHAL, got %s", jank)
	}
}

func TestClassifyDisplayFrameJankSchedulingOnEarlyPresent(t *testing.T) {
	jank := classifyDisplayFrameJank(OnTimeFinish, EarlyPresent, 1000, 1000-3_000_000, testVsyncPeriod)
	if !jank.Has(JankSurfaceFlingerScheduling) {
		t.Errorf("expected SurfaceFlingerScheduling, got %s", jank)
	}
	if jank.Has(JankPredictionError) {
		t.Errorf("did not expect PredictionError for a sub-period early present, got %s", jank)
	}
}

func TestClassifyDisplayFrameJankSchedulingWithPredictionError(t *testing.T) {
	jank := classifyDisplayFrameJank(LateFinish, EarlyPresent, 1000, 1000-testVsyncPeriod-1, testVsyncPeriod)
	if !jank.Has(JankSurfaceFlingerScheduling) || !jank.Has(JankPredictionError) {
		t.Errorf("expected SurfaceFlingerScheduling|PredictionError, got %s", jank)
	}
}

func TestClassifySurfaceFrameJankSkipsWithoutValidPrediction(t *testing.T) {
	in := jankInputs{
		predicted:  TimelineItem{},
		actual:     TimelineItem{EndTime: 50_000_000, PresentTime: 50_000_000},
		thresholds: DefaultThresholds(),
	}
	ready, present, jank := classifySurfaceFrameJank(in, JankNone, testVsyncPeriod, PresentPresented, 0, PredictionExpired)
	if ready != UnknownFinish {
		t.Errorf("expected UnknownFinish, got %s", ready)
	}
	if present != UnknownPresent {
		t.Errorf("expected UnknownPresent, got %s", present)
	}
	if jank != JankNone {
		t.Errorf("expected JankNone, got %s", jank)
	}
}

func TestJankTypeHasAndString(t *testing.T) {
	jank := JankAppDeadlineMissed | JankDisplayHAL
	if !jank.Has(JankAppDeadlineMissed) || !jank.Has(JankDisplayHAL) {
		t.Fatal("expected both bits set")
	}
	if jank.Has(JankPredictionError) {
		t.Fatal("did not expect an unset bit to report present")
	}
	if JankNone.String() != "None" {
		t.Errorf("expected JankNone.String() == None, got %s", JankNone.String())
	}
}
