package engine

import (
	"testing"
	"time"
)

func TestGenerateTokenForPredictionsIncrements(t *testing.T) {
	tm := NewTokenManager(120 * time.Millisecond)

	t1 := tm.GenerateTokenForPredictions(TimelineItem{StartTime: 1})
	t2 := tm.GenerateTokenForPredictions(TimelineItem{StartTime: 2})

	if t2 != t1+1 {
		t.Fatalf("expected monotonically increasing tokens, got %d then %d", t1, t2)
	}
}

func TestGetPredictionsForTokenRoundTrips(t *testing.T) {
	tm := NewTokenManager(120 * time.Millisecond)
	want := TimelineItem{StartTime: 10, EndTime: 20, PresentTime: 30}

	token := tm.GenerateTokenForPredictions(want)

	got, ok := tm.GetPredictionsForToken(token)
	if !ok {
		t.Fatal("expected prediction to be present")
	}
	if !got.Equal(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestGetPredictionsForUnknownTokenMisses(t *testing.T) {
	tm := NewTokenManager(120 * time.Millisecond)
	if _, ok := tm.GetPredictionsForToken(999); ok {
		t.Fatal("expected miss for a token never issued")
	}
}

func TestPredictionExpiresAfterRetention(t *testing.T) {
	defer func() { nowFunc = time.Now }()

	base := time.Unix(0, 0)
	nowFunc = func() time.Time { return base }

	tm := NewTokenManager(120 * time.Millisecond)
	token := tm.GenerateTokenForPredictions(TimelineItem{StartTime: 5})

	nowFunc = func() time.Time { return base.Add(200 * time.Millisecond) }

	if _, ok := tm.GetPredictionsForToken(token); ok {
		t.Fatal("expected prediction to have expired")
	}
}

func TestGenerateTokenSweepsExpiredEntries(t *testing.T) {
	defer func() { nowFunc = time.Now }()

	base := time.Unix(0, 0)
	nowFunc = func() time.Time { return base }

	tm := NewTokenManager(120 * time.Millisecond)
	stale := tm.GenerateTokenForPredictions(TimelineItem{StartTime: 1})

	nowFunc = func() time.Time { return base.Add(200 * time.Millisecond) }
	tm.GenerateTokenForPredictions(TimelineItem{StartTime: 2})

	tm.mu.Lock()
	_, stillTracked := tm.predictions[stale]
	tm.mu.Unlock()

	if stillTracked {
		t.Fatal("expected stale entry to be swept by the following GenerateTokenForPredictions call")
	}
}
