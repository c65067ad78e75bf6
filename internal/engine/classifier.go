package engine

// classifyStart compares an actual start time to its prediction.
func classifyStart(predStart, actualStart int64, threshold Thresholds) FrameStartMetadata {
	diff := actualStart - predStart
	if abs64(diff) <= threshold.StartThreshold {
		return OnTimeStart
	}
	if diff > threshold.StartThreshold {
		return LateStart
	}
	return EarlyStart
}

// classifyReady compares an actual finish time to its predicted deadline.
// Finishing early is treated as on time.
func classifyReady(predEnd, actualEnd int64, threshold Thresholds) FrameReadyMetadata {
	if actualEnd <= predEnd+threshold.DeadlineThreshold {
		return OnTimeFinish
	}
	return LateFinish
}

// classifyPresent compares an actual present time to its prediction.
func classifyPresent(predPresent, actualPresent int64, threshold Thresholds) FramePresentMetadata {
	diff := actualPresent - predPresent
	if abs64(diff) <= threshold.PresentThreshold {
		return OnTimePresent
	}
	if diff > 0 {
		return LatePresent
	}
	return EarlyPresent
}

// classifyDisplayFrameJank composes a DisplayFrame's jank bitmask from its
// Ready and Present metadata, per the classifier's combination table.
func classifyDisplayFrameJank(ready FrameReadyMetadata, present FramePresentMetadata, predPresent, actualPresent, vsyncPeriod int64) JankType {
	slippedFullPeriod := vsyncPeriod > 0 && abs64(actualPresent-predPresent) >= vsyncPeriod

	switch {
	case ready == OnTimeFinish && present == OnTimePresent:
		return JankNone
	case ready == LateFinish && present == LatePresent:
		return JankSurfaceFlingerDeadlineMissed
	case ready == OnTimeFinish && present == LatePresent:
		return JankDisplayHAL
	case present == EarlyPresent:
		jank := JankSurfaceFlingerScheduling
		if slippedFullPeriod {
			jank |= JankPredictionError
		}
		return jank
	case ready == LateFinish && present == OnTimePresent:
		if abs64(actualPresent-predPresent) <= vsyncPeriod {
			return JankNone
		}
		return JankPredictionError
	default:
		return JankUnknown
	}
}

// jankInputs bundles the predicted/actual timeline pair and thresholds a
// single classification pass needs, so the per-surface and per-display
// call sites share one signature.
type jankInputs struct {
	predicted  TimelineItem
	actual     TimelineItem
	thresholds Thresholds
}

// classifySurfaceFrameJank runs the Ready/Present classification against a
// surface's own predictions and actuals, then layers on the attribution
// rules: deadline inheritance, app-side deadline misses, buffer stuffing
// detection, and DisplayHAL propagation.
func classifySurfaceFrameJank(
	in jankInputs,
	displayFrameJank JankType,
	vsyncPeriod int64,
	presentState PresentState,
	lastLatchTime int64,
	predictionState PredictionState,
) (FrameReadyMetadata, FramePresentMetadata, JankType) {
	if predictionState != PredictionValid {
		return UnknownFinish, UnknownPresent, JankNone
	}

	ready := classifyReady(in.predicted.EndTime, in.actual.EndTime, in.thresholds)

	var present FramePresentMetadata = UnknownPresent
	if presentState == PresentPresented {
		present = classifyPresent(in.predicted.PresentTime, in.actual.PresentTime, in.thresholds)
	}

	switch {
	case displayFrameJank.Has(JankSurfaceFlingerDeadlineMissed):
		return ready, present, JankSurfaceFlingerDeadlineMissed
	case ready == LateFinish:
		return ready, present, JankAppDeadlineMissed
	case presentState == PresentPresented && lastLatchTime != 0 &&
		lastLatchTime >= in.predicted.PresentTime-vsyncPeriod && lastLatchTime <= in.predicted.PresentTime:
		return ready, present, JankAppBufferStuffing
	case displayFrameJank.Has(JankDisplayHAL):
		return ready, present, JankDisplayHAL
	default:
		return ready, present, JankNone
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
