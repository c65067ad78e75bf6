// Package softerror reports protocol violations that the frame timeline
// must never let escalate into a failure of the compositor. Every call is
// fire-and-forget: a missing or misbehaving reporter can never block or
// panic the caller.
package softerror

import "github.com/getsentry/sentry-go"

// Reporter forwards a non-fatal protocol violation to an external
// observability backend. Implementations must not block the caller for
// longer than a local in-memory operation would take.
type Reporter interface {
	ReportViolation(kind string, fields map[string]any)
}

// Noop discards every violation. It is the default when no reporter is
// configured, and is what tests use so assertions stay deterministic.
type Noop struct{}

// ReportViolation implements Reporter.
func (Noop) ReportViolation(string, map[string]any) {}

// Sentry forwards violations to Sentry as a warning-level captured message
// tagged with the violation kind, the same pattern the reference corpus uses
// for its own background-job failures: capture remotely, never return an
// error to the caller.
type Sentry struct {
	// Hub scopes the captured events; nil uses sentry.CurrentHub().
	Hub *sentry.Hub
}

// ReportViolation implements Reporter.
func (s Sentry) ReportViolation(kind string, fields map[string]any) {
	hub := s.Hub
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		scope.SetTag("violation_kind", kind)
		scope.SetContext("frametimeline", fields)
		hub.CaptureMessage("frametimeline: protocol violation: " + kind)
	})
}
