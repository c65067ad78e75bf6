package tracesink

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fanoutBatchSize mirrors the reference distribution loop's sequential-vs-
// parallel threshold (publishBatchSize in framesupplier): below it, fan out
// in a plain loop; at or above it, spawn an errgroup so registered backends
// are published to concurrently.
const fanoutBatchSize = 8

// Fanout emits every packet to all of its backends. Unlike Bus (which drops
// on a full channel and never reports an error) a backend here is a real
// external sink whose Emit call can fail, so Fanout surfaces the first
// error via errgroup rather than swallowing it. Callers decide whether a
// backend failure is itself a soft error.
type Fanout struct {
	backends []Source
}

// NewFanout constructs a Fanout over the given backends.
func NewFanout(backends ...Source) *Fanout {
	return &Fanout{backends: backends}
}

// OnBootFinished registers the data source with every backend.
func (f *Fanout) OnBootFinished() error {
	return f.run(func(s Source) error { return s.OnBootFinished() })
}

// EmitDisplayFrame implements Source.
func (f *Fanout) EmitDisplayFrame(pkt DisplayFramePacket) error {
	return f.run(func(s Source) error { return s.EmitDisplayFrame(pkt) })
}

// EmitSurfaceFrame implements Source.
func (f *Fanout) EmitSurfaceFrame(pkt SurfaceFramePacket) error {
	return f.run(func(s Source) error { return s.EmitSurfaceFrame(pkt) })
}

func (f *Fanout) run(call func(Source) error) error {
	if len(f.backends) < fanoutBatchSize {
		var firstErr error
		for _, s := range f.backends {
			if err := call(s); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, s := range f.backends {
		s := s
		g.Go(func() error { return call(s) })
	}
	return g.Wait()
}
