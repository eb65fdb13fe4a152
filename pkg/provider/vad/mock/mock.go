// Package mock provides a scripted test double for the vad package.
package mock

import (
	"context"
	"sync"

	"github.com/intgg/translator/pkg/provider/vad"
)

// Detector is a scripted implementation of vad.Detector. Each Detect call
// returns the next entry of Spans (nil entries mean "no boundaries this
// chunk"); once exhausted, calls return no spans. Err, when non-nil, is
// returned by every call instead.
type Detector struct {
	mu sync.Mutex

	// Spans is the per-call script of boundary reports.
	Spans [][]vad.Span

	// Err, if non-nil, is returned by every Detect call.
	Err error

	// Finals counts calls with isFinal=true.
	Finals int

	calls int
}

// Detect implements vad.Detector.
func (d *Detector) Detect(_ context.Context, _ []float32, _ *vad.Cache, isFinal bool, _ int) ([]vad.Span, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if isFinal {
		d.Finals++
	}
	if d.Err != nil {
		return nil, d.Err
	}
	if d.calls >= len(d.Spans) {
		return nil, nil
	}
	spans := d.Spans[d.calls]
	d.calls++
	return spans, nil
}

// CallCount returns how many times Detect has been invoked.
func (d *Detector) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
