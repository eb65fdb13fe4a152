// Package mock provides test doubles for the asr package interfaces.
//
// Use Recognizer to script text output per call and inspect which windows
// were submitted:
//
//	r := &mock.Recognizer{Texts: []string{"hello ", "world"}}
//	res, _ := r.Recognize(ctx, samples, cache, false, asr.StreamParams{})
package mock

import (
	"context"
	"sync"

	"github.com/intgg/translator/pkg/provider/asr"
)

// RecognizeCall records a single invocation of Recognizer.Recognize.
type RecognizeCall struct {
	// NumSamples is the length of the submitted window.
	NumSamples int
	// IsFinal is the finalisation flag passed to the call.
	IsFinal bool
}

// Recognizer is a scripted implementation of asr.Recognizer. Each call
// returns the next entry of Texts; once Texts is exhausted, calls return an
// empty Result. Err, when non-nil, is returned by every call instead.
type Recognizer struct {
	mu sync.Mutex

	// Texts is the sequence of result texts to emit, one per call.
	Texts []string

	// Err, if non-nil, is returned by every Recognize call.
	Err error

	// Calls records every invocation.
	Calls []RecognizeCall

	next int
}

// Recognize implements asr.Recognizer.
func (r *Recognizer) Recognize(_ context.Context, samples []float32, _ *asr.Cache, isFinal bool, _ asr.StreamParams) (asr.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, RecognizeCall{NumSamples: len(samples), IsFinal: isFinal})
	if r.Err != nil {
		return asr.Result{}, r.Err
	}
	if r.next >= len(r.Texts) {
		return asr.Result{}, nil
	}
	text := r.Texts[r.next]
	r.next++
	return asr.Result{Text: text}, nil
}

// CallCount returns how many times Recognize has been invoked.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}
