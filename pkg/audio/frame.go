// Package audio provides the PCM primitives shared by every pipeline stage:
// the Frame type produced by audio sources, RMS energy computation used by
// the relative-silence detector, and a bounded queue that decouples the audio
// callback from the consumer loop.
package audio

import (
	"math"
	"time"
)

// DefaultSampleRate is the pipeline's native sample rate in Hz. Audio
// sources are expected to capture (or resample) to this rate.
const DefaultSampleRate = 16000

// Frame is a single chunk of mono float32 PCM samples flowing through the
// pipeline. Frames are the atomic unit of audio transport: captured by the
// source callback, queued, chunked for endpointing, and buffered for
// recognition. Ownership transfers with the frame; a frame must not be
// mutated after it has been handed to a queue or buffer.
type Frame struct {
	// Samples is raw mono PCM in [-1, 1].
	Samples []float32

	// SampleRate in Hz (16000 for the streaming recognizer).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the wall-clock length of the frame's audio.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// RMS returns the root-mean-square energy of samples. Zero-length input
// yields 0.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// SamplesForDuration returns the number of samples covering d at rate Hz.
func SamplesForDuration(rate int, d time.Duration) int {
	return int(int64(rate) * int64(d) / int64(time.Second))
}
