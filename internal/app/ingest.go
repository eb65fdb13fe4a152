package app

import (
	"encoding/binary"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/intgg/translator/pkg/audio"
)

// handleIngest accepts a websocket connection streaming raw audio into
// the session. Each binary message is one frame of little-endian float32
// mono PCM at the configured sample rate. Text messages are ignored.
//
// Frames arriving faster than the pipeline drains them displace the
// oldest queued frame; the intake never blocks the sender.
func (a *App) handleIngest(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("audio ingest: accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream ended")

	slog.Info("audio ingest connected", "remote", r.RemoteAddr)

	rate := a.cfg.Audio.SampleRate
	var streamed int // samples received so far, for frame timestamps

	for {
		typ, data, err := conn.Read(r.Context())
		if err != nil {
			slog.Debug("audio ingest closed", "remote", r.RemoteAddr, "err", err)
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}
		samples := decodePCM(data)
		if len(samples) == 0 {
			continue
		}
		a.Push(audio.Frame{
			Samples:    samples,
			SampleRate: rate,
			Timestamp:  time.Duration(streamed) * time.Second / time.Duration(rate),
		})
		streamed += len(samples)
	}
}

// decodePCM converts little-endian float32 bytes into samples. A
// trailing partial sample is dropped.
func decodePCM(data []byte) []float32 {
	n := len(data) / 4
	if n == 0 {
		return nil
	}
	samples := make([]float32, n)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
