// Package edge implements synth.Synthesizer against the Microsoft Edge
// neural TTS websocket endpoint.
//
// One websocket connection is opened per utterance: the client sends a
// speech.config message and an SSML request, then collects binary audio
// frames until the service signals turn.end. Synthesised audio is written to
// a caller-supplied sink (an audio player, a file, a broadcast pipe);
// playback hardware is outside this package.
package edge

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/intgg/translator/pkg/provider/synth"
)

const (
	defaultEndpoint = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	trustedToken    = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	outputFormat    = "audio-24khz-48kbitrate-mono-mp3"
)

// localeForLang maps the short config language codes to BCP-47 TTS locales.
var localeForLang = map[string]string{
	"en": "en-US",
	"cn": "zh-CN",
	"ja": "ja-JP",
	"ko": "ko-KR",
	"fr": "fr-FR",
	"de": "de-DE",
	"es": "es-ES",
	"ru": "ru-RU",
	"it": "it-IT",
}

// defaultVoices is one reasonable neural voice per supported locale.
var defaultVoices = map[string]string{
	"en-US": "en-US-AriaNeural",
	"zh-CN": "zh-CN-XiaoxiaoNeural",
	"ja-JP": "ja-JP-NanamiNeural",
	"ko-KR": "ko-KR-SunHiNeural",
	"fr-FR": "fr-FR-DeniseNeural",
	"de-DE": "de-DE-KatjaNeural",
	"es-ES": "es-ES-ElviraNeural",
	"ru-RU": "ru-RU-SvetlanaNeural",
	"it-IT": "it-IT-ElsaNeural",
}

// ErrNoVoice is returned by SetVoiceForLanguage for languages without a
// known voice.
var ErrNoVoice = errors.New("edge: no voice for language")

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithEndpoint overrides the default websocket endpoint.
func WithEndpoint(url string) Option {
	return func(s *Synthesizer) { s.endpoint = url }
}

// WithVoice pins an explicit voice name instead of the per-locale default.
func WithVoice(voice string) Option {
	return func(s *Synthesizer) { s.voice = voice }
}

// WithSink directs synthesised audio (MP3 frames) to w. When no sink is set
// the audio is discarded, which is still useful for latency testing.
func WithSink(w io.Writer) Option {
	return func(s *Synthesizer) { s.sink = w }
}

// Synthesizer implements synth.Synthesizer against the Edge TTS service.
// All methods are safe for concurrent use, but the pipeline keeps at most
// one utterance in flight at a time.
type Synthesizer struct {
	endpoint string
	sink     io.Writer

	mu      sync.Mutex
	voice   string
	locale  string
	params  synth.Params
	playing bool
	cancel  context.CancelFunc
}

var _ synth.Synthesizer = (*Synthesizer)(nil)

// New creates an Edge TTS synthesizer. The default voice is US English
// until SetVoiceForLanguage or WithVoice picks another.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		endpoint: defaultEndpoint,
		voice:    defaultVoices["en-US"],
		locale:   "en-US",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetVoiceForLanguage implements synth.Synthesizer.
func (s *Synthesizer) SetVoiceForLanguage(lang string) error {
	locale, ok := localeForLang[lang]
	if !ok {
		locale = lang // allow a raw BCP-47 tag
	}
	voice, ok := defaultVoices[locale]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoVoice, lang)
	}
	s.mu.Lock()
	s.voice = voice
	s.locale = locale
	s.mu.Unlock()
	return nil
}

// SetParams implements synth.Synthesizer.
func (s *Synthesizer) SetParams(p synth.Params) {
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
}

// IsPlaying implements synth.Synthesizer.
func (s *Synthesizer) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Stop implements synth.Synthesizer.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Speak implements synth.Synthesizer. It returns immediately; the returned
// channel closes when the utterance has been fully received (or aborted).
func (s *Synthesizer) Speak(ctx context.Context, text string) (<-chan struct{}, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("edge: empty text")
	}

	s.mu.Lock()
	if s.playing {
		s.mu.Unlock()
		return nil, errors.New("edge: utterance already in flight")
	}
	utterCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.playing = true
	voice, locale, params := s.voice, s.locale, s.params
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.playing = false
			s.cancel = nil
			s.mu.Unlock()
			cancel()
		}()

		if err := s.synthesize(utterCtx, text, voice, locale, params); err != nil &&
			!errors.Is(err, context.Canceled) {
			slog.Error("edge tts synthesis failed", "err", err)
		}
	}()
	return done, nil
}

// synthesize runs one full websocket exchange for text.
func (s *Synthesizer) synthesize(ctx context.Context, text, voice, locale string, params synth.Params) error {
	connID := strings.ReplaceAll(uuid.NewString(), "-", "")
	url := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", s.endpoint, trustedToken, connID)

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("edge: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "utterance complete")

	if err := conn.Write(ctx, websocket.MessageText, []byte(configMessage())); err != nil {
		return fmt.Errorf("edge: send speech.config: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(ssmlMessage(connID, text, voice, locale, params))); err != nil {
		return fmt.Errorf("edge: send ssml: %w", err)
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("edge: read: %w", err)
		}
		switch typ {
		case websocket.MessageText:
			if strings.Contains(string(data), "Path:turn.end") {
				return nil
			}
		case websocket.MessageBinary:
			audio, ok := extractAudio(data)
			if !ok {
				continue
			}
			if s.sink != nil {
				if _, err := s.sink.Write(audio); err != nil {
					return fmt.Errorf("edge: write sink: %w", err)
				}
			}
		}
	}
}

// configMessage builds the speech.config text frame.
func configMessage() string {
	return "X-Timestamp:" + timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` + outputFormat + `"}}}}`
}

// ssmlMessage builds the SSML request frame for one utterance.
func ssmlMessage(requestID, text, voice, locale string, params synth.Params) string {
	ssml := fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'>`+
			`<voice name='%s'><prosody pitch='%+dHz' rate='%+d%%' volume='%+d%%'>%s</prosody></voice></speak>`,
		locale, voice, params.Pitch, params.Rate, params.Volume, escapeXML(text),
	)
	return "X-RequestId:" + requestID + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + timestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" + ssml
}

// extractAudio strips the length-prefixed header from a binary frame and
// returns the audio payload. Frames whose header is not an audio path are
// skipped.
func extractAudio(data []byte) ([]byte, bool) {
	if len(data) < 2 {
		return nil, false
	}
	headerLen := int(binary.BigEndian.Uint16(data[:2]))
	if len(data) < 2+headerLen {
		return nil, false
	}
	header := string(data[2 : 2+headerLen])
	if !strings.Contains(header, "Path:audio") {
		return nil, false
	}
	return data[2+headerLen:], true
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}
