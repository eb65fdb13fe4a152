package resilience

import (
	"context"
	"fmt"

	"github.com/intgg/translator/pkg/provider/translate"
)

// Translator wraps a [translate.Translator] with a [Breaker]. While the
// breaker is open every call fails fast with [ErrOpen], so the caller's
// keep-the-source-text fallback kicks in without waiting out a network
// timeout per sentence.
type Translator struct {
	next    translate.Translator
	breaker *Breaker
}

// NewTranslator wraps next with a circuit breaker configured by s.
func NewTranslator(next translate.Translator, s Settings) *Translator {
	if s.Name == "" {
		s.Name = "translate"
	}
	return &Translator{
		next:    next,
		breaker: NewBreaker(s),
	}
}

// Translate forwards to the wrapped provider when the breaker allows it.
func (t *Translator) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	var result string
	err := t.breaker.Do(func() error {
		var callErr error
		result, callErr = t.next.Translate(ctx, text, fromLang, toLang)
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("resilience: translate: %w", err)
	}
	return result, nil
}

// State reports the wrapped breaker's state.
func (t *Translator) State() State {
	return t.breaker.State()
}
