// Package mock provides a test double for the translate package.
package mock

import (
	"context"
	"sync"
)

// Translator is a mock implementation of translate.Translator. When Fn is
// set it is called for every request; otherwise the result is looked up in
// Results, falling back to "<toLang>:"+text so tests can assert the exact
// input that was translated.
type Translator struct {
	mu sync.Mutex

	// Fn, when non-nil, computes every translation.
	Fn func(text, fromLang, toLang string) (string, error)

	// Results maps source text to a fixed translation.
	Results map[string]string

	// Err, if non-nil, is returned by every Translate call.
	Err error

	// Requests records every translated source text in order.
	Requests []string
}

// Translate implements translate.Translator.
func (t *Translator) Translate(_ context.Context, text, fromLang, toLang string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Requests = append(t.Requests, text)
	if t.Err != nil {
		return "", t.Err
	}
	if t.Fn != nil {
		return t.Fn(text, fromLang, toLang)
	}
	if r, ok := t.Results[text]; ok {
		return r, nil
	}
	return toLang + ":" + text, nil
}

// RequestCount returns the number of Translate calls so far.
func (t *Translator) RequestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Requests)
}
