// Package translate defines the Translator interface for text translation
// backends.
//
// Translation in the interpreter pipeline is a best-effort collaborator: a
// failed or empty result simply means the sentence stays untranslated until
// the next attempt. Caching and retry policy belong to the caller, not the
// provider.
package translate

import "context"

// Translator is the abstraction over any translation backend.
//
// Implementations must be safe for concurrent use.
type Translator interface {
	// Translate renders text from the source language into the target
	// language. Language codes are short tags as configured (e.g., "cn",
	// "en"); providers map them to whatever their API expects.
	//
	// An empty result with nil error means the provider had nothing to say;
	// callers treat it like a failure for that tick.
	Translate(ctx context.Context, text, fromLang, toLang string) (string, error)
}
