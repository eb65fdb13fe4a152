// Package translate wraps a translation provider with the policies
// the pipeline needs: result caching for re-stabilized sentences and a
// passthrough when source and target language already match.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/intgg/translator/pkg/provider/translate"
)

const defaultCacheSize = 100

// Service translates sentences between a fixed language pair.
type Service struct {
	tr    translate.Translator
	cache *lruCache
	log   *slog.Logger
	from  string
	to    string
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithCacheSize(n int) Option {
	return func(s *Service) { s.cache = newLRUCache(n) }
}

func NewService(tr translate.Translator, fromLang, toLang string, o ...Option) *Service {
	s := &Service{
		tr:    tr,
		cache: newLRUCache(defaultCacheSize),
		log:   slog.Default(),
		from:  fromLang,
		to:    toLang,
	}
	for _, fn := range o {
		fn(s)
	}
	return s
}

// Translate returns the translation for text, serving repeats from the
// cache. Identical source and target language short-circuits to the
// input unchanged.
func (s *Service) Translate(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if s.from == s.to {
		return text, nil
	}

	key := s.from + "|" + s.to + "|" + text
	if cached, ok := s.cache.get(key); ok {
		return cached, nil
	}

	out, err := s.tr.Translate(ctx, text, s.from, s.to)
	if err != nil {
		return "", fmt.Errorf("translate: %s->%s: %w", s.from, s.to, err)
	}
	out = strings.TrimSpace(out)
	s.cache.put(key, out)
	return out, nil
}

// CachedCount reports how many translations are currently cached.
func (s *Service) CachedCount() int { return s.cache.len() }
