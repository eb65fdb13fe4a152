package translate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	trmock "github.com/intgg/translator/pkg/provider/translate/mock"
)

func TestTranslateCachesRepeats(t *testing.T) {
	m := &trmock.Translator{}
	s := NewService(m, "en", "cn")
	ctx := context.Background()

	first, err := s.Translate(ctx, "hello world")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	second, err := s.Translate(ctx, "hello world")
	if err != nil {
		t.Fatalf("Translate repeat: %v", err)
	}
	if first != second {
		t.Errorf("cached result %q != first result %q", second, first)
	}
	if m.RequestCount() != 1 {
		t.Errorf("provider called %d times, want 1", m.RequestCount())
	}
}

func TestTranslateSameLanguagePassthrough(t *testing.T) {
	m := &trmock.Translator{}
	s := NewService(m, "en", "en")

	out, err := s.Translate(context.Background(), "already in target language")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "already in target language" {
		t.Errorf("out = %q, want input unchanged", out)
	}
	if m.RequestCount() != 0 {
		t.Error("provider called for same-language pair")
	}
}

func TestTranslateErrorNotCached(t *testing.T) {
	m := &trmock.Translator{Err: errors.New("backend unavailable")}
	s := NewService(m, "en", "cn")
	ctx := context.Background()

	if _, err := s.Translate(ctx, "hello"); err == nil {
		t.Fatal("error from provider not surfaced")
	}
	m.Err = nil
	out, err := s.Translate(ctx, "hello")
	if err != nil {
		t.Fatalf("Translate after recovery: %v", err)
	}
	if out == "" {
		t.Error("empty translation after recovery")
	}
	if m.RequestCount() != 2 {
		t.Errorf("provider called %d times, want retry after failure", m.RequestCount())
	}
}

func TestCacheEviction(t *testing.T) {
	m := &trmock.Translator{}
	s := NewService(m, "en", "cn", WithCacheSize(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Translate(ctx, fmt.Sprintf("sentence number %d", i)); err != nil {
			t.Fatalf("Translate %d: %v", i, err)
		}
	}
	if s.CachedCount() != 3 {
		t.Fatalf("CachedCount = %d, want capacity 3", s.CachedCount())
	}

	// Oldest entry was evicted and hits the provider again.
	before := m.RequestCount()
	s.Translate(ctx, "sentence number 0")
	if m.RequestCount() != before+1 {
		t.Error("evicted entry served from cache")
	}

	// Newest entry is still cached.
	before = m.RequestCount()
	s.Translate(ctx, "sentence number 4")
	if m.RequestCount() != before {
		t.Error("recent entry not served from cache")
	}
}
