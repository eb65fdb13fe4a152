package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/intgg/translator/pkg/provider/asr"
	"github.com/intgg/translator/pkg/provider/punc"
	"github.com/intgg/translator/pkg/provider/synth"
	"github.com/intgg/translator/pkg/provider/translate"
	"github.com/intgg/translator/pkg/provider/vad"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	asr       map[string]func(ProviderEntry) (asr.Recognizer, error)
	vad       map[string]func(ProviderEntry) (vad.Detector, error)
	punc      map[string]func(ProviderEntry) (punc.Restorer, error)
	translate map[string]func(ProviderEntry) (translate.Translator, error)
	synth     map[string]func(ProviderEntry) (synth.Synthesizer, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr:       make(map[string]func(ProviderEntry) (asr.Recognizer, error)),
		vad:       make(map[string]func(ProviderEntry) (vad.Detector, error)),
		punc:      make(map[string]func(ProviderEntry) (punc.Restorer, error)),
		translate: make(map[string]func(ProviderEntry) (translate.Translator, error)),
		synth:     make(map[string]func(ProviderEntry) (synth.Synthesizer, error)),
	}
}

// RegisterASR registers a speech recognizer factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (asr.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterVAD registers a voice activity detector factory under name.
func (r *Registry) RegisterVAD(name string, factory func(ProviderEntry) (vad.Detector, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// RegisterPunc registers a punctuation restorer factory under name.
func (r *Registry) RegisterPunc(name string, factory func(ProviderEntry) (punc.Restorer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.punc[name] = factory
}

// RegisterTranslate registers a translator factory under name.
func (r *Registry) RegisterTranslate(name string, factory func(ProviderEntry) (translate.Translator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translate[name] = factory
}

// RegisterSynth registers a speech synthesizer factory under name.
func (r *Registry) RegisterSynth(name string, factory func(ProviderEntry) (synth.Synthesizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.synth[name] = factory
}

// CreateASR instantiates a recognizer using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateASR(entry ProviderEntry) (asr.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateVAD instantiates a voice activity detector using the factory registered under entry.Name.
func (r *Registry) CreateVAD(entry ProviderEntry) (vad.Detector, error) {
	r.mu.RLock()
	factory, ok := r.vad[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreatePunc instantiates a punctuation restorer using the factory registered under entry.Name.
func (r *Registry) CreatePunc(entry ProviderEntry) (punc.Restorer, error) {
	r.mu.RLock()
	factory, ok := r.punc[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: punc/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTranslate instantiates a translator using the factory registered under entry.Name.
func (r *Registry) CreateTranslate(entry ProviderEntry) (translate.Translator, error) {
	r.mu.RLock()
	factory, ok := r.translate[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: translate/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSynth instantiates a synthesizer using the factory registered under entry.Name.
func (r *Registry) CreateSynth(entry ProviderEntry) (synth.Synthesizer, error) {
	r.mu.RLock()
	factory, ok := r.synth[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: synth/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
