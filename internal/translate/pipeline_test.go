package translate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craig7351/youtube-eng-cloud/internal/subtitle"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []string
	errOn string
}

func (f *fakeProvider) Translate(_ context.Context, text, _, _ string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if text == f.errOn {
		return "", errors.New("provider unavailable")
	}
	return "譯:" + text, nil
}

type memStore struct {
	mu    sync.Mutex
	data  map[string]string
	saves int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) LoadTranslations(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) SaveTranslations(_ context.Context, m map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.data = make(map[string]string, len(m))
	for k, v := range m {
		s.data[k] = v
	}
	return nil
}

func TestPipelineTranslatesMissingChinese(t *testing.T) {
	provider := &fakeProvider{}
	store := newMemStore()
	store.data["Cached sentence."] = "快取句。"
	cache := NewCache(context.Background(), store)
	registry := NewRegistry(time.Hour)
	p := NewPipeline(provider, cache, store, registry, "en", "zh-TW")

	cues := []subtitle.SentenceCue{
		{Start: 0, End: 1, English: "Cached sentence."},
		{Start: 1, End: 2, English: "Fresh sentence.", Chinese: "已有翻譯。"},
		{Start: 2, End: 3, English: "Needs work."},
	}

	key := NewProgressKey("vid1")
	out := p.Run(context.Background(), key, cues)
	require.Len(t, out, 3)
	assert.Equal(t, "快取句。", out[0].Chinese)
	assert.Equal(t, "已有翻譯。", out[1].Chinese)
	assert.Equal(t, "譯:Needs work.", out[2].Chinese)

	// Only the genuinely untranslated cue hits the provider.
	assert.Equal(t, []string{"Needs work."}, provider.calls)

	// The flush persisted the new translation.
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "譯:Needs work.", store.data["Needs work."])

	progress, ok := registry.Poll(key, 0)
	require.True(t, ok)
	assert.True(t, progress.Completed)
	assert.Equal(t, 3, progress.Current)
	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, 1, progress.Translated)
	assert.Equal(t, 2, progress.Cached)
	assert.Len(t, progress.NewItems, 3)
	assert.Equal(t, 3, progress.NextIndex)
}

func TestPipelineProviderFailureContinues(t *testing.T) {
	provider := &fakeProvider{errOn: "Bad sentence."}
	store := newMemStore()
	cache := NewCache(context.Background(), store)
	registry := NewRegistry(time.Hour)
	p := NewPipeline(provider, cache, store, registry, "en", "zh-TW")

	cues := []subtitle.SentenceCue{
		{English: "Bad sentence."},
		{English: "Good sentence."},
	}

	out := p.Run(context.Background(), "key", cues)
	require.Len(t, out, 2)
	assert.Empty(t, out[0].Chinese)
	assert.Equal(t, "譯:Good sentence.", out[1].Chinese)
	assert.Equal(t, 1, store.saves)
}

func TestPipelineNoNewTranslationsSkipsFlush(t *testing.T) {
	provider := &fakeProvider{}
	store := newMemStore()
	store.data["Only sentence."] = "唯一。"
	cache := NewCache(context.Background(), store)
	registry := NewRegistry(time.Hour)
	p := NewPipeline(provider, cache, store, registry, "en", "zh-TW")

	out := p.Run(context.Background(), "key", []subtitle.SentenceCue{{English: "Only sentence."}})
	require.Len(t, out, 1)
	assert.Equal(t, "唯一。", out[0].Chinese)
	assert.Empty(t, provider.calls)
	assert.Zero(t, store.saves)
}

func TestPipelineContextCancellation(t *testing.T) {
	provider := &fakeProvider{}
	store := newMemStore()
	cache := NewCache(context.Background(), store)
	registry := NewRegistry(time.Hour)
	p := NewPipeline(provider, cache, store, registry, "en", "zh-TW")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := p.Run(ctx, "key", []subtitle.SentenceCue{{English: "Never reached."}})
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Chinese)
	assert.Empty(t, provider.calls)

	progress, ok := registry.Poll("key", 0)
	require.True(t, ok)
	assert.True(t, progress.Completed)
}

func TestRegistryPollIncremental(t *testing.T) {
	registry := NewRegistry(time.Hour)
	registry.Register("k", 3)
	registry.Update("k", 1, 1, 0, 0.1, subtitle.SentenceCue{English: "one"})
	registry.Update("k", 2, 2, 0, 0.2, subtitle.SentenceCue{English: "two"})

	progress, ok := registry.Poll("k", 0)
	require.True(t, ok)
	assert.Len(t, progress.NewItems, 2)
	assert.Equal(t, 2, progress.NextIndex)
	assert.False(t, progress.Completed)

	registry.Update("k", 3, 3, 0, 0.3, subtitle.SentenceCue{English: "three"})
	registry.Complete("k")

	progress, ok = registry.Poll("k", progress.NextIndex)
	require.True(t, ok)
	require.Len(t, progress.NewItems, 1)
	assert.Equal(t, "three", progress.NewItems[0].English)
	assert.True(t, progress.Completed)

	_, ok = registry.Poll("missing", 0)
	assert.False(t, ok)
}

func TestRegistrySweep(t *testing.T) {
	registry := NewRegistry(time.Hour)
	registry.Register("done", 1)
	registry.Complete("done")
	registry.Register("running", 1)

	// Nothing expires inside the TTL window.
	assert.Zero(t, registry.Sweep(time.Now()))

	removed := registry.Sweep(time.Now().Add(2 * time.Hour))
	assert.Equal(t, 1, removed)

	_, ok := registry.Poll("done", 0)
	assert.False(t, ok)
	_, ok = registry.Poll("running", 0)
	assert.True(t, ok)
}

func TestNewProgressKey(t *testing.T) {
	key := NewProgressKey("abc123")
	assert.True(t, strings.HasPrefix(key, "abc123_"))
	assert.NotEqual(t, key, NewProgressKey("abc123"))
}
