package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craig7351/youtube-eng-cloud/internal/acquire"
	"github.com/craig7351/youtube-eng-cloud/internal/learner"
	"github.com/craig7351/youtube-eng-cloud/internal/persistence"
	"github.com/craig7351/youtube-eng-cloud/internal/subtitle"
	"github.com/craig7351/youtube-eng-cloud/internal/translate"
)

type fakeAcquirer struct {
	cues map[string][]subtitle.SentenceCue
	err  error
}

func (f *fakeAcquirer) Acquire(_ context.Context, videoID string) ([]subtitle.SentenceCue, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cues[videoID], nil
}

type fakeRunner struct {
	mu   sync.Mutex
	runs []string
	fn   func(key string, cues []subtitle.SentenceCue) []subtitle.SentenceCue
}

func (f *fakeRunner) Run(_ context.Context, key string, cues []subtitle.SentenceCue) []subtitle.SentenceCue {
	f.mu.Lock()
	f.runs = append(f.runs, key)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(key, cues)
	}
	return cues
}

type fakeSubtitleStore struct {
	mu   sync.Mutex
	puts map[string][]subtitle.SentenceCue
	done chan struct{}
}

func newFakeSubtitleStore() *fakeSubtitleStore {
	return &fakeSubtitleStore{
		puts: make(map[string][]subtitle.SentenceCue),
		done: make(chan struct{}, 8),
	}
}

func (f *fakeSubtitleStore) PutSubtitleCache(_ context.Context, videoID string, cues []subtitle.SentenceCue) error {
	f.mu.Lock()
	f.puts[videoID] = cues
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

type staticProvider struct{}

func (staticProvider) Translate(_ context.Context, text, _, _ string) (string, error) {
	return "譯:" + text, nil
}

func newTestServer(t *testing.T, acq Acquirer, runner TranslationRunner, store SubtitleStore, opts ...Option) (*Server, *learner.Store) {
	t.Helper()
	sqlite, err := persistence.NewSQLiteStore(t.TempDir() + "/captions.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	learners := learner.NewStore(sqlite)

	registry := translate.NewRegistry(time.Hour)
	srv := NewServer(acq, runner, registry, store, learners, staticProvider{}, opts...)
	return srv, learners
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestSubtitlesWithEnoughChinese(t *testing.T) {
	cues := []subtitle.SentenceCue{
		{English: "One.", Chinese: "一。"},
		{English: "Two.", Chinese: "二。"},
	}
	acq := &fakeAcquirer{cues: map[string][]subtitle.SentenceCue{"vid1": cues}}
	runner := &fakeRunner{}
	srv, _ := newTestServer(t, acq, runner, newFakeSubtitleStore())

	rec, body := doJSON(t, srv.Handler(), http.MethodGet, "/api/subtitles/vid1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "vid1", body["video_id"])
	assert.Equal(t, false, body["needs_translation"])
	assert.Len(t, body["subtitles"], 2)
	assert.Empty(t, runner.runs)
}

func TestSubtitlesStartsBackgroundTranslation(t *testing.T) {
	cues := []subtitle.SentenceCue{
		{English: "One."},
		{English: "Two."},
	}
	acq := &fakeAcquirer{cues: map[string][]subtitle.SentenceCue{"vid2": cues}}
	store := newFakeSubtitleStore()
	runner := &fakeRunner{fn: func(_ string, in []subtitle.SentenceCue) []subtitle.SentenceCue {
		out := make([]subtitle.SentenceCue, len(in))
		copy(out, in)
		for i := range out {
			out[i].Chinese = "譯:" + out[i].English
		}
		return out
	}}
	srv, _ := newTestServer(t, acq, runner, store)

	rec, body := doJSON(t, srv.Handler(), http.MethodGet, "/api/subtitles/vid2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["needs_translation"])
	key, _ := body["translation_progress_key"].(string)
	require.NotEmpty(t, key)

	// The background goroutine writes the translated cues back.
	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("translation writeback did not happen")
	}
	store.mu.Lock()
	saved := store.puts["vid2"]
	store.mu.Unlock()
	require.Len(t, saved, 2)
	assert.Equal(t, "譯:One.", saved[0].Chinese)
}

func TestSubtitlesAcquireExhausted(t *testing.T) {
	acq := &fakeAcquirer{err: &acquire.ExhaustedError{VideoID: "vid3", Reason: "no English captions available"}}
	srv, _ := newTestServer(t, acq, &fakeRunner{}, newFakeSubtitleStore())

	rec, body := doJSON(t, srv.Handler(), http.MethodGet, "/api/subtitles/vid3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "no English captions")
}

func TestSubtitlesMissingID(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAcquirer{}, &fakeRunner{}, newFakeSubtitleStore())
	rec, _ := doJSON(t, srv.Handler(), http.MethodGet, "/api/subtitles/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslationProgressPolling(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAcquirer{}, &fakeRunner{}, newFakeSubtitleStore())
	srv.registry.Register("vid_abc", 2)
	srv.registry.Update("vid_abc", 1, 1, 0, 0.5, subtitle.SentenceCue{English: "One.", Chinese: "一。"})

	rec, body := doJSON(t, srv.Handler(), http.MethodGet, "/api/translation-progress/vid_abc?last_index=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["current"])
	assert.EqualValues(t, 2, body["total"])
	assert.Len(t, body["new_items"], 1)
	assert.EqualValues(t, 1, body["last_index"])

	rec, body = doJSON(t, srv.Handler(), http.MethodGet, "/api/translation-progress/vid_abc?last_index=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["new_items"], 0)

	rec, _ = doJSON(t, srv.Handler(), http.MethodGet, "/api/translation-progress/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubtitlesUpdateRequiresCompletedJob(t *testing.T) {
	cues := []subtitle.SentenceCue{{English: "One.", Chinese: "一。"}}
	acq := &fakeAcquirer{cues: map[string][]subtitle.SentenceCue{"vid4": cues}}
	srv, _ := newTestServer(t, acq, &fakeRunner{}, newFakeSubtitleStore())

	rec, _ := doJSON(t, srv.Handler(), http.MethodGet, "/api/subtitles/vid4/update", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, srv.Handler(), http.MethodGet, "/api/subtitles/vid4/update?progress_key=vid4_x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	srv.registry.Register("vid4_x", 1)
	srv.registry.Complete("vid4_x")

	rec, body := doJSON(t, srv.Handler(), http.MethodGet, "/api/subtitles/vid4/update?progress_key=vid4_x", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["needs_translation"])
	assert.Len(t, body["subtitles"], 1)
}

func TestWordBankEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAcquirer{}, &fakeRunner{}, newFakeSubtitleStore())
	h := srv.Handler()

	rec, _ := doJSON(t, h, http.MethodPost, "/api/word-banks", map[string]any{
		"name": "default", "nickname": "alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/word-banks", map[string]any{
		"name": "default", "nickname": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/word-banks/default/add-word", map[string]any{
		"word": "Hello", "nickname": "alice",
		"word_info": map[string]any{"definition": "a greeting"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, h, http.MethodGet, "/api/word-banks?nickname=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	banks := body["word_banks"].([]any)
	require.Len(t, banks, 1)
	assert.EqualValues(t, 1, banks[0].(map[string]any)["word_count"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/word-banks/default?nickname=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "default", body["name"])
	assert.Len(t, body["words"], 1)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/word-banks/default/remove-word", map[string]any{
		"word": "hello", "nickname": "alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/word-banks/default/remove-word", map[string]any{
		"word": "hello", "nickname": "alice",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, h, http.MethodDelete, "/api/word-banks/default?nickname=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, h, http.MethodGet, "/api/word-banks/default?nickname=alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Nickname is mandatory on every bank route.
	rec, _ = doJSON(t, h, http.MethodGet, "/api/word-banks", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookmarkEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAcquirer{}, &fakeRunner{}, newFakeSubtitleStore())
	h := srv.Handler()

	rec, _ := doJSON(t, h, http.MethodPost, "/api/bookmarks", map[string]any{
		"nickname": "alice",
		"bookmarks": []map[string]any{
			{"url": "https://youtu.be/abc", "title": "First"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, h, http.MethodGet, "/api/bookmarks?nickname=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["bookmarks"], 1)

	rec, _ = doJSON(t, h, http.MethodPost, "/api/bookmarks/record-view", map[string]any{
		"url": "https://youtu.be/abc",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = doJSON(t, h, http.MethodGet, "/api/leaderboard/bookmarks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ranked := body["leaderboard"].([]any)
	require.Len(t, ranked, 1)
	assert.EqualValues(t, 1, ranked[0].(map[string]any)["view_count"])

	rec, _ = doJSON(t, h, http.MethodDelete, "/api/bookmarks", map[string]any{
		"nickname": "alice", "url": "https://youtu.be/abc",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, h, http.MethodDelete, "/api/bookmarks", map[string]any{
		"nickname": "alice", "url": "https://youtu.be/abc",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAcquirer{}, &fakeRunner{}, newFakeSubtitleStore())
	h := srv.Handler()

	rec, body := doJSON(t, h, http.MethodGet, "/api/user/stats?nickname=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["learning_time"])

	rec, body = doJSON(t, h, http.MethodPost, "/api/user/stats/update", map[string]any{
		"nickname": "alice",
		"stats":    map[string]any{"learning_time": 600, "videos_watched": 2},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 600, stats["learning_time"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/global/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total_users"])
	assert.EqualValues(t, 600, body["total_learning_seconds"])

	rec, body = doJSON(t, h, http.MethodGet, "/api/leaderboard/learning-time", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ranked := body["leaderboard"].([]any)
	require.Len(t, ranked, 1)
	assert.Equal(t, "alice", ranked[0].(map[string]any)["nickname"])

	rec, _ = doJSON(t, h, http.MethodGet, "/api/leaderboard/review-score", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWordInfoPhrase(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAcquirer{}, &fakeRunner{}, newFakeSubtitleStore())

	rec, body := doJSON(t, srv.Handler(), http.MethodGet, "/api/word/give%20up", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "give up", body["word"])
	assert.Equal(t, "譯:give up", body["wordTranslation"])
	assert.Equal(t, true, body["isPhrase"])
}

func TestWordInfoDictionaryEntry(t *testing.T) {
	dict := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hello", r.URL.Path)
		w.Write([]byte(`[{
			"phonetic": "/həˈləʊ/",
			"meanings": [{
				"partOfSpeech": "noun",
				"definitions": [{"definition": "a greeting", "example": "she gave me a warm hello"}],
				"synonyms": ["greeting"]
			}]
		}]`))
	}))
	defer dict.Close()

	srv, _ := newTestServer(t, &fakeAcquirer{}, &fakeRunner{}, newFakeSubtitleStore(),
		WithDictionaryEndpoint(dict.URL), WithHTTPClient(dict.Client()))

	rec, body := doJSON(t, srv.Handler(), http.MethodGet, "/api/word/hello", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", body["word"])
	assert.Equal(t, "/həˈləʊ/", body["phonetic"])
	assert.Equal(t, false, body["isPhrase"])

	meanings := body["meanings"].([]any)
	require.Len(t, meanings, 1)
	meaning := meanings[0].(map[string]any)
	assert.Equal(t, "noun", meaning["partOfSpeech"])
	defs := meaning["definitions"].([]any)
	require.Len(t, defs, 1)
	def := defs[0].(map[string]any)
	assert.Equal(t, "a greeting", def["definition"])
	assert.Equal(t, "譯:a greeting", def["definitionZh"])
	assert.Equal(t, "譯:she gave me a warm hello", def["exampleZh"])
}

func TestWordInfoUnknownWordFallsBackToPhrase(t *testing.T) {
	dict := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dict.Close()

	srv, _ := newTestServer(t, &fakeAcquirer{}, &fakeRunner{}, newFakeSubtitleStore(),
		WithDictionaryEndpoint(dict.URL), WithHTTPClient(dict.Client()))

	rec, body := doJSON(t, srv.Handler(), http.MethodGet, "/api/word/zzzxyzzy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["isPhrase"])
	assert.Equal(t, "譯:zzzxyzzy", body["wordTranslation"])
}

func TestTTSPassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hello world", r.URL.Query().Get("q"))
		assert.Equal(t, "tw-ob", r.URL.Query().Get("client"))
		w.Write([]byte("FAKE-MP3-BYTES"))
	}))
	defer upstream.Close()

	srv, _ := newTestServer(t, &fakeAcquirer{}, &fakeRunner{}, newFakeSubtitleStore(),
		WithTTSEndpoint(upstream.URL), WithHTTPClient(upstream.Client()))

	req := httptest.NewRequest(http.MethodGet, "/api/tts/hello%20world", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "FAKE-MP3-BYTES", rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAcquirer{}, &fakeRunner{}, newFakeSubtitleStore())
	h := srv.Handler()

	rec, _ := doJSON(t, h, http.MethodPost, "/api/subtitles/vid", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = doJSON(t, h, http.MethodDelete, "/api/user/stats?nickname=a", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
