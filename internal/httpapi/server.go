package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/craig7351/youtube-eng-cloud/internal/learner"
	"github.com/craig7351/youtube-eng-cloud/internal/subtitle"
	"github.com/craig7351/youtube-eng-cloud/internal/translate"
)

// Acquirer produces aligned bilingual cues for a video.
type Acquirer interface {
	Acquire(ctx context.Context, videoID string) ([]subtitle.SentenceCue, error)
}

// TranslationRunner executes one translation job to completion.
type TranslationRunner interface {
	Run(ctx context.Context, key string, cues []subtitle.SentenceCue) []subtitle.SentenceCue
}

// SubtitleStore persists cue sets; the server writes back translated cues
// when a background job finishes.
type SubtitleStore interface {
	PutSubtitleCache(ctx context.Context, videoID string, cues []subtitle.SentenceCue) error
}

type Server struct {
	acquirer Acquirer
	runner   TranslationRunner
	registry *translate.Registry
	store    SubtitleStore
	learners *learner.Store
	provider translate.Provider

	dictionaryEndpoint string
	ttsEndpoint        string
	httpClient         *http.Client

	uiEnabled   bool
	uiStaticDir string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

// WithDictionaryEndpoint overrides the upstream dictionary API base URL.
func WithDictionaryEndpoint(endpoint string) Option {
	return func(s *Server) { s.dictionaryEndpoint = endpoint }
}

// WithTTSEndpoint overrides the upstream text-to-speech base URL.
func WithTTSEndpoint(endpoint string) Option {
	return func(s *Server) { s.ttsEndpoint = endpoint }
}

// WithHTTPClient replaces the client used for upstream passthrough calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Server) { s.httpClient = client }
}

func NewServer(
	acquirer Acquirer,
	runner TranslationRunner,
	registry *translate.Registry,
	store SubtitleStore,
	learners *learner.Store,
	provider translate.Provider,
	opts ...Option,
) *Server {
	s := &Server{
		acquirer:           acquirer,
		runner:             runner,
		registry:           registry,
		store:              store,
		learners:           learners,
		provider:           provider,
		dictionaryEndpoint: defaultDictionaryEndpoint,
		ttsEndpoint:        defaultTTSEndpoint,
		httpClient:         &http.Client{Timeout: 10 * time.Second},
		mux:                http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/subtitles/", s.handleSubtitles)
	s.mux.HandleFunc("/api/translation-progress/", s.handleTranslationProgress)
	s.mux.HandleFunc("/api/word/", s.handleWordInfo)
	s.mux.HandleFunc("/api/tts/", s.handleTTS)
	s.mux.HandleFunc("/api/word-banks", s.handleWordBanks)
	s.mux.HandleFunc("/api/word-banks/", s.handleWordBank)
	s.mux.HandleFunc("/api/bookmarks", s.handleBookmarks)
	s.mux.HandleFunc("/api/bookmarks/record-view", s.handleRecordBookmarkView)
	s.mux.HandleFunc("/api/user/stats", s.handleUserStats)
	s.mux.HandleFunc("/api/user/stats/update", s.handleUserStatsUpdate)
	s.mux.HandleFunc("/api/global/stats", s.handleGlobalStats)
	s.mux.HandleFunc("/api/leaderboard/learning-time", s.handleLearningTimeLeaderboard)
	s.mux.HandleFunc("/api/leaderboard/review-score", s.handleReviewScoreLeaderboard)
	s.mux.HandleFunc("/api/leaderboard/bookmarks", s.handleBookmarkLeaderboard)
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
