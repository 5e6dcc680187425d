package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/craig7351/youtube-eng-cloud/internal/acquire"
	"github.com/craig7351/youtube-eng-cloud/internal/subtitle"
	"github.com/craig7351/youtube-eng-cloud/internal/translate"
	"github.com/craig7351/youtube-eng-cloud/pkg/log"
)

// translationThreshold is the Chinese coverage ratio below which a
// background translation job is started.
const translationThreshold = 0.1

type subtitlesResponse struct {
	VideoID          string                 `json:"video_id"`
	Subtitles        []subtitle.SentenceCue `json:"subtitles"`
	NeedsTranslation bool                   `json:"needs_translation"`
	ProgressKey      string                 `json:"translation_progress_key,omitempty"`
	HasChinese       int                    `json:"has_chinese,omitempty"`
	Total            int                    `json:"total,omitempty"`
}

// handleSubtitles serves /api/subtitles/{videoID} and
// /api/subtitles/{videoID}/update.
func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/subtitles/")
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "missing video id")
		return
	}

	if videoID, ok := strings.CutSuffix(rest, "/update"); ok {
		s.handleSubtitlesUpdate(w, r, strings.TrimSuffix(videoID, "/"))
		return
	}
	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.handleSubtitlesFetch(w, r, rest)
}

func (s *Server) handleSubtitlesFetch(w http.ResponseWriter, r *http.Request, videoID string) {
	start := time.Now()
	log.Info("Subtitle request for %s", videoID)

	cues, err := s.acquirer.Acquire(r.Context(), videoID)
	if err != nil {
		var exhausted *acquire.ExhaustedError
		if errors.As(err, &exhausted) {
			writeError(w, http.StatusNotFound, "captions unavailable for this video: "+exhausted.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	hasChinese := subtitle.TranslatedCount(cues)
	log.Info("Subtitle request for %s: %d cues, %d with Chinese, %.2fs",
		videoID, len(cues), hasChinese, time.Since(start).Seconds())

	if float64(hasChinese) >= float64(len(cues))*translationThreshold {
		writeJSON(w, http.StatusOK, subtitlesResponse{
			VideoID:          videoID,
			Subtitles:        cues,
			NeedsTranslation: false,
		})
		return
	}

	key := translate.NewProgressKey(videoID)
	s.registry.Register(key, len(cues))
	go s.runTranslation(key, videoID, cues)

	writeJSON(w, http.StatusOK, subtitlesResponse{
		VideoID:          videoID,
		Subtitles:        cues,
		NeedsTranslation: true,
		ProgressKey:      key,
		HasChinese:       hasChinese,
		Total:            len(cues),
	})
}

// runTranslation drives one background job and writes the translated cues
// back into the subtitle cache when done.
func (s *Server) runTranslation(key, videoID string, cues []subtitle.SentenceCue) {
	ctx := context.Background()
	translated := s.runner.Run(ctx, key, cues)
	if err := s.store.PutSubtitleCache(ctx, videoID, translated); err != nil {
		log.Warn("Failed to persist translated cues for %s: %v", videoID, err)
		return
	}
	log.Info("Updated subtitle cache for %s after translation job %s", videoID, key)
}

func (s *Server) handleSubtitlesUpdate(w http.ResponseWriter, r *http.Request, videoID string) {
	key := r.URL.Query().Get("progress_key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing progress_key parameter")
		return
	}

	progress, ok := s.registry.Poll(key, 0)
	if !ok || !progress.Completed {
		writeError(w, http.StatusBadRequest, "translation not completed yet")
		return
	}

	cues, err := s.acquirer.Acquire(r.Context(), videoID)
	if err != nil {
		writeError(w, http.StatusNotFound, "captions unavailable for this video")
		return
	}
	writeJSON(w, http.StatusOK, subtitlesResponse{
		VideoID:          videoID,
		Subtitles:        cues,
		NeedsTranslation: false,
	})
}

func (s *Server) handleTranslationProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/api/translation-progress/")
	key = strings.TrimSuffix(key, "/")
	if decoded, err := url.PathUnescape(key); err == nil {
		key = decoded
	}
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing progress key")
		return
	}

	lastIndex := 0
	if raw := r.URL.Query().Get("last_index"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			lastIndex = n
		}
	}

	progress, ok := s.registry.Poll(key, lastIndex)
	if !ok {
		writeError(w, http.StatusNotFound, "progress key not found")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
