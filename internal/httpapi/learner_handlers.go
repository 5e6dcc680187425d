package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/craig7351/youtube-eng-cloud/internal/learner"
)

const leaderboardLimit = 20

// handleWordBanks serves the collection routes: GET lists the user's
// banks, POST creates one.
func (s *Server) handleWordBanks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		nickname := strings.TrimSpace(r.URL.Query().Get("nickname"))
		if nickname == "" {
			writeError(w, http.StatusBadRequest, "missing nickname parameter")
			return
		}
		banks, err := s.learners.ListBanks(r.Context(), nickname)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"word_banks": banks})

	case http.MethodPost:
		var req struct {
			Name     string `json:"name"`
			Nickname string `json:"nickname"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Nickname = strings.TrimSpace(req.Nickname)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "bank name is required")
			return
		}
		if req.Nickname == "" {
			writeError(w, http.StatusBadRequest, "missing nickname parameter")
			return
		}
		if err := s.learners.CreateBank(r.Context(), req.Nickname, req.Name); err != nil {
			if errors.Is(err, learner.ErrBankExists) {
				writeError(w, http.StatusBadRequest, "word bank already exists")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleWordBank serves per-bank routes:
//
//	GET    /api/word-banks/{name}
//	DELETE /api/word-banks/{name}
//	POST   /api/word-banks/{name}/add-word
//	POST   /api/word-banks/{name}/remove-word
func (s *Server) handleWordBank(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/word-banks/")
	rest = strings.TrimSuffix(rest, "/")
	if decoded, err := url.PathUnescape(rest); err == nil {
		rest = decoded
	}

	if name, ok := strings.CutSuffix(rest, "/add-word"); ok {
		s.handleAddWord(w, r, name)
		return
	}
	if name, ok := strings.CutSuffix(rest, "/remove-word"); ok {
		s.handleRemoveWord(w, r, name)
		return
	}
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		nickname := strings.TrimSpace(r.URL.Query().Get("nickname"))
		if nickname == "" {
			writeError(w, http.StatusBadRequest, "missing nickname parameter")
			return
		}
		bank, err := s.learners.GetBank(r.Context(), nickname, rest)
		if err != nil {
			if errors.Is(err, learner.ErrBankNotFound) {
				writeError(w, http.StatusNotFound, "word bank not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		type wordView struct {
			Word     string          `json:"word"`
			AddedAt  string          `json:"added_at"`
			WordInfo json.RawMessage `json:"word_info"`
		}
		words := make([]wordView, 0, len(bank.Words))
		for word, entry := range bank.Words {
			words = append(words, wordView{Word: word, AddedAt: entry.AddedAt, WordInfo: entry.WordInfo})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":       rest,
			"words":      words,
			"created_at": bank.CreatedAt,
			"updated_at": bank.UpdatedAt,
		})

	case http.MethodDelete:
		nickname := strings.TrimSpace(r.URL.Query().Get("nickname"))
		if nickname == "" {
			writeError(w, http.StatusBadRequest, "missing nickname parameter")
			return
		}
		if err := s.learners.DeleteBank(r.Context(), nickname, rest); err != nil {
			if errors.Is(err, learner.ErrBankNotFound) {
				writeError(w, http.StatusNotFound, "word bank not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleAddWord(w http.ResponseWriter, r *http.Request, bank string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Word     string          `json:"word"`
		WordInfo json.RawMessage `json:"word_info"`
		Nickname string          `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Nickname = strings.TrimSpace(req.Nickname)
	if strings.TrimSpace(req.Word) == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}
	if req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "missing nickname parameter")
		return
	}
	if err := s.learners.AddWord(r.Context(), req.Nickname, bank, req.Word, req.WordInfo); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleRemoveWord(w http.ResponseWriter, r *http.Request, bank string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Word     string `json:"word"`
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Nickname = strings.TrimSpace(req.Nickname)
	if strings.TrimSpace(req.Word) == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}
	if req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "missing nickname parameter")
		return
	}
	if err := s.learners.RemoveWord(r.Context(), req.Nickname, bank, req.Word); err != nil {
		switch {
		case errors.Is(err, learner.ErrBankNotFound):
			writeError(w, http.StatusNotFound, "word bank not found")
		case errors.Is(err, learner.ErrWordNotFound):
			writeError(w, http.StatusNotFound, "word not in bank")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		nickname := strings.TrimSpace(r.URL.Query().Get("nickname"))
		if nickname == "" {
			writeError(w, http.StatusBadRequest, "missing nickname parameter")
			return
		}
		bookmarks, err := s.learners.Bookmarks(r.Context(), nickname)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookmarks": bookmarks})

	case http.MethodPost:
		var req struct {
			Nickname  string             `json:"nickname"`
			Bookmarks []learner.Bookmark `json:"bookmarks"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Nickname = strings.TrimSpace(req.Nickname)
		if req.Nickname == "" {
			writeError(w, http.StatusBadRequest, "missing nickname parameter")
			return
		}
		if err := s.learners.SaveBookmarks(r.Context(), req.Nickname, req.Bookmarks); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	case http.MethodDelete:
		var req struct {
			Nickname string `json:"nickname"`
			URL      string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Nickname = strings.TrimSpace(req.Nickname)
		req.URL = strings.TrimSpace(req.URL)
		if req.Nickname == "" {
			writeError(w, http.StatusBadRequest, "missing nickname parameter")
			return
		}
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, "missing bookmark url")
			return
		}
		if err := s.learners.DeleteBookmark(r.Context(), req.Nickname, req.URL); err != nil {
			if errors.Is(err, learner.ErrBookmarkNotFound) {
				writeError(w, http.StatusNotFound, "bookmark not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleRecordBookmarkView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing bookmark url")
		return
	}
	// A view on a URL nobody has bookmarked is still a success; the click
	// may come from the leaderboard.
	if _, err := s.learners.RecordView(r.Context(), req.URL); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	nickname := strings.TrimSpace(r.URL.Query().Get("nickname"))
	if nickname == "" {
		writeError(w, http.StatusBadRequest, "missing nickname parameter")
		return
	}
	stats, err := s.learners.GetStats(r.Context(), nickname)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUserStatsUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Nickname string         `json:"nickname"`
		Stats    map[string]any `json:"stats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Nickname = strings.TrimSpace(req.Nickname)
	if req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "missing nickname parameter")
		return
	}
	stats, err := s.learners.UpdateStats(r.Context(), req.Nickname, req.Stats)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

func (s *Server) handleGlobalStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	global, err := s.learners.Global(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, global)
}

func (s *Server) handleLearningTimeLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ranked, err := s.learners.LearningTimeLeaderboard(r.Context(), leaderboardLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": ranked})
}

func (s *Server) handleReviewScoreLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ranked, err := s.learners.ReviewScoreLeaderboard(r.Context(), leaderboardLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": ranked})
}

func (s *Server) handleBookmarkLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ranked, err := s.learners.BookmarkLeaderboard(r.Context(), 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": ranked})
}
