package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/craig7351/youtube-eng-cloud/pkg/log"
)

const (
	defaultDictionaryEndpoint = "https://api.dictionaryapi.dev/api/v2/entries/en"
	defaultTTSEndpoint        = "https://translate.google.com/translate_tts"

	translationFailedPlaceholder = "（翻譯失敗，請稍後再試）"
	maxTTSLength                 = 200
)

type definitionView struct {
	Definition   string `json:"definition"`
	DefinitionZh string `json:"definitionZh"`
	Example      string `json:"example"`
	ExampleZh    string `json:"exampleZh"`
}

type meaningView struct {
	PartOfSpeech string           `json:"partOfSpeech"`
	Definitions  []definitionView `json:"definitions"`
	Synonyms     []string         `json:"synonyms,omitempty"`
}

type wordInfoResponse struct {
	Word            string        `json:"word"`
	WordTranslation string        `json:"wordTranslation"`
	Phonetic        string        `json:"phonetic"`
	Meanings        []meaningView `json:"meanings"`
	IsPhrase        bool          `json:"isPhrase"`
}

type dictionaryEntry struct {
	Phonetic  string `json:"phonetic"`
	Phonetics []struct {
		Text string `json:"text"`
	} `json:"phonetics"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
			Example    string `json:"example"`
		} `json:"definitions"`
		Synonyms []string `json:"synonyms"`
	} `json:"meanings"`
}

// handleWordInfo serves /api/word/{text}. Single words go through the
// dictionary API with definitions translated; phrases and unknown words
// fall back to a plain translation.
func (s *Server) handleWordInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	text := strings.TrimPrefix(r.URL.Path, "/api/word/")
	if decoded, err := url.PathUnescape(text); err == nil {
		text = decoded
	}
	text = strings.TrimSpace(text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	log.Info("Word lookup: %q", text)

	if strings.Contains(text, " ") {
		s.servePhraseTranslation(w, r, text)
		return
	}

	entries, status, err := s.fetchDictionaryEntries(r, text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if status == http.StatusNotFound || len(entries) == 0 {
		// Not a dictionary word; treat it as a phrase.
		s.servePhraseTranslation(w, r, text)
		return
	}

	entry := entries[0]
	phonetic := entry.Phonetic
	if phonetic == "" {
		for _, ph := range entry.Phonetics {
			if ph.Text != "" {
				phonetic = ph.Text
				break
			}
		}
	}

	meanings := make([]meaningView, 0, len(entry.Meanings))
	for _, meaning := range entry.Meanings {
		defs := meaning.Definitions
		if len(defs) > 3 {
			defs = defs[:3]
		}
		views := make([]definitionView, 0, len(defs))
		for _, def := range defs {
			view := definitionView{Definition: def.Definition, Example: def.Example}
			if def.Definition != "" {
				view.DefinitionZh = s.translateOrPlaceholder(r, def.Definition)
			}
			if def.Example != "" {
				view.ExampleZh = s.translateOrPlaceholder(r, def.Example)
			}
			views = append(views, view)
		}
		meanings = append(meanings, meaningView{
			PartOfSpeech: meaning.PartOfSpeech,
			Definitions:  views,
			Synonyms:     meaning.Synonyms,
		})
	}

	wordTranslation, err := s.provider.Translate(r.Context(), text, "en", "zh-TW")
	if err != nil {
		log.Warn("Word translation failed for %q: %v", text, err)
		wordTranslation = ""
	}

	writeJSON(w, http.StatusOK, wordInfoResponse{
		Word:            text,
		WordTranslation: wordTranslation,
		Phonetic:        phonetic,
		Meanings:        meanings,
		IsPhrase:        false,
	})
}

func (s *Server) servePhraseTranslation(w http.ResponseWriter, r *http.Request, text string) {
	translation, err := s.provider.Translate(r.Context(), text, "en", "zh-TW")
	if err != nil {
		log.Warn("Phrase translation failed for %q: %v", text, err)
		writeError(w, http.StatusNotFound, "no information available for this text")
		return
	}
	writeJSON(w, http.StatusOK, wordInfoResponse{
		Word:            text,
		WordTranslation: translation,
		Meanings:        []meaningView{},
		IsPhrase:        true,
	})
}

func (s *Server) translateOrPlaceholder(r *http.Request, text string) string {
	translated, err := s.provider.Translate(r.Context(), text, "en", "zh-TW")
	if err != nil {
		log.Warn("Translation failed for %q: %v", text, err)
		return translationFailedPlaceholder
	}
	return translated
}

func (s *Server) fetchDictionaryEntries(r *http.Request, word string) ([]dictionaryEntry, int, error) {
	endpoint := s.dictionaryEndpoint + "/" + url.PathEscape(word)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build dictionary request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("dictionary request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, http.StatusNotFound, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("dictionary request: unexpected status %d", resp.StatusCode)
	}

	var entries []dictionaryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode dictionary response: %w", err)
	}
	return entries, http.StatusOK, nil
}

// handleTTS serves /api/tts/{text}, proxying the upstream speech endpoint
// so the browser never hits it cross-origin.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	text := strings.TrimPrefix(r.URL.Path, "/api/tts/")
	if decoded, err := url.PathUnescape(text); err == nil {
		text = decoded
	}
	text = strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", "").Replace(text))
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if runes := []rune(text); len(runes) > maxTTSLength {
		text = string(runes[:maxTTSLength])
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("tl", "en")
	q.Set("client", "tw-ob")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, s.ttsEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "speech request failed: "+err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("speech request failed: status %d", resp.StatusCode))
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, resp.Body)
}
