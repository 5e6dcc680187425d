package learner

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/craig7351/youtube-eng-cloud/internal/persistence"
	"github.com/craig7351/youtube-eng-cloud/pkg/log"
)

// DocumentStore is the persistence surface the learner store needs.
type DocumentStore interface {
	GetDocument(ctx context.Context, collection, key string) (json.RawMessage, bool, error)
	PutDocument(ctx context.Context, collection, key string, payload json.RawMessage) error
	DeleteDocument(ctx context.Context, collection, key string) error
	ListDocuments(ctx context.Context, collection string) (map[string]json.RawMessage, error)
}

// Store manages word banks, bookmarks and per-user counters on top of the
// document tables. Bank documents key on "nickname_bankname"; bookmark and
// stats documents key on the nickname alone.
type Store struct {
	docs  DocumentStore
	clock func() time.Time
}

func NewStore(docs DocumentStore) *Store {
	return &Store{docs: docs, clock: time.Now}
}

// NewStoreWithClock is used by tests that need deterministic timestamps.
func NewStoreWithClock(docs DocumentStore, clock func() time.Time) *Store {
	return &Store{docs: docs, clock: clock}
}

func (s *Store) now() string {
	return s.clock().Format(time.RFC3339)
}

func bankKey(nickname, bank string) string {
	return nickname + "_" + bank
}

// ListBanks returns every bank owned by the user, names stripped of the
// owner prefix.
func (s *Store) ListBanks(ctx context.Context, nickname string) ([]BankSummary, error) {
	docs, err := s.docs.ListDocuments(ctx, persistence.CollectionWordBanks)
	if err != nil {
		return nil, err
	}

	prefix := nickname + "_"
	summaries := make([]BankSummary, 0)
	for key, payload := range docs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		var bank WordBank
		if err := json.Unmarshal(payload, &bank); err != nil {
			log.Warn("Skipping undecodable word bank %s: %v", key, err)
			continue
		}
		summaries = append(summaries, BankSummary{
			Name:      strings.TrimPrefix(key, prefix),
			WordCount: len(bank.Words),
			CreatedAt: bank.CreatedAt,
			UpdatedAt: bank.UpdatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

func (s *Store) GetBank(ctx context.Context, nickname, name string) (*WordBank, error) {
	payload, ok, err := s.docs.GetDocument(ctx, persistence.CollectionWordBanks, bankKey(nickname, name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBankNotFound
	}
	var bank WordBank
	if err := json.Unmarshal(payload, &bank); err != nil {
		return nil, fmt.Errorf("decode word bank %s: %w", name, err)
	}
	if bank.Words == nil {
		bank.Words = make(map[string]WordEntry)
	}
	return &bank, nil
}

func (s *Store) putBank(ctx context.Context, nickname, name string, bank *WordBank) error {
	payload, err := json.Marshal(bank)
	if err != nil {
		return err
	}
	return s.docs.PutDocument(ctx, persistence.CollectionWordBanks, bankKey(nickname, name), payload)
}

func (s *Store) CreateBank(ctx context.Context, nickname, name string) error {
	_, ok, err := s.docs.GetDocument(ctx, persistence.CollectionWordBanks, bankKey(nickname, name))
	if err != nil {
		return err
	}
	if ok {
		return ErrBankExists
	}
	now := s.now()
	return s.putBank(ctx, nickname, name, &WordBank{
		Words:     make(map[string]WordEntry),
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *Store) DeleteBank(ctx context.Context, nickname, name string) error {
	_, ok, err := s.docs.GetDocument(ctx, persistence.CollectionWordBanks, bankKey(nickname, name))
	if err != nil {
		return err
	}
	if !ok {
		return ErrBankNotFound
	}
	return s.docs.DeleteDocument(ctx, persistence.CollectionWordBanks, bankKey(nickname, name))
}

// AddWord saves a word into the bank, creating the bank when it does not
// exist yet. Words are stored lowercased. Re-adding a word resets its
// spaced repetition state.
func (s *Store) AddWord(ctx context.Context, nickname, name, word string, wordInfo json.RawMessage) error {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return fmt.Errorf("word is empty")
	}
	if wordInfo == nil {
		wordInfo = json.RawMessage(`{}`)
	}

	bank, err := s.GetBank(ctx, nickname, name)
	if err == ErrBankNotFound {
		now := s.now()
		bank = &WordBank{Words: make(map[string]WordEntry), CreatedAt: now, UpdatedAt: now}
	} else if err != nil {
		return err
	}

	now := s.now()
	bank.Words[word] = WordEntry{
		AddedAt:  now,
		WordInfo: wordInfo,
		Learning: LearningData{
			NextReview:     now,
			ReviewInterval: 1,
		},
	}
	bank.UpdatedAt = now
	return s.putBank(ctx, nickname, name, bank)
}

func (s *Store) RemoveWord(ctx context.Context, nickname, name, word string) error {
	word = strings.ToLower(strings.TrimSpace(word))
	bank, err := s.GetBank(ctx, nickname, name)
	if err != nil {
		return err
	}
	if _, ok := bank.Words[word]; !ok {
		return ErrWordNotFound
	}
	delete(bank.Words, word)
	bank.UpdatedAt = s.now()
	return s.putBank(ctx, nickname, name, bank)
}

func (s *Store) Bookmarks(ctx context.Context, nickname string) ([]Bookmark, error) {
	payload, ok, err := s.docs.GetDocument(ctx, persistence.CollectionBookmarks, nickname)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Bookmark{}, nil
	}
	var bookmarks []Bookmark
	if err := json.Unmarshal(payload, &bookmarks); err != nil {
		return nil, fmt.Errorf("decode bookmarks for %s: %w", nickname, err)
	}
	return bookmarks, nil
}

// SaveBookmarks replaces the user's whole bookmark list.
func (s *Store) SaveBookmarks(ctx context.Context, nickname string, bookmarks []Bookmark) error {
	if bookmarks == nil {
		bookmarks = []Bookmark{}
	}
	payload, err := json.Marshal(bookmarks)
	if err != nil {
		return err
	}
	return s.docs.PutDocument(ctx, persistence.CollectionBookmarks, nickname, payload)
}

func (s *Store) DeleteBookmark(ctx context.Context, nickname, url string) error {
	payload, ok, err := s.docs.GetDocument(ctx, persistence.CollectionBookmarks, nickname)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBookmarkNotFound
	}
	var bookmarks []Bookmark
	if err := json.Unmarshal(payload, &bookmarks); err != nil {
		return fmt.Errorf("decode bookmarks for %s: %w", nickname, err)
	}

	kept := bookmarks[:0]
	for _, b := range bookmarks {
		if b.URL != url {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(bookmarks) {
		return ErrBookmarkNotFound
	}
	return s.SaveBookmarks(ctx, nickname, kept)
}

// RecordView bumps the view counter of the first bookmark matching the URL
// across all users. A missing bookmark is not an error; leaderboard clicks
// can reference videos nobody has bookmarked anymore.
func (s *Store) RecordView(ctx context.Context, url string) (bool, error) {
	docs, err := s.docs.ListDocuments(ctx, persistence.CollectionBookmarks)
	if err != nil {
		return false, err
	}

	keys := make([]string, 0, len(docs))
	for key := range docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, nickname := range keys {
		var bookmarks []Bookmark
		if err := json.Unmarshal(docs[nickname], &bookmarks); err != nil {
			log.Warn("Skipping undecodable bookmarks for %s: %v", nickname, err)
			continue
		}
		for i := range bookmarks {
			if bookmarks[i].URL != url {
				continue
			}
			bookmarks[i].ViewCount++
			bookmarks[i].LastViewed = s.now()
			return true, s.SaveBookmarks(ctx, nickname, bookmarks)
		}
	}
	return false, nil
}

// BookmarkLeaderboard ranks bookmarked URLs by total view count across all
// users, collapsing duplicates.
func (s *Store) BookmarkLeaderboard(ctx context.Context, limit int) ([]Bookmark, error) {
	docs, err := s.docs.ListDocuments(ctx, persistence.CollectionBookmarks)
	if err != nil {
		return nil, err
	}

	byURL := make(map[string]*Bookmark)
	for nickname, payload := range docs {
		var bookmarks []Bookmark
		if err := json.Unmarshal(payload, &bookmarks); err != nil {
			log.Warn("Skipping undecodable bookmarks for %s: %v", nickname, err)
			continue
		}
		for _, b := range bookmarks {
			if b.URL == "" {
				continue
			}
			if agg, ok := byURL[b.URL]; ok {
				agg.ViewCount += b.ViewCount
				agg.Title = b.Title
				if b.LastViewed > agg.LastViewed {
					agg.LastViewed = b.LastViewed
				}
			} else {
				copied := b
				byURL[b.URL] = &copied
			}
		}
	}

	ranked := make([]Bookmark, 0, len(byURL))
	for _, b := range byURL {
		ranked = append(ranked, *b)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ViewCount != ranked[j].ViewCount {
			return ranked[i].ViewCount > ranked[j].ViewCount
		}
		return ranked[i].URL < ranked[j].URL
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// GetStats returns the user's counters, initializing and persisting a
// fresh record on first sight.
func (s *Store) GetStats(ctx context.Context, nickname string) (map[string]any, error) {
	payload, ok, err := s.docs.GetDocument(ctx, persistence.CollectionUserStats, nickname)
	if err != nil {
		return nil, err
	}
	if ok {
		var stats map[string]any
		if err := json.Unmarshal(payload, &stats); err != nil {
			return nil, fmt.Errorf("decode stats for %s: %w", nickname, err)
		}
		return stats, nil
	}

	now := s.now()
	stats := map[string]any{
		"learning_time":   0,
		"videos_watched":  0,
		"words_added":     0,
		"review_sessions": 0,
		"review_correct":  0,
		"review_total":    0,
		"last_active":     now,
		"created_at":      now,
	}
	if err := s.saveStats(ctx, nickname, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// UpdateStats merges the partial update into the user's counters and
// refreshes last_active.
func (s *Store) UpdateStats(ctx context.Context, nickname string, update map[string]any) (map[string]any, error) {
	stats, err := s.GetStats(ctx, nickname)
	if err != nil {
		return nil, err
	}
	for k, v := range update {
		stats[k] = v
	}
	stats["last_active"] = s.now()
	if err := s.saveStats(ctx, nickname, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) saveStats(ctx context.Context, nickname string, stats map[string]any) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.docs.PutDocument(ctx, persistence.CollectionUserStats, nickname, payload)
}

func (s *Store) allStats(ctx context.Context) (map[string]UserStats, error) {
	docs, err := s.docs.ListDocuments(ctx, persistence.CollectionUserStats)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]UserStats, len(docs))
	for nickname, payload := range docs {
		var stats UserStats
		if err := json.Unmarshal(payload, &stats); err != nil {
			log.Warn("Skipping undecodable stats for %s: %v", nickname, err)
			continue
		}
		ret[nickname] = stats
	}
	return ret, nil
}

func (s *Store) Global(ctx context.Context) (GlobalStats, error) {
	all, err := s.allStats(ctx)
	if err != nil {
		return GlobalStats{}, err
	}
	total := 0
	for _, stats := range all {
		total += stats.LearningTime
	}
	return GlobalStats{
		TotalUsers:           len(all),
		TotalLearningSeconds: total,
		LastUpdated:          s.now(),
	}, nil
}

// LearningTimeLeaderboard ranks users by accumulated learning seconds.
func (s *Store) LearningTimeLeaderboard(ctx context.Context, limit int) ([]TimeRank, error) {
	all, err := s.allStats(ctx)
	if err != nil {
		return nil, err
	}
	ranked := make([]TimeRank, 0, len(all))
	for nickname, stats := range all {
		ranked = append(ranked, TimeRank{
			Nickname:      nickname,
			LearningTime:  stats.LearningTime,
			VideosWatched: stats.VideosWatched,
			LastActive:    stats.LastActive,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].LearningTime != ranked[j].LearningTime {
			return ranked[i].LearningTime > ranked[j].LearningTime
		}
		return ranked[i].Nickname < ranked[j].Nickname
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// ReviewScoreLeaderboard ranks users by review accuracy, breaking ties on
// review volume.
func (s *Store) ReviewScoreLeaderboard(ctx context.Context, limit int) ([]ScoreRank, error) {
	all, err := s.allStats(ctx)
	if err != nil {
		return nil, err
	}
	ranked := make([]ScoreRank, 0, len(all))
	for nickname, stats := range all {
		accuracy := 0.0
		if stats.ReviewTotal > 0 {
			accuracy = math.Round(float64(stats.ReviewCorrect)/float64(stats.ReviewTotal)*10000) / 100
		}
		ranked = append(ranked, ScoreRank{
			Nickname:       nickname,
			ReviewSessions: stats.ReviewSessions,
			ReviewCorrect:  stats.ReviewCorrect,
			ReviewTotal:    stats.ReviewTotal,
			Accuracy:       accuracy,
			LastActive:     stats.LastActive,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Accuracy != ranked[j].Accuracy {
			return ranked[i].Accuracy > ranked[j].Accuracy
		}
		if ranked[i].ReviewTotal != ranked[j].ReviewTotal {
			return ranked[i].ReviewTotal > ranked[j].ReviewTotal
		}
		return ranked[i].Nickname < ranked[j].Nickname
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
