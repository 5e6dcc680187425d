package learner

import (
	"encoding/json"
	"errors"
)

var (
	ErrBankNotFound     = errors.New("word bank not found")
	ErrBankExists       = errors.New("word bank already exists")
	ErrWordNotFound     = errors.New("word not in bank")
	ErrBookmarkNotFound = errors.New("bookmark not found")
)

// LearningData carries the spaced repetition state of one word.
type LearningData struct {
	Level          int    `json:"level"`
	CorrectCount   int    `json:"correct_count"`
	WrongCount     int    `json:"wrong_count"`
	LastReview     string `json:"last_review,omitempty"`
	NextReview     string `json:"next_review"`
	ReviewInterval int    `json:"review_interval"`
}

// WordEntry is one saved word with the dictionary payload captured when it
// was added.
type WordEntry struct {
	AddedAt  string          `json:"added_at"`
	WordInfo json.RawMessage `json:"word_info"`
	Learning LearningData    `json:"learning_data"`
}

// WordBank is a named set of saved words belonging to one user.
type WordBank struct {
	Words     map[string]WordEntry `json:"words"`
	CreatedAt string               `json:"created_at"`
	UpdatedAt string               `json:"updated_at"`
}

// BankSummary is the listing view of a bank, with the owner prefix already
// stripped from the name.
type BankSummary struct {
	Name      string `json:"name"`
	WordCount int    `json:"word_count"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Bookmark is one saved video link. View counts accumulate across every
// user who bookmarked the same URL when ranking.
type Bookmark struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	AddedAt    string `json:"added_at,omitempty"`
	ViewCount  int    `json:"view_count"`
	LastViewed string `json:"last_viewed,omitempty"`
}

// UserStats is the typed read view of one user's counters. Writes go
// through the map-based merge in UpdateStats so clients can send partial
// updates.
type UserStats struct {
	LearningTime   int    `json:"learning_time"`
	VideosWatched  int    `json:"videos_watched"`
	WordsAdded     int    `json:"words_added"`
	ReviewSessions int    `json:"review_sessions"`
	ReviewCorrect  int    `json:"review_correct"`
	ReviewTotal    int    `json:"review_total"`
	LastActive     string `json:"last_active"`
	CreatedAt      string `json:"created_at"`
}

// TimeRank is one learning time leaderboard row.
type TimeRank struct {
	Nickname      string `json:"nickname"`
	LearningTime  int    `json:"learning_time"`
	VideosWatched int    `json:"videos_watched"`
	LastActive    string `json:"last_active"`
}

// ScoreRank is one review accuracy leaderboard row.
type ScoreRank struct {
	Nickname       string  `json:"nickname"`
	ReviewSessions int     `json:"review_sessions"`
	ReviewCorrect  int     `json:"review_correct"`
	ReviewTotal    int     `json:"review_total"`
	Accuracy       float64 `json:"accuracy"`
	LastActive     string  `json:"last_active"`
}

// GlobalStats summarizes activity across every user.
type GlobalStats struct {
	TotalUsers           int    `json:"total_users"`
	TotalLearningSeconds int    `json:"total_learning_seconds"`
	LastUpdated          string `json:"last_updated"`
}
