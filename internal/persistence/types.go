package persistence

// Document collections for learner data. Each document is an opaque JSON
// payload owned by the learner store.
const (
	CollectionWordBanks = "word_banks"
	CollectionBookmarks = "bookmarks"
	CollectionUserStats = "user_stats"
)
