package translate

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/craig7351/youtube-eng-cloud/internal/subtitle"
	"github.com/craig7351/youtube-eng-cloud/pkg/log"
)

// NewProgressKey mints a unique key for one translation job of a video.
func NewProgressKey(videoID string) string {
	return fmt.Sprintf("%s_%s", videoID, uuid.NewString()[:8])
}

// job is the mutable progress state of one running translation.
type job struct {
	current     int
	total       int
	translated  int
	cached      int
	elapsed     float64
	completed   bool
	completedAt time.Time
	items       []subtitle.SentenceCue
}

// Progress is a point-in-time snapshot handed to pollers. NewItems holds
// the cues translated since the poller's previous LastIndex; NextIndex is
// what the poller should send next time.
type Progress struct {
	Current    int                    `json:"current"`
	Total      int                    `json:"total"`
	Translated int                    `json:"translated"`
	Cached     int                    `json:"cached"`
	Elapsed    float64                `json:"elapsed"`
	Completed  bool                   `json:"completed"`
	NewItems   []subtitle.SentenceCue `json:"new_items"`
	NextIndex  int                    `json:"last_index"`
}

// Registry tracks running and recently finished translation jobs so the
// frontend can poll for incremental results. Completed jobs linger for the
// TTL window and are then swept.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*job
	ttl  time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		jobs: make(map[string]*job),
		ttl:  ttl,
	}
}

// Register creates the job entry before the worker goroutine starts, so a
// poll racing the launch still finds it.
func (r *Registry) Register(key string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[key]; !ok {
		r.jobs[key] = &job{total: total}
	}
}

// Update records progress after one cue has been processed.
func (r *Registry) Update(key string, current, translated, cached int, elapsed float64, item subtitle.SentenceCue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[key]
	if !ok {
		return
	}
	j.current = current
	j.translated = translated
	j.cached = cached
	j.elapsed = elapsed
	j.items = append(j.items, item)
}

// Complete marks the job finished and starts its TTL clock.
func (r *Registry) Complete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[key]; ok {
		j.completed = true
		j.completedAt = time.Now()
	}
}

// Poll returns a snapshot of the job plus any cues translated after
// lastIndex. The second return is false when the key is unknown.
func (r *Registry) Poll(key string, lastIndex int) (Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[key]
	if !ok {
		return Progress{}, false
	}

	p := Progress{
		Current:    j.current,
		Total:      j.total,
		Translated: j.translated,
		Cached:     j.cached,
		Elapsed:    j.elapsed,
		Completed:  j.completed,
		NewItems:   []subtitle.SentenceCue{},
		NextIndex:  len(j.items),
	}
	if lastIndex < 0 {
		lastIndex = 0
	}
	if lastIndex < len(j.items) {
		p.NewItems = append(p.NewItems, j.items[lastIndex:]...)
	}
	return p, true
}

// Sweep drops completed jobs whose TTL has expired and returns how many
// were removed. Wired to the cron scheduler.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, j := range r.jobs {
		if j.completed && now.Sub(j.completedAt) > r.ttl {
			delete(r.jobs, key)
			removed++
		}
	}
	if removed > 0 {
		log.Info("Swept %d expired translation jobs", removed)
	}
	return removed
}
