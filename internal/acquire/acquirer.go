package acquire

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/craig7351/youtube-eng-cloud/internal/subtitle"
	"github.com/craig7351/youtube-eng-cloud/internal/youtube"
	"github.com/craig7351/youtube-eng-cloud/pkg/log"
)

// TrackLister lists the caption tracks a video exposes.
type TrackLister interface {
	ListTracks(ctx context.Context, videoID, playerClient string) (*youtube.Listing, error)
}

// CueFetcher downloads a track and returns sentence cues.
type CueFetcher interface {
	FetchCues(ctx context.Context, track youtube.Track) ([]subtitle.SentenceCue, error)
}

// CacheStore persists acquired bilingual cue sets.
type CacheStore interface {
	GetSubtitleCache(ctx context.Context, videoID string) ([]subtitle.SentenceCue, bool, error)
	PutSubtitleCache(ctx context.Context, videoID string, cues []subtitle.SentenceCue) error
}

// ExhaustedError reports that every player identity failed. Reason carries
// the failure from the last attempt.
type ExhaustedError struct {
	VideoID string
	Reason  string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all player clients failed for %s: %s", e.VideoID, e.Reason)
}

// Acquirer turns a video ID into aligned bilingual sentence cues. Identical
// concurrent requests share one in-flight acquisition.
type Acquirer struct {
	lister  TrackLister
	fetcher CueFetcher
	store   CacheStore

	baseDelay time.Duration
	cloud     bool
	strategy  subtitle.AlignStrategy

	sleep  func(ctx context.Context, d time.Duration)
	jitter func(max float64) float64

	group singleflight.Group
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithBaseDelay sets the pause between player identity attempts.
func WithBaseDelay(d time.Duration) Option {
	return func(a *Acquirer) { a.baseDelay = d }
}

// WithCloudProfile widens delays for hosts whose egress IPs are shared and
// already rate limited.
func WithCloudProfile(cloud bool) Option {
	return func(a *Acquirer) { a.cloud = cloud }
}

// WithAlignStrategy selects how Chinese cues are matched onto the English
// timeline.
func WithAlignStrategy(s subtitle.AlignStrategy) Option {
	return func(a *Acquirer) { a.strategy = s }
}

// WithSleepFunc replaces the delay function. Tests use this to avoid real
// sleeping.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration)) Option {
	return func(a *Acquirer) { a.sleep = fn }
}

// WithJitterFunc replaces the jitter source for deterministic tests.
func WithJitterFunc(fn func(max float64) float64) Option {
	return func(a *Acquirer) { a.jitter = fn }
}

func NewAcquirer(lister TrackLister, fetcher CueFetcher, store CacheStore, opts ...Option) *Acquirer {
	a := &Acquirer{
		lister:    lister,
		fetcher:   fetcher,
		store:     store,
		baseDelay: time.Second,
		strategy:  subtitle.AlignNearest,
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
		jitter: func(max float64) float64 { return rand.Float64() * max },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire returns the bilingual cues for a video, from cache when present,
// otherwise by rotating through player identities until one yields English
// captions. The result is persisted before returning.
func (a *Acquirer) Acquire(ctx context.Context, videoID string) ([]subtitle.SentenceCue, error) {
	if cues, ok, err := a.store.GetSubtitleCache(ctx, videoID); err != nil {
		log.Warn("Subtitle cache lookup failed for %s: %v", videoID, err)
	} else if ok {
		log.Info("Subtitle cache hit for %s, %d cues", videoID, len(cues))
		return cues, nil
	}

	v, err, _ := a.group.Do(videoID, func() (interface{}, error) {
		return a.acquire(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]subtitle.SentenceCue), nil
}

func (a *Acquirer) acquire(ctx context.Context, videoID string) ([]subtitle.SentenceCue, error) {
	lastFailure := "no attempt made"

	for i, identity := range youtube.PlayerClients {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			delay := a.baseDelay + time.Duration(a.jitter(2)*float64(time.Second))
			log.Info("Waiting %.2fs before trying client %s", delay.Seconds(), identity)
			a.sleep(ctx, delay)
		}

		log.Info("Acquiring %s: attempt %d/%d with client %s", videoID, i+1, len(youtube.PlayerClients), identity)
		cues, failure := a.attempt(ctx, videoID, identity)
		if failure == "" {
			if err := a.store.PutSubtitleCache(ctx, videoID, cues); err != nil {
				log.Warn("Failed to persist subtitle cache for %s: %v", videoID, err)
			}
			return cues, nil
		}

		lastFailure = failure
		log.Warn("Client %s failed for %s: %s", identity, videoID, failure)

		if i < len(youtube.PlayerClients)-1 {
			if isAntiBotSignal(failure) {
				delay := a.baseDelay * 2
				if a.cloud {
					delay += 2 * time.Second
				}
				delay += time.Duration(a.jitter(2) * float64(time.Second))
				log.Info("Rate limiting detected, backing off %.2fs", delay.Seconds())
				a.sleep(ctx, delay)
			} else {
				delay := a.baseDelay
				if a.cloud {
					delay += time.Second
				}
				delay += time.Duration(a.jitter(1) * float64(time.Second))
				a.sleep(ctx, delay)
			}
		}
	}

	log.Error("All player clients exhausted for %s: %s", videoID, lastFailure)
	return nil, &ExhaustedError{VideoID: videoID, Reason: lastFailure}
}

// attempt runs one identity end to end. An empty failure string means cues
// holds the aligned result.
func (a *Acquirer) attempt(ctx context.Context, videoID, identity string) (cues []subtitle.SentenceCue, failure string) {
	listing, err := a.lister.ListTracks(ctx, videoID, identity)
	if err != nil {
		return nil, err.Error()
	}
	log.Info("Available caption languages for %s: manual=%v auto=%v",
		videoID, youtube.Languages(listing.Manual), youtube.Languages(listing.Auto))

	enTrack, ok := listing.SelectTrack(youtube.EnglishPreferences)
	if !ok {
		return nil, "no English captions available"
	}

	english, err := a.fetcher.FetchCues(ctx, enTrack)
	if err != nil {
		return nil, fmt.Sprintf("fetch English captions: %v", err)
	}
	if len(english) == 0 {
		return nil, "English caption track was empty"
	}

	var chinese []subtitle.SentenceCue
	if zhTrack, ok := listing.SelectTrack(youtube.ChinesePreferences); ok {
		chinese, err = a.fetcher.FetchCues(ctx, zhTrack)
		if err != nil {
			log.Warn("Chinese track fetch failed for %s, continuing without: %v", videoID, err)
			chinese = nil
		}
		// Auto-generated zh tracks sometimes carry the English transcript
		// under a Chinese label. Aligning one would mark every cue as
		// already translated.
		if len(chinese) > 0 && subtitle.DetectLanguage(chinese) == language.English {
			log.Warn("Chinese track for %s detects as English, discarding it", videoID)
			chinese = nil
		}
	} else {
		log.Info("No Chinese captions for %s, returning English only", videoID)
	}

	aligned := subtitle.Align(english, chinese, a.strategy)
	log.Info("Aligned %d cues for %s, %d with Chinese", len(aligned), videoID, subtitle.TranslatedCount(aligned))
	return aligned, ""
}

// isAntiBotSignal reports whether a failure looks like rate limiting or a
// bot challenge rather than a plain error.
func isAntiBotSignal(failure string) bool {
	return strings.Contains(failure, "429") ||
		strings.Contains(strings.ToLower(failure), "bot") ||
		strings.Contains(failure, "Sign in to confirm")
}
