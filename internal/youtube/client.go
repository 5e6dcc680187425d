package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lrstanley/go-ytdlp"
)

const watchURLFormat = "https://www.youtube.com/watch?v=%s"

// DefaultUserAgent mimics a mobile browser. Mobile user agents pair with
// the mobile player clients and draw less scrutiny from rate limiting.
const DefaultUserAgent = "Mozilla/5.0 (Linux; Android 10; SM-G973F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.120 Mobile Safari/537.36"

type trackFormat struct {
	URL string `json:"url"`
	Ext string `json:"ext"`
}

type videoInfo struct {
	ID                string                   `json:"id"`
	Title             string                   `json:"title"`
	Subtitles         map[string][]trackFormat `json:"subtitles"`
	AutomaticCaptions map[string][]trackFormat `json:"automatic_captions"`
}

// Client lists caption tracks through yt-dlp metadata extraction without
// downloading any media.
type Client struct {
	retries   int
	sleepSecs int
	userAgent string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithRetries(n int) ClientOption {
	return func(c *Client) { c.retries = n }
}

func WithSleepSeconds(n int) ClientOption {
	return func(c *Client) { c.sleepSecs = n }
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		retries:   3,
		sleepSecs: 1,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Install fetches the yt-dlp binary if it is not already present on the
// host. Call once at startup.
func Install(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, nil)
	return err
}

// ListTracks extracts video metadata using the given player identity and
// returns every caption track the video exposes.
func (c *Client) ListTracks(ctx context.Context, videoID, playerClient string) (*Listing, error) {
	cmd := ytdlp.New().
		SkipDownload().
		DumpSingleJSON().
		NoWarnings().
		NoPlaylist().
		Retries(strconv.Itoa(c.retries)).
		FragmentRetries(strconv.Itoa(c.retries)).
		SleepInterval(float64(c.sleepSecs)).
		SleepRequests(float64(c.sleepSecs)).
		UserAgent(c.userAgent).
		ExtractorArgs("youtube:player_client=" + playerClient)

	result, err := cmd.Run(ctx, fmt.Sprintf(watchURLFormat, videoID))
	if err != nil {
		return nil, fmt.Errorf("extract info for %s with client %s: %w", videoID, playerClient, err)
	}

	var info videoInfo
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		return nil, fmt.Errorf("decode video info for %s: %w", videoID, err)
	}

	listing := &Listing{
		Title:  info.Title,
		Manual: make(map[string][]Track, len(info.Subtitles)),
		Auto:   make(map[string][]Track, len(info.AutomaticCaptions)),
	}
	for lang, formats := range info.Subtitles {
		listing.Manual[lang] = toTracks(lang, formats, false)
	}
	for lang, formats := range info.AutomaticCaptions {
		listing.Auto[lang] = toTracks(lang, formats, true)
	}
	return listing, nil
}

func toTracks(lang string, formats []trackFormat, auto bool) []Track {
	tracks := make([]Track, 0, len(formats))
	for _, f := range formats {
		tracks = append(tracks, Track{Language: lang, URL: f.URL, Ext: f.Ext, Auto: auto})
	}
	return tracks
}
