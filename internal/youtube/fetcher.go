package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/craig7351/youtube-eng-cloud/internal/subtitle"
	"github.com/craig7351/youtube-eng-cloud/pkg/log"
)

// Fetcher downloads a caption track and turns it into sentence cues.
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewFetcherWithClient is used by tests to point the fetcher at a local
// server.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{httpClient: client}
}

// FetchCues downloads the track, converting json3 payloads to SRT when the
// URL rewrite did not take effect, and returns sentence-merged cues.
func (f *Fetcher) FetchCues(ctx context.Context, track Track) ([]subtitle.SentenceCue, error) {
	url := forceSRTFormat(track.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s track: %w", track.Language, err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s track: %w", track.Language, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s track: unexpected status %d", track.Language, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s track body: %w", track.Language, err)
	}
	log.Info("Downloaded %s track in %.2fs, %d bytes", track.Language, time.Since(start).Seconds(), len(body))

	content := string(body)
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		log.Warn("Track %s arrived as timedtext JSON, converting to SRT", track.Language)
		content, err = subtitle.ConvertTimedText([]byte(trimmed))
		if err != nil {
			return nil, fmt.Errorf("convert %s timedtext: %w", track.Language, err)
		}
	}

	cues := subtitle.MergeSentences(subtitle.ParseBlocks(content))
	if len(cues) > 0 {
		last := cues[len(cues)-1]
		log.Info("Parsed %d sentence cues from %s track (%s to %s, detected %s)",
			len(cues), track.Language,
			subtitle.FormatTimestamp(cues[0].Start), subtitle.FormatTimestamp(last.End),
			subtitle.DetectLanguage(cues))
	} else {
		log.Warn("Track %s produced no sentence cues", track.Language)
	}
	return cues, nil
}

// forceSRTFormat rewrites timedtext URLs that request JSON output so the
// server hands back SRT directly.
func forceSRTFormat(url string) string {
	if strings.Contains(url, "fmt=json3") {
		return strings.ReplaceAll(url, "fmt=json3", "fmt=srt")
	}
	if strings.Contains(url, "fmt=json") {
		return strings.ReplaceAll(url, "fmt=json", "fmt=srt")
	}
	return url
}
