package youtube

// PlayerClients lists the extraction identities tried in order. Mobile
// clients come first because they trip rate limiting far less often than
// the web client.
var PlayerClients = []string{"android", "ios", "android_embedded", "tv_embedded", "web"}

// Language preference orders for track selection. Traditional Chinese is
// preferred over Simplified.
var (
	EnglishPreferences = []string{"en", "en-US", "en-GB"}
	ChinesePreferences = []string{"zh-TW", "zh-CN", "zh-Hant", "zh-Hans"}
)

// Track is one downloadable caption rendition of a video.
type Track struct {
	Language string
	URL      string
	Ext      string
	Auto     bool
}

// Listing holds every caption track a video exposes, keyed by language
// code, split into uploader-provided and speech-recognized sets.
type Listing struct {
	Title  string
	Manual map[string][]Track
	Auto   map[string][]Track
}

// SelectTrack walks the language preference order and returns the first
// available track. For each language an uploader track beats the
// speech-recognized one; only when a language has neither does selection
// move on to the next preference.
func (l *Listing) SelectTrack(preferences []string) (Track, bool) {
	for _, lang := range preferences {
		if tracks := l.Manual[lang]; len(tracks) > 0 {
			return tracks[0], true
		}
		if tracks := l.Auto[lang]; len(tracks) > 0 {
			return tracks[0], true
		}
	}
	return Track{}, false
}

// Languages returns the language codes present in the given track map.
func Languages(m map[string][]Track) []string {
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	return langs
}
