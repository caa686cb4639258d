package extract

import (
	"fmt"
	"regexp"
)

// videoIDRE covers the URL shapes we accept: full watch URLs (with the v
// parameter anywhere in the query), youtu.be short links, shorts and embeds.
var videoIDRE = regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtube\.com/(?:shorts|embed|live)/|youtu\.be/)([a-zA-Z0-9_-]{11})`)

var bareIDRE = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ExtractVideoID pulls the 11-character video id out of a YouTube URL.
// A bare id is accepted as-is.
func ExtractVideoID(rawURL string) (string, error) {
	if bareIDRE.MatchString(rawURL) {
		return rawURL, nil
	}
	m := videoIDRE.FindStringSubmatch(rawURL)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return m[1], nil
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}

// ChannelURL returns the canonical channel URL for a channel id.
func ChannelURL(channelID string) string {
	return fmt.Sprintf("https://www.youtube.com/channel/%s", channelID)
}
