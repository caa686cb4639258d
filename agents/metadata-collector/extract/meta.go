package extract

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	isoDurationRE = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)
	hashtagRE     = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	mentionRE     = regexp.MustCompile(`@[\p{L}\p{N}_.]+`)
)

// ParseISODuration converts an ISO 8601 duration ("PT1M30S", "PT2H15M30S")
// into whole seconds. Malformed input yields 0.
func ParseISODuration(duration string) int64 {
	if duration == "" {
		return 0
	}

	matches := isoDurationRE.FindStringSubmatch(duration)
	if len(matches) == 0 {
		return 0
	}

	var totalSeconds int64
	if matches[1] != "" {
		if hours, err := strconv.ParseInt(matches[1], 10, 64); err == nil {
			totalSeconds += hours * 3600
		}
	}
	if matches[2] != "" {
		if minutes, err := strconv.ParseInt(matches[2], 10, 64); err == nil {
			totalSeconds += minutes * 60
		}
	}
	if matches[3] != "" {
		if seconds, err := strconv.ParseInt(matches[3], 10, 64); err == nil {
			totalSeconds += seconds
		}
	}
	return totalSeconds
}

// ExtractHashtags pulls #tags out of free text. Unicode letters count, so
// non-latin tags survive.
func ExtractHashtags(text string) []string {
	tags := hashtagRE.FindAllString(text, -1)
	if tags == nil {
		return []string{}
	}
	return tags
}

// ExtractMentions pulls @mentions out of free text.
func ExtractMentions(text string) []string {
	mentions := mentionRE.FindAllString(text, -1)
	if mentions == nil {
		return []string{}
	}
	return mentions
}

// youtubeCategories maps the API's numeric category ids to display names.
var youtubeCategories = map[string]string{
	"1":  "Film & Animation",
	"2":  "Autos & Vehicles",
	"10": "Music",
	"15": "Pets & Animals",
	"17": "Sports",
	"19": "Travel & Events",
	"20": "Gaming",
	"22": "People & Blogs",
	"23": "Comedy",
	"24": "Entertainment",
	"25": "News & Politics",
	"26": "Howto & Style",
	"27": "Education",
	"28": "Science & Technology",
	"29": "Nonprofits & Activism",
}

// CategoryName resolves a numeric category id to its display name.
func CategoryName(categoryID string) string {
	if categoryID == "" {
		return ""
	}
	if name, ok := youtubeCategories[categoryID]; ok {
		return name
	}
	return fmt.Sprintf("Category %s", categoryID)
}
