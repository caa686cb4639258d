package extract

import (
	"collector-stack/internal/models"
)

// Merge combines the direct and API records for one video into the canonical
// output record. Either input may be nil, but not both; callers guarantee at
// least one source succeeded before merging.
//
// Direct extraction wins for free-text metadata it observed on the page
// (title, description, duration, thumbnails, view count), falling back to
// the API when a field is empty. Engagement statistics, channel statistics
// and moderation fields only exist on the API side and are always taken
// from it.
func Merge(direct, api *models.ExtractionRecord, originalURL string) *models.MergedVideoRecord {
	merged := &models.MergedVideoRecord{
		Platform: "youtube",
		DataSources: models.DataSources{
			UsedDirect: direct != nil,
			UsedAPI:    api != nil,
			Hybrid:     direct != nil && api != nil,
		},
	}

	// Seed from the primary source, then layer the other on top.
	if direct != nil {
		merged.DataSources.Primary = models.SourceDirect
		seedFromRecord(merged, direct)
	} else if api != nil {
		merged.DataSources.Primary = models.SourceAPI
		seedFromRecord(merged, api)
	}

	if api != nil {
		applyAPIFields(merged, api, direct != nil)
	}

	if merged.URL == "" {
		if originalURL != "" {
			merged.URL = originalURL
		} else if merged.VideoID != "" {
			merged.URL = WatchURL(merged.VideoID)
		}
	}
	if merged.ChannelURL == "" && merged.ChannelID != "" {
		merged.ChannelURL = ChannelURL(merged.ChannelID)
	}

	normalize(merged)
	merged.QualityScore = qualityScore(merged)
	return merged
}

func seedFromRecord(merged *models.MergedVideoRecord, rec *models.ExtractionRecord) {
	merged.VideoID = rec.VideoID
	merged.Title = rec.Title
	merged.Description = rec.Description
	merged.DurationSeconds = rec.DurationSeconds
	merged.ChannelID = rec.ChannelID
	merged.ChannelName = rec.ChannelName
	merged.ChannelURL = rec.ChannelURL
	merged.ViewCount = rec.ViewCount
	merged.PublishedAt = rec.PublishedAt
	merged.Thumbnails = rec.Thumbnails
	merged.Keywords = rec.Keywords
}

// applyAPIFields overlays the API record. When hybrid is true the merged
// record was seeded from direct extraction and page-observed fields only
// fall back to the API where the page gave nothing.
func applyAPIFields(merged *models.MergedVideoRecord, api *models.ExtractionRecord, hybrid bool) {
	if hybrid {
		if merged.VideoID == "" {
			merged.VideoID = api.VideoID
		}
		if merged.Title == "" {
			merged.Title = api.Title
		}
		if merged.Description == "" {
			merged.Description = api.Description
		}
		if merged.DurationSeconds == 0 {
			merged.DurationSeconds = api.DurationSeconds
		}
		if merged.ChannelID == "" {
			merged.ChannelID = api.ChannelID
		}
		if merged.ChannelName == "" {
			merged.ChannelName = api.ChannelName
		}
		if merged.ViewCount == 0 {
			merged.ViewCount = api.ViewCount
		}
		if len(merged.Thumbnails) == 0 {
			merged.Thumbnails = api.Thumbnails
		}
		if len(merged.Keywords) == 0 {
			merged.Keywords = api.Keywords
		}
		// The API timestamp is exact; the page only exposes a date.
		if !api.PublishedAt.IsZero() {
			merged.PublishedAt = api.PublishedAt
		}
	}

	// API-only territory.
	merged.LikeCount = api.LikeCount
	merged.CommentCount = api.CommentCount
	merged.SubscriberCount = api.SubscriberCount
	merged.Hashtags = api.Hashtags
	merged.Mentions = api.Mentions
	merged.TopComments = api.TopComments
	merged.CategoryID = api.CategoryID
	merged.Category = api.Category
	merged.PrivacyStatus = api.PrivacyStatus
	merged.Embeddable = api.Embeddable
	merged.IsLiveContent = api.IsLiveContent
	merged.LiveBroadcast = api.LiveBroadcast
	merged.Language = api.Language
}

// normalize enforces the output contract: array fields are never nil and
// counters are never negative.
func normalize(merged *models.MergedVideoRecord) {
	if merged.Thumbnails == nil {
		merged.Thumbnails = []models.Thumbnail{}
	}
	if merged.Keywords == nil {
		merged.Keywords = []string{}
	}
	if merged.Hashtags == nil {
		merged.Hashtags = []string{}
	}
	if merged.Mentions == nil {
		merged.Mentions = []string{}
	}
	if merged.TopComments == nil {
		merged.TopComments = []models.Comment{}
	}
	for _, n := range []*int64{
		&merged.ViewCount, &merged.LikeCount, &merged.CommentCount,
		&merged.SubscriberCount, &merged.DurationSeconds,
	} {
		if *n < 0 {
			*n = 0
		}
	}
}

// qualityScore grades completeness on a 0-100 scale for diagnostics.
func qualityScore(merged *models.MergedVideoRecord) int {
	checks := []bool{
		merged.Title != "",
		merged.Description != "",
		merged.ChannelID != "" && merged.ChannelName != "",
		merged.ViewCount > 0,
		merged.DurationSeconds > 0,
		!merged.PublishedAt.IsZero(),
		len(merged.Thumbnails) > 0,
		len(merged.Keywords) > 0,
		merged.LikeCount > 0 || merged.CommentCount > 0,
		merged.SubscriberCount > 0,
	}
	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	return passed * 100 / len(checks)
}
