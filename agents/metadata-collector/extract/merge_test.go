package extract

import (
	"testing"
	"time"

	"collector-stack/internal/models"
)

func directFixture() *models.ExtractionRecord {
	return &models.ExtractionRecord{
		VideoID:         "vid00000001",
		Title:           "Direct Title",
		Description:     "direct description",
		DurationSeconds: 120,
		ChannelID:       "UCdirect",
		ChannelName:     "Direct Channel",
		ViewCount:       100,
		Thumbnails:      []models.Thumbnail{{URL: "https://i.ytimg.com/vi/x/hq.jpg"}},
		Keywords:        []string{},
		Source:          models.SourceDirect,
	}
}

func apiFixture() *models.ExtractionRecord {
	return &models.ExtractionRecord{
		VideoID:         "vid00000001",
		Title:           "API Title",
		Description:     "api description",
		DurationSeconds: 121,
		ChannelID:       "UCapi",
		ChannelName:     "API Channel",
		ViewCount:       95,
		LikeCount:       10,
		CommentCount:    4,
		SubscriberCount: 5000,
		PublishedAt:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Thumbnails:      []models.Thumbnail{{URL: "https://i.ytimg.com/vi/x/maxres.jpg"}},
		Keywords:        []string{"api", "tags"},
		Hashtags:        []string{"#api"},
		Mentions:        []string{},
		TopComments:     []models.Comment{{Author: "a", Text: "first", LikeCount: 1}},
		CategoryID:      "24",
		Category:        "Entertainment",
		PrivacyStatus:   "public",
		Embeddable:      true,
		Source:          models.SourceAPI,
	}
}

func TestMergeHybrid(t *testing.T) {
	merged := Merge(directFixture(), apiFixture(), "https://youtu.be/vid00000001")

	if merged.Title != "Direct Title" {
		t.Errorf("hybrid merge should keep direct title, got %q", merged.Title)
	}
	if merged.ViewCount != 100 {
		t.Errorf("hybrid merge should keep direct view count, got %d", merged.ViewCount)
	}
	if merged.LikeCount != 10 || merged.CommentCount != 4 {
		t.Errorf("engagement stats must come from the API, got likes=%d comments=%d",
			merged.LikeCount, merged.CommentCount)
	}
	if merged.SubscriberCount != 5000 {
		t.Errorf("subscriber count must come from the API, got %d", merged.SubscriberCount)
	}
	if len(merged.Keywords) != 2 {
		t.Errorf("empty direct keywords should fall back to API tags, got %v", merged.Keywords)
	}
	if merged.PublishedAt.IsZero() {
		t.Error("zero direct publishedAt should fall back to API value")
	}
	if !merged.DataSources.Hybrid || merged.DataSources.Primary != models.SourceDirect {
		t.Errorf("unexpected data sources: %+v", merged.DataSources)
	}
	if merged.URL != "https://youtu.be/vid00000001" {
		t.Errorf("original URL should be preserved, got %q", merged.URL)
	}
}

func TestMergeEmptyDirectFieldsFallBack(t *testing.T) {
	direct := directFixture()
	direct.Title = ""
	direct.DurationSeconds = 0

	merged := Merge(direct, apiFixture(), "")

	if merged.Title != "API Title" {
		t.Errorf("empty direct title should fall back to API, got %q", merged.Title)
	}
	if merged.DurationSeconds != 121 {
		t.Errorf("zero direct duration should fall back to API, got %d", merged.DurationSeconds)
	}
}

func TestMergeSingleSource(t *testing.T) {
	t.Run("api only", func(t *testing.T) {
		merged := Merge(nil, apiFixture(), "")
		if merged.DataSources.Primary != models.SourceAPI || merged.DataSources.Hybrid {
			t.Errorf("unexpected data sources: %+v", merged.DataSources)
		}
		if merged.Title != "API Title" || merged.ViewCount != 95 {
			t.Errorf("api-only merge lost fields: title=%q views=%d", merged.Title, merged.ViewCount)
		}
		if merged.URL != WatchURL("vid00000001") {
			t.Errorf("missing URL should be reconstructed, got %q", merged.URL)
		}
	})

	t.Run("direct only never returns nil arrays", func(t *testing.T) {
		merged := Merge(directFixture(), nil, "")
		if merged.Hashtags == nil || merged.Mentions == nil || merged.TopComments == nil {
			t.Error("array fields must never be nil")
		}
		if merged.LikeCount != 0 || merged.SubscriberCount != 0 {
			t.Error("api-only stats should stay zero without the API")
		}
		if merged.DataSources.UsedAPI {
			t.Error("UsedAPI should be false for direct-only merge")
		}
	})
}

func TestMergeNormalizesNegatives(t *testing.T) {
	api := apiFixture()
	api.LikeCount = -5
	api.ViewCount = -1

	merged := Merge(nil, api, "")
	if merged.LikeCount != 0 || merged.ViewCount != 0 {
		t.Errorf("negative counters must clamp to zero, got likes=%d views=%d",
			merged.LikeCount, merged.ViewCount)
	}
}

func TestMergeQualityScore(t *testing.T) {
	merged := Merge(directFixture(), apiFixture(), "")
	if merged.QualityScore < 80 {
		t.Errorf("rich hybrid record should score high, got %d", merged.QualityScore)
	}

	sparse := Merge(&models.ExtractionRecord{VideoID: "vid00000001"}, nil, "")
	if sparse.QualityScore != 0 {
		t.Errorf("empty record should score 0, got %d", sparse.QualityScore)
	}
}
