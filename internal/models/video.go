package models

import "time"

// Source tags recorded on extraction records and merged output.
const (
	SourceDirect = "direct"
	SourceAPI    = "youtube-api"
)

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int64  `json:"width,omitempty"`
	Height int64  `json:"height,omitempty"`
}

type Comment struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	LikeCount int64  `json:"like_count"`
}

// ExtractionRecord is the normalized output of a single source (direct page
// extraction or the Data API). It is immutable once built; fields a source
// cannot provide stay at their zero value.
type ExtractionRecord struct {
	VideoID         string      `json:"video_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	DurationSeconds int64       `json:"duration_seconds"`
	ChannelID       string      `json:"channel_id"`
	ChannelName     string      `json:"channel_name"`
	ChannelURL      string      `json:"channel_url,omitempty"`
	ViewCount       int64       `json:"view_count"`
	PublishedAt     time.Time   `json:"published_at"`
	Thumbnails      []Thumbnail `json:"thumbnails"`
	Keywords        []string    `json:"keywords"`

	// API-only statistics; zero when the source is direct extraction.
	LikeCount       int64     `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`
	SubscriberCount int64     `json:"subscriber_count"`
	Hashtags        []string  `json:"hashtags"`
	Mentions        []string  `json:"mentions"`
	TopComments     []Comment `json:"top_comments"`
	CategoryID      string    `json:"category_id,omitempty"`
	Category        string    `json:"category,omitempty"`
	PrivacyStatus   string    `json:"privacy_status,omitempty"`
	Embeddable      bool      `json:"embeddable,omitempty"`
	IsLiveContent   bool      `json:"is_live_content,omitempty"`
	LiveBroadcast   string    `json:"live_broadcast,omitempty"`
	Language        string    `json:"language,omitempty"`

	Source string `json:"source"`
}

// DataSources describes which sources contributed to a merged record.
type DataSources struct {
	Primary    string `json:"primary"`
	UsedDirect bool   `json:"used_direct"`
	UsedAPI    bool   `json:"used_api"`
	Hybrid     bool   `json:"hybrid"`
}

// MergedVideoRecord is the canonical record produced by the merger. Array
// fields are never nil; numeric fields are never negative.
type MergedVideoRecord struct {
	Platform        string      `json:"platform"`
	URL             string      `json:"url"`
	VideoID         string      `json:"video_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	DurationSeconds int64       `json:"duration_seconds"`
	ChannelID       string      `json:"channel_id"`
	ChannelName     string      `json:"channel_name"`
	ChannelURL      string      `json:"channel_url"`
	ViewCount       int64       `json:"view_count"`
	LikeCount       int64       `json:"like_count"`
	CommentCount    int64       `json:"comment_count"`
	SubscriberCount int64       `json:"subscriber_count"`
	PublishedAt     time.Time   `json:"published_at"`
	Thumbnails      []Thumbnail `json:"thumbnails"`
	Keywords        []string    `json:"keywords"`
	Hashtags        []string    `json:"hashtags"`
	Mentions        []string    `json:"mentions"`
	TopComments     []Comment   `json:"top_comments"`
	CategoryID      string      `json:"category_id"`
	Category        string      `json:"category"`
	PrivacyStatus   string      `json:"privacy_status"`
	Embeddable      bool        `json:"embeddable"`
	IsLiveContent   bool        `json:"is_live_content"`
	LiveBroadcast   string      `json:"live_broadcast"`
	Language        string      `json:"language"`
	DataSources     DataSources `json:"data_sources"`
	QualityScore    int         `json:"quality_score"` // 0-100, diagnostic only
}

// ExtractionResult is what the hybrid extractor reports back to callers.
type ExtractionResult struct {
	Success          bool               `json:"success"`
	Data             *MergedVideoRecord `json:"data,omitempty"`
	Sources          ResultSources      `json:"sources"`
	Error            string             `json:"error,omitempty"`
	ExtractionTimeMs int64              `json:"extraction_time_ms"`
}

type ResultSources struct {
	Direct bool `json:"direct"`
	API    bool `json:"api"`
}

// BatchItem is one queued single-video request.
type BatchItem struct {
	ID         string    `json:"id"`
	VideoURL   string    `json:"video_url"`
	VideoID    string    `json:"video_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Priority   string    `json:"priority"`
	Attempts   int       `json:"attempts"`
	Status     string    `json:"status"` // pending | processing
}

// BatchStats accumulates over the lifetime of the queue and survives restarts.
type BatchStats struct {
	TotalProcessed        int     `json:"total_processed"`
	TotalChunks           int     `json:"total_chunks"`
	TotalQuotaSaved       int     `json:"total_quota_saved"`
	AvgProcessingTimeMs   float64 `json:"avg_processing_time_ms"`
	TotalProcessingTimeMs int64   `json:"total_processing_time_ms"`
}

// BatchAck acknowledges an addToBatch call.
type BatchAck struct {
	BatchID         string `json:"batch_id"`
	Status          string `json:"status"` // queued | processing
	QueuePosition   int    `json:"queue_position"`
	EstimatedWaitMs int64  `json:"estimated_wait_ms"`
}
