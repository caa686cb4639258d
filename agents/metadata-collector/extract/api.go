package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"collector-stack/agents/metadata-collector/quota"
	"collector-stack/internal/models"
	"collector-stack/shared/config"
)

const (
	videoParts   = "snippet,statistics,contentDetails,status"
	channelParts = "snippet,statistics"
	topComments  = 3
)

// APIExtractor reads video metadata from the YouTube Data API v3. Every call
// draws a credential from the pool and charges its unit cost whether or not
// the call succeeds.
type APIExtractor struct {
	pool    *quota.Pool
	timeout time.Duration

	mu       sync.Mutex
	services map[string]*youtube.Service // keyed by credential ID
}

func NewAPIExtractor(pool *quota.Pool, cfg config.ExtractionConfig) *APIExtractor {
	return &APIExtractor{
		pool:     pool,
		timeout:  cfg.APITimeout(),
		services: make(map[string]*youtube.Service),
	}
}

// service returns the cached youtube.Service for a credential, building one
// on first use.
func (a *APIExtractor) service(cred *quota.Credential) (*youtube.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if svc, ok := a.services[cred.ID]; ok {
		return svc, nil
	}

	var opt option.ClientOption
	if cred.IsOAuth() {
		opt = option.WithTokenSource(cred.TokenSource)
	} else {
		opt = option.WithAPIKey(cred.Key)
	}
	svc, err := youtube.NewService(context.Background(), opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service for %s: %w", cred.ID, err)
	}
	a.services[cred.ID] = svc
	return svc, nil
}

// noteAPIError inspects a provider error and permanently disables the
// credential when the provider says the key itself is invalid.
func (a *APIExtractor) noteAPIError(cred *quota.Credential, err error) {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return
	}
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "keyInvalid", "forbidden", "accessNotConfigured":
			log.Printf("⚠️ Credential %s rejected by the provider (%s), disabling it", cred.ID, item.Reason)
			a.pool.Disable(cred)
			return
		}
	}
}

// FetchVideos retrieves full metadata for up to 50 video ids in a single
// videos.list call (1 unit regardless of how many ids are batched).
func (a *APIExtractor) FetchVideos(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	cred, err := a.pool.GetAvailable()
	if err != nil {
		return nil, err
	}
	svc, err := a.service(cred)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := svc.Videos.List(strings.Split(videoParts, ",")).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	a.pool.RecordUsage(cred, quota.CostVideosList, err == nil)
	if err != nil {
		a.noteAPIError(cred, err)
		return nil, fmt.Errorf("videos.list failed: %w", err)
	}
	return resp.Items, nil
}

// FetchChannels retrieves channel snippets and statistics for up to 50
// channel ids in one channels.list call, keyed by channel id.
func (a *APIExtractor) FetchChannels(ctx context.Context, ids []string) (map[string]*youtube.Channel, error) {
	if len(ids) == 0 {
		return map[string]*youtube.Channel{}, nil
	}

	cred, err := a.pool.GetAvailable()
	if err != nil {
		return nil, err
	}
	svc, err := a.service(cred)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := svc.Channels.List(strings.Split(channelParts, ",")).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	a.pool.RecordUsage(cred, quota.CostChannelsList, err == nil)
	if err != nil {
		a.noteAPIError(cred, err)
		return nil, fmt.Errorf("channels.list failed: %w", err)
	}

	channels := make(map[string]*youtube.Channel, len(resp.Items))
	for _, ch := range resp.Items {
		channels[ch.Id] = ch
	}
	return channels, nil
}

// fetchTopComments loads the most relevant comment threads for a video.
// Comments being disabled (or any other failure) is not an extraction error.
func (a *APIExtractor) fetchTopComments(ctx context.Context, videoID string) []models.Comment {
	cred, err := a.pool.GetAvailable()
	if err != nil {
		return nil
	}
	svc, err := a.service(cred)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := svc.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		Order("relevance").
		MaxResults(topComments).
		Context(ctx).
		Do()
	a.pool.RecordUsage(cred, quota.CostCommentsList, err == nil)
	if err != nil {
		a.noteAPIError(cred, err)
		log.Printf("Comments unavailable for %s: %v", videoID, err)
		return nil
	}

	comments := make([]models.Comment, 0, len(resp.Items))
	for _, thread := range resp.Items {
		top := thread.Snippet.TopLevelComment
		if top == nil || top.Snippet == nil {
			continue
		}
		comments = append(comments, models.Comment{
			Author:    top.Snippet.AuthorDisplayName,
			Text:      top.Snippet.TextDisplay,
			LikeCount: top.Snippet.LikeCount,
		})
	}
	return comments
}

// Extract fetches one video through the API: a videos.list call for the core
// record, then channel statistics and top comments in parallel. Channel and
// comment failures degrade the record instead of failing the extraction.
func (a *APIExtractor) Extract(ctx context.Context, videoID string) (*models.ExtractionRecord, error) {
	videos, err := a.FetchVideos(ctx, []string{videoID})
	if err != nil {
		return nil, &SourceError{Source: models.SourceAPI, Err: err}
	}
	if len(videos) == 0 {
		return nil, &SourceError{
			Source: models.SourceAPI,
			Err:    fmt.Errorf("video %s not found or not accessible", videoID),
		}
	}

	rec := RecordFromVideo(videos[0])

	var wg sync.WaitGroup
	var channel *youtube.Channel
	var comments []models.Comment

	if rec.ChannelID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			channels, err := a.FetchChannels(ctx, []string{rec.ChannelID})
			if err != nil {
				log.Printf("Channel lookup failed for %s: %v", rec.ChannelID, err)
				return
			}
			channel = channels[rec.ChannelID]
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		comments = a.fetchTopComments(ctx, videoID)
	}()
	wg.Wait()

	if channel != nil {
		ApplyChannelInfo(rec, channel)
	}
	if comments != nil {
		rec.TopComments = comments
	}
	return rec, nil
}

// RecordFromVideo converts an API video resource into a normalized record.
func RecordFromVideo(v *youtube.Video) *models.ExtractionRecord {
	rec := &models.ExtractionRecord{
		VideoID:     v.Id,
		Keywords:    []string{},
		Thumbnails:  []models.Thumbnail{},
		Hashtags:    []string{},
		Mentions:    []string{},
		TopComments: []models.Comment{},
		Source:      models.SourceAPI,
	}

	if sn := v.Snippet; sn != nil {
		rec.Title = sn.Title
		rec.Description = sn.Description
		rec.ChannelID = sn.ChannelId
		rec.ChannelName = sn.ChannelTitle
		rec.CategoryID = sn.CategoryId
		rec.Category = CategoryName(sn.CategoryId)
		rec.LiveBroadcast = sn.LiveBroadcastContent
		rec.IsLiveContent = sn.LiveBroadcastContent == "live" || sn.LiveBroadcastContent == "upcoming"
		if sn.DefaultAudioLanguage != "" {
			rec.Language = sn.DefaultAudioLanguage
		} else {
			rec.Language = sn.DefaultLanguage
		}
		if len(sn.Tags) > 0 {
			rec.Keywords = append(rec.Keywords, sn.Tags...)
		}
		if sn.ChannelId != "" {
			rec.ChannelURL = ChannelURL(sn.ChannelId)
		}
		if publishedAt, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
			rec.PublishedAt = publishedAt
		}
		if sn.Thumbnails != nil {
			for _, thumb := range []*youtube.Thumbnail{
				sn.Thumbnails.Maxres, sn.Thumbnails.Standard, sn.Thumbnails.High,
				sn.Thumbnails.Medium, sn.Thumbnails.Default,
			} {
				if thumb == nil {
					continue
				}
				rec.Thumbnails = append(rec.Thumbnails, models.Thumbnail{
					URL:    thumb.Url,
					Width:  thumb.Width,
					Height: thumb.Height,
				})
			}
		}
		rec.Hashtags = ExtractHashtags(sn.Description)
		rec.Mentions = ExtractMentions(sn.Description)
	}
	if st := v.Statistics; st != nil {
		rec.ViewCount = int64(st.ViewCount)
		rec.LikeCount = int64(st.LikeCount)
		rec.CommentCount = int64(st.CommentCount)
	}
	if cd := v.ContentDetails; cd != nil {
		rec.DurationSeconds = ParseISODuration(cd.Duration)
	}
	if status := v.Status; status != nil {
		rec.PrivacyStatus = status.PrivacyStatus
		rec.Embeddable = status.Embeddable
	}
	return rec
}

// ApplyChannelInfo enriches a record with channel-level fields the videos
// endpoint cannot provide.
func ApplyChannelInfo(rec *models.ExtractionRecord, ch *youtube.Channel) {
	if ch == nil {
		return
	}
	if ch.Statistics != nil {
		rec.SubscriberCount = int64(ch.Statistics.SubscriberCount)
	}
	if ch.Snippet != nil && rec.ChannelName == "" {
		rec.ChannelName = ch.Snippet.Title
	}
}
