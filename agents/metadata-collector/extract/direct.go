package extract

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	yt "github.com/kkdai/youtube/v2"
	"golang.org/x/time/rate"

	"collector-stack/internal/models"
	"collector-stack/shared/config"
)

// DirectExtractor scrapes video metadata from YouTube's player response
// without spending any API quota. It is rate limited to stay polite and
// bounded by a hard timeout so a wedged scrape never stalls a batch.
type DirectExtractor struct {
	client  *yt.Client
	limiter *rate.Limiter
	timeout time.Duration
}

func NewDirectExtractor(cfg config.ExtractionConfig) *DirectExtractor {
	return &DirectExtractor{
		client: &yt.Client{
			HTTPClient: &http.Client{Timeout: cfg.DirectTimeout()},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.DirectRatePerSec), cfg.DirectRateBurst),
		timeout: cfg.DirectTimeout(),
	}
}

// Extract fetches one video's metadata through the scraping path. The rate
// limiter wait counts against the timeout.
func (d *DirectExtractor) Extract(ctx context.Context, videoID string) (*models.ExtractionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		rec *models.ExtractionRecord
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		if err := d.limiter.Wait(ctx); err != nil {
			done <- outcome{err: err}
			return
		}
		video, err := d.client.GetVideoContext(ctx, videoID)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		rec := directRecord(video)
		logCompleteness(rec)
		done <- outcome{rec: rec}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, &SourceError{
				Source:  models.SourceDirect,
				Timeout: ctx.Err() == context.DeadlineExceeded,
				Err:     out.err,
			}
		}
		return out.rec, nil
	case <-ctx.Done():
		return nil, &SourceError{
			Source:  models.SourceDirect,
			Timeout: ctx.Err() == context.DeadlineExceeded,
			Err:     fmt.Errorf("direct extraction gave up after %v: %w", d.timeout, ctx.Err()),
		}
	}
}

// logCompleteness flags scrapes that came back with obvious holes; the page
// layout changes without notice and this is the earliest signal.
func logCompleteness(rec *models.ExtractionRecord) {
	var missing []string
	if rec.Title == "" {
		missing = append(missing, "title")
	}
	if rec.Description == "" {
		missing = append(missing, "description")
	}
	if rec.ChannelID == "" {
		missing = append(missing, "channel")
	}
	if rec.ViewCount == 0 {
		missing = append(missing, "views")
	}
	if rec.DurationSeconds == 0 {
		missing = append(missing, "duration")
	}
	if len(rec.Thumbnails) == 0 {
		missing = append(missing, "thumbnails")
	}
	if len(missing) > 0 {
		log.Printf("Direct extraction of %s missing: %s", rec.VideoID, strings.Join(missing, ", "))
	}
}

func directRecord(video *yt.Video) *models.ExtractionRecord {
	rec := &models.ExtractionRecord{
		VideoID:         video.ID,
		Title:           video.Title,
		Description:     video.Description,
		ChannelID:       video.ChannelID,
		ChannelName:     video.Author,
		ViewCount:       int64(video.Views),
		DurationSeconds: int64(video.Duration.Seconds()),
		PublishedAt:     video.PublishDate,
		Keywords:        []string{},
		Thumbnails:      []models.Thumbnail{},
		Source:          models.SourceDirect,
	}
	if video.ChannelID != "" {
		rec.ChannelURL = ChannelURL(video.ChannelID)
	}
	for _, thumb := range video.Thumbnails {
		rec.Thumbnails = append(rec.Thumbnails, models.Thumbnail{
			URL:    thumb.URL,
			Width:  int64(thumb.Width),
			Height: int64(thumb.Height),
		})
	}
	return rec
}
