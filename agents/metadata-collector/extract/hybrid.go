package extract

import (
	"context"
	"log"
	"sync"
	"time"

	"collector-stack/internal/models"
)

// videoSource is one way of resolving a video id to a record.
type videoSource interface {
	Extract(ctx context.Context, videoID string) (*models.ExtractionRecord, error)
}

// HybridExtractor runs the direct and API paths concurrently and merges
// whatever came back. One source failing degrades the record; both failing
// fails the extraction.
type HybridExtractor struct {
	direct videoSource
	api    videoSource
}

func NewHybridExtractor(direct *DirectExtractor, api *APIExtractor) *HybridExtractor {
	return &HybridExtractor{direct: direct, api: api}
}

// Extract resolves a video URL through both sources. The returned result is
// always non-nil; the error is non-nil exactly when result.Success is false
// and is either ErrInvalidURL or a *BothSourcesFailedError.
func (h *HybridExtractor) Extract(ctx context.Context, rawURL string) (*models.ExtractionResult, error) {
	start := time.Now()

	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return &models.ExtractionResult{
			Success:          false,
			Error:            err.Error(),
			ExtractionTimeMs: time.Since(start).Milliseconds(),
		}, err
	}

	var (
		wg                sync.WaitGroup
		directRec, apiRec *models.ExtractionRecord
		directErr, apiErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		directRec, directErr = h.direct.Extract(ctx, videoID)
	}()
	go func() {
		defer wg.Done()
		apiRec, apiErr = h.api.Extract(ctx, videoID)
	}()
	wg.Wait()

	if directErr != nil {
		log.Printf("Direct extraction failed for %s: %v", videoID, directErr)
	}
	if apiErr != nil {
		log.Printf("API extraction failed for %s: %v", videoID, apiErr)
	}

	if directRec == nil && apiRec == nil {
		bothErr := &BothSourcesFailedError{DirectErr: directErr, APIErr: apiErr}
		return &models.ExtractionResult{
			Success:          false,
			Sources:          models.ResultSources{},
			Error:            bothErr.Error(),
			ExtractionTimeMs: time.Since(start).Milliseconds(),
		}, bothErr
	}

	merged := Merge(directRec, apiRec, rawURL)
	return &models.ExtractionResult{
		Success: true,
		Data:    merged,
		Sources: models.ResultSources{
			Direct: directRec != nil,
			API:    apiRec != nil,
		},
		ExtractionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
