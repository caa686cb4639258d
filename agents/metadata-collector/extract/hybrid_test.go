package extract

import (
	"context"
	"errors"
	"testing"

	"collector-stack/internal/models"
)

// fakeSource is a canned videoSource for exercising the hybrid paths.
type fakeSource struct {
	rec *models.ExtractionRecord
	err error
}

func (f *fakeSource) Extract(ctx context.Context, videoID string) (*models.ExtractionRecord, error) {
	return f.rec, f.err
}

func newFakeHybrid(direct, api *fakeSource) *HybridExtractor {
	return &HybridExtractor{direct: direct, api: api}
}

func TestHybridExtractBothSources(t *testing.T) {
	h := newFakeHybrid(
		&fakeSource{rec: directFixture()},
		&fakeSource{rec: apiFixture()},
	)

	result, err := h.Extract(context.Background(), "https://youtu.be/vid00000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.Data == nil {
		t.Fatalf("expected success, got %+v", result)
	}
	if !result.Sources.Direct || !result.Sources.API {
		t.Errorf("both sources should be marked used: %+v", result.Sources)
	}
	if result.Data.Title != "Direct Title" || result.Data.LikeCount != 10 {
		t.Errorf("merge lost fields: title=%q likes=%d", result.Data.Title, result.Data.LikeCount)
	}
}

func TestHybridExtractOneSourceDown(t *testing.T) {
	t.Run("direct down", func(t *testing.T) {
		h := newFakeHybrid(
			&fakeSource{err: &SourceError{Source: models.SourceDirect, Timeout: true, Err: errors.New("timed out")}},
			&fakeSource{rec: apiFixture()},
		)

		result, err := h.Extract(context.Background(), "https://youtu.be/vid00000001")
		if err != nil {
			t.Fatalf("one healthy source should be enough: %v", err)
		}
		if result.Sources.Direct || !result.Sources.API {
			t.Errorf("unexpected sources: %+v", result.Sources)
		}
		if result.Data.DataSources.Primary != models.SourceAPI {
			t.Errorf("primary should fall back to the API, got %q", result.Data.DataSources.Primary)
		}
	})

	t.Run("api down", func(t *testing.T) {
		h := newFakeHybrid(
			&fakeSource{rec: directFixture()},
			&fakeSource{err: &SourceError{Source: models.SourceAPI, Err: errors.New("quota exhausted")}},
		)

		result, err := h.Extract(context.Background(), "https://youtu.be/vid00000001")
		if err != nil {
			t.Fatalf("one healthy source should be enough: %v", err)
		}
		if result.Data.LikeCount != 0 {
			t.Errorf("api stats should be zero without the API, got %d", result.Data.LikeCount)
		}
	})
}

func TestHybridExtractBothSourcesDown(t *testing.T) {
	h := newFakeHybrid(
		&fakeSource{err: errors.New("scrape blocked")},
		&fakeSource{err: errors.New("quota exhausted")},
	)

	result, err := h.Extract(context.Background(), "https://youtu.be/vid00000001")
	if err == nil {
		t.Fatal("expected error when every source fails")
	}
	var bothErr *BothSourcesFailedError
	if !errors.As(err, &bothErr) {
		t.Fatalf("expected BothSourcesFailedError, got %T", err)
	}
	if result.Success || result.Data != nil {
		t.Errorf("failed extraction must not carry data: %+v", result)
	}
	if result.Error == "" {
		t.Error("result should carry the failure description")
	}
}

func TestHybridExtractInvalidURL(t *testing.T) {
	h := newFakeHybrid(&fakeSource{}, &fakeSource{})

	result, err := h.Extract(context.Background(), "https://example.com/not-youtube")
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
	if result.Success {
		t.Error("invalid URL must fail fast")
	}
}
