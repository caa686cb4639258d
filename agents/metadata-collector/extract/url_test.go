package extract

import (
	"errors"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "standard watch URL",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "watch URL with extra params before v",
			url:  "https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ&t=42s",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "short link",
			url:  "https://youtu.be/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "shorts URL",
			url:  "https://www.youtube.com/shorts/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "embed URL",
			url:  "https://www.youtube.com/embed/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "bare video id",
			url:  "dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name:    "not a video URL",
			url:     "https://www.youtube.com/@somechannel",
			wantErr: true,
		},
		{
			name:    "unrelated site",
			url:     "https://example.com/watch?v=dQw4w9WgXcQ",
			wantErr: true,
		},
		{
			name:    "empty string",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got id %q", tt.url, got)
				}
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("expected ErrInvalidURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalURLs(t *testing.T) {
	if got := WatchURL("dQw4w9WgXcQ"); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("WatchURL = %q", got)
	}
	if got := ChannelURL("UC123"); got != "https://www.youtube.com/channel/UC123" {
		t.Errorf("ChannelURL = %q", got)
	}
}
