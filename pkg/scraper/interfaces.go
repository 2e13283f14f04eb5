package scraper

import (
	"context"
	"time"

	"igpost/pkg/instagram"
)

// PostClient defines the Instagram operations the scraper depends on
type PostClient interface {
	FetchMedia(ctx context.Context, shortcode string, retries int, delay time.Duration) (*instagram.Node, error)
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}
