package scraper

import (
	"context"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"igpost/internal/downloader"
	"igpost/pkg/config"
	"igpost/pkg/errors"
	"igpost/pkg/instagram"
	"igpost/pkg/logger"
	"igpost/pkg/metadata"
	"igpost/pkg/ratelimit"
	"igpost/pkg/storage"
)

// Scraper looks up Instagram posts and downloads their media
type Scraper struct {
	client      PostClient
	rateLimiter ratelimit.Limiter
	config      *config.Config
	logger      logger.Logger
}

// Summary reports the outcome of a Download
type Summary struct {
	Result       *instagram.Result
	Shortcode    string
	Dir          string
	Saved        int
	Skipped      int
	Failed       int
	Filtered     int
	Files        []string
	MetadataPath string
	Errors       []error
}

// New creates a Scraper from cfg. A nil cfg uses the defaults.
func New(cfg *config.Config) (*Scraper, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.GetLogger()
	rateLimiter := ratelimit.New(cfg.RateLimit)
	client := instagram.NewClientWithConfig(&cfg.Instagram, rateLimiter, log)

	return NewWithClient(client, rateLimiter, cfg, log), nil
}

// NewWithClient creates a Scraper around an existing client. rateLimiter
// paces media downloads and may be nil.
func NewWithClient(client PostClient, rateLimiter ratelimit.Limiter, cfg *config.Config, log logger.Logger) *Scraper {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{
		client:      client,
		rateLimiter: rateLimiter,
		config:      cfg,
		logger:      log,
	}
}

// Search looks up a post with a default Scraper. Without options it makes
// up to five retries starting at one second.
func Search(ctx context.Context, rawURL string, opts ...Option) (*instagram.Result, error) {
	s, err := New(nil)
	if err != nil {
		return nil, errors.NewLookup(err)
	}
	return s.Lookup(ctx, rawURL, append([]Option{WithOptions(DefaultOptions())}, opts...)...)
}

// Lookup fetches the post behind rawURL and returns its normalized form.
// Every failure is returned as a Lookup error. A shortcode that is empty,
// longer than 64 characters or outside [A-Za-z0-9_-] fails without a
// request.
func (s *Scraper) Lookup(ctx context.Context, rawURL string, opts ...Option) (*instagram.Result, error) {
	result, _, err := s.lookup(ctx, rawURL, s.options(opts))
	return result, err
}

func (s *Scraper) options(opts []Option) Options {
	options := Options{
		Retries: s.config.Retry.Retries,
		Delay:   s.config.Retry.Delay,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func (s *Scraper) lookup(ctx context.Context, rawURL string, options Options) (*instagram.Result, string, error) {
	shortcode := instagram.ExtractShortcode(rawURL)
	if !instagram.IsValidShortcode(shortcode) {
		s.logger.WarnWithFields("no shortcode in url", map[string]interface{}{
			"url": rawURL,
		})
		return nil, "", errors.NewLookup(errors.New(errors.ErrorTypeInvalidURL, fmt.Sprintf("no post shortcode found in %q", rawURL)))
	}

	s.logger.DebugWithFields("looking up post", map[string]interface{}{
		"shortcode": shortcode,
		"retries":   options.Retries,
		"delay_ms":  options.Delay.Milliseconds(),
	})

	node, err := s.client.FetchMedia(ctx, shortcode, options.Retries, options.Delay)
	if err != nil {
		return nil, shortcode, errors.NewLookup(err)
	}

	result := instagram.Normalize(node)
	s.logger.InfoWithFields("post looked up", map[string]interface{}{
		"shortcode":     shortcode,
		"results_count": result.ResultsCount,
		"username":      result.Username,
	})

	return result, shortcode, nil
}

// Download looks up the post behind rawURL and stores its media in dir,
// falling back to the configured output directory when dir is empty.
// Individual download failures are counted in the summary; the returned
// error is reserved for lookup, storage setup and cancellation.
func (s *Scraper) Download(ctx context.Context, rawURL, dir string, opts ...Option) (*Summary, error) {
	if dir == "" {
		dir = s.config.Output.BaseDirectory
	}

	result, shortcode, err := s.lookup(ctx, rawURL, s.options(opts))
	if err != nil {
		return nil, err
	}

	storageManager, err := storage.NewManager(dir)
	if err != nil {
		s.logger.WithError(err).WithField("dir", dir).Error("Failed to create storage manager")
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	summary := &Summary{
		Result:    result,
		Shortcode: shortcode,
		Dir:       dir,
	}
	meta := metadata.New(shortcode, rawURL, result)

	workerPool := downloader.NewWorkerPool(
		ctx,
		s.config.Download.ConcurrentDownloads,
		s.client,
		storageManager,
		s.rateLimiter,
		s.logger,
	)
	workerPool.SetJobTimeout(s.config.Download.Timeout)
	workerPool.Start()

	var g errgroup.Group

	g.Go(func() error {
		for res := range workerPool.Results() {
			s.recordResult(summary, meta, storageManager, res)
		}
		return nil
	})

	filtered := 0
	g.Go(func() error {
		defer workerPool.Stop()
		for i, item := range result.Media {
			if s.filtered(item) {
				filtered++
				continue
			}
			job := downloader.DownloadJob{
				URL:       item.URL,
				Shortcode: shortcode,
				Index:     i + 1,
				Name:      storage.MediaFileName(shortcode, i+1, item.IsVideo()),
				MediaType: item.Type,
			}
			if err := workerPool.Submit(job); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	summary.Filtered = filtered
	sort.Strings(summary.Files)

	if s.config.Output.SaveMetadata {
		sort.Slice(meta.Files, func(i, j int) bool { return meta.Files[i].Index < meta.Files[j].Index })
		path, err := meta.Save(dir, s.config.Output.Format)
		if err != nil {
			s.logger.WithError(err).WithField("shortcode", shortcode).Error("Failed to save metadata")
			summary.Errors = append(summary.Errors, err)
		} else {
			summary.MetadataPath = path
		}
	}

	s.logger.InfoWithFields("Download finished", map[string]interface{}{
		"shortcode": shortcode,
		"saved":     summary.Saved,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"filtered":  summary.Filtered,
		"workers":   workerPool.GetActiveWorkers(),
	})

	return summary, nil
}

func (s *Scraper) filtered(item instagram.MediaItem) bool {
	if item.IsVideo() {
		return s.config.Download.SkipVideos
	}
	return s.config.Download.SkipImages
}

// recordResult runs on the single collector goroutine
func (s *Scraper) recordResult(summary *Summary, meta *metadata.PostMetadata, store *storage.Manager, res downloader.DownloadResult) {
	switch {
	case res.Error != nil:
		summary.Failed++
		summary.Errors = append(summary.Errors, fmt.Errorf("%s: %w", res.Job.Name, res.Error))
		return
	case res.Skipped:
		summary.Skipped++
		size := int64(0)
		if info, err := os.Stat(store.Path(res.Job.Name)); err == nil {
			size = info.Size()
		}
		meta.AddFile(res.Job.Index, res.Job.Name, size)
		summary.Files = append(summary.Files, store.Path(res.Job.Name))
	default:
		summary.Saved++
		meta.AddFile(res.Job.Index, res.Job.Name, int64(res.Size))
		summary.Files = append(summary.Files, res.Path)
	}
}
