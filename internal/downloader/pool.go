package downloader

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	"igpost/pkg/errors"
	"igpost/pkg/logger"
	"igpost/pkg/ratelimit"
	"igpost/pkg/retry"
)

// DefaultDownloadRetries is how many times a failed media download is retried
const DefaultDownloadRetries = 2

// DownloadJob represents a single media file of a post
type DownloadJob struct {
	URL       string
	Shortcode string
	// Index is the 1-based position of the item in the post
	Index     int
	Name      string
	MediaType string
}

// DownloadResult represents the result of a download job
type DownloadResult struct {
	Job      DownloadJob
	Success  bool
	Skipped  bool
	Path     string
	Error    error
	Duration time.Duration
	Size     int
}

// MediaDownloader fetches the bytes behind a media URL
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}

// MediaStorage stores downloaded media files
type MediaStorage interface {
	IsDownloaded(name string) bool
	SaveMedia(r io.Reader, name string) (string, error)
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DownloadJob
	resultQueue chan DownloadResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	client      MediaDownloader
	storage     MediaStorage
	rateLimiter ratelimit.Limiter
	retry       *retry.Config
	jobTimeout  time.Duration
	logger      logger.Logger
}

// NewWorkerPool creates a download worker pool bound to ctx. rateLimiter
// may be nil.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	client MediaDownloader,
	storage MediaStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)

	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan DownloadJob, numWorkers*2),
		resultQueue: make(chan DownloadResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		client:      client,
		storage:     storage,
		rateLimiter: rateLimiter,
		retry: &retry.Config{
			Retries: DefaultDownloadRetries,
			Backoff: retry.DefaultExponentialBackoff(),
			RetryIf: ShouldRetry,
			Logger:  log,
		},
		logger: log,
	}
}

// SetRetryConfig replaces the retry policy applied to each download.
// It must be called before Start.
func (wp *WorkerPool) SetRetryConfig(cfg *retry.Config) {
	if cfg.Logger == nil {
		cfg.Logger = wp.logger
	}
	wp.retry = cfg
}

// SetJobTimeout bounds each download attempt. Zero disables the bound.
func (wp *WorkerPool) SetJobTimeout(d time.Duration) {
	wp.jobTimeout = d
}

// ShouldRetry reports whether a failed media download is worth another
// attempt: throttling, server errors and network failures are.
func ShouldRetry(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.IsRetryable(err) || errors.StatusCode(err) >= 500 {
		return true
	}
	return stderrors.Is(err, errors.ErrNetwork)
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for queued jobs to finish and closes the result channel
func (wp *WorkerPool) Stop() {
	wp.logger.Debug("Stopping worker pool...")

	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("Worker pool stopped")
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job DownloadJob) error {
	select {
	case wp.jobQueue <- job:
		wp.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
			"shortcode":  job.Shortcode,
			"index":      job.Index,
			"queue_size": wp.GetQueueSize(),
		})
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan DownloadResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		var result DownloadResult
		if err := wp.ctx.Err(); err != nil {
			// drain so Stop never blocks on a full queue
			result = DownloadResult{Job: job, Error: err}
		} else {
			result = wp.processJob(job, id)
		}

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
		}
	}
}

// processJob handles a single download job
func (wp *WorkerPool) processJob(job DownloadJob, workerID int) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}

	if wp.storage.IsDownloaded(job.Name) {
		wp.logger.DebugWithFields("Media already downloaded", map[string]interface{}{
			"worker_id": workerID,
			"name":      job.Name,
		})
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		logger.LogDownload(wp.logger, job.Shortcode, job.Index, job.MediaType, false, nil)
		return result
	}

	data, err := retry.DoWithResult(wp.ctx, func() ([]byte, error) {
		if wp.rateLimiter != nil {
			if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
				return nil, err
			}
		}
		return wp.download(job.URL)
	}, wp.retry)
	if err != nil {
		result.Error = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)
		logger.LogDownload(wp.logger, job.Shortcode, job.Index, job.MediaType, false, result.Error)
		return result
	}

	result.Size = len(data)

	path, err := wp.storage.SaveMedia(bytes.NewReader(data), job.Name)
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		logger.LogDownload(wp.logger, job.Shortcode, job.Index, job.MediaType, false, result.Error)
		return result
	}

	result.Success = true
	result.Path = path
	result.Duration = time.Since(start)

	logger.LogDownload(wp.logger, job.Shortcode, job.Index, job.MediaType, true, nil)
	wp.logger.DebugWithFields("Worker completed job", map[string]interface{}{
		"worker_id": workerID,
		"name":      job.Name,
		"size":      result.Size,
		"duration":  result.Duration,
	})

	return result
}

func (wp *WorkerPool) download(url string) ([]byte, error) {
	ctx := wp.ctx
	if wp.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.jobTimeout)
		defer cancel()
	}
	return wp.client.DownloadMedia(ctx, url)
}

// GetQueueSize returns the current number of jobs in the queue
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.jobQueue)
}

// GetActiveWorkers returns the number of workers
func (wp *WorkerPool) GetActiveWorkers() int {
	return wp.numWorkers
}
