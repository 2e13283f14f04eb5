package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"igpost/pkg/errors"
	"igpost/pkg/logger"
	"igpost/pkg/ratelimit"
	"igpost/pkg/retry"
)

// MockClient is a mock implementation of the Instagram client
type MockClient struct {
	downloadDelay   time.Duration
	downloadError   error
	failFirst       int32
	downloadCounter int32
}

func (m *MockClient) DownloadMedia(ctx context.Context, url string) ([]byte, error) {
	n := atomic.AddInt32(&m.downloadCounter, 1)
	if m.downloadDelay > 0 {
		time.Sleep(m.downloadDelay)
	}
	if m.downloadError != nil && (m.failFirst == 0 || n <= m.failFirst) {
		return nil, m.downloadError
	}
	return []byte("mock media data"), nil
}

func (m *MockClient) GetDownloadCount() int {
	return int(atomic.LoadInt32(&m.downloadCounter))
}

// MockStorage is a mock implementation of the storage manager
type MockStorage struct {
	saved     map[string]bool
	saveError error
	mu        sync.Mutex
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		saved: make(map[string]bool),
	}
}

func (m *MockStorage) IsDownloaded(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[name]
}

func (m *MockStorage) SaveMedia(r io.Reader, name string) (string, error) {
	if m.saveError != nil {
		return "", m.saveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[name] = true
	return "/downloads/" + name, nil
}

func (m *MockStorage) GetSavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func fastRetry(retries int) *retry.Config {
	return &retry.Config{
		Retries: retries,
		Backoff: retry.NewDoublingBackoff(time.Millisecond),
		RetryIf: ShouldRetry,
	}
}

// runJobs submits jobs to a started pool, stops it and returns all results
func runJobs(t *testing.T, pool *WorkerPool, jobs []DownloadJob) []DownloadResult {
	t.Helper()

	var results []DownloadResult
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	for i, job := range jobs {
		if err := pool.Submit(job); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()
	return results
}

func makeJobs(n int) []DownloadJob {
	jobs := make([]DownloadJob, n)
	for i := range jobs {
		jobs[i] = DownloadJob{
			URL:       fmt.Sprintf("https://scontent.cdninstagram.com/v/%d.jpg", i),
			Shortcode: "C8x1Y2zABCD",
			Index:     i + 1,
			Name:      fmt.Sprintf("C8x1Y2zABCD_%02d.jpg", i+1),
			MediaType: "image",
		}
	}
	return jobs
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	mockClient := &MockClient{downloadDelay: 10 * time.Millisecond}
	mockStorage := NewMockStorage()
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)
	log := logger.NewTestLogger()

	pool := NewWorkerPool(context.Background(), 3, mockClient, mockStorage, rateLimiter, log)
	pool.Start()

	numJobs := 10
	results := runJobs(t, pool, makeJobs(numJobs))

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}

	for _, result := range results {
		if !result.Success || result.Skipped {
			t.Errorf("Expected job %d to be downloaded, got %+v", result.Job.Index, result)
		}
		if result.Path != "/downloads/"+result.Job.Name {
			t.Errorf("Unexpected path %s", result.Path)
		}
		if result.Size != len("mock media data") {
			t.Errorf("Unexpected size %d", result.Size)
		}
	}

	if mockClient.GetDownloadCount() != numJobs {
		t.Errorf("Expected %d download calls, got %d", numJobs, mockClient.GetDownloadCount())
	}
	if mockStorage.GetSavedCount() != numJobs {
		t.Errorf("Expected %d saved files, got %d", numJobs, mockStorage.GetSavedCount())
	}
	if got := len(log.GetMessagesByLevel("INFO")); got < numJobs {
		t.Errorf("Expected at least %d info messages, got %d", numJobs, got)
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	mockClient := &MockClient{downloadError: fmt.Errorf("download error")}
	mockStorage := NewMockStorage()

	pool := NewWorkerPool(context.Background(), 2, mockClient, mockStorage, nil, logger.NewNopLogger())
	pool.SetRetryConfig(fastRetry(3))
	pool.Start()

	numJobs := 5
	results := runJobs(t, pool, makeJobs(numJobs))

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
	for _, result := range results {
		if result.Success {
			t.Error("Expected all downloads to fail")
		}
		if result.Error == nil {
			t.Error("Expected error in result")
		}
	}

	// plain errors are not retried
	if mockClient.GetDownloadCount() != numJobs {
		t.Errorf("Expected %d download calls, got %d", numJobs, mockClient.GetDownloadCount())
	}
}

func TestWorkerPoolRetriesThrottledDownloads(t *testing.T) {
	mockClient := &MockClient{
		downloadError: errors.NewHTTPStatus(http.StatusTooManyRequests, ""),
		failFirst:     2,
	}
	mockStorage := NewMockStorage()

	pool := NewWorkerPool(context.Background(), 1, mockClient, mockStorage, nil, logger.NewNopLogger())
	pool.SetRetryConfig(fastRetry(2))
	pool.Start()

	results := runJobs(t, pool, makeJobs(1))

	if len(results) != 1 || !results[0].Success {
		t.Fatalf("Expected a successful download after retries, got %+v", results)
	}
	if mockClient.GetDownloadCount() != 3 {
		t.Errorf("Expected 3 download calls, got %d", mockClient.GetDownloadCount())
	}
}

func TestWorkerPoolSaveError(t *testing.T) {
	mockStorage := NewMockStorage()
	mockStorage.saveError = fmt.Errorf("disk full")

	pool := NewWorkerPool(context.Background(), 1, &MockClient{}, mockStorage, nil, logger.NewNopLogger())
	pool.Start()

	results := runJobs(t, pool, makeJobs(2))
	for _, result := range results {
		if result.Success || result.Error == nil {
			t.Errorf("Expected save failure, got %+v", result)
		}
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	mockClient := &MockClient{downloadDelay: 100 * time.Millisecond}
	mockStorage := NewMockStorage()
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewWorkerPool(context.Background(), 5, mockClient, mockStorage, rateLimiter, logger.NewNopLogger())
	pool.Start()

	numJobs := 10
	startTime := time.Now()
	results := runJobs(t, pool, makeJobs(numJobs))
	elapsed := time.Since(startTime)

	// With 5 workers and 10 jobs taking 100ms each, it should take ~200ms
	expectedTime := 400 * time.Millisecond
	if elapsed > expectedTime {
		t.Errorf("Downloads took too long: %v (expected < %v)", elapsed, expectedTime)
	}

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
}

func TestWorkerPoolDuplicateDetection(t *testing.T) {
	mockClient := &MockClient{}
	mockStorage := NewMockStorage()

	jobs := makeJobs(4)
	mockStorage.saved[jobs[1].Name] = true
	mockStorage.saved[jobs[3].Name] = true

	pool := NewWorkerPool(context.Background(), 2, mockClient, mockStorage, nil, logger.NewNopLogger())
	pool.Start()

	results := runJobs(t, pool, jobs)

	if len(results) != len(jobs) {
		t.Errorf("Expected %d results, got %d", len(jobs), len(results))
	}

	skipped := 0
	for _, result := range results {
		if !result.Success {
			t.Errorf("Expected job %d to succeed", result.Job.Index)
		}
		if result.Skipped {
			skipped++
		}
	}

	if skipped != 2 {
		t.Errorf("Expected 2 skipped jobs, got %d", skipped)
	}
	if mockClient.GetDownloadCount() != 2 {
		t.Errorf("Expected 2 download calls, got %d", mockClient.GetDownloadCount())
	}
}

func TestWorkerPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(ctx, 1, &MockClient{}, NewMockStorage(), nil, logger.NewNopLogger())
	pool.Start()
	cancel()

	// may be accepted or refused depending on which select case wins
	_ = pool.Submit(makeJobs(1)[0])

	done := make(chan struct{})
	go func() {
		for range pool.Results() {
		}
		close(done)
	}()
	pool.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected pool to stop after cancellation")
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttled", errors.NewHTTPStatus(http.StatusTooManyRequests, ""), true},
		{"forbidden", errors.NewHTTPStatus(http.StatusForbidden, ""), true},
		{"server error", errors.NewHTTPStatus(http.StatusBadGateway, ""), true},
		{"not found", errors.NewHTTPStatus(http.StatusNotFound, ""), false},
		{"network", errors.Wrap(errors.ErrorTypeNetwork, "reset", fmt.Errorf("connection reset")), true},
		{"cancelled", context.Canceled, false},
		{"plain", fmt.Errorf("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetry(tt.err); got != tt.want {
				t.Errorf("ShouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWorkerPoolQueueSize(t *testing.T) {
	log := logger.NewTestLogger()
	pool := NewWorkerPool(context.Background(), 2, &MockClient{}, NewMockStorage(), nil, log)

	if got := pool.GetActiveWorkers(); got != 2 {
		t.Errorf("Expected 2 workers, got %d", got)
	}

	// queued before Start so nothing is consumed yet
	for _, job := range makeJobs(2) {
		if err := pool.Submit(job); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	if got := pool.GetQueueSize(); got != 2 {
		t.Errorf("Expected queue size 2, got %d", got)
	}

	submitted := log.GetMessagesByLevel("DEBUG")
	if len(submitted) != 2 || submitted[1].Fields["queue_size"] != 2 {
		t.Errorf("Expected queue size logged on submit, got %+v", submitted)
	}

	pool.Start()
	pool.Stop()
	count := 0
	for range pool.Results() {
		count++
	}
	if count != 2 {
		t.Errorf("Expected 2 results, got %d", count)
	}
	if got := pool.GetQueueSize(); got != 0 {
		t.Errorf("Expected empty queue after Stop, got %d", got)
	}
}

func TestWorkerPoolDefaultsToOneWorker(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 0, &MockClient{}, NewMockStorage(), nil, logger.NewNopLogger())
	if got := pool.GetActiveWorkers(); got != 1 {
		t.Errorf("Expected 1 worker, got %d", got)
	}
}
