package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igpost/pkg/config"
	"igpost/pkg/errors"
	"igpost/pkg/logger"
)

const imagePostJSON = `{
  "data": {
    "xdt_shortcode_media": {
      "__typename": "XDTGraphImage",
      "id": "3300000000000000001",
      "shortcode": "C8x1Y2zABCD",
      "is_video": false,
      "display_url": "https://scontent.cdninstagram.com/v/display.jpg",
      "dimensions": {"height": 1350, "width": 1080},
      "display_resources": [
        {"src": "https://scontent.cdninstagram.com/v/640.jpg", "config_width": 640, "config_height": 800},
        {"src": "https://scontent.cdninstagram.com/v/1080.jpg", "config_width": 1080, "config_height": 1350}
      ],
      "owner": {"username": "natgeo", "full_name": "National Geographic", "is_verified": true, "is_private": false,
                "edge_followed_by": {"count": 280000000}},
      "edge_media_preview_like": {"count": 1234},
      "edge_media_to_caption": {"edges": [{"node": {"text": "Sunrise", "created_at": "1717171717"}}]}
    }
  },
  "status": "ok"
}`

// fakeInstagram serves the root page and the GraphQL endpoint. queryStatus
// returns the status for the n-th query (0-based); 200 serves queryBody.
type fakeInstagram struct {
	t           *testing.T
	server      *httptest.Server
	queryStatus func(n int) int
	queryBody   string
	rootStatus  func(n int) int
	noCookie    bool

	mu          sync.Mutex
	rootHits    []time.Time
	queryHits   []time.Time
	lastForm    map[string]string
	lastHeaders http.Header
}

func newFakeInstagram(t *testing.T) *fakeInstagram {
	f := &fakeInstagram{
		t:           t,
		queryStatus: func(int) int { return http.StatusOK },
		rootStatus:  func(int) int { return http.StatusOK },
		queryBody:   imagePostJSON,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeInstagram) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/":
		n := len(f.rootHits)
		f.rootHits = append(f.rootHits, time.Now())
		if status := f.rootStatus(n); status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		if !f.noCookie {
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "TOKEN42", Path: "/"})
		}
		w.Write([]byte("<html></html>"))
	case GraphQLPath:
		n := len(f.queryHits)
		f.queryHits = append(f.queryHits, time.Now())
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.NoError(f.t, r.ParseForm())
		f.lastForm = map[string]string{
			"variables": r.PostForm.Get("variables"),
			"doc_id":    r.PostForm.Get("doc_id"),
		}
		f.lastHeaders = r.Header.Clone()

		if status := f.queryStatus(n); status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"message":"Please wait a few minutes before you try again.","status":"fail"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(f.queryBody))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeInstagram) client(log logger.Logger) *Client {
	return NewClientWithConfig(&config.InstagramConfig{BaseURL: f.server.URL}, nil, log)
}

func (f *fakeInstagram) queries() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.queryHits...)
}

func (f *fakeInstagram) lastQuery() (map[string]string, http.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm, f.lastHeaders
}

func (f *fakeInstagram) roots() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.rootHits...)
}

func TestFetchMediaSuccess(t *testing.T) {
	fake := newFakeInstagram(t)
	client := fake.client(logger.NewTestLogger())

	node, err := client.FetchMedia(context.Background(), "C8x1Y2zABCD", 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "C8x1Y2zABCD", node.Shortcode)
	assert.Equal(t, ShapeSingle, node.Shape())

	form, headers := fake.lastQuery()
	assert.Equal(t, "TOKEN42", headers.Get("X-CSRFToken"))
	assert.Equal(t, "application/x-www-form-urlencoded", headers.Get("Content-Type"))
	assert.Equal(t, UserAgent, headers.Get("User-Agent"))
	assert.Equal(t, DocID, form["doc_id"])

	var variables map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(form["variables"]), &variables))
	assert.Equal(t, map[string]interface{}{
		"shortcode":               "C8x1Y2zABCD",
		"fetch_tagged_user_count": nil,
		"hoisted_comment_id":      nil,
		"hoisted_reply_id":        nil,
	}, variables)
}

func TestFetchMediaRetriesThenSucceeds(t *testing.T) {
	fake := newFakeInstagram(t)
	fake.queryStatus = func(n int) int {
		if n == 0 {
			return http.StatusTooManyRequests
		}
		return http.StatusOK
	}
	client := fake.client(logger.NewTestLogger())

	node, err := client.FetchMedia(context.Background(), "C8x1Y2zABCD", 2, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, node)

	queries := fake.queries()
	require.Len(t, queries, 2)
	roots := fake.roots()
	require.Len(t, roots, 2, "a fresh token is fetched for every attempt")

	wait := roots[1].Sub(queries[0])
	assert.GreaterOrEqual(t, wait, 100*time.Millisecond)
	assert.Less(t, wait, 200*time.Millisecond)
}

func TestFetchMediaPersistentThrottle(t *testing.T) {
	fake := newFakeInstagram(t)
	fake.queryStatus = func(int) int { return http.StatusTooManyRequests }
	log := logger.NewTestLogger()
	client := fake.client(log)

	_, err := client.FetchMedia(context.Background(), "C8x1Y2zABCD", 3, 20*time.Millisecond)
	require.Error(t, err)

	assert.ErrorIs(t, err, errors.ErrFetchFailed)
	assert.ErrorIs(t, err, errors.ErrHTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, errors.StatusCode(err))
	assert.Equal(t, `instagram request failed with retries: {"message":"Please wait a few minutes before you try again.","status":"fail"}`, err.Error())

	queries := fake.queries()
	roots := fake.roots()
	require.Len(t, queries, 4, "retries + 1 attempts")
	require.Len(t, roots, 4)

	// waits double: 20ms, 40ms, 80ms
	for i, want := range []time.Duration{20 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond} {
		assert.GreaterOrEqual(t, roots[i+1].Sub(queries[i]), want, "wait %d", i)
	}

	backoffs := 0
	for _, msg := range log.GetMessagesByLevel("WARN") {
		if msg.Message == "Request throttled, backing off" {
			backoffs++
			assert.Equal(t, "C8x1Y2zABCD", msg.Fields["shortcode"])
		}
	}
	assert.Equal(t, 3, backoffs)
	assert.True(t, log.HasMessage("failed to fetch post"))
}

func TestFetchMediaForbiddenIsRetried(t *testing.T) {
	fake := newFakeInstagram(t)
	fake.queryStatus = func(n int) int {
		if n < 2 {
			return http.StatusForbidden
		}
		return http.StatusOK
	}
	client := fake.client(logger.NewNopLogger())

	_, err := client.FetchMedia(context.Background(), "C8x1Y2zABCD", 2, time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, fake.queries(), 3)
}

func TestFetchMediaZeroRetries(t *testing.T) {
	fake := newFakeInstagram(t)
	fake.queryStatus = func(int) int { return http.StatusTooManyRequests }
	client := fake.client(logger.NewNopLogger())

	_, err := client.FetchMedia(context.Background(), "C8x1Y2zABCD", 0, time.Second)
	require.Error(t, err)
	assert.Len(t, fake.queries(), 1)
}

func TestFetchMediaNonRetryable(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fakeInstagram)
		wantErr error
		queries int
	}{
		{
			name:    "missing media node",
			setup:   func(f *fakeInstagram) { f.queryBody = `{"data":{"xdt_shortcode_media":null},"status":"ok"}` },
			wantErr: errors.ErrUnsupportedContent,
			queries: 1,
		},
		{
			name:    "missing data",
			setup:   func(f *fakeInstagram) { f.queryBody = `{"status":"ok"}` },
			wantErr: errors.ErrUnsupportedContent,
			queries: 1,
		},
		{
			name:    "malformed json",
			setup:   func(f *fakeInstagram) { f.queryBody = `<html>login</html>` },
			wantErr: errors.ErrParsing,
			queries: 1,
		},
		{
			name:    "server error",
			setup:   func(f *fakeInstagram) { f.queryStatus = func(int) int { return http.StatusInternalServerError } },
			wantErr: errors.ErrHTTPStatus,
			queries: 1,
		},
		{
			name:    "missing cookie",
			setup:   func(f *fakeInstagram) { f.noCookie = true },
			wantErr: errors.ErrTokenNotFound,
			queries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeInstagram(t)
			tt.setup(fake)
			client := fake.client(logger.NewNopLogger())

			_, err := client.FetchMedia(context.Background(), "C8x1Y2zABCD", 3, time.Millisecond)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrFetchFailed)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, fake.queries(), tt.queries)
			assert.Len(t, fake.roots(), 1)
		})
	}
}

func TestFetchMediaUnsupportedContentMessage(t *testing.T) {
	fake := newFakeInstagram(t)
	fake.queryBody = `{"data":{"xdt_shortcode_media":null}}`
	client := fake.client(logger.NewNopLogger())

	_, err := client.FetchMedia(context.Background(), "private1", 5, time.Millisecond)
	assert.EqualError(t, err, "instagram request failed with retries: unsupported type or private content")
}

func TestFetchMediaThrottledTokenIsRetried(t *testing.T) {
	fake := newFakeInstagram(t)
	fake.rootStatus = func(n int) int {
		if n == 0 {
			return http.StatusForbidden
		}
		return http.StatusOK
	}
	client := fake.client(logger.NewNopLogger())

	_, err := client.FetchMedia(context.Background(), "C8x1Y2zABCD", 1, time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, fake.roots(), 2)
	assert.Len(t, fake.queries(), 1)
}

func TestFetchMediaCancelledDuringBackoff(t *testing.T) {
	fake := newFakeInstagram(t)
	fake.queryStatus = func(int) int { return http.StatusTooManyRequests }
	client := fake.client(logger.NewNopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.FetchMedia(ctx, "C8x1Y2zABCD", 3, time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, errors.ErrFetchFailed)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchPostUsesDefaults(t *testing.T) {
	fake := newFakeInstagram(t)
	client := fake.client(logger.NewNopLogger())

	node, err := client.FetchPost(context.Background(), "C8x1Y2zABCD")
	require.NoError(t, err)
	assert.Equal(t, "C8x1Y2zABCD", node.Shortcode)
}
