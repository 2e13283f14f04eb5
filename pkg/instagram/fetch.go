package instagram

import (
	"context"
	"time"

	"igpost/pkg/errors"
	"igpost/pkg/retry"
)

const (
	// DefaultFetchRetries is the retry budget used by FetchPost
	DefaultFetchRetries = 3
	// DefaultFetchDelay is the first backoff wait used by FetchPost
	DefaultFetchDelay = time.Second
)

// FetchPost fetches the raw media node for shortcode with the default retry
// budget
func (c *Client) FetchPost(ctx context.Context, shortcode string) (*Node, error) {
	return c.FetchMedia(ctx, shortcode, DefaultFetchRetries, DefaultFetchDelay)
}

// FetchMedia fetches the raw media node for shortcode. Attempts that fail
// with 429 or 403 are repeated up to retries more times, waiting delay before
// the first repeat and doubling it each time. Every terminal failure is
// returned as a FetchFailed error wrapping its cause.
func (c *Client) FetchMedia(ctx context.Context, shortcode string, retries int, delay time.Duration) (*Node, error) {
	if retries < 0 {
		retries = 0
	}
	if delay < 0 {
		delay = 0
	}

	log := c.logger.WithField("shortcode", shortcode)

	node, err := retry.DoWithResult(ctx, func() (*Node, error) {
		return c.fetchOnce(ctx, shortcode)
	}, &retry.Config{
		Retries: retries,
		Backoff: retry.NewDoublingBackoff(delay),
		RetryIf: retry.DefaultRetryIf,
		Logger:  log,
	})
	if err != nil {
		log.WithError(err).ErrorWithFields("failed to fetch post", map[string]interface{}{
			"status": errors.StatusCode(err),
		})
		return nil, errors.NewFetchFailed(err)
	}

	log.DebugWithFields("successfully fetched post", map[string]interface{}{
		"typename": node.Typename,
	})
	return node, nil
}

// fetchOnce performs a single token + query round trip
func (c *Client) fetchOnce(ctx context.Context, shortcode string) (*Node, error) {
	token, err := c.FetchToken(ctx)
	if err != nil {
		return nil, err
	}

	var response GraphQLResponse
	err = c.postForm(ctx, GraphQLURL(c.baseURL), BuildQueryForm(shortcode, c.docID), map[string]string{
		"X-CSRFToken": token,
	}, &response)
	if err != nil {
		return nil, err
	}

	if response.Data == nil || response.Data.ShortcodeMedia == nil {
		return nil, errors.NewUnsupportedContent()
	}

	return response.Data.ShortcodeMedia, nil
}
