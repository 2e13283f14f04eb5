// Package instagram looks up public Instagram posts through the web GraphQL
// endpoint.
//
// A lookup is two requests: a GET of the root page to obtain a CSRF token
// from its cookies, then a form POST of the shortcode media query carrying
// that token. Throttled (429) and forbidden (403) responses are retried with
// a doubling delay.
//
// Example usage:
//
//	client := instagram.NewClient(30*time.Second, logger.GetLogger())
//
//	node, err := client.FetchMedia(ctx, "C8x1Y2zABCD", 3, time.Second)
//	if err != nil {
//	    if errors.Is(err, igerrors.ErrUnsupportedContent) {
//	        // private account or unsupported post type
//	    }
//	    return err
//	}
//
//	result := instagram.Normalize(node)
//	for _, item := range result.Media {
//	    data, err := client.DownloadMedia(ctx, item.URL)
//	    // Handle media data
//	}
package instagram
