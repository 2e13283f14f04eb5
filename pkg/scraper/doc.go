// Package scraper looks up public Instagram posts and downloads their media.
//
// A lookup turns a post URL into its shortcode, fetches the media node from
// the GraphQL endpoint (retrying throttled attempts with a doubling delay)
// and normalizes it into an instagram.Result. Every failure surfaces as a
// single error of type errors.ErrorTypeLookup whose message starts with
// "instagram error: "; the underlying cause stays reachable through
// errors.Is and errors.As.
//
// Usage:
//
//	result, err := scraper.Search(ctx, "https://www.instagram.com/p/C8x1Y2zABCD/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.URLs)
//
// A configured Scraper can also download the media of a post:
//
//	s, err := scraper.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	summary, err := s.Download(ctx, postURL, "downloads")
//
// Storage:
//
// Media files are saved as {shortcode}_{NN}.jpg or .mp4 in the output
// directory. Files already present are skipped. When output.save_metadata is
// set, the normalized post is written alongside as {shortcode}.json or .yaml.
package scraper
