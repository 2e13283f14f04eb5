package instagram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// GraphQLPath is the endpoint the post query is posted to
	GraphQLPath = "/graphql/query"

	// DocID identifies the persisted shortcode media query
	DocID = "9510064595728286"

	// UserAgent is the browser User-Agent sent with every request
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0 Safari/537.36"
)

// PostMarkers are the path segments that precede a shortcode in a post URL
var PostMarkers = []string{"p", "reel", "tv", "reels"}

type queryVariables struct {
	Shortcode            string  `json:"shortcode"`
	FetchTaggedUserCount *int    `json:"fetch_tagged_user_count"`
	HoistedCommentID     *string `json:"hoisted_comment_id"`
	HoistedReplyID       *string `json:"hoisted_reply_id"`
}

// GraphQLURL returns the query endpoint under base
func GraphQLURL(base string) string {
	return strings.TrimRight(base, "/") + GraphQLPath
}

// BuildQueryForm builds the form body for the shortcode media query
func BuildQueryForm(shortcode, docID string) url.Values {
	// marshalling a struct of strings and nil pointers cannot fail
	variables, _ := json.Marshal(queryVariables{Shortcode: shortcode})

	form := url.Values{}
	form.Set("variables", string(variables))
	form.Set("doc_id", docID)
	return form
}

// ExtractShortcode returns the path segment following the first post marker
// in rawURL, or "" when there is none. Query strings and fragments are
// dropped. The segment is otherwise returned as is; callers that want to
// reject it before any request use IsValidShortcode.
func ExtractShortcode(rawURL string) string {
	parts := strings.Split(rawURL, "/")
	for i, part := range parts {
		if !isPostMarker(part) {
			continue
		}
		if i+1 >= len(parts) {
			return ""
		}
		shortcode := parts[i+1]
		if idx := strings.IndexAny(shortcode, "?#"); idx >= 0 {
			shortcode = shortcode[:idx]
		}
		return shortcode
	}
	return ""
}

func isPostMarker(segment string) bool {
	for _, marker := range PostMarkers {
		if segment == marker {
			return true
		}
	}
	return false
}

// IsValidShortcode checks that a shortcode only uses the URL-safe base64
// alphabet Instagram issues them in
func IsValidShortcode(shortcode string) bool {
	if shortcode == "" || len(shortcode) > 64 {
		return false
	}

	for _, char := range shortcode {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '-' || char == '_') {
			return false
		}
	}

	return true
}

// GetPostURL constructs the URL for a specific post
func GetPostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}
